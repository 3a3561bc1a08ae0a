// Package catalog holds the immutable star, constellation, and planet
// collections and their read-only query methods. The catalog is built once,
// validated at construction, and safe for any number of concurrent readers
// afterward.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/maxxcraig/Stargazer/internal/sphere"
)

// ErrValidation marks seed data that violates a catalog invariant. It is
// raised at construction time only; queries never validate.
var ErrValidation = errors.New("catalog validation")

// Catalog owns all stars, constellations, and planets. Collections keep seed
// order; lookups go through id indexes. Nothing is ever mutated or deleted
// after New returns.
type Catalog struct {
	stars          []Star
	constellations []Constellation
	planets        []Planet

	starByID   map[string]int
	constByID  map[string]int
	planetByID map[string]int
}

// New builds a catalog from parsed seed entries, enforcing the load-time
// invariants: unique ids, coordinates in range, eccentricities below 1, and
// every constellation reference resolving to an existing star.
func New(stars []Star, constellations []Constellation, planets []Planet) (*Catalog, error) {
	c := &Catalog{
		stars:          stars,
		constellations: constellations,
		planets:        planets,
		starByID:       make(map[string]int, len(stars)),
		constByID:      make(map[string]int, len(constellations)),
		planetByID:     make(map[string]int, len(planets)),
	}

	for i, s := range stars {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: star %d has empty id", ErrValidation, i)
		}
		if _, dup := c.starByID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate star id %q", ErrValidation, s.ID)
		}
		if s.RADeg < 0 || s.RADeg >= 360 {
			return nil, fmt.Errorf("%w: star %q RA %v out of [0,360)", ErrValidation, s.ID, s.RADeg)
		}
		if s.DecDeg < -90 || s.DecDeg > 90 {
			return nil, fmt.Errorf("%w: star %q Dec %v out of [-90,90]", ErrValidation, s.ID, s.DecDeg)
		}
		c.starByID[s.ID] = i
	}

	for i, con := range constellations {
		if con.ID == "" {
			return nil, fmt.Errorf("%w: constellation %d has empty id", ErrValidation, i)
		}
		if _, dup := c.constByID[con.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate constellation id %q", ErrValidation, con.ID)
		}
		for _, id := range con.StarIDs {
			if _, ok := c.starByID[id]; !ok {
				return nil, fmt.Errorf("%w: constellation %q references unknown star %q", ErrValidation, con.ID, id)
			}
		}
		for _, line := range con.Lines {
			if _, ok := c.starByID[line.From]; !ok {
				return nil, fmt.Errorf("%w: constellation %q line references unknown star %q", ErrValidation, con.ID, line.From)
			}
			if _, ok := c.starByID[line.To]; !ok {
				return nil, fmt.Errorf("%w: constellation %q line references unknown star %q", ErrValidation, con.ID, line.To)
			}
		}
		c.constByID[con.ID] = i
	}

	for i, p := range planets {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: planet %d has empty id", ErrValidation, i)
		}
		if _, dup := c.planetByID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate planet id %q", ErrValidation, p.ID)
		}
		if p.Kind != KindPlanet && p.Kind != KindSun {
			return nil, fmt.Errorf("%w: planet %q has unknown kind %q", ErrValidation, p.ID, p.Kind)
		}
		if e := p.Elements.Eccentricity; e < 0 || e >= 1 {
			return nil, fmt.Errorf("%w: planet %q eccentricity %v out of [0,1)", ErrValidation, p.ID, e)
		}
		c.planetByID[p.ID] = i
	}

	return c, nil
}

// Stars returns all stars in seed order.
func (c *Catalog) Stars() []Star {
	return c.stars
}

// StarByID returns the star with the given id.
func (c *Catalog) StarByID(id string) (Star, bool) {
	i, ok := c.starByID[id]
	if !ok {
		return Star{}, false
	}
	return c.stars[i], true
}

// StarsBelowMagnitude returns stars at or brighter than max, brightest
// first. Equal magnitudes tie-break by id so the ordering is reproducible.
func (c *Catalog) StarsBelowMagnitude(max float64) []Star {
	out := make([]Star, 0, len(c.stars))
	for _, s := range c.stars {
		if s.Magnitude <= max {
			out = append(out, s)
		}
	}
	sortByBrightness(out)
	return out
}

// StarsInFieldOfView returns stars within radiusDeg/2 of center that are at
// or brighter than maxMagnitude, brightest first.
func (c *Catalog) StarsInFieldOfView(center sphere.Equatorial, radiusDeg, maxMagnitude float64) []Star {
	out := make([]Star, 0, 16)
	for _, s := range c.stars {
		if s.Magnitude > maxMagnitude {
			continue
		}
		if sphere.AngularSeparationDeg(s.Equatorial(), center) <= radiusDeg/2 {
			out = append(out, s)
		}
	}
	sortByBrightness(out)
	return out
}

// SearchStars matches the query case-insensitively against star names and
// common names, returning matches brightest first.
func (c *Catalog) SearchStars(query string) []Star {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	out := make([]Star, 0, 8)
	for _, s := range c.stars {
		if strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.CommonName), q) {
			out = append(out, s)
		}
	}
	sortByBrightness(out)
	return out
}

// Constellations returns all constellations in seed order.
func (c *Catalog) Constellations() []Constellation {
	return c.constellations
}

// ConstellationByID returns the constellation with the given id.
func (c *Catalog) ConstellationByID(id string) (Constellation, bool) {
	i, ok := c.constByID[id]
	if !ok {
		return Constellation{}, false
	}
	return c.constellations[i], true
}

// LineSegment is a constellation line with both endpoint stars resolved.
type LineSegment struct {
	From Star `json:"from"`
	To   Star `json:"to"`
}

// ConstellationLines resolves a constellation's line segments to their
// stars. The lookups cannot fail for a validated catalog.
func (c *Catalog) ConstellationLines(id string) ([]LineSegment, error) {
	con, ok := c.ConstellationByID(id)
	if !ok {
		return nil, fmt.Errorf("unknown constellation %q", id)
	}

	segments := make([]LineSegment, 0, len(con.Lines))
	for _, line := range con.Lines {
		from, _ := c.StarByID(line.From)
		to, _ := c.StarByID(line.To)
		segments = append(segments, LineSegment{From: from, To: to})
	}
	return segments, nil
}

// Planets returns all solar-system bodies in seed order (Sun included).
func (c *Catalog) Planets() []Planet {
	return c.planets
}

// PlanetByID returns the body with the given id.
func (c *Catalog) PlanetByID(id string) (Planet, bool) {
	i, ok := c.planetByID[id]
	if !ok {
		return Planet{}, false
	}
	return c.planets[i], true
}

// sortByBrightness orders ascending by magnitude (lower = brighter) with id
// as the deterministic tie-break.
func sortByBrightness(stars []Star) {
	sort.Slice(stars, func(i, j int) bool {
		if stars[i].Magnitude != stars[j].Magnitude {
			return stars[i].Magnitude < stars[j].Magnitude
		}
		return stars[i].ID < stars[j].ID
	})
}
