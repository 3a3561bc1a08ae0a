package catalog

import (
	"github.com/maxxcraig/Stargazer/internal/orbit"
	"github.com/maxxcraig/Stargazer/internal/sphere"
)

// BodyKind distinguishes the Sun from the Keplerian planets; the two take
// different position pipelines.
type BodyKind string

const (
	KindPlanet BodyKind = "planet"
	KindSun    BodyKind = "sun"
)

// Star is an immutable catalog entry for a fixed star. Coordinates are J2000
// and never updated (no proper-motion modeling).
type Star struct {
	ID              string  `yaml:"id" json:"id"`
	Name            string  `yaml:"name" json:"name"`
	CommonName      string  `yaml:"common_name,omitempty" json:"common_name,omitempty"`
	RADeg           float64 `yaml:"ra" json:"ra"`
	DecDeg          float64 `yaml:"dec" json:"dec"`
	Magnitude       float64 `yaml:"magnitude" json:"magnitude"`
	SpectralClass   string  `yaml:"spectral_class,omitempty" json:"spectral_class,omitempty"`
	ConstellationID string  `yaml:"constellation,omitempty" json:"constellation,omitempty"`
}

// Equatorial returns the star's fixed celestial coordinates.
func (s Star) Equatorial() sphere.Equatorial {
	return sphere.Equatorial{RADeg: s.RADeg, DecDeg: s.DecDeg}
}

// Line is one stick-figure segment of a constellation, referencing two
// member stars by id.
type Line struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Constellation groups member stars and the line segments drawn between
// them. Every referenced star id must exist in the star collection; that is
// enforced when the catalog is built, never at query time.
type Constellation struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Abbreviation string   `yaml:"abbreviation" json:"abbreviation"`
	StarIDs      []string `yaml:"stars" json:"stars"`
	Lines        []Line   `yaml:"lines" json:"lines"`
}

// Physical holds a body's bulk properties in Earth-relative units.
// A negative rotation period means retrograde rotation.
type Physical struct {
	MassEarths         float64 `yaml:"mass_earths" json:"mass_earths"`
	DiameterEarths     float64 `yaml:"diameter_earths" json:"diameter_earths"`
	DistanceFromSunAU  float64 `yaml:"distance_from_sun_au" json:"distance_from_sun_au"`
	OrbitalPeriodDays  float64 `yaml:"orbital_period_days" json:"orbital_period_days"`
	RotationPeriodDays float64 `yaml:"rotation_period_days" json:"rotation_period_days"`
}

// Planet is a solar-system body: the Sun or a Keplerian planet. Elements are
// zeroed for the Sun, whose position comes from the solar ephemeris instead.
// Magnitude is the mean apparent visual magnitude, used only for brightness
// ordering and filtering, not photometric modeling.
type Planet struct {
	ID         string         `yaml:"id" json:"id"`
	Name       string         `yaml:"name" json:"name"`
	CommonName string         `yaml:"common_name,omitempty" json:"common_name,omitempty"`
	Kind       BodyKind       `yaml:"kind" json:"kind"`
	Magnitude  float64        `yaml:"magnitude" json:"magnitude"`
	Elements   orbit.Elements `yaml:"elements" json:"elements"`
	Physical   Physical       `yaml:"physical" json:"physical"`
}
