// Package sky computes observer-local placements for every catalog body:
// which stars and planets are up, where they sit in the sky, and in what
// order to present them.
package sky

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/maxxcraig/Stargazer/internal/astrotime"
	"github.com/maxxcraig/Stargazer/internal/catalog"
	"github.com/maxxcraig/Stargazer/internal/metrics"
	"github.com/maxxcraig/Stargazer/internal/orbit"
	"github.com/maxxcraig/Stargazer/internal/sphere"
)

// ErrValidation marks a request whose observer or time is out of range.
var ErrValidation = errors.New("invalid observation request")

const (
	// DefaultHorizonMarginDeg keeps bodies slightly below the geometric
	// horizon, where refraction still lifts them into view.
	DefaultHorizonMarginDeg = -0.5

	// DefaultMagnitudeLimit is the conventional naked-eye limit.
	DefaultMagnitudeLimit = 6.5
)

// Placement is one body positioned for a specific observer and instant.
type Placement struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	CommonName      string            `json:"common_name,omitempty"`
	Kind            string            `json:"kind"`
	Magnitude       float64           `json:"magnitude"`
	ConstellationID string            `json:"constellation,omitempty"`
	Equatorial      sphere.Equatorial `json:"equatorial"`
	Horizontal      sphere.Horizontal `json:"horizontal"`
}

// Request describes one sky computation. Zero-valued limits are NOT
// defaulted here; use NewRequest for the conventional defaults.
type Request struct {
	Observer         sphere.Observer
	Time             time.Time
	MagnitudeLimit   float64
	HorizonMarginDeg float64
}

// NewRequest builds a request with the default magnitude limit and horizon
// margin.
func NewRequest(obs sphere.Observer, t time.Time) Request {
	return Request{
		Observer:         obs,
		Time:             t,
		MagnitudeLimit:   DefaultMagnitudeLimit,
		HorizonMarginDeg: DefaultHorizonMarginDeg,
	}
}

// Validate checks the request against observer and time invariants.
func (r Request) Validate() error {
	if r.Observer.LatDeg < -90 || r.Observer.LatDeg > 90 {
		return fmt.Errorf("%w: latitude %v out of [-90, 90]", ErrValidation, r.Observer.LatDeg)
	}
	if r.Observer.LonDeg < -180 || r.Observer.LonDeg > 180 {
		return fmt.Errorf("%w: longitude %v out of [-180, 180]", ErrValidation, r.Observer.LonDeg)
	}
	if r.Time.IsZero() {
		return fmt.Errorf("%w: timestamp required", ErrValidation)
	}
	return nil
}

// Sky is the result of one computation: every body above the horizon margin,
// brightest first (magnitude, then id).
type Sky struct {
	Time     time.Time       `json:"timestamp"`
	Observer sphere.Observer `json:"observer"`
	Bodies   []Placement     `json:"bodies"`
}

// PlanetPositioner resolves a solar-system body's geocentric equatorial
// position at an instant. The ephemeris cache implements this over the
// direct computation.
type PlanetPositioner interface {
	Position(p catalog.Planet, t time.Time) sphere.Equatorial
}

// DirectPositioner computes positions straight from the orbital model,
// without caching.
type DirectPositioner struct{}

func (DirectPositioner) Position(p catalog.Planet, t time.Time) sphere.Equatorial {
	if p.Kind == catalog.KindSun {
		return orbit.SunPosition(t)
	}
	return orbit.ApparentPosition(p.Elements, t)
}

// Config holds the sky computation settings.
type Config struct {
	Workers int // worker pool size (default: runtime.NumCPU())
}

// Service computes sky placements against the shared catalog store.
type Service struct {
	store     *catalog.Store
	positions PlanetPositioner
	workers   int
	logger    *slog.Logger
}

// NewService creates a sky service. A nil positioner falls back to direct
// orbital computation.
func NewService(store *catalog.Store, positions PlanetPositioner, cfg Config, logger *slog.Logger) *Service {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if positions == nil {
		positions = DirectPositioner{}
	}
	return &Service{
		store:     store,
		positions: positions,
		workers:   workers,
		logger:    logger,
	}
}

// skyJob is one body awaiting placement. Stars arrive with their equatorial
// position fixed; planets are resolved in the worker.
type skyJob struct {
	placement Placement
	planet    *catalog.Planet
}

// VisibleBodies places every catalog body at or brighter than the magnitude
// limit and returns those above the horizon margin, brightest first. The
// transforms are independent per body, so they run on the worker pool with
// the sidereal time computed once up front.
func (s *Service) VisibleBodies(ctx context.Context, req Request) (*Sky, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cat, err := s.store.Get()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	jd := astrotime.JulianDay(req.Time)
	lst := astrotime.LocalSiderealTimeDeg(jd, req.Observer.LonDeg)

	jobs := make(chan skyJob, s.workers*2)
	results := make(chan Placement, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				p := job.placement
				if job.planet != nil {
					p.Equatorial = s.positions.Position(*job.planet, req.Time)
				}
				p.Horizontal = sphere.ToHorizontalLST(p.Equatorial, req.Observer.LatDeg, lst)
				if p.Horizontal.AltitudeDeg <= req.HorizonMarginDeg {
					continue
				}
				select {
				case results <- p:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, star := range cat.Stars() {
			if star.Magnitude > req.MagnitudeLimit {
				continue
			}
			job := skyJob{placement: Placement{
				ID:              star.ID,
				Name:            star.Name,
				CommonName:      star.CommonName,
				Kind:            "star",
				Magnitude:       star.Magnitude,
				ConstellationID: star.ConstellationID,
				Equatorial:      star.Equatorial(),
			}}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
		for _, planet := range cat.Planets() {
			if planet.Magnitude > req.MagnitudeLimit {
				continue
			}
			job := skyJob{
				placement: Placement{
					ID:         planet.ID,
					Name:       planet.Name,
					CommonName: planet.CommonName,
					Kind:       string(planet.Kind),
					Magnitude:  planet.Magnitude,
				},
				planet: &planet,
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	bodies := make([]Placement, 0, len(cat.Stars()))
	var starCount, planetCount int
	for p := range results {
		if p.Kind == "star" {
			starCount++
		} else {
			planetCount++
		}
		bodies = append(bodies, p)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(bodies, func(i, j int) bool {
		if bodies[i].Magnitude != bodies[j].Magnitude {
			return bodies[i].Magnitude < bodies[j].Magnitude
		}
		return bodies[i].ID < bodies[j].ID
	})

	duration := time.Since(start)
	metrics.ObserveSkyComputation(duration, starCount, planetCount)

	s.logger.Debug("sky computed",
		"stars", starCount,
		"planets", planetCount,
		"duration_us", duration.Microseconds(),
	)

	return &Sky{Time: req.Time, Observer: req.Observer, Bodies: bodies}, nil
}
