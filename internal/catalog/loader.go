package catalog

import (
	"embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

//go:embed seed/*.yaml
var seedFS embed.FS

// Load parses the embedded seed tables and builds a validated catalog.
// Any validation failure is fatal to the whole catalog: a partially valid
// catalog is never returned.
func Load(logger *slog.Logger) (*Catalog, error) {
	starsRaw, err := seedFS.ReadFile("seed/stars.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading star seed: %w", err)
	}
	consRaw, err := seedFS.ReadFile("seed/constellations.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading constellation seed: %w", err)
	}
	planetsRaw, err := seedFS.ReadFile("seed/planets.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading planet seed: %w", err)
	}

	var stars struct {
		Stars []Star `yaml:"stars"`
	}
	if err := yaml.Unmarshal(starsRaw, &stars); err != nil {
		return nil, fmt.Errorf("parsing star seed: %w", err)
	}

	var cons struct {
		Constellations []Constellation `yaml:"constellations"`
	}
	if err := yaml.Unmarshal(consRaw, &cons); err != nil {
		return nil, fmt.Errorf("parsing constellation seed: %w", err)
	}

	var planets struct {
		Planets []Planet `yaml:"planets"`
	}
	if err := yaml.Unmarshal(planetsRaw, &planets); err != nil {
		return nil, fmt.Errorf("parsing planet seed: %w", err)
	}

	c, err := New(stars.Stars, cons.Constellations, planets.Planets)
	if err != nil {
		return nil, err
	}

	logger.Info("catalog loaded",
		"stars", len(c.stars),
		"constellations", len(c.constellations),
		"planets", len(c.planets),
	)
	return c, nil
}
