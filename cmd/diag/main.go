// Command diag prints the visible sky for an observer without starting the
// server. Useful for eyeballing placements against a planetarium app.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/maxxcraig/Stargazer/internal/catalog"
	"github.com/maxxcraig/Stargazer/internal/sky"
	"github.com/maxxcraig/Stargazer/internal/sphere"
)

func main() {
	lat := flag.Float64("lat", 32.7157, "observer latitude (degrees, north positive)")
	lon := flag.Float64("lon", -117.1611, "observer longitude (degrees, east positive)")
	when := flag.String("time", "", "observation time (RFC3339, default now)")
	magLimit := flag.Float64("mag", sky.DefaultMagnitudeLimit, "magnitude limit")
	margin := flag.Float64("margin", sky.DefaultHorizonMarginDeg, "horizon margin (degrees)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	at := time.Now().UTC()
	if *when != "" {
		var err error
		at, err = time.Parse(time.RFC3339, *when)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid -time, must be RFC3339:", err)
			os.Exit(1)
		}
	}

	cat, err := catalog.Load(logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalog load failed:", err)
		os.Exit(1)
	}
	store := catalog.NewStore()
	store.Set(cat)

	svc := sky.NewService(store, nil, sky.Config{}, logger)

	req := sky.Request{
		Observer:         sphere.Observer{LatDeg: *lat, LonDeg: *lon},
		Time:             at,
		MagnitudeLimit:   *magLimit,
		HorizonMarginDeg: *margin,
	}
	result, err := svc.VisibleBodies(context.Background(), req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sky computation failed:", err)
		os.Exit(1)
	}

	fmt.Printf("Sky over (%.4f, %.4f) at %s: %d bodies above %.1f deg\n\n",
		*lat, *lon, at.Format(time.RFC3339), len(result.Bodies), *margin)
	fmt.Printf("%-12s %-22s %-7s %7s %9s %9s\n", "ID", "NAME", "KIND", "MAG", "ALT", "AZ")
	for _, b := range result.Bodies {
		name := b.CommonName
		if name == "" {
			name = b.Name
		}
		fmt.Printf("%-12s %-22s %-7s %7.2f %9.3f %9.3f\n",
			b.ID, name, b.Kind, b.Magnitude,
			b.Horizontal.AltitudeDeg, b.Horizontal.AzimuthDeg)
	}
}
