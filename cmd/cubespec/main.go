package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	cs "cubespec/pkg/cubespec"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: cubespec <config.yaml>")
	}

	config, err := cs.LoadConfiguration(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Loading cube: %s\n", config.CubePath)
	source, err := cs.OpenCube(config.CubePath, config.UncertaintyPath)
	if err != nil {
		return err
	}
	width, height := source.Bounds()
	fmt.Printf("Cube loaded: %dx%d spatial, %d slices\n", width, height, source.NumSlices())

	// Header WCS wins over config axis constants when both are present.
	axis := config.WavelengthAxis()
	if headerAxis := source.Header().Axis(); headerAxis.Step != 1 || headerAxis.Ref != 0 {
		axis = headerAxis
	}

	pipeline := &cs.Pipeline{
		Source: source,
		Cache:  cs.NewFitResultCache(config.CacheDir),
		Params: config.ExtractorParams(),
		Axis:   axis,
	}

	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	stars := config.Stars()
	startTime := time.Now()
	results, err := pipeline.Run(stars, config.Parallel)
	if err != nil {
		return err
	}
	elapsed := time.Since(startTime)

	fmt.Println()
	fmt.Printf("=== Spectrum Extraction Results (%.1fs) ===\n", elapsed.Seconds())
	for _, res := range results {
		origin := "computed"
		if res.Cached {
			origin = "cached"
		}
		fmt.Printf("  %-12s %s: peak=%d aperture=%d pixel=%d present, %d outliers cut",
			res.Star.Ident(), origin,
			res.Present(cs.MethodPeak), res.Present(cs.MethodAperture), res.Present(cs.MethodPixel),
			res.Outliers)
		if !res.Cached {
			fmt.Printf(", factor=%.4f, %d fitted / %d excluded / %d failed",
				res.Factor, res.Tally.Fitted, res.Tally.Excluded, res.Tally.Failed())
		}
		fmt.Println()

		plotPath := filepath.Join(config.OutputDir, res.Star.Ident()+".png")
		if err := cs.PlotSpectra(res, plotPath); err != nil {
			return err
		}
	}
	fmt.Println("==============================")

	// Field preview from the middle slice.
	mid, err := source.Slice(source.NumSlices() / 2)
	if err == nil {
		overlayPath := filepath.Join(config.OutputDir, "field.png")
		if err := cs.RenderFieldOverlay(mid, stars, pipeline.Params, overlayPath); err != nil {
			return err
		}
		mid.Data.Close()
		mid.Uncert.Close()
		fmt.Printf("Field overlay: %s\n", overlayPath)
	}

	return nil
}
