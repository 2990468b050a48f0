package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"flatmap/internal/ingest"
	"flatmap/internal/pipeline"
	"flatmap/internal/util"
	"flatmap/pkg/logger"
	"flatmap/pkg/logger/console"
	"flatmap/pkg/shapes"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	var (
		metresPerPixel = flag.Float64("mpp", 1.0, "map units per pixel")
		outDir         = flag.String("out", "", "output directory (default: alongside input)")
		excludePath    = flag.String("exclude", "", "GeoJSON file of reference shapes to filter out")
		authoring      = flag.Bool("authoring", false, "keep unclassifiable shapes visible")
		parallel       = flag.Int("parallel", runtime.NumCPU(), "diagrams processed in parallel")
	)
	flag.Parse()

	diagrams := flag.Args()
	if len(diagrams) == 0 {
		fmt.Fprintln(os.Stderr, "usage: classify [flags] diagram.geojson...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	var excludeShapes []*shapes.Shape
	if *excludePath != "" {
		excluded, err := ingest.LoadDiagram(*excludePath)
		if err != nil {
			logger.Fatal("Failed to load exclude shapes", "path", *excludePath, "error", err)
		}
		excludeShapes = excluded.Shapes
	}

	var group errgroup.Group
	group.SetLimit(*parallel)
	for _, path := range diagrams {
		path := path
		group.Go(func() error {
			return process(path, *outDir, pipeline.Params{
				MetresPerPixel: *metresPerPixel,
				ExcludeShapes:  excludeShapes,
				Authoring:      *authoring,
			})
		})
	}
	if err := group.Wait(); err != nil {
		logger.Fatal("Classification failed", "error", err)
	}
}

// process classifies one diagram and writes its result next to the input
// or into the output directory.
func process(path, outDir string, params pipeline.Params) error {
	diagram, err := ingest.LoadDiagram(path)
	if err != nil {
		return err
	}
	logger.Info("[Classify] Processing", "diagram", diagram.Name, "shapes", len(diagram.Shapes))

	result, err := pipeline.Run(diagram, params)
	if err != nil {
		// Joiner merge failures spoil only the affected pathway group;
		// the rest of the result is still written.
		logger.Error("Diagram has unmergeable connections", "diagram", diagram.Name, "error", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result for %s: %w", diagram.Name, err)
	}

	target := outputPath(path, outDir)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write result for %s: %w", diagram.Name, err)
	}
	logger.Info("[Classify] Written", "diagram", diagram.Name, "output", target)
	return nil
}

func outputPath(path, outDir string) string {
	name := filepath.Base(path)
	name = name[:len(name)-len(filepath.Ext(name))] + ".classified.json"
	if outDir == "" {
		return filepath.Join(filepath.Dir(path), name)
	}
	return filepath.Join(outDir, name)
}
