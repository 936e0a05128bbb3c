package main

import (
	"flag"
	"os"
	"sort"

	"github.com/liamcoop/credit/artifact"
	"github.com/liamcoop/credit/internal/config"
	"github.com/liamcoop/credit/internal/logger"
	"github.com/liamcoop/credit/training"
)

func main() {
	var outDir string
	var kind string
	var samples int
	var seed uint64
	var trees int
	var bandWidth float64

	flag.StringVar(&outDir, "out", config.GetEnv("ARTIFACT_DIR", "artifacts"), "Directory to write the model bundle to")
	flag.StringVar(&kind, "model", artifact.KindLinear, "Model family: linear, forest")
	flag.IntVar(&samples, "samples", 1000, "Number of synthetic users to generate")
	flag.Uint64Var(&seed, "seed", 42, "Random seed for the synthetic population")
	flag.IntVar(&trees, "trees", 100, "Number of trees (forest only)")
	flag.Float64Var(&bandWidth, "band-width", training.DefaultBandWidth, "Score band width in points (forest only)")
	flag.Parse()

	log := logger.New(logger.Config{
		Level:      config.GetEnv("LOG_LEVEL", "INFO"),
		Format:     config.GetEnv("LOG_FORMAT", "text"),
		SampleRate: 1,
	})

	log.Info("generating synthetic data", "samples", samples, "seed", seed)
	data := training.Synthesize(samples, seed)

	log.Info("training model", "model", kind, "trees", trees)
	bundle, report, err := training.Build(data, training.Options{Kind: kind, Trees: trees, BandWidth: bandWidth})
	if err != nil {
		log.Error("training failed", "error", err)
		os.Exit(1)
	}

	if err := artifact.Save(outDir, bundle); err != nil {
		log.Error("failed to save artifacts", "dir", outDir, "error", err)
		os.Exit(1)
	}

	log.Info("model and explainer saved",
		"dir", outDir,
		"model", report.Kind,
		"train_rows", report.TrainRows,
		"test_rows", report.TestRows,
		"r_squared", report.RSquared,
	)

	names := make([]string, 0, len(report.FeatureImportance))
	for name := range report.FeatureImportance {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Debug("feature importance", "feature", name, "value", report.FeatureImportance[name])
	}
}
