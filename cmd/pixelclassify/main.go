package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"pixelclassifier/pkg/annotation"
	"pixelclassifier/pkg/array5d"
	"pixelclassifier/pkg/classifier"
	"pixelclassifier/pkg/config"
	"pixelclassifier/pkg/imageio"
	"pixelclassifier/pkg/metrics"
	"pixelclassifier/pkg/point5d"
)

func main() {
	// Parse command line arguments
	var (
		rawPath     = flag.String("raw", "", "Raw image file, or directory of numbered slices")
		labelsPath  = flag.String("labels", "", "Label image (0 = unlabelled) or directory of label slices")
		predictPath = flag.String("predict", "", "Image to classify (default: the raw image)")
		configPath  = flag.String("config", "config.yaml", "Path to YAML configuration")
		outputDir   = flag.String("output-dir", "", "Directory for prediction images (overrides config)")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
		numTrees    = flag.Int("trees", 0, "Total number of trees (overrides config)")
		numForests  = flag.Int("forests", 0, "Number of forests trained in parallel (overrides config)")
		initConfig  = flag.Bool("init-config", false, "Write the default configuration to -config and exit")
		offsetX     = flag.Int("label-x", 0, "x offset of the labels inside the raw image")
		offsetY     = flag.Int("label-y", 0, "y offset of the labels inside the raw image")
		offsetZ     = flag.Int("label-z", 0, "z offset of the labels inside the raw image")
		metricsFile = flag.String("metrics-file", "", "Write Prometheus metrics in text format to this file")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to write default config")
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *rawPath == "" || *labelsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *logLevel != "" {
		cfg.Output.LogLevel = *logLevel
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *numTrees > 0 {
		cfg.Classifier.NumTrees = *numTrees
	}
	if *numForests > 0 {
		cfg.Classifier.NumForests = *numForests
	}

	// Setup logging
	level, err := zerolog.ParseLevel(cfg.Output.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	raw, err := loadArray(*rawPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load raw data")
	}
	labels, err := loadArray(*labelsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load labels")
	}
	if labels.Shape().C > 1 {
		// colour label images carry the class in their first channel
		if labels, err = labels.Cut(point5d.Slice5D{C: point5d.At(0)}); err != nil {
			log.Fatal().Err(err).Msg("Failed to select label channel")
		}
	}

	fx, err := cfg.FeatureCollection()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid feature configuration")
	}
	ann, err := annotation.New(labels, raw, point5d.Point5D{X: *offsetX, Y: *offsetY, Z: *offsetZ})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid annotation")
	}

	fmt.Println("=== Pixel Classification ===")
	fmt.Printf("Raw: %s %s\n", *rawPath, raw.Shape())
	fmt.Printf("Labels: %s %s, classes %v\n", *labelsPath, labels.Shape(), ann.Classes())
	fmt.Printf("Features: %v\n", fx.Filters())
	fmt.Printf("Trees: %d in %d forests\n", cfg.Classifier.NumTrees, cfg.Classifier.NumForests)
	fmt.Println("============================")

	registry := prometheus.NewRegistry()
	params := cfg.ClassifierParams()
	params.Metrics = metrics.NewWithRegistry(registry)

	startTime := time.Now()
	clf, err := classifier.New(fx, []classifier.Annotation{ann}, params)
	if err != nil {
		log.Fatal().Err(err).Msg("Training failed")
	}
	log.Info().
		Ints("treesPerForest", clf.TreeCounts()).
		Float64("meanOOB", stat.Mean(clf.OOBErrors(), nil)).
		Dur("took", time.Since(startTime)).
		Msg("Trained classifier")

	target := raw
	if *predictPath != "" {
		if target, err = loadArray(*predictPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to load image to classify")
		}
	}

	startTime = time.Now()
	preds, err := clf.Predict(target)
	if err != nil {
		log.Fatal().Err(err).Msg("Prediction failed")
	}
	log.Info().Str("predictions", preds.String()).Dur("took", time.Since(startTime)).Msg("Predicted")

	paths, err := imageio.SaveChannels(preds.AsUint8(), cfg.Output.Dir, "probabilities")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to save probabilities")
	}
	if cfg.Output.Segmentation {
		seg, err := preds.SegmentationImage()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to compute segmentation")
		}
		segPaths, err := imageio.SaveChannels(seg, cfg.Output.Dir, "segmentation")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to save segmentation")
		}
		paths = append(paths, segPaths...)
	}

	fmt.Printf("\nClassification completed, %d images written to %s\n", len(paths), cfg.Output.Dir)
	classes := preds.Classes()
	for _, s := range preds.Stats() {
		fmt.Printf("- class %d: mean probability %.3f (min %.3f, max %.3f)\n",
			classes[s.Channel], s.Mean, s.Min, s.Max)
	}

	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, registry); err != nil {
			log.Error().Err(err).Str("path", *metricsFile).Msg("Failed to write metrics")
		}
	}
}

// loadArray opens a single image file or a directory of numbered slices.
func loadArray(path string) (*array5d.Array5D, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return imageio.OpenStack(path)
	}
	return imageio.Open(path)
}
