// Package config provides configuration loading and management for pixelclassify.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"pixelclassifier/pkg/classifier"
	"pixelclassifier/pkg/features"
	"pixelclassifier/pkg/forest"
)

// FilterConfig names one feature filter and its scale.
type FilterConfig struct {
	Name  string  `yaml:"name"`
	Sigma float64 `yaml:"sigma,omitempty"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Classifier parameters
	Classifier struct {
		// NumTrees is the total number of trees across all forests
		NumTrees int `yaml:"numTrees"`

		// NumForests is how many forests are trained in parallel
		NumForests int `yaml:"numForests"`

		// Seed makes training reproducible
		Seed uint64 `yaml:"seed"`

		// MaxDepth limits tree depth, 0 for unlimited
		MaxDepth int `yaml:"maxDepth"`

		// MinSamplesLeaf is the smallest sample count of a leaf
		MinSamplesLeaf int `yaml:"minSamplesLeaf"`

		// FeaturesPerSplit is how many features each split tries, 0 for sqrt
		FeaturesPerSplit int `yaml:"featuresPerSplit"`
	} `yaml:"classifier"`

	// Feature extraction parameters
	Features struct {
		// Filters is the ordered filter bank applied to each channel
		Filters []FilterConfig `yaml:"filters"`
	} `yaml:"features"`

	// Output parameters
	Output struct {
		// Dir is where prediction images are written
		Dir string `yaml:"dir"`

		// Segmentation also writes the per-pixel argmax labels
		Segmentation bool `yaml:"segmentation"`

		// LogLevel is a zerolog level name
		LogLevel string `yaml:"logLevel"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Classifier.NumTrees = 100
	cfg.Classifier.NumForests = runtime.NumCPU() // one forest per core
	cfg.Classifier.MinSamplesLeaf = 1

	cfg.Features.Filters = []FilterConfig{
		{Name: "identity"},
		{Name: "gaussian_smoothing", Sigma: 0.7},
		{Name: "gaussian_smoothing", Sigma: 1.6},
		{Name: "gaussian_gradient_magnitude", Sigma: 1.6},
		{Name: "laplacian_of_gaussian", Sigma: 1.6},
		{Name: "difference_of_gaussians", Sigma: 1.6},
	}

	cfg.Output.Dir = "predictions"
	cfg.Output.Segmentation = true
	cfg.Output.LogLevel = zerolog.InfoLevel.String()

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", configPath)
	}
	return cfg, nil
}

// Validate checks value ranges and filter names.
func (c *Config) Validate() error {
	cl := c.Classifier
	if cl.NumTrees < 1 {
		return errors.Newf("numTrees must be positive, got %d", cl.NumTrees)
	}
	if cl.NumForests < 1 {
		return errors.Newf("numForests must be positive, got %d", cl.NumForests)
	}
	if cl.MaxDepth < 0 || cl.MinSamplesLeaf < 0 || cl.FeaturesPerSplit < 0 {
		return errors.New("maxDepth, minSamplesLeaf and featuresPerSplit must not be negative")
	}
	if _, err := c.FeatureCollection(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.Output.LogLevel); err != nil {
		return errors.Wrapf(err, "logLevel %q", c.Output.LogLevel)
	}
	return nil
}

// ClassifierParams returns the ensemble parameters described by c.
func (c *Config) ClassifierParams() *classifier.Params {
	cl := c.Classifier
	return &classifier.Params{
		NumTrees:   cl.NumTrees,
		NumForests: cl.NumForests,
		Seed:       cl.Seed,
		NewModel: classifier.RandomForests(
			forest.WithMaxDepth(cl.MaxDepth),
			forest.WithMinSamplesLeaf(cl.MinSamplesLeaf),
			forest.WithFeaturesPerSplit(cl.FeaturesPerSplit),
		),
	}
}

// FeatureCollection builds the filter bank described by c.
func (c *Config) FeatureCollection() (*features.Collection, error) {
	filters := make([]features.Filter, 0, len(c.Features.Filters))
	for i, fc := range c.Features.Filters {
		f, err := features.ParseFilter(fc.Name, fc.Sigma)
		if err != nil {
			return nil, errors.Wrapf(err, "filter %d", i)
		}
		filters = append(filters, f)
	}
	return features.NewCollection(filters...)
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "error creating config directory")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "error marshaling config")
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "error writing config file")
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
