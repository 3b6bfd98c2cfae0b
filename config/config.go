// Package config loads stepml settings from a YAML file, STEPML_ environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/YuminosukeSato/stepml/linear_model"
	"github.com/YuminosukeSato/stepml/pkg/errors"
	"github.com/YuminosukeSato/stepml/preprocessing"
	"github.com/YuminosukeSato/stepml/workflow"
)

// EnvPrefix is prepended to environment overrides, e.g. STEPML_MODEL_C.
const EnvPrefix = "STEPML"

// Config is the complete application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Model    ModelConfig    `mapstructure:"model"`
	Output   OutputConfig   `mapstructure:"output"`
	Server   ServerConfig   `mapstructure:"server"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WorkflowConfig struct {
	// RandomState seeds the train/test split; -1 leaves it unseeded.
	RandomState        int64 `mapstructure:"random_state"`
	DefaultTestPercent int   `mapstructure:"default_test_percent"`
}

type ModelConfig struct {
	MaxIter    int     `mapstructure:"max_iter"`
	C          float64 `mapstructure:"c"`
	Tol        float64 `mapstructure:"tol"`
	MultiClass string  `mapstructure:"multi_class"`
	Scaler     string  `mapstructure:"scaler"`
}

type OutputConfig struct {
	// Dir receives rendered heatmaps.
	Dir string `mapstructure:"dir"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("workflow.random_state", -1)
	v.SetDefault("workflow.default_test_percent", workflow.DefaultTestPercent)
	v.SetDefault("model.max_iter", 1000)
	v.SetDefault("model.c", 1.0)
	v.SetDefault("model.tol", 1e-4)
	v.SetDefault("model.multi_class", linear_model.MultiClassAuto)
	v.SetDefault("model.scaler", "standard")
	v.SetDefault("output.dir", "stepml-output")
	v.SetDefault("server.addr", ":8080")
}

// NewViper returns a viper instance with defaults and environment binding.
// When file is empty the config is searched for in $HOME/.config/stepml and
// the working directory; a missing file is not an error.
func NewViper(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "stepml"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the config file into v, tolerating its absence when it was
// searched for rather than named explicitly.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config")
	}
	return nil
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads file (or the default locations) plus the environment.
func Load(file string) (*Config, error) {
	v := NewViper(file)
	if err := Read(v); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, _ := FromViper(v)
	return cfg
}

// Validate checks every value that would otherwise only fail deep inside a
// workflow step.
func (c *Config) Validate() error {
	p := c.Workflow.DefaultTestPercent
	if p < workflow.MinTestPercent || p > workflow.MaxTestPercent {
		return errors.NewValidationError("workflow.default_test_percent", "must be between 10 and 50", p)
	}
	if c.Model.MaxIter <= 0 {
		return errors.NewValidationError("model.max_iter", "must be positive", c.Model.MaxIter)
	}
	if c.Model.C <= 0 {
		return errors.NewValidationError("model.c", "must be positive", c.Model.C)
	}
	if c.Model.Tol <= 0 {
		return errors.NewValidationError("model.tol", "must be positive", c.Model.Tol)
	}
	switch c.Model.MultiClass {
	case linear_model.MultiClassAuto, linear_model.MultiClassMultinomial, linear_model.MultiClassOVR:
	default:
		return errors.NewValidationError("model.multi_class", "must be auto, multinomial or ovr", c.Model.MultiClass)
	}
	if _, err := preprocessing.NewScaler(c.Model.Scaler); err != nil {
		return err
	}
	return nil
}

// WorkflowOptions converts the model and workflow sections into the
// options a workflow session is created with.
func (c *Config) WorkflowOptions() workflow.Options {
	return workflow.Options{
		RandomState: c.Workflow.RandomState,
		Model: workflow.ModelOptions{
			MaxIter:    c.Model.MaxIter,
			C:          c.Model.C,
			Tol:        c.Model.Tol,
			MultiClass: c.Model.MultiClass,
			Scaler:     c.Model.Scaler,
		},
	}
}
