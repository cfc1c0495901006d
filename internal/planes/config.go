package planes

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig is returned when the configuration fails validation
var ErrInvalidConfig = errors.New("invalid planes config")

// Config controls the show/hide choreography of an Effect.
type Config struct {
	Bands        int           `env:"PLANES_BANDS" envDefault:"8"`
	ShowDuration time.Duration `env:"PLANES_SHOW_DURATION" envDefault:"120ms"`
	HideDuration time.Duration `env:"PLANES_HIDE_DURATION" envDefault:"80ms"`
	Jitter       time.Duration `env:"PLANES_JITTER" envDefault:"20ms"`
	Seed         uint64        `env:"PLANES_SEED" envDefault:"1"`
	Toggles      int           `env:"PLANES_TOGGLES" envDefault:"4"`
	LogLevel     string        `env:"PLANES_LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"PLANES_LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func LoadConfig() (Config, error) {
	// Ignore errors - the .env file might not exist and that's ok
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if c.Bands < 1 {
		return fmt.Errorf("%w: bands must be positive, got %d", ErrInvalidConfig, c.Bands)
	}
	if c.ShowDuration <= 0 || c.HideDuration <= 0 {
		return fmt.Errorf("%w: durations must be positive", ErrInvalidConfig)
	}
	if c.Jitter < 0 {
		return fmt.Errorf("%w: jitter must not be negative", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q must be text or json", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
