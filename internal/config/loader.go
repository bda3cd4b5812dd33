package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "SWIPE_"
	envConfig  = "SWIPE_CONFIG"
	maxBatchSz = 10
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SWIPE_CONFIG is set
//  3. env (prefix SWIPE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SWIPE_BATCH_SIZE -> batch_size. Underscores are kept to match the
	// flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The file path itself is not a config key.
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot run.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.BatchSize < 1 || c.BatchSize > maxBatchSz:
		return invalid("batch_size must be between 1 and %d, got %d", maxBatchSz, c.BatchSize)
	case c.RefillWatermark < 1:
		return invalid("refill_watermark must be at least 1, got %d", c.RefillWatermark)
	case c.FrameRate <= 0:
		return invalid("frame_rate must be positive, got %d", c.FrameRate)
	case c.LeanThresholdPx <= 0 || c.CommitThresholdPx <= 0:
		return invalid("thresholds must be positive")
	case c.CommitThresholdPx <= c.LeanThresholdPx:
		return invalid("commit_threshold_px (%g) must exceed lean_threshold_px (%g)", c.CommitThresholdPx, c.LeanThresholdPx)
	case c.ClickSlopPx < 0:
		return invalid("click_slop_px must not be negative")
	case c.ViewportWidth <= 0:
		return invalid("viewport_width must be positive")
	case c.TaskQueueSize <= 0:
		return invalid("task_queue_size must be positive")
	case c.BackendRPS < 0:
		return invalid("backend_rps must not be negative")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
