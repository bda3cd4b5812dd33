// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat and snake_case so env vars map onto them directly.
// - New returns the defaults; Load layers a file and the environment on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BackendURL points at the collaborator service. Empty runs the
	// built-in in-memory catalog.
	BackendURL       string  `koanf:"backend_url"`
	BackendToken     string  `koanf:"backend_token"`
	BackendTimeoutMS int     `koanf:"backend_timeout_ms"`
	BackendRPS       float64 `koanf:"backend_rps"`
	// BackendLatencyMS simulates collaborator latency for the in-memory backend.
	BackendLatencyMS int `koanf:"backend_latency_ms"`

	// BatchSize is the candidate count requested per fetch (1..10).
	BatchSize int `koanf:"batch_size"`
	// RefillWatermark triggers a background fetch when fewer candidates remain.
	RefillWatermark int `koanf:"refill_watermark"`
	// WatchdogMS fails a fetch that has not completed in time.
	WatchdogMS int `koanf:"watchdog_ms"`

	RecommendationLimit int `koanf:"recommendation_limit"`
	VoteTimeoutMS       int `koanf:"vote_timeout_ms"`
	MinEvaluations      int `koanf:"min_evaluations"`

	// FrameRate is the number of animation frames per second.
	FrameRate     int     `koanf:"frame_rate"`
	ViewportWidth float64 `koanf:"viewport_width"`

	LeanThresholdPx   float64 `koanf:"lean_threshold_px"`
	CommitThresholdPx float64 `koanf:"commit_threshold_px"`
	ClickSlopPx       float64 `koanf:"click_slop_px"`
	// FlingVelocity in px/ms also commits a fast release. Zero disables.
	FlingVelocity float64 `koanf:"fling_velocity"`

	TrackingStiffness float64 `koanf:"tracking_stiffness"`
	TrackingDamping   float64 `koanf:"tracking_damping"`
	CommitStiffness   float64 `koanf:"commit_stiffness"`
	CommitDamping     float64 `koanf:"commit_damping"`
	SnapBackStiffness float64 `koanf:"snapback_stiffness"`
	SnapBackDamping   float64 `koanf:"snapback_damping"`
	// SettleMaxMS force-settles an animation that runs longer.
	SettleMaxMS int `koanf:"settle_max_ms"`

	// TaskQueueSize bounds the event loop's task queue.
	TaskQueueSize int `koanf:"task_queue_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		BackendTimeoutMS:    10_000,
		BatchSize:           5,
		RefillWatermark:     2,
		WatchdogMS:          10_000,
		RecommendationLimit: 10,
		VoteTimeoutMS:       10_000,
		MinEvaluations:      5,
		FrameRate:           60,
		ViewportWidth:       500,
		LeanThresholdPx:     50,
		CommitThresholdPx:   120,
		ClickSlopPx:         10,
		TrackingStiffness:   400,
		TrackingDamping:     30,
		CommitStiffness:     200,
		CommitDamping:       30,
		SnapBackStiffness:   400,
		SnapBackDamping:     30,
		SettleMaxMS:         2000,
		TaskQueueSize:       1024,
	}
}

// BackendTimeout returns the per-call collaborator timeout.
func (c *Config) BackendTimeout() time.Duration { return ms(c.BackendTimeoutMS) }

// BackendLatency returns the simulated in-memory backend latency.
func (c *Config) BackendLatency() time.Duration { return ms(c.BackendLatencyMS) }

// Watchdog returns the fetch watchdog period.
func (c *Config) Watchdog() time.Duration { return ms(c.WatchdogMS) }

// VoteTimeout returns the per-vote submission timeout.
func (c *Config) VoteTimeout() time.Duration { return ms(c.VoteTimeoutMS) }

// SettleMax returns the longest an animation may run before it is forced.
func (c *Config) SettleMax() time.Duration { return ms(c.SettleMaxMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
