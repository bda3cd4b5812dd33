package swipesim

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/swipe/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "swipe_sim_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Swipe Simulator
===============

Drives a running swipe engine with scripted drags, button presses and
clicks, then checks that no candidate was shown twice and that every
committed decision reached the backend.

Usage:
  go run cmd/swipe-sim/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -decisions int
        Decisions to make; 0 runs until the stream is exhausted (default 0)
  -click-every int
        Open the detail view on every n-th card; 0 never clicks (default 3)
  -timeout duration
        HTTP request timeout (default 10s)
  -settle duration
        How long to wait for the next card (default 10s)
  -reset
        Reset the evaluation before driving it
  -output string
        Output file for the run report (default: swipe_run_TIMESTAMP.json)
  -log string
        Log file for test output (default: swipe_sim_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Evaluate until the stream runs dry
  go run cmd/swipe-sim/main.go

  # Make ten decisions against another instance
  go run cmd/swipe-sim/main.go -decisions 10 -url http://localhost:8080

  # Start over and never click
  go run cmd/swipe-sim/main.go -reset -click-every 0 -verbose
`)
}
