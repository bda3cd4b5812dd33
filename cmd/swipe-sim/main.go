package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/swipe/internal/swipesim"
)

// Default configuration constants.
const (
	defaultClickEvery  = 3
	defaultTimeout     = 10 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		decisions  = flag.Int("decisions", 0, "Decisions to make; 0 runs until the stream is exhausted")
		clickEvery = flag.Int("click-every", defaultClickEvery, "Open the detail view on every n-th card; 0 never clicks")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", swipesim.DefaultSettleWait, "How long to wait for the next card")
		reset      = flag.Bool("reset", false, "Reset the evaluation before driving it")
		outputFile = flag.String("output", "", "Output file for the run report (default: swipe_run_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: swipe_sim_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		swipesim.ShowHelp()
		return
	}

	if err := swipesim.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	config := &swipesim.Config{
		BaseURL:    *baseURL,
		Decisions:  *decisions,
		ClickEvery: *clickEvery,
		Timeout:    *timeout,
		SettleWait: *settle,
		Reset:      *reset,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := swipesim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
}
