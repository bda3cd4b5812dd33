// Package swipesim drives a running swipe engine over its HTTP API and
// checks what it observed.
package swipesim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/swipe/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// Run executes one simulated evaluation.
func Run(ctx context.Context, config *Config) error {
	_, _, err := run(ctx, config)
	return err
}

func run(ctx context.Context, config *Config) (*Report, *Stats, error) {
	applyDefaults(config)
	stats := &Stats{StartTime: time.Now()}
	report := &Report{
		RunID:     uuid.NewString(),
		BaseURL:   config.BaseURL,
		StartTime: stats.StartTime,
	}

	logger.Get().Info(ctx, "starting swipe simulation",
		logger.String("runID", report.RunID),
		logger.String("baseURL", config.BaseURL),
		logger.Int("decisions", config.Decisions),
		logger.Int("clickEvery", config.ClickEvery),
		logger.String("timeout", config.Timeout.String()),
		logger.Bool("reset", config.Reset),
		logger.String("logFile", config.LogFile),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return report, stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Start over if asked
	if config.Reset {
		if err := client.postJSON(ctx, "/v1/reset", nil, nil); err != nil {
			return report, stats, fmt.Errorf("reset failed: %w", err)
		}
	}

	d := newDriver(client, config, stats, report)
	baseline, err := d.frame(ctx)
	if err != nil {
		return report, stats, fmt.Errorf("initial frame failed: %w", err)
	}

	// Step 3: Drive the engine
	if _, err := d.drive(ctx); err != nil {
		return report, stats, fmt.Errorf("driving the engine failed: %w", err)
	}

	// Step 4: Wait for votes to drain
	final, err := d.waitForVotes(ctx, baseline.Votes)
	if err != nil {
		return report, stats, fmt.Errorf("waiting for votes failed: %w", err)
	}
	report.FinalState = final.State
	report.Votes = voteDelta(baseline.Votes, final.Votes, config.Reset)
	stats.VotesAcked = report.Votes.Acknowledged
	stats.VotesFailed = report.Votes.Failed

	// Step 5: Fetch recommendations
	recs, err := fetchRecommendations(ctx, client)
	if err != nil {
		return report, stats, fmt.Errorf("recommendation retrieval failed: %w", err)
	}
	report.Recommendations = recs
	stats.Recommendations = len(recs)

	// Step 6: Verify results
	if err := verifyRun(report, stats); err != nil {
		return report, stats, fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	report.EndTime = stats.EndTime

	// Step 7: Save the report
	if err := saveReport(ctx, config, report); err != nil {
		logger.Get().Warn(ctx, "failed to save report", logger.Error(err))
	}

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return report, stats, nil
}

func applyDefaults(config *Config) {
	if config.SettleWait <= 0 {
		config.SettleWait = DefaultSettleWait
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
}

// voteDelta returns the vote counters accumulated during this run. A reset
// zeroes the engine's counters, so the baseline only applies without one.
func voteDelta(before, after VoteStats, reset bool) VoteStats {
	if reset {
		return after
	}
	return VoteStats{
		Submitted:     after.Submitted - before.Submitted,
		Acknowledged:  after.Acknowledged - before.Acknowledged,
		Failed:        after.Failed - before.Failed,
		InFlight:      after.InFlight,
		AwaitingRetry: after.AwaitingRetry,
		Refreshes:     after.Refreshes - before.Refreshes,
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

func fetchRecommendations(ctx context.Context, client *HTTPClient) ([]Entry, error) {
	var recs Recommendations
	path := "/v1/recommendations?limit=" + strconv.Itoa(RecommendationsLimit)
	if err := client.getJSON(ctx, path, &recs); err != nil {
		return nil, err
	}
	logger.Get().Info(ctx, "recommendations retrieved",
		logger.Uint64("version", recs.Version),
		logger.Int("entries", len(recs.Entries)))
	return recs.Entries, nil
}

// saveReport writes the run report as indented JSON.
func saveReport(ctx context.Context, config *Config, report *Report) error {
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "swipe_run_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), reportPermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	logger.Get().Info(ctx, "report saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var ackRate, decisionsPerSecond float64

	if stats.DecisionsMade > 0 {
		ackRate = float64(stats.VotesAcked) / float64(stats.DecisionsMade) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		decisionsPerSecond = float64(stats.DecisionsMade) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("cardsPresented", stats.CardsPresented),
		logger.Int("decisionsMade", stats.DecisionsMade),
		logger.Int("accepts", stats.Accepts),
		logger.Int("rejects", stats.Rejects),
		logger.Int("clicks", stats.Clicks),
		logger.Int("inputsRejected", stats.InputsRejected),
		logger.Int("retries", stats.Retries),
		logger.Int("votesAcked", stats.VotesAcked),
		logger.Int("votesFailed", stats.VotesFailed),
		logger.Int("recommendations", stats.Recommendations),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("ackRate", ackRate),
		logger.Float64("decisionsPerSecond", decisionsPerSecond))
}
