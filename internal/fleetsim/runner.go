package fleetsim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fleetsense/fleetsense/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete fleet simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting fleet simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("org", config.OrgID),
		logger.Int("drivers", config.NumDrivers),
		logger.Int("events", config.NumEvents),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and register the fleet
	drivers := generateFleet(ctx, config, stats)
	if err := registerFleet(ctx, config, drivers); err != nil {
		return fmt.Errorf("fleet registration failed: %w", err)
	}

	// Step 3: Generate risk events
	events, err := generateEvents(ctx, config, drivers, stats)
	if err != nil {
		return fmt.Errorf("event generation failed: %w", err)
	}

	// Step 4: Submit events concurrently
	if err := submitEvents(ctx, config, events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	// Step 5: Trigger an asynchronous fleet rescore
	if err := triggerRescore(ctx, config); err != nil {
		return fmt.Errorf("fleet rescore failed: %w", err)
	}

	// Step 6: Wait for the rescore queue to drain
	logger.Get().Info(ctx, "waiting for rescore jobs to be processed")
	waitForProcessing(ctx)

	// Step 7: Retrieve scores concurrently
	scores, err := retrieveScores(ctx, config, drivers, stats)
	if err != nil {
		return fmt.Errorf("score retrieval failed: %w", err)
	}

	// Step 8: Get the intervention queue
	queue, err := getInterventionQueue(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("intervention queue retrieval failed: %w", err)
	}

	// Step 9: Verify results
	if err := verifyResults(config, scores, queue); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 10: Save events to file
	if err := saveEventsToFile(ctx, config, events); err != nil {
		logger.Get().Warn(ctx, "failed to save events to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout, config.OrgID)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveEventsToFile saves the generated events to a JSON file.
func saveEventsToFile(ctx context.Context, config *Config, events []Event) error {
	if len(events) == 0 {
		return fmt.Errorf("no events to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "fleetsim_events_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, event := range events {
		jsonData, err := marshalJSON(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write event %d: %w", i, err)
		}

		if i < len(events)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, eventsPerSecond float64

	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsSuccessful) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("driversRegistered", stats.DriversRegistered),
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("scoresRetrieved", stats.ScoresRetrieved),
		logger.Int("queueEntries", stats.QueueEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
