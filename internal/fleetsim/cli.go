package fleetsim

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/fleetsense/fleetsense/pkg/logger"
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
		logFile = "fleetsim_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the fleet simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`FleetSense Fleet Simulator
==========================

A concurrent tool for exercising the FleetSense safety service with a
synthetic fleet: registers drivers, feeds telematics risk events,
triggers a fleet rescore and verifies the intervention queue ordering.

Usage:
  go run cmd/fleet-sim/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -org string
        Tenant id for the simulated fleet (default "sim-fleet")
  -drivers int
        Number of drivers to register (default 200)
  -events int
        Number of risk events to generate and submit (default 5000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated events (default: fleetsim_events_TIMESTAMP.json)
  -log string
        Log file for simulation output (default: fleetsim_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/fleet-sim/main.go

  # Larger fleet against a remote instance
  go run cmd/fleet-sim/main.go -drivers 1000 -events 50000 -url http://fleetsense:9080

  # Verbose run with a custom log file
  go run cmd/fleet-sim/main.go -verbose -log my_sim.log
`)
}
