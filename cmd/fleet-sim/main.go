package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/fleetsense/fleetsense/internal/fleetsim"
)

// Default configuration constants.
const (
	defaultNumDrivers = 200
	defaultNumEvents  = 5000
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultSimTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		org        = flag.String("org", "sim-fleet", "Tenant id for the simulated fleet")
		numDrivers = flag.Int("drivers", defaultNumDrivers, "Number of drivers to register")
		numEvents  = flag.Int("events", defaultNumEvents, "Number of risk events to generate and submit")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated events (default: fleetsim_events_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for simulation output (default: fleetsim_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		fleetsim.ShowHelp()
		return
	}

	if err := fleetsim.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSimTimeout)
	defer cancel()

	config := &fleetsim.Config{
		BaseURL:    *baseURL,
		OrgID:      *org,
		NumDrivers: *numDrivers,
		NumEvents:  *numEvents,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := fleetsim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
