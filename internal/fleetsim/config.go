package fleetsim

import "time"

// Config holds configuration for the fleet simulation
type Config struct {
	BaseURL    string        // Base URL of the service
	OrgID      string        // Tenant the simulated fleet belongs to
	NumDrivers int           // Number of drivers to register
	NumEvents  int           // Number of risk events to generate
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for events
	LogFile    string        // Log file for simulation output
	Verbose    bool          // Enable verbose logging
}

// Driver represents a roster entry to be registered
type Driver struct {
	ID           string `json:"-"`
	Name         string `json:"name"`
	TelematicsID string `json:"telematics_id,omitempty"`
}

// Event represents a risk event to be submitted
type Event struct {
	EventID    string `json:"event_id"`
	DriverID   string `json:"driver_id"`
	Type       string `json:"type"`
	Severity   int    `json:"severity"`
	OccurredAt string `json:"occurred_at"`
	Source     string `json:"source"`
}

// AckResponse represents the response from event submission
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// ScoreView represents the response from GET /drivers/{id}/score
type ScoreView struct {
	Driver struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		RiskScore int    `json:"risk_score"`
	} `json:"driver"`
	Band string `json:"band"`
}

// Recommendation represents one intervention queue entry
type Recommendation struct {
	Rank     int     `json:"rank"`
	DriverID string  `json:"driver_id"`
	Urgency  float64 `json:"urgency"`
	Action   string  `json:"action"`
}

// Stats holds simulation statistics
type Stats struct {
	DriversRegistered int
	EventsGenerated   int
	EventsSubmitted   int
	EventsSuccessful  int
	EventsDuplicate   int
	EventsFailed      int
	ScoresRetrieved   int
	QueueEntries      int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
