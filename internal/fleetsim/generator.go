package fleetsim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fleetsense/fleetsense/internal/domain/model"
	"github.com/fleetsense/fleetsense/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	eventIDDivisor     = 10000
	profileDivisor     = 8
)

// Constants for event age spread. Most events land inside the 30 day
// intervention horizon so the queue has something to rank.
const (
	recentAgeMaxHours = 72
	midAgeMaxHours    = 24 * 21
	oldAgeMaxHours    = 24 * 80
)

// Driver risk profile cases. The distribution is skewed so a handful
// of simulated drivers accumulate severe events and surface at the top
// of the intervention queue.
const (
	caseCleanDriver     = 0
	caseOccasionalMinor = 1
	caseSpeeder         = 2
	caseHarshBraker     = 3
	caseCitationProne   = 4
	caseHOSOffender     = 5
	caseIncidentDriver  = 6
	caseHighRiskDriver  = 7
)

// eventTypes must stay the wire enum the events endpoint validates.
var eventTypes = []model.EventType{
	model.EventSpeeding,
	model.EventHardBraking,
	model.EventAccident,
	model.EventCitation,
	model.EventHOSViolation,
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, n) using crypto/rand.
func getRandomInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// generateFleet creates the simulated driver roster. Every third
// driver gets a telematics link so both the linked and fallback
// scoring paths get exercised.
func generateFleet(ctx context.Context, config *Config, stats *Stats) []Driver {
	logger.Get().Info(ctx, "generating simulated fleet", logger.Int("numDrivers", config.NumDrivers))

	drivers := make([]Driver, config.NumDrivers)
	for i := range drivers {
		id := "sim-driver-" + strconv.Itoa(i)
		d := Driver{
			ID:   id,
			Name: "Sim Driver " + strconv.Itoa(i),
		}
		if i%3 == 0 {
			d.TelematicsID = "tx-" + uuid.NewString()
		}
		drivers[i] = d
	}
	stats.DriversRegistered = len(drivers)
	return drivers
}

// generateEvents creates risk events spread over the fleet.
func generateEvents(ctx context.Context, config *Config, drivers []Driver, stats *Stats) ([]Event, error) {
	logger.Get().Info(ctx, "generating risk events", logger.Int("numEvents", config.NumEvents))

	if len(drivers) == 0 {
		return nil, fmt.Errorf("no drivers to generate events for")
	}

	events := make([]Event, config.NumEvents)

	type eventResult struct {
		index int
		event Event
		err   error
	}

	resultChan := make(chan eventResult, config.NumEvents)

	workerCount := minInt(config.Workers, config.NumEvents)
	eventsPerWorker := config.NumEvents / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * eventsPerWorker
		end := start + eventsPerWorker
		if worker == workerCount-1 {
			end = config.NumEvents
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- eventResult{index: i, err: ctx.Err()}
					return
				default:
					driver := drivers[int(getRandomInt(int64(len(drivers))))]
					resultChan <- eventResult{index: i, event: generateSingleEvent(i, driver.ID)}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumEvents; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during event generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate event %d: %w", result.index, result.err)
			}
			events[result.index] = result.event
		}
	}

	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated events successfully", logger.Int("count", len(events)))

	return events, nil
}

// generateSingleEvent creates a single risk event for the given driver.
func generateSingleEvent(index int, driverID string) Event {
	eventType, severity := generateProfile()

	randNum, _ := rand.Int(rand.Reader, big.NewInt(eventIDDivisor))
	eventID := "sim_" + strconv.FormatInt(int64(index), 10) + "_" + strconv.FormatInt(time.Now().Unix(), 10) + "_" + strconv.FormatInt(randNum.Int64(), 10)

	return Event{
		EventID:    eventID,
		DriverID:   driverID,
		Type:       string(eventType),
		Severity:   severity,
		OccurredAt: generateOccurredAt().Format(time.RFC3339),
		Source:     "telematics",
	}
}

// generateProfile picks an event type and severity with a skewed
// distribution so a minority of events are severe.
func generateProfile() (model.EventType, int) {
	switch getRandomInt(profileDivisor) {
	case caseCleanDriver, caseOccasionalMinor:
		return eventTypes[int(getRandomInt(2))], 1
	case caseSpeeder:
		return model.EventSpeeding, 1 + int(getRandomInt(2))
	case caseHarshBraker:
		return model.EventHardBraking, 1 + int(getRandomInt(3))
	case caseCitationProne:
		return model.EventCitation, 2 + int(getRandomInt(2))
	case caseHOSOffender:
		return model.EventHOSViolation, 2 + int(getRandomInt(3))
	case caseIncidentDriver:
		return model.EventAccident, 3 + int(getRandomInt(2))
	case caseHighRiskDriver:
		return model.EventAccident, 4 + int(getRandomInt(2))
	default:
		return eventTypes[int(getRandomInt(int64(len(eventTypes))))], 1 + int(getRandomInt(5))
	}
}

// generateOccurredAt spreads event timestamps across the recent past.
func generateOccurredAt() time.Time {
	now := time.Now().UTC()
	switch getRandomInt(3) {
	case 0:
		return now.Add(-time.Duration(getRandomFloat()*recentAgeMaxHours) * time.Hour)
	case 1:
		return now.Add(-time.Duration(getRandomFloat()*midAgeMaxHours) * time.Hour)
	default:
		return now.Add(-time.Duration(getRandomFloat()*oldAgeMaxHours) * time.Hour)
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
