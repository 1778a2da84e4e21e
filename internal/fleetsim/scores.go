package fleetsim

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// triggerRescore asks the service to rescore the whole fleet.
func triggerRescore(ctx context.Context, config *Config) error {
	log.Println("triggering fleet rescore...")

	client := newHTTPClient(config.Timeout, config.OrgID)
	resp, err := client.Post(config.BaseURL+"/rescore", struct{}{})
	if err != nil {
		return fmt.Errorf("rescore request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read rescore response: %w", err)
	}
	if resp.StatusCode != StatusAccepted {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var ack struct {
		Enqueued int `json:"enqueued"`
	}
	if err := unmarshalJSON(body, &ack); err != nil {
		return fmt.Errorf("failed to parse rescore response: %w", err)
	}

	log.Printf("rescore accepted for %d drivers", ack.Enqueued)
	return nil
}

// retrieveScores retrieves scores for all drivers concurrently.
func retrieveScores(ctx context.Context, config *Config, drivers []Driver, stats *Stats) ([]ScoreView, error) {
	log.Printf("retrieving scores for %d drivers with %d workers...", len(drivers), config.Workers)

	client := newHTTPClient(config.Timeout, config.OrgID)

	scores := make([]ScoreView, len(drivers))
	var (
		retrieved int64
		failed    int64
	)

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					driver := drivers[index]
					view, err := retrieveSingleScore(client, config.BaseURL, driver.ID)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("failed to get score for %s: %v", driver.ID, err)
						}
					} else {
						scores[index] = view
						atomic.AddInt64(&retrieved, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range drivers {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	validScores := make([]ScoreView, 0, len(scores))
	for _, view := range scores {
		if view.Driver.ID != "" {
			validScores = append(validScores, view)
		}
	}

	stats.ScoresRetrieved = len(validScores)

	log.Printf(`score retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(validScores), int(atomic.LoadInt64(&failed)))

	return validScores, nil
}

// retrieveSingleScore retrieves the score view for a single driver.
func retrieveSingleScore(client *HTTPClient, baseURL, driverID string) (ScoreView, error) {
	url := fmt.Sprintf("%s/drivers/%s/score", baseURL, driverID)

	resp, err := client.Get(url)
	if err != nil {
		return ScoreView{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return ScoreView{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return ScoreView{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var view ScoreView
	if err := unmarshalJSON(body, &view); err != nil {
		return ScoreView{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return view, nil
}

// getInterventionQueue retrieves the ranked intervention queue.
func getInterventionQueue(ctx context.Context, config *Config, stats *Stats) ([]Recommendation, error) {
	log.Println("getting intervention queue...")

	client := newHTTPClient(config.Timeout, config.OrgID)
	resp, err := client.Get(config.BaseURL + "/interventions")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var queue []Recommendation
	if err := unmarshalJSON(body, &queue); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.QueueEntries = len(queue)
	log.Printf("retrieved %d intervention queue entries", len(queue))

	return queue, nil
}

// waitForProcessing gives the rescore workers time to drain the queue.
func waitForProcessing(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(ProcessingDelay):
	}
}
