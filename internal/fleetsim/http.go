package fleetsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// orgHeader carries the tenant scope on every request.
const orgHeader = "X-Org-ID"

// HTTPClient wraps http.Client with timeout and tenant header
type HTTPClient struct {
	client  *http.Client
	orgID   string
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration, orgID string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		orgID:   orgID,
		timeout: timeout,
	}
}

// Get performs a GET request with the tenant header
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(orgHeader, c.orgID)
	return c.client.Do(req)
}

// do performs a request with a JSON body and the tenant header
func (c *HTTPClient) do(method, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest(method, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(orgHeader, c.orgID)
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	return c.do("POST", url, body)
}

// Put performs a PUT request with JSON body
func (c *HTTPClient) Put(url string, body interface{}) (*http.Response, error) {
	return c.do("PUT", url, body)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// registerFleet upserts every simulated driver via PUT /drivers/{id}.
func registerFleet(ctx context.Context, config *Config, drivers []Driver) error {
	log.Printf("registering %d drivers with %d workers...", len(drivers), config.Workers)

	client := newHTTPClient(config.Timeout, config.OrgID)

	driverChan := make(chan Driver, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	var failed int64

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for driver := range driverChan {
				select {
				case <-ctx.Done():
					return
				default:
					url := config.BaseURL + "/drivers/" + driver.ID
					resp, err := client.Put(url, driver)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						continue
					}
					_, _ = readResponseBody(resp)
					if resp.StatusCode != StatusOK {
						atomic.AddInt64(&failed, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(driverChan)
		for _, driver := range drivers {
			select {
			case <-ctx.Done():
				return
			case driverChan <- driver:
			}
		}
	}()

	wg.Wait()

	if n := atomic.LoadInt64(&failed); n > 0 {
		return fmt.Errorf("%d of %d driver registrations failed", n, len(drivers))
	}
	log.Printf("registered %d drivers", len(drivers))
	return nil
}

// submitEvents submits risk events concurrently using worker pools
func submitEvents(ctx context.Context, config *Config, events []Event, stats *Stats) error {
	log.Printf("submitting %d events with %d workers...", len(events), config.Workers)

	client := newHTTPClient(config.Timeout, config.OrgID)
	url := config.BaseURL + "/events"

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	// lastReport holds unix nanos; workers race to print progress, so
	// the winner is elected with a compare-and-swap.
	var lastReport atomic.Int64
	reportInterval := 1 * time.Second

	eventChan := make(chan Event, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for event := range eventChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleEvent(client, url, event)

					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					now := time.Now().UnixNano()
					last := lastReport.Load()
					if now-last >= int64(reportInterval) && lastReport.CompareAndSwap(last, now) {
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
								total, len(events), succ, dup, fail)
						} else {
							fmt.Printf("\rsubmitted: %d/%d (success: %d, duplicate: %d, failed: %d)",
								total, len(events), succ, dup, fail)
						}
					}
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()

	if !config.Verbose {
		fmt.Println()
	}

	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EventsSuccessful = int(atomic.LoadInt64(&successful))
	stats.EventsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.EventsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`event submission completed:
   Successful: %d
   Duplicate: %d
   Failed: %d
`, stats.EventsSuccessful, stats.EventsDuplicate, stats.EventsFailed)

	return nil
}

// submitSingleEvent submits a single event and returns the result
func submitSingleEvent(client *HTTPClient, url string, event Event) string {
	resp, err := client.Post(url, event)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusCreated:
		return "success"
	case StatusOK:
		var ack AckResponse
		if err := unmarshalJSON(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate"
	default:
		return "failed"
	}
}
