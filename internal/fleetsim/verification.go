package fleetsim

import (
	"fmt"
	"log"
)

// verifyResults checks queue ordering and score consistency.
func verifyResults(config *Config, scores []ScoreView, queue []Recommendation) error {
	log.Println("verifying results...")

	if len(scores) == 0 {
		return fmt.Errorf("no scores to verify")
	}

	if len(queue) > 0 {
		if err := verifyQueueOrdering(queue); err != nil {
			log.Printf("queue ordering warning: %v", err)
		} else {
			log.Println("intervention queue ordering verified")
		}
	}

	displayTopOfQueue(scores, queue, config.Verbose)

	log.Println("result verification completed")
	return nil
}

// verifyQueueOrdering checks urgency is non-increasing and ranks are
// dense from 1.
func verifyQueueOrdering(queue []Recommendation) error {
	for i, entry := range queue {
		if entry.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d, expected %d", i, entry.Rank, i+1)
		}
		if i > 0 && entry.Urgency > queue[i-1].Urgency {
			return fmt.Errorf("queue not sorted: entry %d has higher urgency than entry %d", i, i-1)
		}
	}
	return nil
}

// displayTopOfQueue shows the most urgent drivers and band breakdown.
func displayTopOfQueue(scores []ScoreView, queue []Recommendation, verbose bool) {
	topN := 10
	if len(queue) < topN {
		topN = len(queue)
	}

	log.Printf("top %d drivers by urgency:", topN)
	for i := 0; i < topN; i++ {
		entry := queue[i]
		log.Printf("   %d. %s - urgency: %.1f action: %s", entry.Rank, entry.DriverID, entry.Urgency, entry.Action)
	}

	if verbose {
		bands := map[string]int{}
		for _, view := range scores {
			bands[view.Band]++
		}
		log.Printf(`band breakdown:
   Green: %d
   Yellow: %d
   Red: %d
`, bands["green"], bands["yellow"], bands["red"])
	}
}
