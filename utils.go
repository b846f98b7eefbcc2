package lottery

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ValidateRange validates range parameters
func ValidateRange(min, max int) error {
	if min > max {
		return ErrInvalidRange
	}
	return nil
}

// ValidateCount validates the number of draws requested for a batch
func ValidateCount(count int) error {
	if count <= 0 || count > MaxNumberOfDraws {
		return ErrInvalidCount.WithDetails(fmt.Sprintf("count=%d, allowed 1..%d", count, MaxNumberOfDraws))
	}
	return nil
}

// generateBatchID generates a unique, time-ordered batch id
func generateBatchID() string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s", timestamp, uuid.NewString())
}

// effectiveWorkers bounds the worker pool by the batch size
func effectiveWorkers(workers, count int) int {
	if workers < 1 {
		workers = 1
	}
	if workers > MaxCollectorWorkers {
		workers = MaxCollectorWorkers
	}
	if workers > count {
		workers = count
	}
	return workers
}
