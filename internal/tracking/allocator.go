package tracking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/shipworks/shipping-service/pkg/logger"
)

// ErrAllocationExhausted is returned when no free tracking number was found
// within the attempt budget
var ErrAllocationExhausted = errors.New("tracking number allocation exhausted")

const (
	trackingPrefix = "TRK"
	codeMin        = 1000
	codeMax        = 9999

	// maxAttempts bounds the resampling loop so heavy collision pressure
	// surfaces as an error instead of a livelock
	maxAttempts = 50
)

// ExistsFunc reports whether a tracking number is already in use
type ExistsFunc func(ctx context.Context, trackingNo string) (bool, error)

// Allocator generates collision-free tracking numbers of the form TRK0000.
// The existence pre-check only reduces collisions; the storage layer's unique
// constraint is what makes the reservation atomic, and callers retry on a
// duplicate-key insert.
// A single Allocator is shared by every request goroutine, so sampling uses
// the locked top-level generator.
type Allocator struct {
	exists ExistsFunc
	logger logger.Logger
}

// NewAllocator creates an Allocator backed by the given existence check
func NewAllocator(exists ExistsFunc, logger logger.Logger) *Allocator {
	return &Allocator{
		exists: exists,
		logger: logger,
	}
}

// Allocate produces a tracking number not currently in use, resampling on
// collision up to the attempt budget
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := fmt.Sprintf("%s%d", trackingPrefix, codeMin+rand.Intn(codeMax-codeMin+1))

		taken, err := a.exists(ctx, candidate)

		if err != nil {
			return "", fmt.Errorf("failed to check tracking number: %w", err)
		}

		if !taken {
			return candidate, nil
		}

		a.logger.Debug("Tracking number collision, resampling",
			"candidate", candidate,
			"attempt", attempt)
	}

	return "", fmt.Errorf("%w: no free tracking number after %d attempts", ErrAllocationExhausted, maxAttempts)
}
