package tracking

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/shipworks/shipping-service/pkg/logger"
	"github.com/stretchr/testify/require"
)

var trackingPattern = regexp.MustCompile(`^TRK\d{4}$`)

func TestAllocateFormat(t *testing.T) {
	a := NewAllocator(func(ctx context.Context, trackingNo string) (bool, error) {
		return false, nil
	}, logger.NewLogger("error"))

	for i := 0; i < 100; i++ {
		got, err := a.Allocate(context.Background())
		require.NoError(t, err)
		require.Regexp(t, trackingPattern, got)
	}
}

func TestAllocateResamplesOnCollision(t *testing.T) {
	var seen []string
	calls := 0

	a := NewAllocator(func(ctx context.Context, trackingNo string) (bool, error) {
		calls++
		seen = append(seen, trackingNo)
		// First two candidates are taken
		return calls <= 2, nil
	}, logger.NewLogger("error"))

	got, err := a.Allocate(context.Background())

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, seen[len(seen)-1], got)
}

func TestAllocateExhaustion(t *testing.T) {
	calls := 0

	a := NewAllocator(func(ctx context.Context, trackingNo string) (bool, error) {
		calls++
		// Every number in the pool is taken
		return true, nil
	}, logger.NewLogger("error"))

	_, err := a.Allocate(context.Background())

	require.Error(t, err)
	require.ErrorIs(t, err, ErrAllocationExhausted)
	require.Equal(t, maxAttempts, calls, "allocation must stop after the attempt budget")
}

func TestAllocateConcurrent(t *testing.T) {
	a := NewAllocator(func(ctx context.Context, trackingNo string) (bool, error) {
		return false, nil
	}, logger.NewLogger("error"))

	const goroutines = 8
	const perGoroutine = 200

	var wg sync.WaitGroup

	results := make(chan string, goroutines*perGoroutine)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				got, err := a.Allocate(context.Background())
				if err != nil {
					t.Error(err)
					return
				}
				results <- got
			}
		}()
	}

	wg.Wait()
	close(results)

	for got := range results {
		require.Regexp(t, trackingPattern, got)
	}
}

func TestAllocatePropagatesCheckError(t *testing.T) {
	boom := errors.New("db down")

	a := NewAllocator(func(ctx context.Context, trackingNo string) (bool, error) {
		return false, boom
	}, logger.NewLogger("error"))

	_, err := a.Allocate(context.Background())

	require.ErrorIs(t, err, boom)
}
