package check

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithBackoffRecoversFromTransientFailures(t *testing.T) {
	var stamps []time.Time
	out, err := retryWithBackoff(context.Background(), 2, 20*time.Millisecond,
		func(context.Context) (string, error) {
			stamps = append(stamps, time.Now())
			if len(stamps) < 3 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("retryWithBackoff() error = %v", err)
	}
	if out != "ok" {
		t.Fatalf("retryWithBackoff() = %q, want ok", out)
	}
	if len(stamps) != 3 {
		t.Fatalf("attempts = %d, want 3", len(stamps))
	}

	firstGap := stamps[1].Sub(stamps[0])
	secondGap := stamps[2].Sub(stamps[1])
	if firstGap < 15*time.Millisecond {
		t.Fatalf("first retry delay = %v, want at least the base delay", firstGap)
	}
	if secondGap <= firstGap {
		t.Fatalf("delays did not grow: first %v, second %v", firstGap, secondGap)
	}
}

func TestRetryWithBackoffStopsAtAttemptBudget(t *testing.T) {
	attempts := 0
	_, err := retryWithBackoff(context.Background(), 2, time.Millisecond,
		func(context.Context) (int, error) {
			attempts++
			return 0, errors.New("permanent")
		})
	if err == nil {
		t.Fatalf("retryWithBackoff() expected an error after exhausting attempts")
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want maxRetries+1 = 3", attempts)
	}
}

func TestRetryWithBackoffAbortsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := retryWithBackoff(ctx, 5, time.Hour,
		func(context.Context) (int, error) {
			attempts++
			cancel()
			return 0, errors.New("transient")
		})
	if err == nil {
		t.Fatalf("retryWithBackoff() expected an error after cancellation")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want the retry schedule abandoned after 1", attempts)
	}
}
