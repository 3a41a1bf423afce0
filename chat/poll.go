package chat

import (
	"context"
	"errors"
	"time"
)

var ErrPollTimeout = errors.New("poll timed out")

// PollUntil re-checks cond on a fixed tick until it reports done, fails, or
// the hard timeout elapses. Every wait in this package goes through here so
// no call on the chat surface can hang forever. The first check happens
// immediately.
func PollUntil(ctx context.Context, cond func() (bool, error), tick, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		done, err := cond()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrPollTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tick):
		}
	}
}

// Sleep pauses for d, returning early with ctx's error when cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
