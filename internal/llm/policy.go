// Package llm holds the clients for the remote text generators: Gemini for
// rules adjudication and an OpenAI-compatible chat endpoint for narration.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrGeneratorUnreachable means every attempt to call a generator failed.
var ErrGeneratorUnreachable = errors.New("generator unreachable")

// Policy bounds how a remote generator is called.
type Policy struct {
	// Timeout caps a single attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
	// Retries is the number of extra attempts after the first failure.
	Retries int
	// Limiter throttles attempts. Nil means unlimited.
	Limiter *rate.Limiter
}

// NewLimiter allows perSecond calls per second with the given burst. A
// non-positive rate disables limiting.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Do runs fn under the policy. The returned error wraps
// ErrGeneratorUnreachable once attempts are exhausted or ctx is done.
func (p Policy) Do(ctx context.Context, log *zap.Logger, name string, fn func(ctx context.Context) (string, error)) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= p.Retries+1; attempt++ {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		start := time.Now()
		out, err := fn(attemptCtx)
		cancel()
		if err == nil {
			log.Debug("Generator call succeeded",
				zap.String("generator", name),
				zap.Int("attempt", attempt),
				zap.Duration("took", time.Since(start)))
			return out, nil
		}

		lastErr = err
		log.Warn("Generator call failed",
			zap.String("generator", name),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %s: %v", ErrGeneratorUnreachable, name, lastErr)
}
