// Package fallback implements ordered provider chains: a capability (speech
// transcription, speech synthesis) is served by a fixed list of providers
// tried strictly in order, and the first success wins. Providers later in the
// chain are never consulted once one succeeds; when every provider fails the
// caller gets an AllFailedError carrying each attempt.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/consultdeck/consultdeck/internal/errdefs"
)

// Provider is one link in a chain: an identifier for logging, an optional
// per-attempt timeout, and the invocation itself.
type Provider[I, O any] struct {
	// ID names the provider in logs and error aggregates (e.g. "google-stt").
	ID string

	// Timeout bounds a single attempt. Zero means the caller's context is the
	// only bound.
	Timeout time.Duration

	// Invoke performs the provider call.
	Invoke func(ctx context.Context, in I) (O, error)
}

// Attempt records one failed provider invocation.
type Attempt struct {
	// ID is the provider that failed.
	ID string

	// Err is the failure.
	Err error
}

// AllFailedError reports that every provider in a chain failed.
type AllFailedError struct {
	// Capability names the chain (e.g. "transcribe").
	Capability string

	// Attempts holds one entry per failed provider, in chain order.
	Attempts []Attempt
}

// Error implements the error interface.
func (e *AllFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: no providers configured", e.Capability)
	}
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("%s: all %d providers failed, last (%s): %v",
		e.Capability, len(e.Attempts), last.ID, last.Err)
}

// Unwrap exposes the per-provider errors for errors.Is / errors.As.
func (e *AllFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// IsAllFailed reports whether err is (or wraps) an AllFailedError.
func IsAllFailed(err error) bool {
	var afe *AllFailedError
	return errors.As(err, &afe)
}

// Chain tries providers in order until one succeeds. A Chain is stateless and
// safe for concurrent use.
type Chain[I, O any] struct {
	capability string
	providers  []Provider[I, O]
	log        *slog.Logger

	// onResult is called after every attempt with the provider ID and its
	// error (nil on success). Used for metrics.
	onResult func(provider string, err error)
}

// New constructs a chain for the named capability.
func New[I, O any](capability string, log *slog.Logger, providers ...Provider[I, O]) *Chain[I, O] {
	if log == nil {
		log = slog.Default()
	}
	return &Chain[I, O]{capability: capability, providers: providers, log: log}
}

// WithResultHook registers a per-attempt observer and returns the chain.
func (c *Chain[I, O]) WithResultHook(fn func(provider string, err error)) *Chain[I, O] {
	c.onResult = fn
	return c
}

// Invoke runs the chain. On success it returns the output and the ID of the
// provider that produced it. Validation failures from a provider are treated
// like any other failure for chain purposes: the next provider still gets its
// turn.
func (c *Chain[I, O]) Invoke(ctx context.Context, in I) (O, string, error) {
	var zero O
	attempts := make([]Attempt, 0, len(c.providers))

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return zero, "", fmt.Errorf("%s: %w", c.capability, err)
		}

		out, err := c.invokeOne(ctx, p, in)
		if c.onResult != nil {
			c.onResult(p.ID, err)
		}
		if err == nil {
			c.log.Debug("provider succeeded",
				slog.String("capability", c.capability),
				slog.String("provider", p.ID),
				slog.Int("attempt", len(attempts)+1))
			return out, p.ID, nil
		}

		c.log.Warn("provider failed, trying next",
			slog.String("capability", c.capability),
			slog.String("provider", p.ID),
			slog.String("kind", classify(err)),
			slog.String("error", err.Error()))
		attempts = append(attempts, Attempt{ID: p.ID, Err: err})
	}

	return zero, "", &AllFailedError{Capability: c.capability, Attempts: attempts}
}

// invokeOne runs a single provider under its own timeout.
func (c *Chain[I, O]) invokeOne(ctx context.Context, p Provider[I, O], in I) (O, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	return p.Invoke(ctx, in)
}

// classify buckets a provider failure for logging: the bucket names what went
// wrong without leaking response bodies into log labels.
func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errdefs.IsValidation(err):
		return "rejected"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "unreachable"
	}
	msg := err.Error()
	if strings.Contains(msg, "401") || strings.Contains(msg, "403") {
		return "auth"
	}
	return "error"
}
