package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Notifier delivers message to the owner of a check.
type Notifier interface {
	Send(ctx context.Context, owner, message string) error
}

var ErrInvalidInput = errors.New("notify: missing or invalid owner or message")

// TransportError wraps a failure to reach the provider at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "notify: transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError means the provider answered with a non-success status.
type RejectedError struct {
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("notify: rejected with status %d", e.StatusCode)
}

// PartialError is returned by Multi when at least one notifier delivered the
// message and at least one failed.
type PartialError struct {
	Delivered int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("notify: delivered by %d provider(s), others failed: %v", e.Delivered, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Multi sends to every notifier. It fails outright only when no notifier
// delivered; a mix of outcomes comes back as *PartialError.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, owner, message string) error {
	var errs error
	delivered := 0
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, owner, message); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		delivered++
	}
	if errs != nil && delivered > 0 {
		return &PartialError{Delivered: delivered, Err: errs}
	}
	return errs
}

// Log only writes the alert to the application log. It is the fallback when
// no provider is configured.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Send(ctx context.Context, owner, message string) error {
	if owner == "" || message == "" {
		return ErrInvalidInput
	}
	l.Logger.Info("alert", zap.String("owner", owner), zap.String("message", message))
	return nil
}
