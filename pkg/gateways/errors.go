package gateways

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a gateway cannot be built from its configuration.
	ErrInvalidConfig = errors.New("invalid gateway configuration")
	// ErrNotImplemented is returned when a gateway kind does not support an operation.
	// Callers may skip rather than fail on it.
	ErrNotImplemented = fmt.Errorf("not implemented for this gateway: %w", errors.ErrUnsupported)
	// ErrInvalidState is returned when an operation is not valid in the current lifecycle state.
	ErrInvalidState = errors.New("invalid gateway state")
)

func invalidConfig(kind Kind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, kind, fmt.Sprintf(format, args...))
}

func notImplemented(g Gateway, op string) error {
	return fmt.Errorf("%s on %s gateway: %w", op, g.Kind(), ErrNotImplemented)
}
