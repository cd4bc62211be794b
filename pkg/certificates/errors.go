package certificates

import (
	"errors"
	"fmt"
)

var (
	// ErrProvider is matched by every error coming from a key or signing provider.
	ErrProvider = errors.New("certificate provider error")
	// ErrToolMissing is matched when the signing tool could not be found at all.
	ErrToolMissing = errors.New("certificate tool not found")
	// ErrCertificateRequired is returned when an operation needs a certificate authority.
	ErrCertificateRequired = errors.New("certificate authority required")
	// ErrNotFound is returned by stores for unknown labels.
	ErrNotFound = errors.New("certificate not found")
	// ErrNotPersisted is returned when files are requested for data with no persister attached.
	ErrNotPersisted = errors.New("no persister attached")
)

// ProviderError describes a failed provider operation.
type ProviderError struct {
	// Tool is the provider or binary that failed.
	Tool string
	// Op is the operation, such as genkey or sign.
	Op string
	// Missing is true when the tool itself is unavailable, as opposed to
	// having rejected its input.
	Missing bool
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Missing {
		return fmt.Sprintf("%s %s: %s is not installed or not on PATH: %v", e.Tool, e.Op, e.Tool, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Tool, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider || (e.Missing && target == ErrToolMissing)
}

func providerError(tool, op string, err error) error {
	return &ProviderError{Tool: tool, Op: op, Err: err}
}

// NotFoundError reports that label is not stored.
func NotFoundError(label string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, label)
}
