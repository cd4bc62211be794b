package cluster

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// ErrNotFound is returned when a named resource does not exist, or a key is
// missing from a secret or config map.
var ErrNotFound = errors.New("not found")

func notFoundError(kind, name string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
	}
	return fmt.Errorf("%w: %s %q: %w", ErrNotFound, kind, name, err)
}

// wrapGet turns an apimachinery NotFound into ErrNotFound.
func wrapGet(kind, name string, err error) error {
	if err == nil {
		return nil
	}
	if apierrors.IsNotFound(err) {
		return notFoundError(kind, name, err)
	}
	return fmt.Errorf("getting %s %q: %w", kind, name, err)
}

// ignoreNotFound returns nil on NotFound errors so deletes of absent objects succeed.
func ignoreNotFound(err error) error {
	if apierrors.IsNotFound(err) {
		return nil
	}
	return err
}
