// Package environ projects the environment of a deployment as a mapping of
// variables. Writes roll the deployment out and invalidate the projection.
package environ

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/kgateway-dev/gwsuite/pkg/logging"
)

var logger = logging.New("environ")

var (
	// ErrNotFound is returned for variables the deployment does not define.
	ErrNotFound = errors.New("environment variable not found")
	// ErrUnsupported is returned when writing a variable whose value lives in
	// a secret or config map.
	ErrUnsupported = fmt.Errorf("environment variable is read only: %w", errors.ErrUnsupported)
)

// Backend reads and writes the environment of deployments.
type Backend interface {
	ListEnv(ctx context.Context, deployment string) (string, error)
	SetEnv(ctx context.Context, deployment string, set map[string]string, unset []string) error
	WaitForRollout(ctx context.Context, deployment string) error
	SecretValue(ctx context.Context, name, key string) (string, error)
	ConfigMapValue(ctx context.Context, name, key string) (string, error)
}

// Environ is the environment of one deployment. It is loaded on first use
// and reloaded after every write.
type Environ struct {
	backend    Backend
	deployment string

	mu   sync.Mutex
	vars map[string]Variable
}

// New returns the environment of deployment.
func New(backend Backend, deployment string) *Environ {
	return &Environ{backend: backend, deployment: deployment}
}

// Deployment returns the name of the projected deployment.
func (e *Environ) Deployment() string {
	return e.deployment
}

// Refresh reloads every variable from the deployment.
func (e *Environ) Refresh(ctx context.Context) error {
	dump, err := e.backend.ListEnv(ctx, e.deployment)
	if err != nil {
		return fmt.Errorf("listing environment of %s: %w", e.deployment, err)
	}
	vars := parse(e, dump)
	e.mu.Lock()
	e.vars = vars
	e.mu.Unlock()
	logger.Debug("refreshed environment", "deployment", e.deployment, "variables", len(vars))
	return nil
}

func (e *Environ) invalidate() {
	e.mu.Lock()
	e.vars = nil
	e.mu.Unlock()
}

func (e *Environ) load(ctx context.Context) (map[string]Variable, error) {
	e.mu.Lock()
	vars := e.vars
	e.mu.Unlock()
	if vars != nil {
		return vars, nil
	}
	if err := e.Refresh(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vars, nil
}

// Lookup returns the variable called name.
func (e *Environ) Lookup(ctx context.Context, name string) (Variable, error) {
	vars, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in deployment %s", ErrNotFound, name, e.deployment)
	}
	return v, nil
}

// Get returns the value of the variable called name.
func (e *Environ) Get(ctx context.Context, name string) (string, error) {
	v, err := e.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	return v.Get(ctx)
}

// Names returns the sorted names of every variable.
func (e *Environ) Names(ctx context.Context) ([]string, error) {
	vars, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(vars)), nil
}

// Set assigns value to name, creating the variable if needed.
func (e *Environ) Set(ctx context.Context, name, value string) error {
	return e.SetMany(ctx, map[string]string{name: value})
}

// SetMany assigns every variable in values with a single rollout.
// Variables sourced from secrets or config maps are rejected before any change is made.
func (e *Environ) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	vars, err := e.load(ctx)
	if err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if v, ok := vars[name]; ok {
			if _, direct := v.(*Direct); !direct {
				return v.Set(ctx, values[name])
			}
		}
	}
	return e.apply(ctx, values, nil)
}

// Delete removes the variable called name.
func (e *Environ) Delete(ctx context.Context, name string) error {
	v, err := e.Lookup(ctx, name)
	if err != nil {
		return err
	}
	return v.Delete(ctx)
}

func (e *Environ) unset(ctx context.Context, name string) error {
	return e.apply(ctx, nil, []string{name})
}

func (e *Environ) apply(ctx context.Context, set map[string]string, unset []string) error {
	logger.Info("updating environment", "deployment", e.deployment, "set", slices.Sorted(maps.Keys(set)), "unset", unset)
	// the cached values are stale as soon as the update is attempted
	defer e.invalidate()
	if err := e.backend.SetEnv(ctx, e.deployment, set, unset); err != nil {
		return fmt.Errorf("updating environment of %s: %w", e.deployment, err)
	}
	return e.backend.WaitForRollout(ctx, e.deployment)
}
