package capability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kgateway-dev/gwsuite/pkg/logging"
)

var logger = logging.New("capability")

// ErrProvider is wrapped by errors returned from a failing provider.
var ErrProvider = errors.New("capability provider failed")

// ProviderFunc computes which of the provider's capabilities are present.
type ProviderFunc func(ctx context.Context) (Set, error)

// Provider pairs the capabilities it can answer for with the function that
// computes the present subset. The function runs at most once successfully.
type Provider struct {
	name     string
	provides Set
	fn       ProviderFunc

	mu   sync.Mutex
	done bool
}

// NewProvider returns a Provider answering for provides.
func NewProvider(name string, fn ProviderFunc, provides ...Capability) *Provider {
	return &Provider{
		name:     name,
		provides: NewSet(provides...),
		fn:       fn,
	}
}

// Static returns a Provider whose answer is fixed at construction.
func Static(name string, present Set, provides ...Capability) *Provider {
	return NewProvider(name, func(context.Context) (Set, error) {
		return present.Clone(), nil
	}, provides...)
}

// Name returns the provider name used in logs.
func (p *Provider) Name() string {
	return p.name
}

// Provides returns a copy of the capabilities this provider answers for.
func (p *Provider) Provides() Set {
	return p.provides.Clone()
}

// call invokes the provider function, turning a panic into an error.
func (p *Provider) call(ctx context.Context) (present Set, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrProvider, p.name, rec)
		}
	}()
	present, err = p.fn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProvider, p.name, err)
	}
	if present == nil {
		present = NewSet()
	}
	return present, nil
}

// Registry resolves capabilities lazily from registered providers and caches
// the answers for its whole lifetime. Create one per test session.
type Registry struct {
	mu        sync.RWMutex
	providers []*Provider

	// discovered holds every capability whose owning provider has run.
	discovered Set
	// present holds the capabilities found to be available.
	present Set
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		discovered: NewSet(),
		present:    NewSet(),
	}
}

// RegisterProvider appends p. When several providers answer for the same
// capability, the first registered one is used.
func (r *Registry) RegisterProvider(p *Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// Contains reports whether c is present. Provider failures are logged and
// reported as absent; use ContainsE to observe them.
func (r *Registry) Contains(ctx context.Context, c Capability) bool {
	ok, err := r.ContainsE(ctx, c)
	if err != nil {
		logger.Error("capability resolution failed", "capability", c, "error", err)
	}
	return ok
}

// ContainsE reports whether c is present, running the owning provider on first use.
// A capability no provider answers for is absent. A failing provider leaves the
// registry unchanged, so the next query runs it again.
func (r *Registry) ContainsE(ctx context.Context, c Capability) (bool, error) {
	if r.discovered.Contains(c) {
		return r.present.Contains(c), nil
	}

	p := r.providerFor(c)
	if p == nil {
		logger.Debug("no provider answers for capability", "capability", c)
		return false, nil
	}
	if err := r.run(ctx, p); err != nil {
		return false, err
	}
	return r.present.Contains(c), nil
}

// Resolve runs every provider that has not run yet and returns the present set.
func (r *Registry) Resolve(ctx context.Context) (Set, error) {
	r.mu.RLock()
	providers := append([]*Provider(nil), r.providers...)
	r.mu.RUnlock()

	var errs []error
	for _, p := range providers {
		if err := r.run(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return r.present.Clone(), errors.Join(errs...)
}

func (r *Registry) providerFor(c Capability) *Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if p.provides.Contains(c) {
			return p
		}
	}
	return nil
}

func (r *Registry) run(ctx context.Context, p *Provider) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil
	}

	present, err := p.call(ctx)
	if err != nil {
		return err
	}
	r.present.Append(present.ToSlice()...)
	r.discovered.Append(p.provides.ToSlice()...)
	p.done = true
	logger.Debug("capability provider resolved", "provider", p.name, "present", Sorted(present))
	return nil
}
