package gateways

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kgateway-dev/gwsuite/pkg/capability"
	"github.com/kgateway-dev/gwsuite/pkg/metrics"
)

// State is the lifecycle state of a gateway.
type State int

const (
	Uninitialized State = iota
	Running
	// Failed gateways had Create return an error. They may only be destroyed.
	Failed
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	opCreate  = "create"
	opDestroy = "destroy"
	opReload  = "reload"
)

var (
	operationsTotal = metrics.NewCounter(
		metrics.CounterOpts{
			Subsystem: "gateway",
			Name:      "operations_total",
			Help:      "Total number of gateway lifecycle operations",
		},
		[]string{"kind", "operation", "result"},
	)
	operationDuration = metrics.NewHistogram(
		metrics.HistogramOpts{
			Subsystem: "gateway",
			Name:      "operation_duration_seconds",
			Help:      "Duration of gateway lifecycle operations",
		},
		[]string{"kind", "operation"},
	)
	gatewaysActive = metrics.NewGauge(
		metrics.GaugeOpts{
			Name: "gateways_active",
			Help: "Number of gateways created and not yet destroyed",
		},
		[]string{"kind"},
	)
)

// base carries what every gateway kind shares: its identity and lifecycle.
type base struct {
	kind    Kind
	name    string
	staging bool
	caps    capability.Set

	mu    sync.Mutex
	state State
}

func newBase(kind Kind, name string, staging bool) *base {
	return &base{kind: kind, name: name, staging: staging, caps: Capabilities(kind, staging)}
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) Staging() bool { return b.staging }

// Name returns the name of the resources backing the gateway.
func (b *base) Name() string { return b.name }

func (b *base) Capabilities() capability.Set { return b.caps.Clone() }

func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *base) environment() string {
	if b.staging {
		return "staging"
	}
	return "production"
}

func (b *base) create(ctx context.Context, fn func(context.Context) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Uninitialized {
		return fmt.Errorf("%w: cannot create %s gateway %s in state %s", ErrInvalidState, b.kind, b.name, b.state)
	}
	if err := b.observe(ctx, opCreate, fn); err != nil {
		b.state = Failed
		return err
	}
	b.state = Running
	gatewaysActive.Add(1, metrics.Label{Name: "kind", Value: string(b.kind)})
	return nil
}

func (b *base) destroy(ctx context.Context, fn func(context.Context) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Destroyed:
		return nil
	case Uninitialized:
		b.state = Destroyed
		return nil
	}
	if err := b.observe(ctx, opDestroy, fn); err != nil {
		return err
	}
	if b.state == Running {
		gatewaysActive.Sub(1, metrics.Label{Name: "kind", Value: string(b.kind)})
	}
	b.state = Destroyed
	return nil
}

func (b *base) reload(ctx context.Context, fn func(context.Context) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Running {
		return fmt.Errorf("%w: cannot reload %s gateway %s in state %s", ErrInvalidState, b.kind, b.name, b.state)
	}
	return b.observe(ctx, opReload, fn)
}

func (b *base) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	log := logger.With("kind", b.kind, "name", b.name, "operation", op)
	log.Info("gateway operation started")
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
		log.Error("gateway operation failed", "error", err, "duration", duration)
	} else {
		log.Info("gateway operation finished", "duration", duration)
	}
	operationsTotal.Inc(
		metrics.Label{Name: "kind", Value: string(b.kind)},
		metrics.Label{Name: "operation", Value: op},
		metrics.Label{Name: "result", Value: result},
	)
	operationDuration.Observe(duration.Seconds(),
		metrics.Label{Name: "kind", Value: string(b.kind)},
		metrics.Label{Name: "operation", Value: op},
	)
	return err
}
