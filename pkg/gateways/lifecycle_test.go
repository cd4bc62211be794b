package gateways

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgateway-dev/gwsuite/pkg/metrics"
)

var errBoom = errors.New("boom")

func succeed(calls *int) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		return nil
	}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("create then destroy", func(t *testing.T) {
		r := require.New(t)
		b := newBase(SelfManaged, "lifecycle-ok", true)
		r.Equal(Uninitialized, b.State())

		var calls int
		r.NoError(b.create(ctx, succeed(&calls)))
		r.Equal(Running, b.State())

		err := b.create(ctx, succeed(&calls))
		r.ErrorIs(err, ErrInvalidState, "create may only be called once")

		r.NoError(b.reload(ctx, succeed(&calls)))
		r.NoError(b.destroy(ctx, succeed(&calls)))
		r.Equal(Destroyed, b.State())
		r.NoError(b.destroy(ctx, succeed(&calls)), "destroy is idempotent")
		r.Equal(3, calls)

		r.ErrorIs(b.reload(ctx, succeed(&calls)), ErrInvalidState)
		r.ErrorIs(b.create(ctx, succeed(&calls)), ErrInvalidState)
	})

	t.Run("failed create can be destroyed", func(t *testing.T) {
		r := require.New(t)
		b := newBase(TLS, "lifecycle-failed", true)

		r.ErrorIs(b.create(ctx, func(context.Context) error { return errBoom }), errBoom)
		r.Equal(Failed, b.State())
		r.ErrorIs(b.reload(ctx, func(context.Context) error { return nil }), ErrInvalidState)

		var calls int
		r.NoError(b.destroy(ctx, succeed(&calls)))
		r.Equal(1, calls, "cleanup runs after a partial create")
		r.Equal(Destroyed, b.State())
	})

	t.Run("destroying an uncreated gateway does nothing", func(t *testing.T) {
		r := require.New(t)
		b := newBase(Operator, "lifecycle-unused", false)

		var calls int
		r.NoError(b.destroy(ctx, succeed(&calls)))
		r.Zero(calls)
		r.Equal(Destroyed, b.State())
	})

	t.Run("failed destroy can be retried", func(t *testing.T) {
		r := require.New(t)
		b := newBase(Templated, "lifecycle-retry", false)
		r.NoError(b.create(ctx, func(context.Context) error { return nil }))

		r.ErrorIs(b.destroy(ctx, func(context.Context) error { return errBoom }), errBoom)
		r.Equal(Running, b.State())

		r.NoError(b.destroy(ctx, func(context.Context) error { return nil }))
		r.Equal(Destroyed, b.State())
	})
}

func TestLifecycleMetrics(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	metrics.SetActive(true)

	counter := metrics.GetPromCollector(operationsTotal).(*prometheus.CounterVec)
	gauge := metrics.GetPromCollector(gatewaysActive).(*prometheus.GaugeVec)
	created := counter.WithLabelValues(string(Containerized), opCreate, "success")
	failed := counter.WithLabelValues(string(Containerized), opCreate, "error")
	active := gauge.WithLabelValues(string(Containerized))

	beforeCreated, beforeFailed, beforeActive := testutil.ToFloat64(created), testutil.ToFloat64(failed), testutil.ToFloat64(active)

	ok := newBase(Containerized, "metrics-ok", true)
	r.NoError(ok.create(ctx, func(context.Context) error { return nil }))
	bad := newBase(Containerized, "metrics-bad", true)
	r.Error(bad.create(ctx, func(context.Context) error { return errBoom }))

	assert.Equal(t, beforeCreated+1, testutil.ToFloat64(created))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
	assert.Equal(t, beforeActive+1, testutil.ToFloat64(active))

	r.NoError(ok.destroy(ctx, func(context.Context) error { return nil }))
	r.NoError(bad.destroy(ctx, func(context.Context) error { return nil }))
	assert.Equal(t, beforeActive, testutil.ToFloat64(active), "only running gateways are counted")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
