package capability_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgateway-dev/gwsuite/pkg/capability"
)

func countingProvider(name string, calls *atomic.Int32, present capability.Set, provides ...capability.Capability) *capability.Provider {
	return capability.NewProvider(name, func(context.Context) (capability.Set, error) {
		calls.Add(1)
		return present, nil
	}, provides...)
}

func TestUnknownCapabilityIsAbsent(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	reg := capability.NewRegistry()
	var calls atomic.Int32
	reg.RegisterProvider(countingProvider("mesh", &calls, capability.NewSet(capability.ServiceMesh), capability.ServiceMesh))

	for range 3 {
		ok, err := reg.ContainsE(ctx, capability.Jaeger)
		r.NoError(err)
		r.False(ok)
	}
	r.Zero(calls.Load())
}

func TestProviderRunsOnce(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	reg := capability.NewRegistry()
	var calls atomic.Int32
	reg.RegisterProvider(countingProvider("gateway", &calls,
		capability.NewSet(capability.Apicast, capability.Logs),
		capability.Apicast, capability.Logs, capability.ProductionGateway))

	r.True(reg.Contains(ctx, capability.Apicast))
	r.EqualValues(1, calls.Load())

	r.True(reg.Contains(ctx, capability.Logs))
	r.False(reg.Contains(ctx, capability.ProductionGateway))
	r.True(reg.Contains(ctx, capability.Apicast))
	r.EqualValues(1, calls.Load())
}

func TestProviderRunsOnceConcurrently(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	reg := capability.NewRegistry()
	var calls atomic.Int32
	reg.RegisterProvider(countingProvider("gateway", &calls, capability.NewSet(capability.Apicast), capability.Apicast))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Contains(ctx, capability.Apicast)
		}()
	}
	wg.Wait()
	r.EqualValues(1, calls.Load())
}

func TestFirstRegisteredProviderWins(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	reg := capability.NewRegistry()
	var first, second atomic.Int32
	reg.RegisterProvider(countingProvider("first", &first, capability.NewSet(capability.Jaeger), capability.Jaeger))
	reg.RegisterProvider(countingProvider("second", &second, capability.NewSet(), capability.Jaeger))

	r.True(reg.Contains(ctx, capability.Jaeger))
	r.True(reg.Contains(ctx, capability.Jaeger))
	r.EqualValues(1, first.Load())
	r.Zero(second.Load())
}

func TestFailingProviderIsRetried(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	reg := capability.NewRegistry()
	var calls atomic.Int32
	reg.RegisterProvider(capability.NewProvider("flaky", func(context.Context) (capability.Set, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("api server unavailable")
		}
		return capability.NewSet(capability.OCP4), nil
	}, capability.OCP3, capability.OCP4))

	ok, err := reg.ContainsE(ctx, capability.OCP4)
	r.ErrorIs(err, capability.ErrProvider)
	r.ErrorContains(err, "api server unavailable")
	r.False(ok)

	r.True(reg.Contains(ctx, capability.OCP4))
	r.False(reg.Contains(ctx, capability.OCP3))
	r.EqualValues(2, calls.Load())
}

func TestPanickingProvider(t *testing.T) {
	r := require.New(t)

	reg := capability.NewRegistry()
	reg.RegisterProvider(capability.NewProvider("broken", func(context.Context) (capability.Set, error) {
		panic("boom")
	}, capability.Scaling))

	ok, err := reg.ContainsE(context.Background(), capability.Scaling)
	r.False(ok)
	r.ErrorIs(err, capability.ErrProvider)
	r.ErrorContains(err, "broken panicked: boom")
}

func TestResolve(t *testing.T) {
	r := require.New(t)

	reg := capability.NewRegistry()
	reg.RegisterProvider(capability.Static("gateway", capability.NewSet(capability.Apicast), capability.Apicast))
	reg.RegisterProvider(capability.Static("flavor", capability.NewSet(capability.OCP4), capability.OCP3, capability.OCP4))

	present, err := reg.Resolve(context.Background())
	r.NoError(err)
	r.Equal([]capability.Capability{capability.Apicast, capability.OCP4}, capability.Sorted(present))
}

func TestSatisfies(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	reg := capability.NewRegistry()
	reg.RegisterProvider(capability.Static("gateway",
		capability.NewSet(capability.Apicast),
		capability.Apicast, capability.ServiceMesh))

	ok, reason := reg.Satisfies(ctx, capability.RequirePresent(capability.Apicast), capability.RequireAbsent(capability.ServiceMesh))
	r.True(ok)
	r.Empty(reason)

	ok, reason = reg.Satisfies(ctx, capability.RequirePresent(capability.ServiceMesh))
	r.False(ok)
	r.Equal("capability SERVICE_MESH is not present", reason)

	ok, reason = reg.Satisfies(ctx, capability.RequireAbsent(capability.Apicast))
	r.False(ok)
	r.Equal("capability APICAST is present", reason)
}

func TestParse(t *testing.T) {
	r := require.New(t)

	c, ok := capability.Parse(" service_mesh_wasm ")
	r.True(ok)
	r.Equal(capability.ServiceMeshWASM, c)

	_, ok = capability.Parse("MAILHOG")
	r.False(ok)
}

func TestJaegerProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/api/services" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"data":["apicast"]}`))
	}))
	t.Cleanup(srv.Close)

	tests := []struct {
		name     string
		endpoint string
		want     bool
	}{
		{name: "not configured", endpoint: "", want: false},
		{name: "reachable", endpoint: srv.URL, want: true},
		{name: "wrong path", endpoint: srv.URL + "/nope", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := capability.NewRegistry()
			reg.RegisterProvider(capability.JaegerProvider(tt.endpoint, srv.Client()))
			require.Equal(t, tt.want, reg.Contains(context.Background(), capability.Jaeger))
		})
	}
}
