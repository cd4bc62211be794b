package gateways

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgateway-dev/gwsuite/pkg/capability"
)

func TestCapabilities(t *testing.T) {
	tests := []struct {
		kind    Kind
		staging bool
		want    []capability.Capability
		absent  []capability.Capability
	}{
		{
			kind:    System,
			staging: false,
			want:    []capability.Capability{capability.Apicast, capability.ProductionGateway, capability.CustomEnvironment},
		},
		{
			kind:    System,
			staging: true,
			want:    []capability.Capability{capability.Apicast, capability.CustomEnvironment},
			absent:  []capability.Capability{capability.ProductionGateway},
		},
		{
			kind:   TLS,
			want:   []capability.Capability{capability.Apicast, capability.CustomEnvironment},
			absent: []capability.Capability{capability.ProductionGateway, capability.StandardGateway},
		},
		{
			kind:   Operator,
			want:   []capability.Capability{capability.Apicast, capability.ProductionGateway, capability.StandardGateway},
			absent: []capability.Capability{capability.CustomEnvironment},
		},
		{
			kind:   ServiceMesh,
			want:   []capability.Capability{capability.ServiceMesh, capability.ServiceMeshAdapter},
			absent: []capability.Capability{capability.Apicast, capability.ServiceMeshWASM, capability.ProductionGateway},
		},
		{
			kind:   WASM,
			want:   []capability.Capability{capability.ServiceMesh, capability.ServiceMeshWASM},
			absent: []capability.Capability{capability.Apicast, capability.ServiceMeshAdapter},
		},
		{
			kind:    Containerized,
			staging: true,
			want:    []capability.Capability{capability.Apicast, capability.Containerized, capability.Logs},
			absent:  []capability.Capability{capability.SameCluster, capability.CustomEnvironment},
		},
	}
	for _, tt := range tests {
		env := "production"
		if tt.staging {
			env = "staging"
		}
		t.Run(string(tt.kind)+"/"+env, func(t *testing.T) {
			caps := Capabilities(tt.kind, tt.staging)
			for _, c := range tt.want {
				assert.True(t, caps.Contains(c), "expected %s", c)
			}
			for _, c := range tt.absent {
				assert.False(t, caps.Contains(c), "unexpected %s", c)
			}
		})
	}
}

func TestCapabilitiesAreCopied(t *testing.T) {
	g := newBase(System, "apicast-staging", true)
	caps := g.Capabilities()
	caps.Add(capability.ServiceMesh)
	assert.False(t, g.Capabilities().Contains(capability.ServiceMesh))
}

func TestCapabilityProvider(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	reg := capability.NewRegistry()
	reg.RegisterProvider(CapabilityProvider(WASM))
	r.True(reg.Contains(ctx, capability.ServiceMeshWASM))
	r.False(reg.Contains(ctx, capability.Apicast))
	r.False(reg.Contains(ctx, capability.ProductionGateway))

	reg = capability.NewRegistry()
	reg.RegisterProvider(CapabilityProvider(SelfManaged))
	ok, reason := reg.Satisfies(ctx,
		capability.RequirePresent(capability.Apicast),
		capability.RequirePresent(capability.ProductionGateway),
		capability.RequireAbsent(capability.ServiceMesh),
	)
	r.True(ok, reason)
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("nginx")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
