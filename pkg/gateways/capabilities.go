package gateways

import (
	"github.com/kgateway-dev/gwsuite/pkg/capability"
)

// kindCapabilities are the capabilities a kind advertises in either environment.
var kindCapabilities = map[Kind][]capability.Capability{
	System:        {capability.Apicast, capability.StandardGateway, capability.CustomEnvironment, capability.SameCluster, capability.Logs},
	SelfManaged:   {capability.Apicast, capability.StandardGateway, capability.CustomEnvironment, capability.SameCluster, capability.Logs},
	Templated:     {capability.Apicast, capability.StandardGateway, capability.CustomEnvironment, capability.SameCluster, capability.Logs},
	TLS:           {capability.Apicast, capability.CustomEnvironment, capability.SameCluster, capability.Logs},
	Operator:      {capability.Apicast, capability.StandardGateway, capability.SameCluster, capability.Logs},
	ServiceMesh:   {capability.ServiceMesh, capability.ServiceMeshAdapter},
	WASM:          {capability.ServiceMesh, capability.ServiceMeshWASM},
	Containerized: {capability.Apicast, capability.Containerized, capability.Logs},
}

// productionCapable kinds can also front the production environment.
var productionCapable = map[Kind]bool{
	System:      true,
	SelfManaged: true,
	Templated:   true,
	Operator:    true,
}

// Capabilities returns what a gateway of kind advertises.
func Capabilities(kind Kind, staging bool) capability.Set {
	caps := capability.NewSet(kindCapabilities[kind]...)
	if productionCapable[kind] && !staging {
		caps.Add(capability.ProductionGateway)
	}
	return caps
}

// CapabilityProvider answers every gateway related capability for the kind
// tests run against. The production gateway capability is reported when the
// kind can serve production traffic.
func CapabilityProvider(kind Kind) *capability.Provider {
	present := Capabilities(kind, true)
	if productionCapable[kind] {
		present.Add(capability.ProductionGateway)
	}
	return capability.Static("gateway-"+string(kind), present,
		capability.Apicast,
		capability.ProductionGateway,
		capability.StandardGateway,
		capability.CustomEnvironment,
		capability.SameCluster,
		capability.ServiceMesh,
		capability.ServiceMeshAdapter,
		capability.ServiceMeshWASM,
		capability.Logs,
		capability.Containerized,
	)
}
