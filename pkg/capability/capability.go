// Package capability declares the optional environment features tests can
// depend on, and a registry that resolves which of them are present.
package capability

import (
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Capability names one optional feature of the environment under test.
type Capability string

const (
	// Apicast is present when the gateway under test is an APIcast.
	Apicast Capability = "APICAST"
	// ProductionGateway is present when a production gateway is available next to staging.
	ProductionGateway Capability = "PRODUCTION_GATEWAY"
	// StandardGateway is present when the gateway is the one shipped with the product.
	StandardGateway Capability = "STANDARD_GATEWAY"
	// CustomEnvironment is present when the gateway environment variables can be edited.
	CustomEnvironment Capability = "CUSTOM_ENVIRONMENT"
	// SameCluster is present when the gateway runs in the cluster of the product.
	SameCluster Capability = "SAME_CLUSTER"
	// ServiceMesh is present when traffic is handled by a service mesh.
	ServiceMesh Capability = "SERVICE_MESH"
	// ServiceMeshAdapter is present when the mesh authorizes through the external authorizer.
	ServiceMeshAdapter Capability = "SERVICE_MESH_ADAPTER"
	// ServiceMeshWASM is present when the mesh authorizes through a WASM extension.
	ServiceMeshWASM Capability = "SERVICE_MESH_WASM"
	// OCP3 and OCP4 are present on OpenShift clusters of the matching major version.
	OCP3 Capability = "OCP3"
	OCP4 Capability = "OCP4"
	// Scaling is present when product components may be scaled.
	Scaling Capability = "SCALING"
	// Logs is present when gateway logs can be read.
	Logs Capability = "LOGS"
	// Jaeger is present when a tracing backend is reachable.
	Jaeger Capability = "JAEGER"
	// Containerized is present when the gateway runs in a local container.
	Containerized Capability = "CONTAINERIZED"
)

// All lists every known capability.
var All = []Capability{
	Apicast, ProductionGateway, StandardGateway, CustomEnvironment, SameCluster,
	ServiceMesh, ServiceMeshAdapter, ServiceMeshWASM, OCP3, OCP4, Scaling, Logs,
	Jaeger, Containerized,
}

// Set is a set of capabilities.
type Set = mapset.Set[Capability]

// NewSet returns a thread safe Set holding caps.
func NewSet(caps ...Capability) Set {
	return mapset.NewSet(caps...)
}

// Parse returns the capability named by s, ignoring case.
func Parse(s string) (Capability, bool) {
	c := Capability(strings.ToUpper(strings.TrimSpace(s)))
	return c, slices.Contains(All, c)
}

// Sorted returns the members of s in lexical order.
func Sorted(s Set) []Capability {
	out := s.ToSlice()
	slices.Sort(out)
	return out
}
