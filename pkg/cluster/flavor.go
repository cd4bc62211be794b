package cluster

import (
	"context"
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/discovery"

	"github.com/kgateway-dev/gwsuite/pkg/capability"
)

// routeGroup is only served by OpenShift clusters.
const routeGroup = "route.openshift.io"

// openShift3 matches the Kubernetes versions shipped with OpenShift 3.x.
var openShift3 = mustConstraint("< 1.12.0-0")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// Flavor identifies the OpenShift major version of a cluster. Plain
// Kubernetes clusters yield an empty set.
func Flavor(disc discovery.DiscoveryInterface) (capability.Set, error) {
	groups, err := disc.ServerGroups()
	if err != nil {
		return nil, fmt.Errorf("listing api groups: %w", err)
	}
	if !slices.ContainsFunc(groups.Groups, func(g metav1.APIGroup) bool { return g.Name == routeGroup }) {
		return capability.NewSet(), nil
	}

	info, err := disc.ServerVersion()
	if err != nil {
		return nil, fmt.Errorf("getting server version: %w", err)
	}
	v, err := semver.NewVersion(info.GitVersion)
	if err != nil {
		return nil, fmt.Errorf("parsing server version %q: %w", info.GitVersion, err)
	}
	if openShift3.Check(v) {
		return capability.NewSet(capability.OCP3), nil
	}
	return capability.NewSet(capability.OCP4), nil
}

// FlavorProvider answers OCP3 and OCP4 from the discovery API.
func FlavorProvider(disc discovery.DiscoveryInterface) *capability.Provider {
	return capability.NewProvider("cluster-flavor", func(context.Context) (capability.Set, error) {
		return Flavor(disc)
	}, capability.OCP3, capability.OCP4)
}
