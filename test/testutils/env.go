package testutils

import (
	"github.com/kgateway-dev/gwsuite/pkg/utils/envutils"
)

const (
	// SkipCleanup can be used when you plan to inspect the cluster after a run and want
	// the gateways created by the suite left in place.
	SkipCleanup = "GWSUITE_SKIP_CLEANUP"

	// GatewayKinds is a comma separated list of gateway kinds the e2e suites run against.
	// When unset, only the kind named by GWSUITE_GATEWAY_KIND is used.
	GatewayKinds = "GWSUITE_E2E_GATEWAY_KINDS"

	// GithubAction is used by Github Actions and is the name of the currently running action or ID of a step
	// https://docs.github.com/en/actions/learn-github-actions/variables#default-environment-variables
	GithubAction = "GITHUB_ACTION"
)

// ShouldSkipCleanup returns true if created gateways should be left in place.
func ShouldSkipCleanup() bool {
	return envutils.IsEnvTruthy(SkipCleanup)
}

// IsRunningInCI returns true when the tests run in a GitHub action.
func IsRunningInCI() bool {
	return envutils.IsEnvDefined(GithubAction)
}
