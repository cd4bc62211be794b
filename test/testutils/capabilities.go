package testutils

import (
	"context"
	"testing"

	"github.com/kgateway-dev/gwsuite/pkg/capability"
)

// RequireCapabilities skips t unless the registry satisfies every requirement.
func RequireCapabilities(t testing.TB, reg *capability.Registry, reqs ...capability.Requirement) {
	t.Helper()
	if ok, reason := reg.Satisfies(context.Background(), reqs...); !ok {
		t.Skipf("skipping: %s", reason)
	}
}

// Cleanup registers fn to run when t finishes, unless cleanup is disabled.
func Cleanup(t testing.TB, fn func()) {
	t.Helper()
	t.Cleanup(func() {
		if ShouldSkipCleanup() {
			t.Logf("skipping cleanup, %s is set", SkipCleanup)
			return
		}
		fn()
	})
}
