package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

// NewSuiteFunc builds a testify suite run against a Session.
type NewSuiteFunc func(ctx context.Context, session *Session) suite.TestingSuite

type registeredSuite struct {
	name     string
	newSuite NewSuiteFunc
}

// SuiteRunner runs registered suites in registration order.
type SuiteRunner struct {
	suites []registeredSuite
}

func NewSuiteRunner() *SuiteRunner {
	return &SuiteRunner{}
}

// Register adds a suite under name. Names must be unique.
func (r *SuiteRunner) Register(name string, newSuite NewSuiteFunc) {
	for _, s := range r.suites {
		if s.name == name {
			panic("suite already registered: " + name)
		}
	}
	r.suites = append(r.suites, registeredSuite{name: name, newSuite: newSuite})
}

// Run runs every suite as a subtest of t.
func (r *SuiteRunner) Run(ctx context.Context, t *testing.T, session *Session) {
	for _, s := range r.suites {
		t.Run(s.name, func(t *testing.T) {
			suite.Run(t, s.newSuite(ctx, session))
		})
	}
}
