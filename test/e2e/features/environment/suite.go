package environment

import (
	"context"
	"errors"

	"github.com/onsi/gomega"
	"github.com/stretchr/testify/suite"

	"github.com/kgateway-dev/gwsuite/pkg/capability"
	"github.com/kgateway-dev/gwsuite/pkg/environ"
	"github.com/kgateway-dev/gwsuite/pkg/gateways"
	"github.com/kgateway-dev/gwsuite/test/e2e"
	"github.com/kgateway-dev/gwsuite/test/testutils"
)

var _ e2e.NewSuiteFunc = NewTestingSuite

const logLevel = "APICAST_LOG_LEVEL"

// testingSuite edits the environment of a gateway deployment.
type testingSuite struct {
	suite.Suite

	ctx     context.Context
	session *e2e.Session
	gateway gateways.Gateway
}

func NewTestingSuite(ctx context.Context, session *e2e.Session) suite.TestingSuite {
	return &testingSuite{ctx: ctx, session: session}
}

func (s *testingSuite) SetupSuite() {
	testutils.RequireCapabilities(s.T(), s.session.Registry,
		capability.RequirePresent(capability.CustomEnvironment),
		capability.RequirePresent(capability.SameCluster),
	)
	s.gateway = s.session.Gateway(s.ctx, s.T(), true)
}

func (s *testingSuite) TestSetAndDelete() {
	g := gomega.NewWithT(s.T())
	env, err := gateways.Environ(s.gateway)
	s.Require().NoError(err)

	previous, err := env.Get(s.ctx, logLevel)
	hadPrevious := err == nil
	s.T().Cleanup(func() {
		if hadPrevious {
			s.NoError(env.Set(s.ctx, logLevel, previous))
		} else if err := env.Delete(s.ctx, logLevel); !errors.Is(err, environ.ErrNotFound) {
			s.NoError(err)
		}
	})

	s.Require().NoError(env.Set(s.ctx, logLevel, "debug"))
	value, err := env.Get(s.ctx, logLevel)
	s.Require().NoError(err)
	g.Expect(value).To(gomega.Equal("debug"))

	s.Require().NoError(env.Delete(s.ctx, logLevel))
	names, err := env.Names(s.ctx)
	s.Require().NoError(err)
	g.Expect(names).NotTo(gomega.ContainElement(logLevel))
}

func (s *testingSuite) TestPortalEndpointIsReadOnly() {
	env, err := gateways.Environ(s.gateway)
	s.Require().NoError(err)
	names, err := env.Names(s.ctx)
	s.Require().NoError(err)
	gomega.NewWithT(s.T()).Expect(names).To(gomega.ContainElement("THREESCALE_PORTAL_ENDPOINT"))

	value, err := env.Get(s.ctx, "THREESCALE_PORTAL_ENDPOINT")
	s.Require().NoError(err)
	s.NotEmpty(value)

	s.ErrorIs(env.Set(s.ctx, "THREESCALE_PORTAL_ENDPOINT", "https://example.com"), environ.ErrUnsupported)
	s.ErrorIs(env.Delete(s.ctx, "THREESCALE_PORTAL_ENDPOINT"), environ.ErrUnsupported)
	after, err := env.Get(s.ctx, "THREESCALE_PORTAL_ENDPOINT")
	s.Require().NoError(err)
	s.Equal(value, after)
}
