package lifecycle

import (
	"context"
	"errors"

	"github.com/stretchr/testify/suite"

	"github.com/kgateway-dev/gwsuite/pkg/capability"
	"github.com/kgateway-dev/gwsuite/pkg/gateways"
	"github.com/kgateway-dev/gwsuite/test/e2e"
)

var _ e2e.NewSuiteFunc = NewTestingSuite

// testingSuite creates and destroys a gateway of the session kind.
type testingSuite struct {
	suite.Suite

	ctx     context.Context
	session *e2e.Session
}

func NewTestingSuite(ctx context.Context, session *e2e.Session) suite.TestingSuite {
	return &testingSuite{ctx: ctx, session: session}
}

func (s *testingSuite) TestStagingLifecycle() {
	g := s.session.Gateway(s.ctx, s.T(), true)
	s.Equal(gateways.Running, g.State())
	s.True(g.Staging())
	s.False(g.Capabilities().Contains(capability.ProductionGateway), "staging gateways never serve production")

	s.NoError(g.Destroy(s.ctx))
	s.Equal(gateways.Destroyed, g.State())
	s.NoError(g.Destroy(s.ctx), "a second destroy is a no-op")
	s.ErrorIs(g.Create(s.ctx), gateways.ErrInvalidState)
}

func (s *testingSuite) TestReload() {
	g := s.session.Gateway(s.ctx, s.T(), true)
	err := gateways.Reload(s.ctx, g)
	if errors.Is(err, gateways.ErrNotImplemented) {
		s.T().Skipf("%s gateways cannot reload", g.Kind())
	}
	s.Require().NoError(err)
	s.Equal(gateways.Running, g.State())
}

func (s *testingSuite) TestLogs() {
	if !s.session.Registry.Contains(s.ctx, capability.Logs) {
		s.T().Skip("gateway logs are not available")
	}
	g := s.session.Gateway(s.ctx, s.T(), true)
	logs, err := gateways.Logs(s.ctx, g)
	s.Require().NoError(err)
	s.NotEmpty(logs)
}
