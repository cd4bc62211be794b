package scaling

import (
	"context"
	"time"

	"github.com/onsi/gomega"
	"github.com/stretchr/testify/suite"

	"github.com/kgateway-dev/gwsuite/pkg/capability"
	"github.com/kgateway-dev/gwsuite/pkg/scaler"
	"github.com/kgateway-dev/gwsuite/test/e2e"
	"github.com/kgateway-dev/gwsuite/test/testutils"
)

var _ e2e.NewSuiteFunc = NewTestingSuite

// testingSuite scales product components and checks they are restored.
type testingSuite struct {
	suite.Suite

	ctx     context.Context
	session *e2e.Session
}

func NewTestingSuite(ctx context.Context, session *e2e.Session) suite.TestingSuite {
	return &testingSuite{ctx: ctx, session: session}
}

func (s *testingSuite) SetupSuite() {
	testutils.RequireCapabilities(s.T(), s.session.Registry, capability.RequirePresent(capability.Scaling))
}

func (s *testingSuite) TestScaleIsRestored() {
	component := s.session.Settings.StagingDeployment
	before, err := s.session.Cluster.Replicas(s.ctx, component)
	s.Require().NoError(err)

	err = s.session.Scaler.Scale(s.ctx, component, before+1, func(ctx context.Context) error {
		replicas, err := s.session.Cluster.Replicas(ctx, component)
		if err != nil {
			return err
		}
		s.Equal(before+1, replicas)
		return nil
	})
	s.Require().NoError(err)

	gomega.NewWithT(s.T()).Eventually(func() (int32, error) {
		return s.session.Cluster.Replicas(s.ctx, component)
	}).WithTimeout(s.session.Settings.RolloutTimeout).WithPolling(time.Second).Should(gomega.Equal(before))
}

func (s *testingSuite) TestUnlistedComponentIsRejected() {
	err := s.session.Scaler.Scale(s.ctx, "not-a-component", 1, func(context.Context) error { return nil })
	s.ErrorIs(err, scaler.ErrUnsupportedComponent)
}
