// Package e2e wires the suite packages into a Session shared by the e2e test suites.
package e2e

import (
	"context"
	"net/http"
	"testing"

	"github.com/spf13/afero"

	"github.com/kgateway-dev/gwsuite/pkg/apim"
	"github.com/kgateway-dev/gwsuite/pkg/capability"
	"github.com/kgateway-dev/gwsuite/pkg/certificates"
	"github.com/kgateway-dev/gwsuite/pkg/cluster"
	"github.com/kgateway-dev/gwsuite/pkg/gateways"
	"github.com/kgateway-dev/gwsuite/pkg/logging"
	"github.com/kgateway-dev/gwsuite/pkg/metrics"
	"github.com/kgateway-dev/gwsuite/pkg/scaler"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
	"github.com/kgateway-dev/gwsuite/test/testutils"
)

var logger = logging.New("e2e")

// Session holds the collaborators every e2e suite shares: settings, a
// cluster client, the capability registry and the certificate manager.
type Session struct {
	Settings     *settings.Settings
	Cluster      *cluster.Client
	Registry     *capability.Registry
	Certificates *certificates.Manager
	Scaler       *scaler.Scaler

	// Kind is the gateway kind the suites run against.
	Kind gateways.Kind
}

// NewSession builds a Session from the environment. It fails t when the
// settings are invalid or the cluster cannot be reached.
func NewSession(t *testing.T) *Session {
	t.Helper()
	s, err := settings.BuildSettings()
	if err != nil {
		t.Fatalf("invalid settings: %v", err)
	}
	configureLogging(t, s)
	t.Cleanup(func() {
		path, err := metrics.Dump(afero.NewOsFs(), s.ResultsDir)
		if err != nil {
			t.Logf("writing metrics: %v", err)
			return
		}
		logger.Info("wrote metrics", "path", path)
	})

	kind, err := gateways.ParseKind(s.GatewayKind)
	if err != nil {
		t.Fatal(err)
	}
	restConfig, err := cluster.RestConfig(s.KubeContext)
	if err != nil {
		t.Fatalf("loading kubeconfig: %v", err)
	}
	c, err := cluster.New(restConfig, s)
	if err != nil {
		t.Fatal(err)
	}

	certs := certificates.NewManagerForBinary(s.CfsslBinary, certificates.NewMemoryStore(), certificates.NewOsPersister(s.ResultsDir))
	testutils.Cleanup(t, func() {
		if err := certs.Close(); err != nil {
			t.Logf("removing certificate files: %v", err)
		}
	})

	session := &Session{
		Settings:     s,
		Cluster:      c,
		Registry:     capability.NewRegistry(),
		Certificates: certs,
		Scaler:       scaler.New(c, s.ScalingAllowList),
		Kind:         kind,
	}
	session.registerProviders()
	logger.Info("session ready", "namespace", s.Namespace, "gateway_kind", kind)
	return session
}

func configureLogging(t *testing.T, s *settings.Settings) {
	t.Helper()
	logging.Configure(logging.Options{Format: s.LogFormat})
	if err := logging.SetLevels(s.LogLevel); err != nil {
		t.Fatalf("invalid log level: %v", err)
	}
}

func (s *Session) registerProviders() {
	s.Registry.RegisterProvider(gateways.CapabilityProvider(s.Kind))
	s.Registry.RegisterProvider(cluster.FlavorProvider(s.Cluster.Clientset.Discovery()))
	s.Registry.RegisterProvider(scaler.Provider(s.Cluster, s.Settings.ScalingAllowList))
	s.Registry.RegisterProvider(capability.JaegerProvider(s.Settings.JaegerURL, http.DefaultClient))
}

// Config returns the gateway configuration for the session.
func (s *Session) Config() gateways.Config {
	cfg := gateways.Config{
		Settings:     s.Settings,
		Cluster:      s.Cluster,
		Certificates: s.Certificates,
	}
	if s.Settings.PortalEndpoint != "" {
		portal, err := apim.NewPortalClient(s.Settings.PortalEndpoint, http.DefaultClient)
		if err != nil {
			logger.Warn("portal endpoint is unusable, mesh gateways are unavailable", "error", err)
		} else {
			cfg.APIM = portal
		}
	}
	return cfg
}

// Gateway constructs and creates a gateway of the session kind, destroying it
// when t finishes. Kinds that cannot be built from the environment skip t.
func (s *Session) Gateway(ctx context.Context, t *testing.T, staging bool) gateways.Gateway {
	t.Helper()
	g, err := gateways.Construct(s.Kind, staging, s.Config())
	if err != nil {
		t.Skipf("cannot build %s gateway: %v", s.Kind, err)
	}
	testutils.Cleanup(t, func() {
		if err := g.Destroy(context.Background()); err != nil {
			t.Errorf("destroying %s gateway: %v", s.Kind, err)
		}
	})
	if err := g.Create(ctx); err != nil {
		t.Fatalf("creating %s gateway: %v", s.Kind, err)
	}
	return g
}
