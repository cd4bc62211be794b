package gateways_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/kgateway-dev/gwsuite/pkg/apim"
	"github.com/kgateway-dev/gwsuite/pkg/capability"
	"github.com/kgateway-dev/gwsuite/pkg/certificates"
	"github.com/kgateway-dev/gwsuite/pkg/cluster"
	"github.com/kgateway-dev/gwsuite/pkg/cluster/clustertest"
	"github.com/kgateway-dev/gwsuite/pkg/gateways"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
	"github.com/kgateway-dev/gwsuite/pkg/utils/cmdutils/cmdutilstest"
)

var (
	svc     = apim.Service{ID: 7, SystemName: "echo", Backend: "http://echo.apim.svc:8080"}
	errBoom = errors.New("boom")
)

func testSettings() *settings.Settings {
	return &settings.Settings{
		Namespace:            clustertest.Namespace,
		RolloutTimeout:       200 * time.Millisecond,
		PollInterval:         10 * time.Millisecond,
		ReconcileAttempts:    5,
		StagingDeployment:    "apicast-staging",
		ProductionDeployment: "apicast-production",
		WildcardDomain:       "apps.example.com",
		ParentGateway:        "ingress",
		ApicastImage:         "quay.io/3scale/apicast:nightly",
		WasmImage:            "oci://quay.io/3scale/threescale-wasm-auth:nightly",
		PortalEndpoint:       "https://token@admin.example.com",
	}
}

// newCluster returns a fake cluster whose rollouts always succeed.
func newCluster(objs ...client.Object) *clustertest.Fake {
	c := clustertest.New(clustertest.Options{Objects: objs})
	c.Runner.
		On("kubectl -n apim rollout", cmdutilstest.Response{}).
		On("kubectl -n apim logs", cmdutilstest.Response{Stdout: "apicast started\n"}).
		On("kubectl -n apim delete pods", cmdutilstest.Response{})
	return c
}

func config(c *clustertest.Fake) gateways.Config {
	return gateways.Config{Name: "gw", Settings: testSettings(), Cluster: c.Client}
}

func exists(t *testing.T, c *clustertest.Fake, name string, obj client.Object) bool {
	t.Helper()
	err := c.Get(context.Background(), name, obj)
	if errors.Is(err, cluster.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestConstructValidatesConfig(t *testing.T) {
	c := newCluster()

	tests := []struct {
		name string
		kind gateways.Kind
		cfg  gateways.Config
		want error
	}{
		{name: "no cluster", kind: gateways.SelfManaged, cfg: gateways.Config{Settings: testSettings()}, want: gateways.ErrInvalidConfig},
		{name: "no settings", kind: gateways.System, cfg: gateways.Config{Cluster: c.Client}, want: gateways.ErrInvalidConfig},
		{name: "no portal", kind: gateways.Templated, cfg: func() gateways.Config {
			cfg := config(c)
			cfg.Settings.PortalEndpoint = ""
			return cfg
		}(), want: settings.ErrMissingSetting},
		{name: "no certificates", kind: gateways.TLS, cfg: config(c), want: certificates.ErrCertificateRequired},
		{name: "no management client", kind: gateways.ServiceMesh, cfg: config(c), want: gateways.ErrInvalidConfig},
		{name: "unknown kind", kind: gateways.Kind("nginx"), cfg: config(c), want: gateways.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gateways.Construct(tt.kind, true, tt.cfg)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, gateways.ErrInvalidConfig)
		})
	}
}

func TestDefaultNames(t *testing.T) {
	c := newCluster()
	cfg := config(c)
	cfg.Name = ""

	g, err := gateways.Construct(gateways.SelfManaged, false, cfg)
	require.NoError(t, err)
	require.NoError(t, g.Create(context.Background()))
	assert.True(t, exists(t, c, "gwsuite-self-managed-production", &appsv1.Deployment{}))

	sys, err := gateways.Construct(gateways.System, true, cfg)
	require.NoError(t, err)
	assert.Equal(t, "apicast-staging", sys.(interface{ Name() string }).Name())
}

func TestSystemGateway(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	c := newCluster(&appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "apicast-staging", Namespace: clustertest.Namespace}})
	cfg := config(c)
	cfg.Name = ""
	c.Runner.On("kubectl -n apim set env deployment/apicast-staging --list", cmdutilstest.Response{Stdout: "APICAST_LOG_LEVEL=info\n"})

	g, err := gateways.Construct(gateways.System, true, cfg)
	r.NoError(err)
	r.NoError(g.Create(ctx))
	r.Equal(gateways.Running, g.State())

	env, err := gateways.Environ(g)
	r.NoError(err)
	level, err := env.Get(ctx, "APICAST_LOG_LEVEL")
	r.NoError(err)
	r.Equal("info", level)

	r.NoError(gateways.Reload(ctx, g))
	logs, err := gateways.Logs(ctx, g)
	r.NoError(err)
	r.Contains(logs, "apicast started")

	r.ErrorIs(gateways.Synchronize(ctx, g, svc), gateways.ErrNotImplemented)
	r.NoError(g.Destroy(ctx))
	r.True(exists(t, c, "apicast-staging", &appsv1.Deployment{}), "the product gateway is left in place")

	missing, err := gateways.Construct(gateways.System, false, cfg)
	r.NoError(err)
	r.ErrorIs(missing.Create(ctx), cluster.ErrNotFound)
	r.Equal(gateways.Failed, missing.State())
}

func TestSelfManagedGateway(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	c := newCluster()

	g, err := gateways.Construct(gateways.SelfManaged, true, config(c))
	r.NoError(err)
	r.NoError(g.Create(ctx))

	portal, err := c.SecretValue(ctx, "gw-portal", "url")
	r.NoError(err)
	r.Equal("https://token@admin.example.com", portal)

	dep, err := c.Deployment(ctx, "gw")
	r.NoError(err)
	container := dep.Spec.Template.Spec.Containers[0]
	r.Equal("quay.io/3scale/apicast:nightly", container.Image)
	r.Contains(container.Env, corev1.EnvVar{Name: "APICAST_CONFIGURATION_LOADER", Value: "lazy"})
	r.True(exists(t, c, "gw", &corev1.Service{}))

	r.NoError(gateways.ServiceCreated(ctx, g, svc))
	route, err := c.Route(ctx, "echo-staging")
	r.NoError(err)
	r.Equal([]gwv1.Hostname{"echo-staging.apps.example.com"}, route.Spec.Hostnames)

	endpoint, err := gateways.Endpoint(ctx, g, svc)
	r.NoError(err)
	r.Equal("http://echo-staging.apps.example.com", endpoint)

	r.NoError(g.Destroy(ctx))
	r.Equal(gateways.Destroyed, g.State())
	r.False(exists(t, c, "echo-staging", &gwv1.HTTPRoute{}))
	r.False(exists(t, c, "gw-portal", &corev1.Secret{}))
	r.False(exists(t, c, "gw", &corev1.Service{}))
	r.False(exists(t, c, "gw", &appsv1.Deployment{}))
}

func TestDestroyRemovesRoutesNotCreatedByTheGateway(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	c := newCluster()

	g, err := gateways.Construct(gateways.SelfManaged, false, config(c))
	r.NoError(err)
	r.NoError(g.Create(ctx))
	_, err = c.CreateRoute(ctx, cluster.RouteSpec{Name: "stray", Service: "gw", Port: 8080})
	r.NoError(err)
	_, err = c.CreateRoute(ctx, cluster.RouteSpec{Name: "other", Service: "httpbin", Port: 8080})
	r.NoError(err)

	r.NoError(g.Destroy(ctx))
	r.False(exists(t, c, "stray", &gwv1.HTTPRoute{}))
	r.True(exists(t, c, "other", &gwv1.HTTPRoute{}))
}

func TestFailedCreateIsCleanedUp(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	c := clustertest.New(clustertest.Options{})
	c.Runner.On("kubectl -n apim rollout status", cmdutilstest.Response{Stderr: "timed out", Err: cmdutilstest.ErrExit})

	g, err := gateways.Construct(gateways.SelfManaged, true, config(c))
	r.NoError(err)
	r.Error(g.Create(ctx))
	r.Equal(gateways.Failed, g.State())
	r.True(exists(t, c, "gw", &appsv1.Deployment{}))

	r.NoError(g.Destroy(ctx))
	r.False(exists(t, c, "gw", &appsv1.Deployment{}))
	r.False(exists(t, c, "gw-portal", &corev1.Secret{}))
}

func TestEndpointRequiresWildcardDomain(t *testing.T) {
	c := newCluster()
	cfg := config(c)
	cfg.Settings.WildcardDomain = ""

	g, err := gateways.Construct(gateways.SelfManaged, true, cfg)
	require.NoError(t, err)
	_, err = gateways.Endpoint(context.Background(), g, svc)
	require.ErrorIs(t, err, gateways.ErrInvalidConfig)
	require.ErrorIs(t, err, settings.ErrMissingSetting)
}

func TestTemplatedGateway(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	c := newCluster()

	g, err := gateways.Construct(gateways.Templated, false, config(c))
	r.NoError(err)
	r.NoError(g.Create(ctx))

	dep, err := c.Deployment(ctx, "gw")
	r.NoError(err)
	container := dep.Spec.Template.Spec.Containers[0]
	r.Equal("gw-portal", container.Env[0].ValueFrom.SecretKeyRef.Name)
	r.Contains(container.Env, corev1.EnvVar{Name: "THREESCALE_DEPLOYMENT_ENV", Value: "production"})
	r.True(g.Capabilities().Contains(capability.ProductionGateway))

	r.NoError(g.Destroy(ctx))
	r.False(exists(t, c, "gw", &appsv1.Deployment{}))
}

func TestTLSGateway(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	c := newCluster()
	certs := certificates.NewDefaultManager(certificates.NewPersister(afero.NewMemMapFs(), "/results"))
	t.Cleanup(func() { _ = certs.Close() })

	ca, err := certs.CreateCA(ctx, "ca", certificates.Request{CommonName: "gwsuite-ca"})
	r.NoError(err)
	cfg := config(c)
	cfg.Certificates = certs
	cfg.CA = ca

	g, err := gateways.Construct(gateways.TLS, true, cfg)
	r.NoError(err)
	r.NoError(g.Create(ctx))

	secret, err := c.Secret(ctx, "gw-tls")
	r.NoError(err)
	r.Contains(secret, corev1.TLSCertKey)
	r.Contains(secret, corev1.TLSPrivateKeyKey)

	svcObj := &corev1.Service{}
	r.NoError(c.Get(ctx, "gw", svcObj))
	var ports []string
	for _, p := range svcObj.Spec.Ports {
		ports = append(ports, p.Name)
	}
	r.Contains(ports, "https")

	cert := g.(interface {
		Certificate() *certificates.Certificate
	}).Certificate()
	r.NotNil(cert)
	x, err := cert.X509()
	r.NoError(err)
	r.Contains(x.DNSNames, "*.apps.example.com")

	endpoint, err := gateways.Endpoint(ctx, g, svc)
	r.NoError(err)
	r.Equal("https://echo-staging.apps.example.com", endpoint)

	r.NoError(g.Destroy(ctx))
	r.False(exists(t, c, "gw-tls", &corev1.Secret{}))
	_, err = certs.Get("gw")
	r.ErrorIs(err, certificates.ErrNotFound)
}

func operatorDeployment(ready int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "apicast-gw", Namespace: clustertest.Namespace},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](1),
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"deployment": "apicast-gw"}},
		},
		Status: appsv1.DeploymentStatus{ReadyReplicas: ready},
	}
}

func TestOperatorGateway(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	c := newCluster(operatorDeployment(1))

	g, err := gateways.Construct(gateways.Operator, true, config(c))
	r.NoError(err)
	r.NoError(g.Create(ctx))

	cr, err := c.Resource(ctx, gateways.APIcasts, "gw")
	r.NoError(err)
	r.Equal("staging", cr.Object["spec"].(map[string]any)["deploymentEnvironment"])
	portal, err := c.SecretValue(ctx, "gw-portal", "AdminPortalURL")
	r.NoError(err)
	r.Equal("https://token@admin.example.com", portal)

	_, err = gateways.Environ(g)
	r.ErrorIs(err, gateways.ErrNotImplemented)
	r.ErrorIs(err, errors.ErrUnsupported)

	r.NoError(gateways.Reload(ctx, g))
	var deleted bool
	for _, call := range c.Runner.Calls() {
		if call.Line() == "kubectl -n apim delete pods -l deployment=apicast-gw --ignore-not-found --grace-period=0 --force" {
			deleted = true
		}
	}
	r.True(deleted, "reload force deletes the operator pods")

	r.NoError(gateways.ServiceCreated(ctx, g, svc))
	route, err := c.Route(ctx, "echo-staging")
	r.NoError(err)
	r.Equal(gwv1.ObjectName("apicast-gw"), route.Spec.Rules[0].BackendRefs[0].Name)

	r.NoError(g.Destroy(ctx))
	_, err = c.Resource(ctx, gateways.APIcasts, "gw")
	r.ErrorIs(err, cluster.ErrNotFound)
	r.False(exists(t, c, "echo-staging", &gwv1.HTTPRoute{}))
}

func TestOperatorGatewayWaitsForReconcile(t *testing.T) {
	c := newCluster(operatorDeployment(0))

	g, err := gateways.Construct(gateways.Operator, false, config(c))
	require.NoError(t, err)
	require.Error(t, g.Create(context.Background()))
	require.Equal(t, gateways.Failed, g.State())
}
