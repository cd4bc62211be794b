package gateways

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kgateway-dev/gwsuite/pkg/apim"
	"github.com/kgateway-dev/gwsuite/pkg/cluster"
	"github.com/kgateway-dev/gwsuite/pkg/environ"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
	"github.com/kgateway-dev/gwsuite/pkg/utils/kubeutils/kubectl"
)

const (
	proxyPort   = 8080
	portalKey   = "url"
	labelSuite  = "app.kubernetes.io/managed-by"
	suiteValue  = "gwsuite"
	labelTarget = "gwsuite.io/gateway"
)

// manifestFunc returns the deployment and service of an apicast gateway.
type manifestFunc func(ctx context.Context, g *apicast) ([]client.Object, error)

// apicast is an apicast deployment owned by the suite and exposed through
// one route per service. The self-managed, templated and TLS kinds differ
// only in how its manifests are produced.
type apicast struct {
	*base
	settings  *settings.Settings
	cluster   *cluster.Client
	manifests manifestFunc

	scheme string
	port   int32

	mu       sync.Mutex
	secrets  []string
	services map[string]apim.Service
}

func newApicast(kind Kind, staging bool, cfg Config, manifests manifestFunc) *apicast {
	return &apicast{
		base:      newBase(kind, cfg.name(kind, staging), staging),
		settings:  cfg.Settings,
		cluster:   cfg.Cluster,
		manifests: manifests,
		scheme:    "http",
		port:      proxyPort,
		services:  map[string]apim.Service{},
	}
}

func (g *apicast) labels() map[string]string {
	return map[string]string{labelSuite: suiteValue, labelTarget: g.name}
}

func (g *apicast) portalSecret() string {
	return g.name + "-portal"
}

// ownSecret records a secret removed on Destroy.
func (g *apicast) ownSecret(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !slices.Contains(g.secrets, name) {
		g.secrets = append(g.secrets, name)
	}
}

func (g *apicast) Create(ctx context.Context) error {
	return g.create(ctx, g.provision)
}

func (g *apicast) provision(ctx context.Context) error {
	g.ownSecret(g.portalSecret())
	err := g.cluster.ApplySecret(ctx, g.portalSecret(), corev1.SecretTypeOpaque,
		map[string][]byte{portalKey: []byte(g.settings.PortalEndpoint)}, g.labels())
	if err != nil {
		return err
	}
	objs, err := g.manifests(ctx, g)
	if err != nil {
		return err
	}
	for _, obj := range objs {
		if err := g.cluster.Upsert(ctx, obj); err != nil {
			return err
		}
	}
	return g.cluster.WaitForRollout(ctx, g.name)
}

// Destroy removes routes, then secrets, then the service and finally the deployment.
func (g *apicast) Destroy(ctx context.Context) error {
	return g.destroy(ctx, g.teardown)
}

func (g *apicast) teardown(ctx context.Context) error {
	var errs []error
	routes, err := g.routeNames(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	for _, route := range routes {
		errs = append(errs, g.cluster.DeleteRoute(ctx, route))
	}
	g.mu.Lock()
	secrets := slices.Clone(g.secrets)
	g.mu.Unlock()
	for _, secret := range secrets {
		errs = append(errs, g.cluster.DeleteSecret(ctx, secret))
	}
	errs = append(errs,
		g.cluster.Delete(ctx, &corev1.Service{ObjectMeta: objectMeta(g.name)}),
		g.cluster.Delete(ctx, deploymentObject(g.name)),
	)
	return errors.Join(errs...)
}

// routeNames returns the routes created for known services plus any other
// route still pointing at the gateway service.
func (g *apicast) routeNames(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	names := make([]string, 0, len(g.services))
	for _, svc := range g.services {
		names = append(names, routeName(svc, g.staging))
	}
	g.mu.Unlock()

	routes, err := g.cluster.RoutesForService(ctx, g.name)
	for _, route := range routes {
		if !slices.Contains(names, route.Name) {
			names = append(names, route.Name)
		}
	}
	slices.Sort(names)
	return names, err
}

func (g *apicast) Reload(ctx context.Context) error {
	return g.reload(ctx, func(ctx context.Context) error {
		if err := g.cluster.Rollout(ctx, g.name); err != nil {
			return err
		}
		return g.cluster.WaitForRollout(ctx, g.name)
	})
}

func (g *apicast) Environ() (*environ.Environ, error) {
	return g.cluster.Environ(g.name), nil
}

func (g *apicast) Logs(ctx context.Context) (string, error) {
	return g.cluster.Logs(ctx, g.name, kubectl.WithAllContainers())
}

func (g *apicast) OnServiceCreate(ctx context.Context, svc apim.Service) error {
	_, err := g.cluster.CreateRoute(ctx, cluster.RouteSpec{
		Name:     routeName(svc, g.staging),
		Hostname: hostname(svc, g.staging, g.settings.WildcardDomain),
		Service:  g.name,
		Port:     g.port,
		Labels:   g.labels(),
	})
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.services[svc.Identifier()] = svc
	g.mu.Unlock()
	return nil
}

func (g *apicast) OnServiceDelete(ctx context.Context, svc apim.Service) error {
	if err := g.cluster.DeleteRoute(ctx, routeName(svc, g.staging)); err != nil {
		return err
	}
	g.mu.Lock()
	delete(g.services, svc.Identifier())
	g.mu.Unlock()
	return nil
}

func (g *apicast) Endpoint(_ context.Context, svc apim.Service) (string, error) {
	host := hostname(svc, g.staging, g.settings.WildcardDomain)
	if host == "" {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidConfig, g.kind, settings.MissingSettingError("WILDCARD_DOMAIN"))
	}
	return g.scheme + "://" + host, nil
}

// apicastEnv returns the environment shared by every apicast the suite deploys.
func apicastEnv(b *base) map[string]string {
	env := map[string]string{"THREESCALE_DEPLOYMENT_ENV": b.environment()}
	if b.staging {
		env["APICAST_CONFIGURATION_LOADER"] = "lazy"
		env["APICAST_CONFIGURATION_CACHE"] = "0"
	} else {
		env["APICAST_CONFIGURATION_LOADER"] = "boot"
		env["APICAST_CONFIGURATION_CACHE"] = "300"
	}
	return env
}

// routeName is shared by route creation and deletion so the two never drift.
func routeName(svc apim.Service, staging bool) string {
	if staging {
		return svc.Identifier() + "-staging"
	}
	return svc.Identifier() + "-production"
}

func hostname(svc apim.Service, staging bool, domain string) string {
	if domain == "" {
		return ""
	}
	return routeName(svc, staging) + "." + domain
}
