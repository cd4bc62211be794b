package gateways

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"sync"

	istionetworking "istio.io/api/networking/v1alpha3"
	istionetworkingv1 "istio.io/client-go/pkg/apis/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kgateway-dev/gwsuite/pkg/apim"
	"github.com/kgateway-dev/gwsuite/pkg/cluster"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
)

// ingressSelector selects the mesh ingress gateway pods.
var ingressSelector = map[string]string{"istio": "ingressgateway"}

// meshConfig is the product configuration of one service as pushed into
// the mesh authorizer or WASM extension.
type meshConfig struct {
	ServiceID    int64              `json:"service_id"`
	Authorities  []string           `json:"authorities"`
	Credentials  meshCredentials    `json:"credentials"`
	MappingRules []apim.MappingRule `json:"mapping_rules"`
}

type meshCredentials struct {
	UserKeys []string `json:"user_keys,omitempty"`
	AppIDs   []string `json:"app_ids,omitempty"`
}

// mesh routes services through the mesh ingress with one VirtualService
// per service. Authorization is added by the embedding kind.
type mesh struct {
	*base
	settings *settings.Settings
	cluster  *cluster.Client
	apim     apim.Client

	mu       sync.Mutex
	services map[string]apim.Service
}

func newMesh(kind Kind, staging bool, cfg Config) (*mesh, error) {
	if err := cfg.requireCluster(kind); err != nil {
		return nil, err
	}
	if cfg.APIM == nil {
		return nil, invalidConfig(kind, "a management API client is required")
	}
	return &mesh{
		base:     newBase(kind, cfg.name(kind, staging), staging),
		settings: cfg.Settings,
		cluster:  cfg.Cluster,
		apim:     cfg.APIM,
		services: map[string]apim.Service{},
	}, nil
}

func (m *mesh) labels() map[string]string {
	return map[string]string{labelSuite: suiteValue, labelTarget: m.name}
}

func (m *mesh) hostname(svc apim.Service) string {
	host := hostname(svc, m.staging, m.settings.WildcardDomain)
	if host == "" {
		host = routeName(svc, m.staging)
	}
	return host
}

func (m *mesh) track(svc apim.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[svc.Identifier()] = svc
}

func (m *mesh) untrack(svc apim.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.services, svc.Identifier())
}

func (m *mesh) tracked() []apim.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]apim.Service, 0, len(m.services))
	for _, svc := range m.services {
		out = append(out, svc)
	}
	slices.SortFunc(out, func(a, b apim.Service) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// virtualService routes the service hostname from the ingress to the service backend.
func (m *mesh) virtualService(svc apim.Service) (*istionetworkingv1.VirtualService, error) {
	backend, err := url.Parse(svc.Backend)
	if err != nil || backend.Hostname() == "" {
		return nil, fmt.Errorf("%w: service %s has no usable backend %q", ErrInvalidConfig, svc.Identifier(), svc.Backend)
	}
	port := uint32(80)
	if backend.Scheme == "https" {
		port = 443
	}
	if p := backend.Port(); p != "" {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: service %s backend port %q", ErrInvalidConfig, svc.Identifier(), p)
		}
		port = uint32(n)
	}
	return &istionetworkingv1.VirtualService{
		ObjectMeta: metav1.ObjectMeta{Name: routeName(svc, m.staging), Labels: m.labels()},
		Spec: istionetworking.VirtualService{
			Hosts:    []string{m.hostname(svc)},
			Gateways: []string{m.settings.ParentGateway},
			Http: []*istionetworking.HTTPRoute{{
				Route: []*istionetworking.HTTPRouteDestination{{
					Destination: &istionetworking.Destination{
						Host: backend.Hostname(),
						Port: &istionetworking.PortSelector{Number: port},
					},
				}},
			}},
		},
	}, nil
}

func (m *mesh) createRoute(ctx context.Context, svc apim.Service) error {
	vs, err := m.virtualService(svc)
	if err != nil {
		return err
	}
	if err := m.cluster.Upsert(ctx, vs); err != nil {
		return err
	}
	m.track(svc)
	return nil
}

func (m *mesh) deleteRoute(ctx context.Context, svc apim.Service) error {
	return m.cluster.Delete(ctx, &istionetworkingv1.VirtualService{ObjectMeta: metav1.ObjectMeta{Name: routeName(svc, m.staging)}})
}

// config reads the current mapping rules and credentials of svc.
func (m *mesh) config(ctx context.Context, svc apim.Service) (*meshConfig, error) {
	rules, err := m.apim.MappingRules(ctx, svc.ID)
	if err != nil {
		return nil, fmt.Errorf("reading mapping rules of %s: %w", svc.Identifier(), err)
	}
	apps, err := m.apim.Applications(ctx, svc.ID)
	if err != nil {
		return nil, fmt.Errorf("reading applications of %s: %w", svc.Identifier(), err)
	}
	cfg := &meshConfig{
		ServiceID:    svc.ID,
		Authorities:  []string{m.hostname(svc)},
		MappingRules: rules,
	}
	for _, app := range apps {
		if app.UserKey != "" {
			cfg.Credentials.UserKeys = append(cfg.Credentials.UserKeys, app.UserKey)
		}
		if app.ApplicationID != "" {
			cfg.Credentials.AppIDs = append(cfg.Credentials.AppIDs, app.ApplicationID)
		}
	}
	return cfg, nil
}

// teardown deletes the routes first, then every per-service object returned by extra.
func (m *mesh) teardown(ctx context.Context, extra func(apim.Service) []client.Object) error {
	services := m.tracked()
	var errs []error
	for _, svc := range services {
		errs = append(errs, m.deleteRoute(ctx, svc))
	}
	for _, svc := range services {
		for _, obj := range extra(svc) {
			errs = append(errs, m.cluster.Delete(ctx, obj))
		}
	}
	return errors.Join(errs...)
}
