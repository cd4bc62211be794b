package gateways

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/kgateway-dev/gwsuite/pkg/apim"
	"github.com/kgateway-dev/gwsuite/pkg/cluster"
	"github.com/kgateway-dev/gwsuite/pkg/utils/kubeutils/kubectl"
	"github.com/kgateway-dev/gwsuite/pkg/utils/retryutils"
)

// APIcasts is the custom resource of the APIcast operator.
var APIcasts = schema.GroupVersionResource{Group: "apps.3scale.net", Version: "v1alpha1", Resource: "apicasts"}

// operatorPortalKey is the key the operator reads the portal endpoint from.
const operatorPortalKey = "AdminPortalURL"

// operatorGateway is an apicast reconciled by the APIcast operator from an
// APIcast custom resource. The operator owns the deployment, so the
// environment cannot be edited directly.
type operatorGateway struct {
	*base
	cfg      Config
	cluster  *cluster.Client
	services map[string]apim.Service
}

// NewOperator returns a gateway managed through an APIcast custom resource.
func NewOperator(staging bool, cfg Config) (Gateway, error) {
	if err := cfg.requireCluster(Operator); err != nil {
		return nil, err
	}
	if err := cfg.requirePortal(Operator); err != nil {
		return nil, err
	}
	return &operatorGateway{
		base:     newBase(Operator, cfg.name(Operator, staging), staging),
		cfg:      cfg,
		cluster:  cfg.Cluster,
		services: map[string]apim.Service{},
	}, nil
}

// deployment is the name the operator gives the apicast deployment and service.
func (g *operatorGateway) deployment() string {
	return "apicast-" + g.name
}

func (g *operatorGateway) portalSecret() string {
	return g.name + "-portal"
}

func (g *operatorGateway) resource() *unstructured.Unstructured {
	loadMode := "boot"
	if g.staging {
		loadMode = "lazy"
	}
	return &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": APIcasts.GroupVersion().String(),
		"kind":       "APIcast",
		"metadata": map[string]any{
			"name":   g.name,
			"labels": map[string]any{labelSuite: suiteValue},
		},
		"spec": map[string]any{
			"adminPortalCredentialsRef": map[string]any{"name": g.portalSecret()},
			"deploymentEnvironment":     g.environment(),
			"configurationLoadMode":     loadMode,
			"image":                     g.cfg.Settings.ApicastImage,
			"replicas":                  int64(1),
		},
	}}
}

func (g *operatorGateway) Create(ctx context.Context) error {
	return g.create(ctx, func(ctx context.Context) error {
		err := g.cluster.ApplySecret(ctx, g.portalSecret(), corev1.SecretTypeOpaque,
			map[string][]byte{operatorPortalKey: []byte(g.cfg.Settings.PortalEndpoint)},
			map[string]string{labelSuite: suiteValue})
		if err != nil {
			return err
		}
		if _, err := g.cluster.CreateResource(ctx, APIcasts, g.resource()); err != nil {
			return err
		}
		return g.waitReconciled(ctx)
	})
}

// waitReconciled polls with fibonacci backoff until the operator reports a ready deployment.
func (g *operatorGateway) waitReconciled(ctx context.Context) error {
	return retryutils.PollFibonacci(ctx, g.cfg.Settings.ReconcileAttempts, g.cfg.Settings.PollInterval, func(ctx context.Context) error {
		dep, err := g.cluster.Deployment(ctx, g.deployment())
		if err != nil {
			return err
		}
		want := int32(1)
		if dep.Spec.Replicas != nil {
			want = *dep.Spec.Replicas
		}
		if dep.Status.ReadyReplicas != want {
			return fmt.Errorf("deployment %s: %d/%d ready", dep.Name, dep.Status.ReadyReplicas, want)
		}
		return nil
	})
}

// Reload force deletes the apicast pods and waits for the operator to replace them.
func (g *operatorGateway) Reload(ctx context.Context) error {
	return g.reload(ctx, func(ctx context.Context) error {
		selector, err := g.cluster.Selector(ctx, g.deployment())
		if err != nil {
			return err
		}
		if err := g.cluster.DeletePods(ctx, selector); err != nil {
			return err
		}
		return g.waitReconciled(ctx)
	})
}

func (g *operatorGateway) Destroy(ctx context.Context) error {
	return g.destroy(ctx, func(ctx context.Context) error {
		var errs []error
		for _, svc := range g.services {
			errs = append(errs, g.cluster.DeleteRoute(ctx, routeName(svc, g.staging)))
		}
		errs = append(errs,
			g.cluster.DeleteSecret(ctx, g.portalSecret()),
			g.cluster.DeleteResource(ctx, APIcasts, g.name),
		)
		return errors.Join(errs...)
	})
}

func (g *operatorGateway) Logs(ctx context.Context) (string, error) {
	return g.cluster.Logs(ctx, g.deployment(), kubectl.WithAllContainers())
}

func (g *operatorGateway) OnServiceCreate(ctx context.Context, svc apim.Service) error {
	_, err := g.cluster.CreateRoute(ctx, cluster.RouteSpec{
		Name:     routeName(svc, g.staging),
		Hostname: hostname(svc, g.staging, g.cfg.Settings.WildcardDomain),
		Service:  g.deployment(),
		Port:     proxyPort,
		Labels:   map[string]string{labelSuite: suiteValue, labelTarget: g.name},
	})
	if err != nil {
		return err
	}
	g.services[svc.Identifier()] = svc
	return nil
}

func (g *operatorGateway) OnServiceDelete(ctx context.Context, svc apim.Service) error {
	delete(g.services, svc.Identifier())
	return g.cluster.DeleteRoute(ctx, routeName(svc, g.staging))
}
