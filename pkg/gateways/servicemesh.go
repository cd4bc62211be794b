package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	securityapi "istio.io/api/security/v1beta1"
	typeapi "istio.io/api/type/v1beta1"
	istiosecurityv1 "istio.io/client-go/pkg/apis/security/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kgateway-dev/gwsuite/pkg/apim"
)

// AuthorizerProvider is the mesh extension provider that authorizes requests
// against the service configuration.
const AuthorizerProvider = "threescale-authorizer"

// serviceMeshGateway fronts services with the mesh ingress and authorizes
// them through an external authorizer. The authorizer reads each service
// configuration from a shared ConfigMap.
type serviceMeshGateway struct {
	*mesh
}

// NewServiceMesh returns a gateway authorizing mesh traffic through the external authorizer.
func NewServiceMesh(staging bool, cfg Config) (Gateway, error) {
	m, err := newMesh(ServiceMesh, staging, cfg)
	if err != nil {
		return nil, err
	}
	return &serviceMeshGateway{mesh: m}, nil
}

// ConfigMapName returns the ConfigMap the authorizer reads service configurations from.
func (g *serviceMeshGateway) ConfigMapName() string {
	return g.name + "-services"
}

func configKey(svc apim.Service) string {
	return svc.Identifier() + ".json"
}

func (g *serviceMeshGateway) Create(ctx context.Context) error {
	return g.create(ctx, func(ctx context.Context) error {
		return g.cluster.ApplyConfigMap(ctx, g.ConfigMapName(), map[string]string{}, g.labels())
	})
}

// Destroy removes the routes, then the authorization policies and finally the ConfigMap.
func (g *serviceMeshGateway) Destroy(ctx context.Context) error {
	return g.destroy(ctx, func(ctx context.Context) error {
		err := g.teardown(ctx, func(svc apim.Service) []client.Object {
			return []client.Object{g.policyObject(svc)}
		})
		return errors.Join(err, g.cluster.DeleteConfigMap(ctx, g.ConfigMapName()))
	})
}

func (g *serviceMeshGateway) policyObject(svc apim.Service) *istiosecurityv1.AuthorizationPolicy {
	return &istiosecurityv1.AuthorizationPolicy{ObjectMeta: metav1.ObjectMeta{Name: svc.Identifier()}}
}

// policy delegates authorization of every request for the service hostname to the authorizer.
func (g *serviceMeshGateway) policy(svc apim.Service) *istiosecurityv1.AuthorizationPolicy {
	return &istiosecurityv1.AuthorizationPolicy{
		ObjectMeta: metav1.ObjectMeta{Name: svc.Identifier(), Labels: g.labels()},
		Spec: securityapi.AuthorizationPolicy{
			Selector: &typeapi.WorkloadSelector{MatchLabels: ingressSelector},
			Action:   securityapi.AuthorizationPolicy_CUSTOM,
			ActionDetail: &securityapi.AuthorizationPolicy_Provider{
				Provider: &securityapi.AuthorizationPolicy_ExtensionProvider{Name: AuthorizerProvider},
			},
			Rules: []*securityapi.Rule{{
				To: []*securityapi.Rule_To{{
					Operation: &securityapi.Operation{Hosts: []string{g.hostname(svc)}},
				}},
			}},
		},
	}
}

func (g *serviceMeshGateway) OnServiceCreate(ctx context.Context, svc apim.Service) error {
	if err := g.createRoute(ctx, svc); err != nil {
		return err
	}
	return g.cluster.Upsert(ctx, g.policy(svc))
}

func (g *serviceMeshGateway) OnServiceDelete(ctx context.Context, svc apim.Service) error {
	if err := g.deleteRoute(ctx, svc); err != nil {
		return err
	}
	if err := g.cluster.Delete(ctx, g.policyObject(svc)); err != nil {
		return err
	}
	g.untrack(svc)
	return g.updateConfigMap(ctx, func(data map[string]string) { delete(data, configKey(svc)) })
}

// OnApplicationCreate pushes the new credentials to the authorizer.
func (g *serviceMeshGateway) OnApplicationCreate(ctx context.Context, svc apim.Service, _ apim.Application) error {
	return g.Synchronize(ctx, svc)
}

// Synchronize writes the mapping rules and credentials of svc into the authorizer ConfigMap.
func (g *serviceMeshGateway) Synchronize(ctx context.Context, svc apim.Service) error {
	cfg, err := g.config(ctx, svc)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	err = g.updateConfigMap(ctx, func(data map[string]string) { data[configKey(svc)] = string(raw) })
	if err != nil {
		return fmt.Errorf("synchronizing %s: %w", svc.Identifier(), err)
	}
	logger.Debug("synchronized service", "gateway", g.name, "service", svc.Identifier())
	return nil
}

// updateConfigMap applies fn to the authorizer ConfigMap data.
func (g *serviceMeshGateway) updateConfigMap(ctx context.Context, fn func(map[string]string)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, err := g.cluster.ConfigMap(ctx, g.ConfigMapName())
	if err != nil {
		return err
	}
	fn(data)
	return g.cluster.ApplyConfigMap(ctx, g.ConfigMapName(), data, g.labels())
}

func (g *serviceMeshGateway) Endpoint(_ context.Context, svc apim.Service) (string, error) {
	return "http://" + g.hostname(svc), nil
}
