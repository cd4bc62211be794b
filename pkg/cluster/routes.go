package cluster

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"
)

// RouteSpec describes a route sending traffic for Hostname to a service port.
type RouteSpec struct {
	Name     string
	Hostname string
	Service  string
	Port     int32
	Labels   map[string]string
}

// Route returns the HTTPRoute with the given name.
func (c *Client) Route(ctx context.Context, name string) (*gwv1.HTTPRoute, error) {
	route := &gwv1.HTTPRoute{}
	if err := c.Get(ctx, name, route); err != nil {
		return nil, err
	}
	return route, nil
}

// RoutesForService lists the routes with a backend referencing service.
func (c *Client) RoutesForService(ctx context.Context, service string) ([]gwv1.HTTPRoute, error) {
	var list gwv1.HTTPRouteList
	if err := c.Client.List(ctx, &list, client.InNamespace(c.Namespace)); err != nil {
		return nil, fmt.Errorf("listing routes: %w", err)
	}
	var out []gwv1.HTTPRoute
	for _, route := range list.Items {
		if routesTo(&route, service) {
			out = append(out, route)
		}
	}
	return out, nil
}

func routesTo(route *gwv1.HTTPRoute, service string) bool {
	for _, rule := range route.Spec.Rules {
		for _, ref := range rule.BackendRefs {
			if string(ref.Name) == service {
				return true
			}
		}
	}
	return false
}

// CreateRoute creates or updates an HTTPRoute attached to the parent gateway.
func (c *Client) CreateRoute(ctx context.Context, spec RouteSpec) (*gwv1.HTTPRoute, error) {
	route := &gwv1.HTTPRoute{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.Name,
			Namespace: c.Namespace,
			Labels:    spec.Labels,
		},
		Spec: gwv1.HTTPRouteSpec{
			CommonRouteSpec: gwv1.CommonRouteSpec{
				ParentRefs: []gwv1.ParentReference{{Name: gwv1.ObjectName(c.ParentGateway)}},
			},
			Rules: []gwv1.HTTPRouteRule{{
				BackendRefs: []gwv1.HTTPBackendRef{{
					BackendRef: gwv1.BackendRef{
						BackendObjectReference: gwv1.BackendObjectReference{
							Name: gwv1.ObjectName(spec.Service),
							Port: ptr.To(gwv1.PortNumber(spec.Port)),
						},
					},
				}},
			}},
		},
	}
	if spec.Hostname != "" {
		route.Spec.Hostnames = []gwv1.Hostname{gwv1.Hostname(spec.Hostname)}
	}
	if err := c.Upsert(ctx, route); err != nil {
		return nil, err
	}
	logger.Info("created route", "name", spec.Name, "service", spec.Service, "hostname", spec.Hostname)
	return route, nil
}

// DeleteRoute deletes the route. Deleting an absent route is not an error.
func (c *Client) DeleteRoute(ctx context.Context, name string) error {
	return c.Delete(ctx, &gwv1.HTTPRoute{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: c.Namespace}})
}
