// Package gateways manages the lifecycle of the gateways tests run against.
// Every kind implements Gateway; optional behavior is exposed through the
// Reloader, EnvironProvider, LogsProvider, ServiceHooks, ApplicationHooks,
// Synchronizer and EndpointProvider interfaces.
package gateways

import (
	"context"
	"fmt"

	"github.com/kgateway-dev/gwsuite/pkg/apim"
	"github.com/kgateway-dev/gwsuite/pkg/capability"
	"github.com/kgateway-dev/gwsuite/pkg/environ"
	"github.com/kgateway-dev/gwsuite/pkg/logging"
)

var logger = logging.New("gateways")

// Kind names a gateway implementation.
type Kind string

const (
	// System is the gateway deployed and managed by the product itself.
	System Kind = "system"
	// SelfManaged is an apicast deployment created by the suite.
	SelfManaged Kind = "self-managed"
	// Templated is a self-managed apicast rendered from a helm chart.
	Templated Kind = "templated"
	// TLS is a templated apicast serving HTTPS with a generated certificate.
	TLS Kind = "tls"
	// Operator is an apicast managed by the APIcast operator.
	Operator Kind = "operator"
	// ServiceMesh authorizes mesh traffic through an external authorizer.
	ServiceMesh Kind = "service-mesh"
	// WASM authorizes mesh traffic through a WASM extension.
	WASM Kind = "wasm"
	// Containerized is an apicast container running next to the test process.
	Containerized Kind = "containerized"
)

// Kinds lists every gateway kind.
var Kinds = []Kind{System, SelfManaged, Templated, TLS, Operator, ServiceMesh, WASM, Containerized}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown gateway kind %q", ErrInvalidConfig, s)
}

// Gateway is the lifecycle every gateway kind supports.
type Gateway interface {
	Kind() Kind
	// Staging reports whether the gateway serves the staging environment.
	Staging() bool
	Capabilities() capability.Set
	State() State
	// Create provisions the gateway. It may be called once.
	Create(ctx context.Context) error
	// Destroy removes everything Create made. It tolerates a partial Create
	// and is a no-op once the gateway is destroyed.
	Destroy(ctx context.Context) error
}

// Reloader applies pending configuration without recreating the gateway.
type Reloader interface {
	Reload(ctx context.Context) error
}

// EnvironProvider exposes the environment of the gateway deployment.
type EnvironProvider interface {
	Environ() (*environ.Environ, error)
}

// LogsProvider returns the logs of the gateway.
type LogsProvider interface {
	Logs(ctx context.Context) (string, error)
}

// ServiceHooks are called when a service is registered against, or removed from, the gateway.
type ServiceHooks interface {
	OnServiceCreate(ctx context.Context, svc apim.Service) error
	OnServiceDelete(ctx context.Context, svc apim.Service) error
}

// ApplicationHooks are called when an application subscribes to a service of the gateway.
type ApplicationHooks interface {
	OnApplicationCreate(ctx context.Context, svc apim.Service, app apim.Application) error
}

// Synchronizer pushes the current product configuration of a service into
// the gateway. It must be called before issuing requests for the service.
type Synchronizer interface {
	Synchronize(ctx context.Context, svc apim.Service) error
}

// EndpointProvider returns the base URL serving svc.
type EndpointProvider interface {
	Endpoint(ctx context.Context, svc apim.Service) (string, error)
}

// Reload reloads g, or returns ErrNotImplemented.
func Reload(ctx context.Context, g Gateway) error {
	r, ok := g.(Reloader)
	if !ok {
		return notImplemented(g, "reload")
	}
	return r.Reload(ctx)
}

// Environ returns the environment of g, or ErrNotImplemented.
func Environ(g Gateway) (*environ.Environ, error) {
	e, ok := g.(EnvironProvider)
	if !ok || !g.Capabilities().Contains(capability.CustomEnvironment) {
		return nil, notImplemented(g, "environ")
	}
	return e.Environ()
}

// Logs returns the logs of g, or ErrNotImplemented.
func Logs(ctx context.Context, g Gateway) (string, error) {
	l, ok := g.(LogsProvider)
	if !ok {
		return "", notImplemented(g, "logs")
	}
	return l.Logs(ctx)
}

// Synchronize synchronizes svc into g, or returns ErrNotImplemented.
func Synchronize(ctx context.Context, g Gateway, svc apim.Service) error {
	s, ok := g.(Synchronizer)
	if !ok {
		return notImplemented(g, "synchronize")
	}
	return s.Synchronize(ctx, svc)
}

// Endpoint returns the URL serving svc on g, or ErrNotImplemented.
// Tests build their API clients from it, so gateways that hold a copy of the
// product configuration are synchronized first.
func Endpoint(ctx context.Context, g Gateway, svc apim.Service) (string, error) {
	e, ok := g.(EndpointProvider)
	if !ok {
		return "", notImplemented(g, "endpoint")
	}
	if s, ok := g.(Synchronizer); ok {
		if err := s.Synchronize(ctx, svc); err != nil {
			return "", err
		}
	}
	return e.Endpoint(ctx, svc)
}

// ServiceCreated runs the service hooks of g, if any.
func ServiceCreated(ctx context.Context, g Gateway, svc apim.Service) error {
	if h, ok := g.(ServiceHooks); ok {
		return h.OnServiceCreate(ctx, svc)
	}
	return nil
}

// ServiceDeleted runs the service hooks of g, if any.
func ServiceDeleted(ctx context.Context, g Gateway, svc apim.Service) error {
	if h, ok := g.(ServiceHooks); ok {
		return h.OnServiceDelete(ctx, svc)
	}
	return nil
}

// ApplicationCreated runs the application hooks of g, if any.
func ApplicationCreated(ctx context.Context, g Gateway, svc apim.Service, app apim.Application) error {
	if h, ok := g.(ApplicationHooks); ok {
		return h.OnApplicationCreate(ctx, svc, app)
	}
	return nil
}
