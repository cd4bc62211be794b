// Package scaler temporarily changes the replica count of product components.
package scaler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/kgateway-dev/gwsuite/pkg/capability"
	"github.com/kgateway-dev/gwsuite/pkg/cluster"
	"github.com/kgateway-dev/gwsuite/pkg/logging"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
)

var logger = logging.New("scaler")

// ErrUnsupportedComponent is returned for components outside the allow-list.
var ErrUnsupportedComponent = errors.New("unsupported scaling component")

// APIManagers is the operator custom resource owning operator-managed deployments.
var APIManagers = schema.GroupVersionResource{Group: "apps.3scale.net", Version: "v1alpha1", Resource: "apimanagers"}

const apiManagerKind = "APIManager"

// specPaths locates the replica count of each component inside an APIManager spec.
var specPaths = map[string][]string{
	"apicast-staging":    {"apicast", "stagingSpec"},
	"apicast-production": {"apicast", "productionSpec"},
	"backend-listener":   {"backend", "listenerSpec"},
	"backend-worker":     {"backend", "workerSpec"},
	"backend-cron":       {"backend", "cronSpec"},
	"system-app":         {"system", "appSpec"},
	"system-sidekiq":     {"system", "sidekiqSpec"},
	"zync":               {"zync", "appSpec"},
	"zync-que":           {"zync", "queSpec"},
}

// Scaler scales allow-listed components for the duration of a function.
type Scaler struct {
	client  *cluster.Client
	allowed settings.ComponentList
}

// New returns a Scaler restricted to the allowed components.
func New(client *cluster.Client, allowed settings.ComponentList) *Scaler {
	return &Scaler{client: client, allowed: allowed}
}

// Scale sets component to replicas, waits for it to be ready and runs fn.
// The previous replica count is restored on return, even when fn or the
// scaling itself fails.
func (s *Scaler) Scale(ctx context.Context, component string, replicas int32, fn func(ctx context.Context) error) (err error) {
	if !s.allowed.Contains(component) {
		return fmt.Errorf("%w: %q", ErrUnsupportedComponent, component)
	}
	t, err := s.target(ctx, component)
	if err != nil {
		return err
	}
	previous, err := t.replicas(ctx)
	if err != nil {
		return err
	}

	log := scaleLogger(component, t)
	defer func() {
		log.Info("restoring replicas", "replicas", previous)
		// restore even when the caller's context is already done
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout(s.client))
		defer cancel()
		if restoreErr := s.apply(restoreCtx, t, component, previous); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restoring %s to %d replicas: %w", component, previous, restoreErr))
		}
	}()

	log.Info("scaling", "from", previous, "to", replicas)
	if err := s.apply(ctx, t, component, replicas); err != nil {
		return err
	}
	return fn(ctx)
}

func scaleLogger(component string, t target) *slog.Logger {
	return logger.With("deployment", component, "target", t.String())
}

// restoreTimeout covers the scale request plus one full readiness wait.
func restoreTimeout(c *cluster.Client) time.Duration {
	return c.RolloutTimeout + 30*time.Second
}

func (s *Scaler) apply(ctx context.Context, t target, component string, replicas int32) error {
	if err := t.scale(ctx, replicas); err != nil {
		return err
	}
	return s.client.WaitForReplicas(ctx, component, replicas)
}

// target resolves whether the component is scaled through its APIManager or directly.
func (s *Scaler) target(ctx context.Context, component string) (target, error) {
	owner, ok, err := s.client.Owner(ctx, component, apiManagerKind)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &deploymentTarget{client: s.client, name: component}, nil
	}
	path, ok := specPaths[component]
	if !ok {
		return nil, fmt.Errorf("%w: %q has no APIManager replica field", ErrUnsupportedComponent, component)
	}
	return &operatorTarget{client: s.client, name: owner, path: path}, nil
}

type target interface {
	fmt.Stringer
	replicas(ctx context.Context) (int32, error)
	scale(ctx context.Context, replicas int32) error
}

type deploymentTarget struct {
	client *cluster.Client
	name   string
}

func (t *deploymentTarget) String() string { return "deployment/" + t.name }

func (t *deploymentTarget) replicas(ctx context.Context) (int32, error) {
	return t.client.Replicas(ctx, t.name)
}

func (t *deploymentTarget) scale(ctx context.Context, replicas int32) error {
	return t.client.Scale(ctx, t.name, replicas)
}

type operatorTarget struct {
	client *cluster.Client
	name   string
	path   []string
}

func (t *operatorTarget) String() string {
	return "apimanager/" + t.name + ":spec." + strings.Join(t.path, ".") + ".replicas"
}

func (t *operatorTarget) replicas(ctx context.Context) (int32, error) {
	obj, err := t.client.Resource(ctx, APIManagers, t.name)
	if err != nil {
		return 0, err
	}
	fields := append([]string{"spec"}, t.path...)
	v, found, err := unstructured.NestedInt64(obj.Object, append(fields, "replicas")...)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", t, err)
	}
	if !found {
		// the operator defaults unset replica counts to one
		return 1, nil
	}
	return int32(v), nil
}

func (t *operatorTarget) scale(ctx context.Context, replicas int32) error {
	obj, err := t.client.Resource(ctx, APIManagers, t.name)
	if err != nil {
		return err
	}
	pointer := "/spec"
	for i, field := range t.path {
		pointer += "/" + field
		if _, found, _ := unstructured.NestedFieldNoCopy(obj.Object, append([]string{"spec"}, t.path[:i+1]...)...); !found {
			_, err := t.client.PatchResource(ctx, APIManagers, t.name, cluster.Add(pointer, nestedValue(t.path[i+1:], replicas)))
			return err
		}
	}
	_, err = t.client.PatchResource(ctx, APIManagers, t.name, cluster.Add(pointer+"/replicas", replicas))
	return err
}

// nestedValue builds {"a": {"b": {"replicas": n}}} for the missing fields a, b.
func nestedValue(fields []string, replicas int32) map[string]any {
	v := map[string]any{"replicas": replicas}
	for i := len(fields) - 1; i >= 0; i-- {
		v = map[string]any{fields[i]: v}
	}
	return v
}

// Provider reports SCALING when at least one allow-listed component is deployed.
func Provider(client *cluster.Client, allowed settings.ComponentList) *capability.Provider {
	return capability.NewProvider("scaler", func(ctx context.Context) (capability.Set, error) {
		for _, component := range allowed {
			_, err := client.Deployment(ctx, component)
			if err == nil {
				return capability.NewSet(capability.Scaling), nil
			}
			if !errors.Is(err, cluster.ErrNotFound) {
				return nil, err
			}
		}
		return capability.NewSet(), nil
	}, capability.Scaling)
}
