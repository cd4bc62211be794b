package scaler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kgateway-dev/gwsuite/pkg/capability"
	"github.com/kgateway-dev/gwsuite/pkg/cluster/clustertest"
	"github.com/kgateway-dev/gwsuite/pkg/scaler"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
)

var allowed = settings.ComponentList{"backend-worker", "apicast-staging"}

func deployment(name string, replicas int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: clustertest.Namespace},
		Spec:       appsv1.DeploymentSpec{Replicas: ptr.To(replicas)},
		Status:     appsv1.DeploymentStatus{Replicas: replicas, ReadyReplicas: replicas},
	}
}

// controller plays the role of the deployment controller and, when desired
// is set, of the operator, until ctx is done.
func controller(ctx context.Context, c *clustertest.Fake, name string, desired func(context.Context) (int32, bool)) {
	go func() {
		for ctx.Err() == nil {
			time.Sleep(2 * time.Millisecond)
			key := client.ObjectKey{Namespace: clustertest.Namespace, Name: name}
			dep := &appsv1.Deployment{}
			if desired != nil {
				if n, ok := desired(ctx); ok && c.Client.Client.Get(ctx, key, dep) == nil {
					dep.Spec.Replicas = ptr.To(n)
					_ = c.Client.Client.Update(ctx, dep)
				}
			}
			if err := c.Client.Client.Get(ctx, key, dep); err != nil {
				continue
			}
			n := ptr.Deref(dep.Spec.Replicas, 1)
			dep.Status.Replicas, dep.Status.ReadyReplicas = n, n
			dep.Status.ObservedGeneration = dep.Generation
			_ = c.Client.Client.Status().Update(ctx, dep)
		}
	}()
}

func TestScaleRestoresPreviousReplicas(t *testing.T) {
	r := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := clustertest.New(clustertest.Options{Objects: []client.Object{deployment("backend-worker", 2)}})
	c.RolloutTimeout = 2 * time.Second
	controller(ctx, c, "backend-worker", nil)

	s := scaler.New(c.Client, allowed)
	err := s.Scale(ctx, "backend-worker", 0, func(ctx context.Context) error {
		replicas, err := c.Replicas(ctx, "backend-worker")
		r.NoError(err)
		r.EqualValues(0, replicas)
		return errors.New("test failed while scaled")
	})
	r.ErrorContains(err, "test failed while scaled")

	replicas, err := c.Replicas(ctx, "backend-worker")
	r.NoError(err)
	r.EqualValues(2, replicas)
}

func TestScaleRestoresAfterContextIsCancelled(t *testing.T) {
	r := require.New(t)
	controllerCtx, stopController := context.WithCancel(context.Background())
	defer stopController()
	c := clustertest.New(clustertest.Options{Objects: []client.Object{deployment("backend-worker", 2)}})
	c.RolloutTimeout = 2 * time.Second
	controller(controllerCtx, c, "backend-worker", nil)

	ctx, cancel := context.WithCancel(context.Background())
	err := scaler.New(c.Client, allowed).Scale(ctx, "backend-worker", 0, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	r.ErrorIs(err, context.Canceled)
	r.NotContains(err.Error(), "restoring")

	dep, err := c.Deployment(context.Background(), "backend-worker")
	r.NoError(err)
	r.EqualValues(2, *dep.Spec.Replicas)
	r.EqualValues(2, dep.Status.ReadyReplicas)
}

func TestScaleRejectsComponentsOutsideAllowList(t *testing.T) {
	c := clustertest.New(clustertest.Options{Objects: []client.Object{deployment("system-app", 1)}})
	called := false
	err := scaler.New(c.Client, allowed).Scale(context.Background(), "system-app", 0, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, scaler.ErrUnsupportedComponent)
	require.False(t, called)

	replicas, err := c.Replicas(context.Background(), "system-app")
	require.NoError(t, err)
	require.EqualValues(t, 1, replicas, "nothing is mutated")
}

func TestScaleThroughAPIManager(t *testing.T) {
	r := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dep := deployment("apicast-staging", 1)
	dep.OwnerReferences = []metav1.OwnerReference{{APIVersion: "apps.3scale.net/v1alpha1", Kind: "APIManager", Name: "apimanager", UID: "uid"}}
	apim := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "apps.3scale.net/v1alpha1",
		"kind":       "APIManager",
		"metadata":   map[string]any{"name": "apimanager", "namespace": clustertest.Namespace},
		"spec":       map[string]any{"wildcardDomain": "example.com"},
	}}
	c := clustertest.New(clustertest.Options{Objects: []client.Object{dep}, Resources: []runtime.Object{apim}})
	c.RolloutTimeout = 2 * time.Second

	// the operator copies the APIManager replica count onto the deployment
	controller(ctx, c, "apicast-staging", func(ctx context.Context) (int32, bool) {
		obj, err := c.Resource(ctx, scaler.APIManagers, "apimanager")
		if err != nil {
			return 0, false
		}
		n, found, _ := unstructured.NestedInt64(obj.Object, "spec", "apicast", "stagingSpec", "replicas")
		return int32(n), found
	})

	err := scaler.New(c.Client, allowed).Scale(ctx, "apicast-staging", 3, func(ctx context.Context) error {
		replicas, err := c.Replicas(ctx, "apicast-staging")
		r.NoError(err)
		r.EqualValues(3, replicas)
		return nil
	})
	r.NoError(err)

	obj, err := c.Resource(ctx, scaler.APIManagers, "apimanager")
	r.NoError(err)
	n, found, err := unstructured.NestedInt64(obj.Object, "spec", "apicast", "stagingSpec", "replicas")
	r.NoError(err)
	r.True(found)
	r.EqualValues(1, n, "the unset replica count restores to the operator default")
}

func TestProvider(t *testing.T) {
	ctx := context.Background()

	reg := capability.NewRegistry()
	reg.RegisterProvider(scaler.Provider(clustertest.New(clustertest.Options{}).Client, allowed))
	require.False(t, reg.Contains(ctx, capability.Scaling))

	reg = capability.NewRegistry()
	c := clustertest.New(clustertest.Options{Objects: []client.Object{deployment("apicast-staging", 1)}})
	reg.RegisterProvider(scaler.Provider(c.Client, allowed))
	require.True(t, reg.Contains(ctx, capability.Scaling))
}
