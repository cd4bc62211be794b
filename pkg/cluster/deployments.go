package cluster

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kgateway-dev/gwsuite/pkg/environ"
	"github.com/kgateway-dev/gwsuite/pkg/utils/kubeutils/kubectl"
	"github.com/kgateway-dev/gwsuite/pkg/utils/retryutils"
)

// Deployment returns the named deployment.
func (c *Client) Deployment(ctx context.Context, name string) (*appsv1.Deployment, error) {
	dep := &appsv1.Deployment{}
	if err := c.Get(ctx, name, dep); err != nil {
		return nil, err
	}
	return dep, nil
}

// Replicas returns the desired replica count of a deployment.
func (c *Client) Replicas(ctx context.Context, name string) (int32, error) {
	dep, err := c.Deployment(ctx, name)
	if err != nil {
		return 0, err
	}
	return ptr.Deref(dep.Spec.Replicas, 1), nil
}

// Scale sets the desired replica count of a deployment.
func (c *Client) Scale(ctx context.Context, name string, replicas int32) error {
	dep := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: c.Namespace}}
	patch := fmt.Appendf(nil, `{"spec":{"replicas":%d}}`, replicas)
	if err := c.Client.Patch(ctx, dep, client.RawPatch(types.MergePatchType, patch), client.FieldOwner(FieldOwner)); err != nil {
		return wrapPatch("deployment", name, err)
	}
	logger.Info("scaled deployment", "name", name, "replicas", replicas)
	return nil
}

// WaitForReplicas blocks until the deployment reports exactly replicas ready pods.
func (c *Client) WaitForReplicas(ctx context.Context, name string, replicas int32) error {
	logger.Debug("waiting for replicas", "deployment", name, "replicas", replicas)
	return retryutils.Poll(ctx, c.RolloutTimeout, c.PollInterval, func(ctx context.Context) error {
		dep, err := c.Deployment(ctx, name)
		if err != nil {
			return err
		}
		if dep.Status.ObservedGeneration < dep.Generation {
			return fmt.Errorf("deployment %s: generation %d not yet observed", name, dep.Generation)
		}
		if dep.Status.ReadyReplicas != replicas || dep.Status.Replicas != replicas {
			return fmt.Errorf("deployment %s: %d/%d ready, want %d", name, dep.Status.ReadyReplicas, dep.Status.Replicas, replicas)
		}
		return nil
	})
}

// Rollout triggers a new rollout of the deployment.
func (c *Client) Rollout(ctx context.Context, name string) error {
	logger.Info("rolling out deployment", "name", name)
	return c.Kubectl.RolloutRestart(ctx, c.Namespace, name)
}

// WaitForRollout blocks until the latest rollout of the deployment completes.
func (c *Client) WaitForRollout(ctx context.Context, name string) error {
	logger.Debug("waiting for rollout", "deployment", name)
	if err := c.Kubectl.RolloutStatus(ctx, c.Namespace, name, c.RolloutTimeout); err != nil {
		return fmt.Errorf("%w: rollout of %s: %w", retryutils.ErrTimeout, name, err)
	}
	return nil
}

var _ environ.Backend = &Client{}

// Environ returns the environment projection of a deployment.
func (c *Client) Environ(deployment string) *environ.Environ {
	return environ.New(c, deployment)
}

// ListEnv returns the environment dump of a deployment.
func (c *Client) ListEnv(ctx context.Context, deployment string) (string, error) {
	return c.Kubectl.ListEnv(ctx, c.Namespace, deployment)
}

// SetEnv sets and removes environment variables of a deployment.
func (c *Client) SetEnv(ctx context.Context, deployment string, set map[string]string, unset []string) error {
	return c.Kubectl.SetEnv(ctx, c.Namespace, deployment, set, unset)
}

// Logs returns the logs of a deployment.
func (c *Client) Logs(ctx context.Context, deployment string, options ...kubectl.LogOption) (string, error) {
	return c.Kubectl.Logs(ctx, c.Namespace, "deployment/"+deployment, options...)
}

// DeletePods force deletes the pods matching selector.
func (c *Client) DeletePods(ctx context.Context, selector string) error {
	logger.Info("deleting pods", "selector", selector)
	return c.Kubectl.DeletePods(ctx, c.Namespace, selector, true)
}

// Owner returns the name of the owner of kind of the deployment, if any.
func (c *Client) Owner(ctx context.Context, deployment, kind string) (string, bool, error) {
	dep, err := c.Deployment(ctx, deployment)
	if err != nil {
		return "", false, err
	}
	for _, ref := range dep.OwnerReferences {
		if ref.Kind == kind {
			return ref.Name, true, nil
		}
	}
	return "", false, nil
}

// Selector returns the pod label selector of a deployment in its string form.
func (c *Client) Selector(ctx context.Context, deployment string) (string, error) {
	dep, err := c.Deployment(ctx, deployment)
	if err != nil {
		return "", err
	}
	sel, err := metav1.LabelSelectorAsSelector(dep.Spec.Selector)
	if err != nil {
		return "", fmt.Errorf("deployment %s selector: %w", deployment, err)
	}
	return sel.String(), nil
}
