package cluster

import (
	"context"
	"encoding/json"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// PatchOp is one JSON patch operation.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Add returns an "add" operation.
func Add(path string, value any) PatchOp {
	return PatchOp{Op: "add", Path: path, Value: value}
}

// Replace returns a "replace" operation.
func Replace(path string, value any) PatchOp {
	return PatchOp{Op: "replace", Path: path, Value: value}
}

// Remove returns a "remove" operation.
func Remove(path string) PatchOp {
	return PatchOp{Op: "remove", Path: path}
}

func marshalPatch(ops []PatchOp) ([]byte, error) {
	data, err := json.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("encoding json patch: %w", err)
	}
	return data, nil
}

// JSONPatch applies ops to obj, which must carry a name. obj is updated with the result.
func (c *Client) JSONPatch(ctx context.Context, obj client.Object, ops ...PatchOp) error {
	data, err := marshalPatch(ops)
	if err != nil {
		return err
	}
	if obj.GetNamespace() == "" {
		obj.SetNamespace(c.Namespace)
	}
	if err := c.Client.Patch(ctx, obj, client.RawPatch(types.JSONPatchType, data), client.FieldOwner(FieldOwner)); err != nil {
		return wrapPatch(kindOf(obj), obj.GetName(), err)
	}
	return nil
}

// Resource returns a custom resource as an unstructured object.
func (c *Client) Resource(ctx context.Context, gvr schema.GroupVersionResource, name string) (*unstructured.Unstructured, error) {
	obj, err := c.Dynamic.Resource(gvr).Namespace(c.Namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, wrapGet(gvr.Resource, name, err)
	}
	return obj, nil
}

// CreateResource creates a custom resource.
func (c *Client) CreateResource(ctx context.Context, gvr schema.GroupVersionResource, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	if obj.GetNamespace() == "" {
		obj.SetNamespace(c.Namespace)
	}
	created, err := c.Dynamic.Resource(gvr).Namespace(c.Namespace).Create(ctx, obj, metav1.CreateOptions{FieldManager: FieldOwner})
	if err != nil {
		return nil, fmt.Errorf("creating %s %q: %w", gvr.Resource, obj.GetName(), err)
	}
	return created, nil
}

// DeleteResource deletes a custom resource. Deleting an absent one is not an error.
func (c *Client) DeleteResource(ctx context.Context, gvr schema.GroupVersionResource, name string) error {
	err := c.Dynamic.Resource(gvr).Namespace(c.Namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err := ignoreNotFound(err); err != nil {
		return fmt.Errorf("deleting %s %q: %w", gvr.Resource, name, err)
	}
	return nil
}

// PatchResource applies JSON patch ops to a custom resource.
func (c *Client) PatchResource(ctx context.Context, gvr schema.GroupVersionResource, name string, ops ...PatchOp) (*unstructured.Unstructured, error) {
	data, err := marshalPatch(ops)
	if err != nil {
		return nil, err
	}
	obj, err := c.Dynamic.Resource(gvr).Namespace(c.Namespace).Patch(ctx, name, types.JSONPatchType, data, metav1.PatchOptions{FieldManager: FieldOwner})
	if err != nil {
		return nil, wrapPatch(gvr.Resource, name, err)
	}
	return obj, nil
}

func wrapPatch(kind, name string, err error) error {
	if ignoreNotFound(err) == nil {
		return notFoundError(kind, name, err)
	}
	return fmt.Errorf("patching %s %q: %w", kind, name, err)
}
