package cluster

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Secret returns the decoded values of a secret.
func (c *Client) Secret(ctx context.Context, name string) (map[string]string, error) {
	secret := &corev1.Secret{}
	if err := c.Get(ctx, name, secret); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(secret.Data)+len(secret.StringData))
	for k, v := range secret.Data {
		out[k] = string(v)
	}
	for k, v := range secret.StringData {
		out[k] = v
	}
	return out, nil
}

// SecretValue returns one decoded key of a secret.
func (c *Client) SecretValue(ctx context.Context, name, key string) (string, error) {
	data, err := c.Secret(ctx, name)
	if err != nil {
		return "", err
	}
	v, ok := data[key]
	if !ok {
		return "", notFoundError("secret key", name+"/"+key, nil)
	}
	return v, nil
}

// ConfigMap returns the data of a config map.
func (c *Client) ConfigMap(ctx context.Context, name string) (map[string]string, error) {
	cm := &corev1.ConfigMap{}
	if err := c.Get(ctx, name, cm); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(cm.Data))
	for k, v := range cm.Data {
		out[k] = v
	}
	return out, nil
}

// ConfigMapValue returns one key of a config map.
func (c *Client) ConfigMapValue(ctx context.Context, name, key string) (string, error) {
	data, err := c.ConfigMap(ctx, name)
	if err != nil {
		return "", err
	}
	v, ok := data[key]
	if !ok {
		return "", notFoundError("configmap key", name+"/"+key, nil)
	}
	return v, nil
}

// ApplySecret creates the secret or replaces the data of an existing one.
func (c *Client) ApplySecret(ctx context.Context, name string, secretType corev1.SecretType, data map[string][]byte, labels map[string]string) error {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: c.Namespace, Labels: labels},
		Type:       secretType,
		Data:       data,
	}
	return c.Upsert(ctx, secret)
}

// ApplyConfigMap creates the config map or replaces the data of an existing one.
func (c *Client) ApplyConfigMap(ctx context.Context, name string, data map[string]string, labels map[string]string) error {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: c.Namespace, Labels: labels},
		Data:       data,
	}
	return c.Upsert(ctx, cm)
}

// DeleteSecret deletes the secret. Deleting an absent secret is not an error.
func (c *Client) DeleteSecret(ctx context.Context, name string) error {
	return c.Delete(ctx, &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: c.Namespace}})
}

// DeleteConfigMap deletes the config map. Deleting an absent one is not an error.
func (c *Client) DeleteConfigMap(ctx context.Context, name string) error {
	return c.Delete(ctx, &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: c.Namespace}})
}

// Upsert creates obj, or updates it in place when it already exists.
func (c *Client) Upsert(ctx context.Context, obj client.Object) error {
	if obj.GetNamespace() == "" {
		obj.SetNamespace(c.Namespace)
	}
	err := c.Client.Create(ctx, obj, client.FieldOwner(FieldOwner))
	if err == nil {
		logger.Debug("created object", "kind", kindOf(obj), "name", obj.GetName())
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("creating %s: %w", obj.GetName(), err)
	}

	existing := obj.DeepCopyObject().(client.Object)
	if err := c.Client.Get(ctx, client.ObjectKeyFromObject(obj), existing); err != nil {
		return fmt.Errorf("getting %s: %w", obj.GetName(), err)
	}
	obj.SetResourceVersion(existing.GetResourceVersion())
	if err := c.Client.Update(ctx, obj, client.FieldOwner(FieldOwner)); err != nil {
		return fmt.Errorf("updating %s: %w", obj.GetName(), err)
	}
	logger.Debug("updated object", "kind", kindOf(obj), "name", obj.GetName())
	return nil
}

// Delete deletes obj. Deleting an absent object is not an error.
func (c *Client) Delete(ctx context.Context, obj client.Object) error {
	if obj.GetNamespace() == "" {
		obj.SetNamespace(c.Namespace)
	}
	if err := client.IgnoreNotFound(c.Client.Delete(ctx, obj)); err != nil {
		return fmt.Errorf("deleting %s: %w", obj.GetName(), err)
	}
	return nil
}

// Get reads obj by name into obj.
func (c *Client) Get(ctx context.Context, name string, obj client.Object) error {
	err := c.Client.Get(ctx, client.ObjectKey{Namespace: c.Namespace, Name: name}, obj)
	return wrapGet(strings.ToLower(kindOf(obj)), name, err)
}

// DoAction runs an arbitrary kubectl verb in the namespace and decodes its JSON output into out.
func (c *Client) DoAction(ctx context.Context, verb string, out any, args ...string) error {
	return c.Kubectl.DoAction(ctx, c.Namespace, verb, out, args...)
}

func kindOf(obj client.Object) string {
	t := reflect.TypeOf(obj)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
