package gateways

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
)

func envValue(c corev1.Container, name string) (string, bool) {
	for _, e := range c.Env {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

func TestRenderApicastChart(t *testing.T) {
	r := require.New(t)
	renderer, err := NewApicastRenderer()
	r.NoError(err)

	objs, err := renderer.Render(context.Background(), "gw", "apim", map[string]any{
		"image":        "quay.io/3scale/apicast:nightly",
		"environment":  "production",
		"portalSecret": "gw-portal",
		"extraEnv":     map[string]any{"APICAST_LOG_LEVEL": "debug"},
	})
	r.NoError(err)
	r.Len(objs, 2)

	var dep *appsv1.Deployment
	var svc *corev1.Service
	for _, obj := range objs {
		r.Equal("apim", obj.GetNamespace())
		switch o := obj.(type) {
		case *appsv1.Deployment:
			dep = o
		case *corev1.Service:
			svc = o
		}
	}
	r.NotNil(dep, "deployment is decoded into a typed object")
	r.NotNil(svc, "service is decoded into a typed object")

	r.Equal("gw", dep.Name)
	container := dep.Spec.Template.Spec.Containers[0]
	r.Equal("quay.io/3scale/apicast:nightly", container.Image)
	r.Equal("gw-portal", container.Env[0].ValueFrom.SecretKeyRef.Name)
	v, ok := envValue(container, "APICAST_CONFIGURATION_LOADER")
	r.True(ok)
	r.Equal("boot", v)
	v, ok = envValue(container, "APICAST_LOG_LEVEL")
	r.True(ok)
	r.Equal("debug", v)
	r.Empty(dep.Spec.Template.Spec.Volumes)

	r.Len(svc.Spec.Ports, 2)
	r.Equal("gw", svc.Spec.Selector["deployment"])
}

func TestRenderApicastChartWithTLS(t *testing.T) {
	r := require.New(t)
	renderer, err := NewApicastRenderer()
	r.NoError(err)

	objs, err := renderer.Render(context.Background(), "gw", "apim", map[string]any{
		"environment":  "staging",
		"portalSecret": "gw-portal",
		"tls":          map[string]any{"enabled": true, "secretName": "gw-tls", "port": 8443},
	})
	r.NoError(err)

	var dep *appsv1.Deployment
	for _, obj := range objs {
		if d, ok := obj.(*appsv1.Deployment); ok {
			dep = d
		}
	}
	r.NotNil(dep)
	r.Equal("gw-tls", dep.Spec.Template.Spec.Volumes[0].Secret.SecretName)
	v, ok := envValue(dep.Spec.Template.Spec.Containers[0], "APICAST_HTTPS_PORT")
	r.True(ok)
	r.Equal("8443", v)
}

func TestRenderRequiresPortalSecret(t *testing.T) {
	renderer, err := NewApicastRenderer()
	require.NoError(t, err)
	_, err = renderer.Render(context.Background(), "gw", "apim", map[string]any{})
	require.ErrorContains(t, err, "portalSecret is required")
}
