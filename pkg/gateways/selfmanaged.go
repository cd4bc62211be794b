package gateways

import (
	"context"
	"maps"
	"slices"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// NewSelfManaged returns an apicast gateway whose deployment and service are
// built in code.
func NewSelfManaged(staging bool, cfg Config) (Gateway, error) {
	if err := cfg.requireCluster(SelfManaged); err != nil {
		return nil, err
	}
	if err := cfg.requirePortal(SelfManaged); err != nil {
		return nil, err
	}
	return newApicast(SelfManaged, staging, cfg, selfManagedManifests), nil
}

func objectMeta(name string) metav1.ObjectMeta {
	return metav1.ObjectMeta{Name: name}
}

func deploymentObject(name string) *appsv1.Deployment {
	return &appsv1.Deployment{ObjectMeta: objectMeta(name)}
}

func selfManagedManifests(_ context.Context, g *apicast) ([]client.Object, error) {
	selector := map[string]string{"deployment": g.name}
	labels := g.labels()
	maps.Copy(labels, selector)

	env := []corev1.EnvVar{{
		Name: "THREESCALE_PORTAL_ENDPOINT",
		ValueFrom: &corev1.EnvVarSource{SecretKeyRef: &corev1.SecretKeySelector{
			LocalObjectReference: corev1.LocalObjectReference{Name: g.portalSecret()},
			Key:                  portalKey,
		}},
	}}
	values := apicastEnv(g.base)
	for _, name := range slices.Sorted(maps.Keys(values)) {
		env = append(env, corev1.EnvVar{Name: name, Value: values[name]})
	}

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: g.name, Labels: g.labels()},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](1),
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  "apicast",
						Image: g.settings.ApicastImage,
						Env:   env,
						Ports: []corev1.ContainerPort{
							{Name: "proxy", ContainerPort: proxyPort},
							{Name: "management", ContainerPort: 8090},
						},
						ReadinessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{HTTPGet: &corev1.HTTPGetAction{
								Path: "/status/ready",
								Port: intstr.FromString("management"),
							}},
							InitialDelaySeconds: 5,
							PeriodSeconds:       5,
						},
					}},
				},
			},
		},
	}
	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: g.name, Labels: g.labels()},
		Spec: corev1.ServiceSpec{
			Selector: selector,
			Ports: []corev1.ServicePort{
				{Name: "proxy", Port: proxyPort, TargetPort: intstr.FromString("proxy")},
				{Name: "management", Port: 8090, TargetPort: intstr.FromString("management")},
			},
		},
	}
	return []client.Object{deployment, service}, nil
}
