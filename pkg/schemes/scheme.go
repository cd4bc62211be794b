package schemes

import (
	istioextensionsv1alpha1 "istio.io/client-go/pkg/apis/extensions/v1alpha1"
	istionetworkingv1 "istio.io/client-go/pkg/apis/networking/v1"
	istiosecurityv1 "istio.io/client-go/pkg/apis/security/v1"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"
)

// SchemeBuilder contains all the Schemes for the resources the suite creates or inspects.
// APIManager and APIcast custom resources are handled as unstructured objects and are not registered.
var SchemeBuilder = runtime.SchemeBuilder{
	// Kubernetes Core resources
	corev1.AddToScheme,
	appsv1.AddToScheme,

	// K8s Gateway API resources, used as the route layer in front of gateways
	gwv1.Install,

	// Istio resources for the service mesh and WASM gateways
	istionetworkingv1.AddToScheme,
	istiosecurityv1.AddToScheme,
	istioextensionsv1alpha1.AddToScheme,
}

func AddToScheme(s *runtime.Scheme) error {
	return SchemeBuilder.AddToScheme(s)
}

// DefaultScheme returns a scheme with all the types registered.
// We intentionally do not perform this operation in an init.
func DefaultScheme() *runtime.Scheme {
	s := runtime.NewScheme()
	_ = AddToScheme(s)
	return s
}
