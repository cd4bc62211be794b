package kubeutils

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ServiceHostname returns the short in-cluster hostname of a Service, name.namespace.svc.
func ServiceHostname(name, namespace string) string {
	return fmt.Sprintf("%s.%s.svc", name, namespace)
}

// ServiceFQDN returns the FQDN for the Service, assuming it is being accessed from within the Cluster
func ServiceFQDN(serviceMeta metav1.ObjectMeta) string {
	return ServiceHostname(serviceMeta.Name, serviceMeta.Namespace) + ".cluster.local"
}
