package kubeutils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kgateway-dev/gwsuite/pkg/utils/kubeutils"
)

func TestServiceHostnames(t *testing.T) {
	assert.Equal(t, "apicast.apim.svc", kubeutils.ServiceHostname("apicast", "apim"))
	assert.Equal(t, "apicast.apim.svc.cluster.local", kubeutils.ServiceFQDN(metav1.ObjectMeta{Name: "apicast", Namespace: "apim"}))
}
