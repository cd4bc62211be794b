// Package clustertest builds a cluster.Client backed by fake clients.
package clustertest

import (
	"time"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	kubefake "k8s.io/client-go/kubernetes/fake"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"github.com/kgateway-dev/gwsuite/pkg/cluster"
	"github.com/kgateway-dev/gwsuite/pkg/schemes"
	"github.com/kgateway-dev/gwsuite/pkg/utils/cmdutils/cmdutilstest"
	"github.com/kgateway-dev/gwsuite/pkg/utils/kubeutils/kubectl"
)

// Namespace is the namespace of every fake Client.
const Namespace = "apim"

// ListKinds maps the custom resources the suite touches to their list kinds.
var ListKinds = map[schema.GroupVersionResource]string{
	{Group: "apps.3scale.net", Version: "v1alpha1", Resource: "apimanagers"}: "APIManagerList",
	{Group: "apps.3scale.net", Version: "v1alpha1", Resource: "apicasts"}:    "APIcastList",
}

// Fake is a cluster.Client with access to its fake backends.
type Fake struct {
	*cluster.Client

	Runner        *cmdutilstest.FakeRunner
	FakeClientset *kubefake.Clientset
	FakeDynamic   *dynamicfake.FakeDynamicClient
}

// Options seeds the fake backends.
type Options struct {
	// Objects are typed objects served by the controller-runtime client.
	Objects []client.Object
	// Resources are unstructured custom resources served by the dynamic client.
	Resources []runtime.Object
	// Interceptors, when set, wrap calls to the controller-runtime client.
	Interceptors *interceptor.Funcs
}

// New returns a Fake with short timeouts.
func New(opts Options) *Fake {
	scheme := schemes.DefaultScheme()
	runner := cmdutilstest.NewFakeRunner()
	clientset := kubefake.NewClientset()
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), ListKinds, opts.Resources...)
	builder := fake.NewClientBuilder().WithScheme(scheme).WithObjects(opts.Objects...)
	if opts.Interceptors != nil {
		builder = builder.WithInterceptorFuncs(*opts.Interceptors)
	}
	ctrl := builder.Build()

	return &Fake{
		Client: &cluster.Client{
			Namespace:      Namespace,
			Clientset:      clientset,
			Dynamic:        dyn,
			Client:         ctrl,
			Kubectl:        kubectl.NewCli().WithRunner(runner),
			RolloutTimeout: 200 * time.Millisecond,
			PollInterval:   10 * time.Millisecond,
			ParentGateway:  "ingress",
		},
		Runner:        runner,
		FakeClientset: clientset,
		FakeDynamic:   dyn,
	}
}
