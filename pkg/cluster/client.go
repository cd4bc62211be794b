// Package cluster is the thin orchestration client the gateways, the
// environment projection and the scaler are written against.
package cluster

import (
	"fmt"
	"time"

	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/kgateway-dev/gwsuite/pkg/logging"
	"github.com/kgateway-dev/gwsuite/pkg/schemes"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
	"github.com/kgateway-dev/gwsuite/pkg/utils/kubeutils/kubectl"
)

var logger = logging.New("cluster")

// FieldOwner is recorded on every object the suite writes.
const FieldOwner = "gwsuite"

// Client bundles the clients used against one namespace of the cluster.
type Client struct {
	Namespace string

	// Clientset serves discovery. Typed objects go through Client.
	Clientset kubernetes.Interface
	Dynamic   dynamic.Interface
	Client    client.Client
	Kubectl   *kubectl.Cli

	// RolloutTimeout bounds rollout and readiness waits.
	RolloutTimeout time.Duration
	// PollInterval is the delay between readiness polls.
	PollInterval time.Duration
	// ParentGateway is the Gateway per-service routes attach to.
	ParentGateway string
}

// RestConfig loads the kubeconfig for kubeContext, or the current context when empty.
func RestConfig(kubeContext string) (*rest.Config, error) {
	return config.GetConfigWithContext(kubeContext)
}

// New builds a Client for the namespace and timeouts in s.
func New(restConfig *rest.Config, s *settings.Settings) (*Client, error) {
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating clientset: %w", err)
	}
	dyn, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating dynamic client: %w", err)
	}
	ctrl, err := client.New(restConfig, client.Options{Scheme: schemes.DefaultScheme()})
	if err != nil {
		return nil, fmt.Errorf("creating controller-runtime client: %w", err)
	}
	return &Client{
		Namespace:      s.Namespace,
		Clientset:      clientset,
		Dynamic:        dyn,
		Client:         ctrl,
		Kubectl:        kubectl.NewCli().WithKubeContext(s.KubeContext),
		RolloutTimeout: s.RolloutTimeout,
		PollInterval:   s.PollInterval,
		ParentGateway:  s.ParentGateway,
	}, nil
}
