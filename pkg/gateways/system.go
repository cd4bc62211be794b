package gateways

import (
	"context"

	"github.com/kgateway-dev/gwsuite/pkg/cluster"
	"github.com/kgateway-dev/gwsuite/pkg/environ"
	"github.com/kgateway-dev/gwsuite/pkg/utils/kubeutils/kubectl"
)

// systemGateway is the apicast deployed by the product. The suite does not
// own it: Create only checks it exists and Destroy leaves it in place.
type systemGateway struct {
	*base
	cluster *cluster.Client
}

// NewSystem returns the product managed staging or production gateway.
func NewSystem(staging bool, cfg Config) (Gateway, error) {
	if err := cfg.requireCluster(System); err != nil {
		return nil, err
	}
	name := cfg.Settings.ProductionDeployment
	if staging {
		name = cfg.Settings.StagingDeployment
	}
	if cfg.Name != "" {
		name = cfg.Name
	}
	return &systemGateway{base: newBase(System, name, staging), cluster: cfg.Cluster}, nil
}

func (g *systemGateway) Create(ctx context.Context) error {
	return g.create(ctx, func(ctx context.Context) error {
		_, err := g.cluster.Deployment(ctx, g.name)
		return err
	})
}

func (g *systemGateway) Destroy(ctx context.Context) error {
	return g.destroy(ctx, func(context.Context) error { return nil })
}

func (g *systemGateway) Reload(ctx context.Context) error {
	return g.reload(ctx, func(ctx context.Context) error {
		if err := g.cluster.Rollout(ctx, g.name); err != nil {
			return err
		}
		return g.cluster.WaitForRollout(ctx, g.name)
	})
}

func (g *systemGateway) Environ() (*environ.Environ, error) {
	return g.cluster.Environ(g.name), nil
}

func (g *systemGateway) Logs(ctx context.Context) (string, error) {
	return g.cluster.Logs(ctx, g.name, kubectl.WithAllContainers())
}
