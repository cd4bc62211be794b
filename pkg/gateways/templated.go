package gateways

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// NewTemplated returns an apicast gateway rendered from the embedded helm chart.
func NewTemplated(staging bool, cfg Config) (Gateway, error) {
	g, err := newTemplated(Templated, staging, cfg, nil)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// valuesFunc adds kind specific chart values.
type valuesFunc func(g *apicast, vals map[string]any)

func newTemplated(kind Kind, staging bool, cfg Config, extra valuesFunc) (*apicast, error) {
	if err := cfg.requireCluster(kind); err != nil {
		return nil, err
	}
	if err := cfg.requirePortal(kind); err != nil {
		return nil, err
	}
	renderer := cfg.Renderer
	if renderer == nil {
		var err error
		if renderer, err = NewApicastRenderer(); err != nil {
			return nil, err
		}
	}
	return newApicast(kind, staging, cfg, func(ctx context.Context, g *apicast) ([]client.Object, error) {
		vals := map[string]any{
			"image":        g.settings.ApicastImage,
			"environment":  g.environment(),
			"portalSecret": g.portalSecret(),
		}
		if extra != nil {
			extra(g, vals)
		}
		return renderer.Render(ctx, g.name, g.cluster.Namespace, vals)
	}), nil
}
