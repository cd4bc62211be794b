package gateways

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
	extensionsapi "istio.io/api/extensions/v1alpha1"
	typeapi "istio.io/api/type/v1beta1"
	istioextensionsv1alpha1 "istio.io/client-go/pkg/apis/extensions/v1alpha1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kgateway-dev/gwsuite/pkg/apim"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
)

// wasmGateway authorizes mesh traffic through a WASM module loaded into the
// ingress. Each service gets its own plugin carrying its configuration.
type wasmGateway struct {
	*mesh
	image string
}

// NewWASM returns a gateway authorizing mesh traffic through the WASM extension.
func NewWASM(staging bool, cfg Config) (Gateway, error) {
	m, err := newMesh(WASM, staging, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Settings.WasmImage == "" {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, WASM, settings.MissingSettingError("WASM_IMAGE"))
	}
	return &wasmGateway{mesh: m, image: cfg.Settings.WasmImage}, nil
}

func pluginName(svc apim.Service) string {
	return svc.Identifier() + "-wasm"
}

// Create has nothing to provision until a service is registered.
func (g *wasmGateway) Create(ctx context.Context) error {
	return g.create(ctx, func(context.Context) error { return nil })
}

// Destroy removes the routes, then the plugins.
func (g *wasmGateway) Destroy(ctx context.Context) error {
	return g.destroy(ctx, func(ctx context.Context) error {
		return g.teardown(ctx, func(svc apim.Service) []client.Object {
			return []client.Object{pluginObject(svc)}
		})
	})
}

func pluginObject(svc apim.Service) *istioextensionsv1alpha1.WasmPlugin {
	return &istioextensionsv1alpha1.WasmPlugin{ObjectMeta: metav1.ObjectMeta{Name: pluginName(svc)}}
}

func (g *wasmGateway) plugin(svc apim.Service, config *structpb.Struct) *istioextensionsv1alpha1.WasmPlugin {
	return &istioextensionsv1alpha1.WasmPlugin{
		ObjectMeta: metav1.ObjectMeta{Name: pluginName(svc), Labels: g.labels()},
		Spec: extensionsapi.WasmPlugin{
			Selector:     &typeapi.WorkloadSelector{MatchLabels: ingressSelector},
			Url:          g.image,
			Phase:        extensionsapi.PluginPhase_AUTHN,
			PluginConfig: config,
		},
	}
}

func (g *wasmGateway) OnServiceCreate(ctx context.Context, svc apim.Service) error {
	if err := g.createRoute(ctx, svc); err != nil {
		return err
	}
	return g.Synchronize(ctx, svc)
}

func (g *wasmGateway) OnServiceDelete(ctx context.Context, svc apim.Service) error {
	if err := g.deleteRoute(ctx, svc); err != nil {
		return err
	}
	g.untrack(svc)
	return g.cluster.Delete(ctx, pluginObject(svc))
}

// OnApplicationCreate pushes the new credentials into the plugin.
func (g *wasmGateway) OnApplicationCreate(ctx context.Context, svc apim.Service, _ apim.Application) error {
	return g.Synchronize(ctx, svc)
}

// Synchronize replaces the plugin configuration of svc with its current
// mapping rules and credentials.
func (g *wasmGateway) Synchronize(ctx context.Context, svc apim.Service) error {
	cfg, err := g.config(ctx, svc)
	if err != nil {
		return err
	}
	config, err := toStruct(cfg)
	if err != nil {
		return fmt.Errorf("encoding plugin configuration of %s: %w", svc.Identifier(), err)
	}
	if err := g.cluster.Upsert(ctx, g.plugin(svc, config)); err != nil {
		return fmt.Errorf("synchronizing %s: %w", svc.Identifier(), err)
	}
	logger.Debug("synchronized service", "gateway", g.name, "service", svc.Identifier())
	return nil
}

func (g *wasmGateway) Endpoint(_ context.Context, svc apim.Service) (string, error) {
	return "http://" + g.hostname(svc), nil
}

// toStruct converts v to a protobuf Struct through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
