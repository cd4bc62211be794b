package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/storage"
	"helm.sh/helm/v3/pkg/storage/driver"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kgateway-dev/gwsuite/pkg/gateways/charts"
	"github.com/kgateway-dev/gwsuite/pkg/schemes"
)

// Renderer renders a helm chart into objects without talking to the cluster.
type Renderer struct {
	chart  *chart.Chart
	scheme *runtime.Scheme
}

// NewApicastRenderer loads the embedded apicast chart.
func NewApicastRenderer() (*Renderer, error) {
	c, err := loadFs(charts.ApicastChart)
	if err != nil {
		return nil, fmt.Errorf("loading apicast chart: %w", err)
	}
	return &Renderer{chart: c, scheme: schemes.DefaultScheme()}, nil
}

// Render relies on a client-only `helm install` to render the chart with vals.
// It returns the rendered objects with their namespace set to ns.
func (r *Renderer) Render(ctx context.Context, name, ns string, vals map[string]any) ([]client.Object, error) {
	mem := driver.NewMemory()
	mem.SetNamespace(ns)
	cfg := &action.Configuration{
		Releases: storage.Init(mem),
	}
	install := action.NewInstall(cfg)
	install.Namespace = ns
	install.ReleaseName = name
	install.ClientOnly = true

	release, err := install.RunWithContext(ctx, r.chart, vals)
	if err != nil {
		return nil, fmt.Errorf("failed to render helm chart for %s.%s: %w", ns, name, err)
	}

	objs, err := ConvertYAMLToObjects(r.scheme, []byte(release.Manifest))
	if err != nil {
		return nil, fmt.Errorf("failed to convert helm manifest yaml to objects for %s.%s: %w", ns, name, err)
	}
	for _, obj := range objs {
		obj.SetNamespace(ns)
	}
	return objs, nil
}

// ConvertYAMLToObjects decodes a multi-document manifest. Kinds known to
// scheme become typed objects, the rest stay unstructured.
func ConvertYAMLToObjects(scheme *runtime.Scheme, yamlData []byte) ([]client.Object, error) {
	var objs []client.Object

	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(yamlData), 4096)
	for {
		var obj unstructured.Unstructured
		if err := decoder.Decode(&obj); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		// try to translate to real objects, so they are easier to query later
		gvk := obj.GetObjectKind().GroupVersionKind()
		if realObj, err := scheme.New(gvk); err == nil {
			if realObj, ok := realObj.(client.Object); ok {
				if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, realObj); err == nil {
					objs = append(objs, realObj)
					continue
				}
			}
		} else if len(obj.Object) == 0 {
			// empty document
			continue
		}

		objs = append(objs, &obj)
	}

	return objs, nil
}

func loadFs(filesystem fs.FS) (*chart.Chart, error) {
	var bufferedFiles []*loader.BufferedFile
	entries, err := fs.ReadDir(filesystem, ".")
	if err != nil {
		return nil, err
	}
	if len(entries) != 1 {
		return nil, fmt.Errorf("expected exactly one entry in the chart folder, got %v", entries)
	}

	root := entries[0].Name()
	err = fs.WalkDir(filesystem, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		data, readErr := fs.ReadFile(filesystem, path)
		if readErr != nil {
			return readErr
		}

		relativePath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		bufferedFiles = append(bufferedFiles, &loader.BufferedFile{
			Name: relativePath,
			Data: data,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return loader.LoadFiles(bufferedFiles)
}
