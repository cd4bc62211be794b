package metrics

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"
)

// DumpFile is the name of the metrics file written into the results directory.
const DumpFile = "metrics.txt"

// Write gathers g and writes every metric family to w in the text exposition format.
func Write(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Dump writes the current registry to <dir>/metrics.txt and returns the file path.
func Dump(fs afero.Fs, dir string) (string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, DumpFile)
	f, err := fs.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := Write(f, Registry()); err != nil {
		return "", err
	}
	return path, f.Close()
}
