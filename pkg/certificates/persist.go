package certificates

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sync"

	"github.com/spf13/afero"
)

// Persister hands out TmpFilePersist instances rooted in one base directory
// and removes all of them on Close.
type Persister struct {
	fs      afero.Fs
	baseDir string

	mu   sync.Mutex
	open []*TmpFilePersist
}

// NewPersister returns a Persister writing below baseDir on fs.
func NewPersister(fs afero.Fs, baseDir string) *Persister {
	return &Persister{fs: fs, baseDir: baseDir}
}

// NewOsPersister returns a Persister writing to the local disk.
func NewOsPersister(baseDir string) *Persister {
	return NewPersister(afero.NewOsFs(), baseDir)
}

// Persist returns a TmpFilePersist for data. Nothing is written until Files is called.
func (p *Persister) Persist(data map[string][]byte) *TmpFilePersist {
	t := &TmpFilePersist{fs: p.fs, baseDir: p.baseDir, data: data}
	p.mu.Lock()
	p.open = append(p.open, t)
	p.mu.Unlock()
	return t
}

// Close removes every directory written by persists handed out so far.
func (p *Persister) Close() error {
	p.mu.Lock()
	open := p.open
	p.open = nil
	p.mu.Unlock()

	var errs []error
	for _, t := range open {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}

// TmpFilePersist writes named PEM blobs into a private temporary directory,
// one file per blob, the first time their paths are requested.
type TmpFilePersist struct {
	fs      afero.Fs
	baseDir string
	data    map[string][]byte

	mu    sync.Mutex
	dir   string
	files map[string]string
}

// Files returns the path of every blob keyed by blob name.
func (t *TmpFilePersist) Files() (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.files != nil {
		return maps.Clone(t.files), nil
	}

	if err := t.fs.MkdirAll(t.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", t.baseDir, err)
	}
	dir, err := afero.TempDir(t.fs, t.baseDir, "certificates-")
	if err != nil {
		return nil, fmt.Errorf("creating temporary directory: %w", err)
	}

	names := make([]string, 0, len(t.data))
	for name := range t.data {
		names = append(names, name)
	}
	slices.Sort(names)

	files := make(map[string]string, len(t.data))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := afero.WriteFile(t.fs, path, t.data[name], 0o600); err != nil {
			_ = t.fs.RemoveAll(dir)
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		files[name] = path
	}

	t.dir = dir
	t.files = files
	return maps.Clone(files), nil
}

// Dir returns the temporary directory, or "" when nothing was written yet.
func (t *TmpFilePersist) Dir() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir
}

// Close removes the directory and its files. Calling Files afterwards writes them again.
func (t *TmpFilePersist) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dir == "" {
		return nil
	}
	if err := t.fs.RemoveAll(t.dir); err != nil {
		return fmt.Errorf("removing %s: %w", t.dir, err)
	}
	t.dir = ""
	t.files = nil
	return nil
}

// Filer is implemented by keys and certificates.
type Filer interface {
	Files() (map[string]string, error)
	Close() error
}

// WithFiles materializes f, calls fn with the file paths and removes the
// files again on every exit path.
func WithFiles(f Filer, fn func(files map[string]string) error) (err error) {
	files, err := f.Files()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return fn(files)
}

// AttachKey lets k write its key and csr files through the persister.
func (p *Persister) AttachKey(k *UnsignedKey) {
	if k.persist == nil {
		k.persist = p.Persist(map[string][]byte{FileKey: k.Key, FileCSR: k.CSR})
	}
}

// AttachCertificate lets c write its key, certificate and chain files through the persister.
func (p *Persister) AttachCertificate(c *Certificate) {
	if c.persist == nil {
		c.persist = p.Persist(c.fileData())
	}
}
