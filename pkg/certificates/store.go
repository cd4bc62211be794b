package certificates

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Store maps labels such as "server" or "httpbin" to certificates.
type Store interface {
	// Get returns the certificate stored under label, or an error matching ErrNotFound.
	Get(label string) (*Certificate, error)
	// Set stores cert under label, replacing any previous value.
	Set(label string, cert *Certificate) error
	// Delete removes label. Deleting an unknown label is not an error.
	Delete(label string) error
	// Labels returns every stored label in lexical order.
	Labels() ([]string, error)
}

// MemoryStore keeps certificates in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	certs map[string]*Certificate
}

var _ Store = &MemoryStore{}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{certs: map[string]*Certificate{}}
}

func (s *MemoryStore) Get(label string) (*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.certs[label]
	if !ok {
		return nil, NotFoundError(label)
	}
	return cert, nil
}

func (s *MemoryStore) Set(label string, cert *Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs[label] = cert
	return nil
}

func (s *MemoryStore) Delete(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.certs, label)
	return nil
}

func (s *MemoryStore) Labels() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	labels := make([]string, 0, len(s.certs))
	for label := range s.certs {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels, nil
}

// FileStore keeps certificates on a filesystem, one directory per label
// holding the key, certificate and chain files.
type FileStore struct {
	fs  afero.Fs
	dir string
}

var _ Store = &FileStore{}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fs, dir: dir}
}

func (s *FileStore) labelDir(label string) (string, error) {
	if label == "" || label == "." || label == ".." || strings.ContainsAny(label, `/\`) {
		return "", fmt.Errorf("invalid certificate label %q", label)
	}
	return filepath.Join(s.dir, label), nil
}

func (s *FileStore) Get(label string) (*Certificate, error) {
	dir, err := s.labelDir(label)
	if err != nil {
		return nil, err
	}
	read := func(name string, required bool) ([]byte, error) {
		data, err := afero.ReadFile(s.fs, filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			if required {
				return nil, NotFoundError(label)
			}
			return nil, nil
		}
		return data, err
	}

	cert := &Certificate{}
	if cert.Certificate, err = read(FileCertificate, true); err != nil {
		return nil, err
	}
	if cert.Key, err = read(FileKey, true); err != nil {
		return nil, err
	}
	if cert.Chain, err = read(FileChain, false); err != nil {
		return nil, err
	}
	return cert, nil
}

func (s *FileStore) Set(label string, cert *Certificate) error {
	dir, err := s.labelDir(label)
	if err != nil {
		return err
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	for name, data := range cert.fileData() {
		if err := afero.WriteFile(s.fs, filepath.Join(dir, name), data, 0o600); err != nil {
			return fmt.Errorf("storing %s of %q: %w", name, label, err)
		}
	}
	return nil
}

func (s *FileStore) Delete(label string) error {
	dir, err := s.labelDir(label)
	if err != nil {
		return err
	}
	return s.fs.RemoveAll(dir)
}

func (s *FileStore) Labels() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, e := range entries {
		if e.IsDir() {
			labels = append(labels, e.Name())
		}
	}
	slices.Sort(labels)
	return labels, nil
}
