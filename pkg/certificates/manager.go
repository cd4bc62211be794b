package certificates

import (
	"context"
	"errors"
	"fmt"
)

// Request describes a certificate to issue.
type Request struct {
	CommonName string
	Hosts      []string
	// Names defaults to DefaultNames.
	Names []Name
	// CA signs the new certificate. For Create a nil CA self-signs; for
	// CreateCA it makes the new CA an intermediate of CA.
	CA *Certificate
}

// Manager issues certificates and keeps them in a Store under labels.
// GetOrCreate is check-then-act, so concurrent callers must not share a label.
type Manager struct {
	keys      KeyProvider
	signer    SigningProvider
	store     Store
	persister *Persister
}

// NewManager returns a Manager. Certificates it returns write their files through persister.
func NewManager(keys KeyProvider, signer SigningProvider, store Store, persister *Persister) *Manager {
	return &Manager{
		keys:      keys,
		signer:    signer,
		store:     store,
		persister: persister,
	}
}

// NewDefaultManager returns a Manager backed by the cfssl library and an in-memory store.
func NewDefaultManager(persister *Persister) *Manager {
	p := NewCfsslProvider(DefaultExpiry)
	return NewManager(p, p, NewMemoryStore(), persister)
}

// NewManagerForBinary returns a Manager backed by the cfssl binary when one
// is named, or by the cfssl library otherwise.
func NewManagerForBinary(binary string, store Store, persister *Persister) *Manager {
	if binary == "" {
		p := NewCfsslProvider(DefaultExpiry)
		return NewManager(p, p, store, persister)
	}
	p := NewCfsslBinaryProvider(binary, nil, persister, DefaultExpiry)
	return NewManager(p, p, store, persister)
}

// Create issues a certificate for req and stores it under label, replacing any previous value.
func (m *Manager) Create(ctx context.Context, label string, req Request) (*Certificate, error) {
	key, err := m.keys.GenerateKey(ctx, req.CommonName, req.Names, req.Hosts)
	if err != nil {
		return nil, fmt.Errorf("generating key for %q: %w", label, err)
	}
	cert, err := m.signer.Sign(ctx, key, req.CA)
	if err != nil {
		return nil, fmt.Errorf("signing %q: %w", label, err)
	}
	return m.save(label, cert)
}

// GetOrCreate returns the certificate stored under label, issuing it with req when absent.
func (m *Manager) GetOrCreate(ctx context.Context, label string, req Request) (*Certificate, error) {
	cert, err := m.Get(label)
	if err == nil {
		return cert, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return m.Create(ctx, label, req)
}

// CreateCA issues a certificate authority and stores it under label. With
// req.CA set the new authority is signed as an intermediate of it, otherwise
// it is self-signed.
func (m *Manager) CreateCA(ctx context.Context, label string, req Request) (*Certificate, error) {
	ca, key, err := m.keys.GenerateCA(ctx, req.CommonName, req.Names, req.Hosts)
	if err != nil {
		return nil, fmt.Errorf("generating certificate authority %q: %w", label, err)
	}
	if req.CA != nil {
		ca, err = m.signer.SignIntermediateCA(ctx, key, req.CA)
		if err != nil {
			return nil, fmt.Errorf("signing intermediate certificate authority %q: %w", label, err)
		}
	}
	return m.save(label, ca)
}

// GetOrCreateCA returns the authority stored under label, issuing it with req when absent.
func (m *Manager) GetOrCreateCA(ctx context.Context, label string, req Request) (*Certificate, error) {
	cert, err := m.Get(label)
	if err == nil {
		return cert, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return m.CreateCA(ctx, label, req)
}

// Get returns the certificate stored under label.
func (m *Manager) Get(label string) (*Certificate, error) {
	cert, err := m.store.Get(label)
	if err != nil {
		return nil, err
	}
	m.attach(cert)
	return cert, nil
}

// Delete removes label from the store and the files of its certificate.
func (m *Manager) Delete(label string) error {
	cert, err := m.store.Get(label)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return errors.Join(cert.Close(), m.store.Delete(label))
}

// Close removes every file written for certificates handed out by the manager.
func (m *Manager) Close() error {
	if m.persister == nil {
		return nil
	}
	return m.persister.Close()
}

func (m *Manager) save(label string, cert *Certificate) (*Certificate, error) {
	if err := m.store.Set(label, cert); err != nil {
		return nil, fmt.Errorf("storing %q: %w", label, err)
	}
	m.attach(cert)
	logger.Info("issued certificate", "label", label, "ca", cert.IsCA())
	return cert, nil
}

func (m *Manager) attach(cert *Certificate) {
	if m.persister != nil {
		m.persister.AttachCertificate(cert)
	}
}
