// Package certificates issues keys and certificates for TLS gateways, keeps
// them in label addressed stores and materializes them as files on demand.
package certificates

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/cloudflare/cfssl/helpers"
)

// File names used when keys and certificates are written to disk.
const (
	FileKey         = "key"
	FileCertificate = "certificate"
	FileCSR         = "csr"
	FileChain       = "chain"
)

// Name holds the subject fields of a certificate request.
type Name struct {
	Country            string
	State              string
	Locality           string
	Organization       string
	OrganizationalUnit string
}

// DefaultNames are used when a request carries no subject names.
var DefaultNames = []Name{{
	Country:            "US",
	State:              "California",
	Locality:           "San Francisco",
	Organization:       "kgateway",
	OrganizationalUnit: "e2e",
}}

// UnsignedKey is a private key and its certificate signing request.
type UnsignedKey struct {
	Key []byte
	CSR []byte

	persist *TmpFilePersist
}

// Files returns the paths of the key and csr files, writing them on first use.
func (k *UnsignedKey) Files() (map[string]string, error) {
	if k.persist == nil {
		return nil, ErrNotPersisted
	}
	return k.persist.Files()
}

// Close removes the files written for the key, if any.
func (k *UnsignedKey) Close() error {
	if k.persist == nil {
		return nil
	}
	return k.persist.Close()
}

// Certificate is a private key with its signed certificate. A Certificate
// whose x509 body carries the CA flag can sign other keys.
type Certificate struct {
	Key         []byte
	Certificate []byte
	// Chain holds the PEM certificates of the issuers, nearest first. It is
	// empty for self-signed certificates.
	Chain []byte

	persist *TmpFilePersist
}

// X509 parses the certificate body.
func (c *Certificate) X509() (*x509.Certificate, error) {
	cert, err := helpers.ParseCertificatePEM(c.Certificate)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate: %w", err)
	}
	return cert, nil
}

// IsCA reports whether the certificate may sign other certificates.
func (c *Certificate) IsCA() bool {
	cert, err := c.X509()
	return err == nil && cert.IsCA
}

// FullChain returns the certificate followed by its issuers.
func (c *Certificate) FullChain() []byte {
	if len(c.Chain) == 0 {
		return c.Certificate
	}
	return bytes.Join([][]byte{bytes.TrimRight(c.Certificate, "\n"), c.Chain}, []byte("\n"))
}

// Root returns the PEM of the topmost issuer, or the certificate itself when self-signed.
func (c *Certificate) Root() []byte {
	if len(c.Chain) == 0 {
		return c.Certificate
	}
	var last *pem.Block
	for rest := c.Chain; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		last = block
	}
	if last == nil {
		return c.Certificate
	}
	return pem.EncodeToMemory(last)
}

// TLSSecretData returns the data of a kubernetes.io/tls Secret for the certificate.
func (c *Certificate) TLSSecretData() map[string][]byte {
	return map[string][]byte{
		"tls.crt": c.FullChain(),
		"tls.key": c.Key,
		"ca.crt":  c.Root(),
	}
}

// Files returns the paths of the key and certificate files, writing them on first use.
func (c *Certificate) Files() (map[string]string, error) {
	if c.persist == nil {
		return nil, ErrNotPersisted
	}
	return c.persist.Files()
}

// Close removes the files written for the certificate, if any.
func (c *Certificate) Close() error {
	if c.persist == nil {
		return nil
	}
	return c.persist.Close()
}

func (c *Certificate) fileData() map[string][]byte {
	data := map[string][]byte{
		FileKey:         c.Key,
		FileCertificate: c.Certificate,
	}
	if len(c.Chain) > 0 {
		data[FileChain] = c.Chain
	}
	return data
}
