package certificates

import (
	"context"
	"time"

	"github.com/cloudflare/cfssl/config"
	"github.com/cloudflare/cfssl/csr"
)

// KeyProvider generates keys and self-signed certificate authorities.
type KeyProvider interface {
	// GenerateKey returns a new key and a CSR for commonName and hosts.
	GenerateKey(ctx context.Context, commonName string, names []Name, hosts []string) (*UnsignedKey, error)
	// GenerateCA returns a self-signed CA together with its own unsigned key,
	// so the CA can later be signed as an intermediate.
	GenerateCA(ctx context.Context, commonName string, names []Name, hosts []string) (*Certificate, *UnsignedKey, error)
}

// SigningProvider turns unsigned keys into certificates.
type SigningProvider interface {
	// Sign signs key with ca using the leaf profile. A nil ca self-signs.
	Sign(ctx context.Context, key *UnsignedKey, ca *Certificate) (*Certificate, error)
	// SignIntermediateCA signs key with ca using the intermediate CA profile.
	SignIntermediateCA(ctx context.Context, key *UnsignedKey, ca *Certificate) (*Certificate, error)
}

// Provider generates and signs.
type Provider interface {
	KeyProvider
	SigningProvider
}

// Signing profiles.
const (
	ProfileServer       = "server"
	ProfileIntermediate = "intermediate"
)

// DefaultExpiry is the validity of issued certificates.
const DefaultExpiry = 365 * 24 * time.Hour

var (
	leafUsages         = []string{"signing", "key encipherment", "server auth", "client auth"}
	intermediateUsages = []string{"signing", "digital signature", "cert sign", "crl sign"}
)

// signingPolicy returns the profiles used to sign certificates. Leaves and
// intermediate CAs never share a profile.
func signingPolicy(expiry time.Duration) *config.Signing {
	return &config.Signing{
		Default: leafProfile(expiry),
		Profiles: map[string]*config.SigningProfile{
			ProfileServer: leafProfile(expiry),
			ProfileIntermediate: {
				Expiry: expiry,
				Usage:  intermediateUsages,
				CAConstraint: config.CAConstraint{
					IsCA:           true,
					MaxPathLen:     0,
					MaxPathLenZero: true,
				},
			},
		},
	}
}

func leafProfile(expiry time.Duration) *config.SigningProfile {
	return &config.SigningProfile{
		Expiry: expiry,
		Usage:  leafUsages,
	}
}

// certificateRequest builds the cfssl request for commonName, applying DefaultNames
// when names is empty.
func certificateRequest(commonName string, names []Name, hosts []string) *csr.CertificateRequest {
	if len(names) == 0 {
		names = DefaultNames
	}
	req := &csr.CertificateRequest{
		CN:    commonName,
		Hosts: hosts,
		KeyRequest: &csr.KeyRequest{
			A: "rsa",
			S: 2048,
		},
	}
	for _, n := range names {
		req.Names = append(req.Names, csr.Name{
			C:  n.Country,
			ST: n.State,
			L:  n.Locality,
			O:  n.Organization,
			OU: n.OrganizationalUnit,
		})
	}
	return req
}

func chainOf(ca *Certificate) []byte {
	return ca.FullChain()
}
