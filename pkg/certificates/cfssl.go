package certificates

import (
	"context"
	"time"

	"github.com/cloudflare/cfssl/cli/genkey"
	"github.com/cloudflare/cfssl/csr"
	"github.com/cloudflare/cfssl/helpers"
	"github.com/cloudflare/cfssl/initca"
	"github.com/cloudflare/cfssl/selfsign"
	"github.com/cloudflare/cfssl/signer"
	"github.com/cloudflare/cfssl/signer/local"

	"github.com/kgateway-dev/gwsuite/pkg/logging"
)

var logger = logging.New("certificates")

const cfsslTool = "cfssl"

// CfsslProvider generates and signs in process with the cfssl library.
type CfsslProvider struct {
	expiry time.Duration
}

var _ Provider = &CfsslProvider{}

// NewCfsslProvider returns a provider issuing certificates valid for expiry.
// A zero expiry uses DefaultExpiry.
func NewCfsslProvider(expiry time.Duration) *CfsslProvider {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &CfsslProvider{expiry: expiry}
}

func (p *CfsslProvider) GenerateKey(_ context.Context, commonName string, names []Name, hosts []string) (*UnsignedKey, error) {
	g := &csr.Generator{Validator: genkey.Validator}
	csrPEM, key, err := g.ProcessRequest(certificateRequest(commonName, names, hosts))
	if err != nil {
		return nil, providerError(cfsslTool, "genkey", err)
	}
	logger.Debug("generated key", "cn", commonName, "hosts", hosts)
	return &UnsignedKey{Key: key, CSR: csrPEM}, nil
}

func (p *CfsslProvider) GenerateCA(_ context.Context, commonName string, names []Name, hosts []string) (*Certificate, *UnsignedKey, error) {
	cert, csrPEM, key, err := initca.New(certificateRequest(commonName, names, hosts))
	if err != nil {
		return nil, nil, providerError(cfsslTool, "gencert -initca", err)
	}
	logger.Debug("generated certificate authority", "cn", commonName)
	return &Certificate{Key: key, Certificate: cert}, &UnsignedKey{Key: key, CSR: csrPEM}, nil
}

func (p *CfsslProvider) Sign(_ context.Context, key *UnsignedKey, ca *Certificate) (*Certificate, error) {
	if ca == nil {
		return p.selfSign(key)
	}
	return p.sign(key, ca, ProfileServer)
}

func (p *CfsslProvider) SignIntermediateCA(_ context.Context, key *UnsignedKey, ca *Certificate) (*Certificate, error) {
	if ca == nil {
		return nil, ErrCertificateRequired
	}
	return p.sign(key, ca, ProfileIntermediate)
}

func (p *CfsslProvider) selfSign(key *UnsignedKey) (*Certificate, error) {
	priv, err := helpers.ParsePrivateKeyPEM(key.Key)
	if err != nil {
		return nil, providerError(cfsslTool, "selfsign", err)
	}
	cert, err := selfsign.Sign(priv, key.CSR, leafProfile(p.expiry))
	if err != nil {
		return nil, providerError(cfsslTool, "selfsign", err)
	}
	return &Certificate{Key: key.Key, Certificate: cert}, nil
}

func (p *CfsslProvider) sign(key *UnsignedKey, ca *Certificate, profile string) (*Certificate, error) {
	parsedCA, err := helpers.ParseCertificatePEM(ca.Certificate)
	if err != nil {
		return nil, providerError(cfsslTool, "sign", err)
	}
	priv, err := helpers.ParsePrivateKeyPEM(ca.Key)
	if err != nil {
		return nil, providerError(cfsslTool, "sign", err)
	}
	s, err := local.NewSigner(priv, parsedCA, signer.DefaultSigAlgo(priv), signingPolicy(p.expiry))
	if err != nil {
		return nil, providerError(cfsslTool, "sign", err)
	}
	cert, err := s.Sign(signer.SignRequest{
		Request: string(key.CSR),
		Profile: profile,
	})
	if err != nil {
		return nil, providerError(cfsslTool, "sign", err)
	}
	logger.Debug("signed certificate", "profile", profile, "issuer", parsedCA.Subject.CommonName)
	return &Certificate{Key: key.Key, Certificate: cert, Chain: chainOf(ca)}, nil
}
