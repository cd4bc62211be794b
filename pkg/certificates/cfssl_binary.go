package certificates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kgateway-dev/gwsuite/pkg/utils/cmdutils"
)

// CfsslBinaryProvider drives the cfssl command line tool. Self-signing has
// no cfssl command taking an existing key, so it is done in process.
type CfsslBinaryProvider struct {
	binary    string
	runner    cmdutils.Runner
	persister *Persister
	expiry    time.Duration
	inProcess *CfsslProvider
}

var _ Provider = &CfsslBinaryProvider{}

// NewCfsslBinaryProvider returns a provider executing binary through runner.
// Signing material is written to temporary files through persister, which
// must be backed by the local disk.
func NewCfsslBinaryProvider(binary string, runner cmdutils.Runner, persister *Persister, expiry time.Duration) *CfsslBinaryProvider {
	if binary == "" {
		binary = cfsslTool
	}
	if runner == nil {
		runner = cmdutils.ExecRunner{}
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &CfsslBinaryProvider{
		binary:    binary,
		runner:    runner,
		persister: persister,
		expiry:    expiry,
		inProcess: NewCfsslProvider(expiry),
	}
}

// cfsslOutput is the JSON printed by cfssl genkey, gencert and sign.
type cfsslOutput struct {
	Cert string `json:"cert"`
	CSR  string `json:"csr"`
	Key  string `json:"key"`
}

func (p *CfsslBinaryProvider) GenerateKey(ctx context.Context, commonName string, names []Name, hosts []string) (*UnsignedKey, error) {
	req, err := json.Marshal(certificateRequest(commonName, names, hosts))
	if err != nil {
		return nil, err
	}
	out, err := p.run(ctx, "genkey", req, "genkey", "-")
	if err != nil {
		return nil, err
	}
	if out.Key == "" || out.CSR == "" {
		return nil, providerError(p.binary, "genkey", fmt.Errorf("output is missing key or csr"))
	}
	return &UnsignedKey{Key: []byte(out.Key), CSR: []byte(out.CSR)}, nil
}

func (p *CfsslBinaryProvider) GenerateCA(ctx context.Context, commonName string, names []Name, hosts []string) (*Certificate, *UnsignedKey, error) {
	req, err := json.Marshal(certificateRequest(commonName, names, hosts))
	if err != nil {
		return nil, nil, err
	}
	out, err := p.run(ctx, "gencert -initca", req, "gencert", "-initca", "-")
	if err != nil {
		return nil, nil, err
	}
	if out.Cert == "" || out.Key == "" {
		return nil, nil, providerError(p.binary, "gencert -initca", fmt.Errorf("output is missing cert or key"))
	}
	key := []byte(out.Key)
	return &Certificate{Key: key, Certificate: []byte(out.Cert)}, &UnsignedKey{Key: key, CSR: []byte(out.CSR)}, nil
}

func (p *CfsslBinaryProvider) Sign(ctx context.Context, key *UnsignedKey, ca *Certificate) (*Certificate, error) {
	if ca == nil {
		return p.inProcess.Sign(ctx, key, nil)
	}
	return p.sign(ctx, key, ca, ProfileServer)
}

func (p *CfsslBinaryProvider) SignIntermediateCA(ctx context.Context, key *UnsignedKey, ca *Certificate) (*Certificate, error) {
	if ca == nil {
		return nil, ErrCertificateRequired
	}
	return p.sign(ctx, key, ca, ProfileIntermediate)
}

func (p *CfsslBinaryProvider) sign(ctx context.Context, key *UnsignedKey, ca *Certificate, profile string) (*Certificate, error) {
	policy, err := json.Marshal(signingConfigFile(p.expiry))
	if err != nil {
		return nil, err
	}
	material := p.persister.Persist(map[string][]byte{
		"ca.pem":      ca.Certificate,
		"ca-key.pem":  ca.Key,
		"config.json": policy,
	})

	var out *cfsslOutput
	err = WithFiles(material, func(files map[string]string) error {
		var runErr error
		out, runErr = p.run(ctx, "sign", key.CSR,
			"sign",
			"-ca", files["ca.pem"],
			"-ca-key", files["ca-key.pem"],
			"-config", files["config.json"],
			"-profile", profile,
			"-")
		return runErr
	})
	if err != nil {
		return nil, err
	}
	if out.Cert == "" {
		return nil, providerError(p.binary, "sign", fmt.Errorf("output is missing cert"))
	}
	return &Certificate{Key: key.Key, Certificate: []byte(out.Cert), Chain: chainOf(ca)}, nil
}

// run executes cfssl and decodes its JSON output. When the command fails the
// binary is looked up to tell a missing tool from a rejected request.
func (p *CfsslBinaryProvider) run(ctx context.Context, op string, stdin []byte, args ...string) (*cfsslOutput, error) {
	stdout, _, err := p.runner.Run(ctx, bytes.NewReader(stdin), p.binary, args...)
	if err != nil {
		if _, lookErr := p.runner.LookPath(p.binary); lookErr != nil {
			return nil, &ProviderError{Tool: filepath.Base(p.binary), Op: op, Missing: true, Err: lookErr}
		}
		return nil, providerError(filepath.Base(p.binary), op, err)
	}
	out := &cfsslOutput{}
	if err := json.Unmarshal(stdout, out); err != nil {
		return nil, providerError(filepath.Base(p.binary), op, fmt.Errorf("decoding output: %w", err))
	}
	return out, nil
}

// signingConfigFile mirrors signingPolicy in the cfssl JSON config format.
type signingFileProfile struct {
	Expiry       string             `json:"expiry"`
	Usages       []string           `json:"usages"`
	CAConstraint *signingConstraint `json:"ca_constraint,omitempty"`
}

type signingConstraint struct {
	IsCA           bool `json:"is_ca"`
	MaxPathLen     int  `json:"max_path_len"`
	MaxPathLenZero bool `json:"max_path_len_zero"`
}

type signingFile struct {
	Signing struct {
		Default  signingFileProfile            `json:"default"`
		Profiles map[string]signingFileProfile `json:"profiles"`
	} `json:"signing"`
}

func signingConfigFile(expiry time.Duration) signingFile {
	policy := signingPolicy(expiry)
	toFile := func(name string) signingFileProfile {
		prof := policy.Profiles[name]
		out := signingFileProfile{Expiry: prof.Expiry.String(), Usages: prof.Usage}
		if prof.CAConstraint.IsCA {
			out.CAConstraint = &signingConstraint{
				IsCA:           true,
				MaxPathLen:     prof.CAConstraint.MaxPathLen,
				MaxPathLenZero: prof.CAConstraint.MaxPathLenZero,
			}
		}
		return out
	}

	var f signingFile
	f.Signing.Default = toFile(ProfileServer)
	f.Signing.Profiles = map[string]signingFileProfile{
		ProfileServer:       toFile(ProfileServer),
		ProfileIntermediate: toFile(ProfileIntermediate),
	}
	return f
}
