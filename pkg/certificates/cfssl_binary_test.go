package certificates_test

import (
	"context"
	"encoding/json"
	"os"
	"slices"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/kgateway-dev/gwsuite/pkg/certificates"
	"github.com/kgateway-dev/gwsuite/pkg/utils/cmdutils/cmdutilstest"
)

func TestCfsslBinaryMissingTool(t *testing.T) {
	r := require.New(t)
	runner := cmdutilstest.NewFakeRunner()
	p := certificates.NewCfsslBinaryProvider("cfssl", runner, certificates.NewPersister(afero.NewMemMapFs(), "/tmp"), 0)

	_, err := p.GenerateKey(context.Background(), "cn", nil, nil)
	r.ErrorIs(err, certificates.ErrProvider)
	r.ErrorIs(err, certificates.ErrToolMissing)
	r.ErrorContains(err, "not installed")
}

func TestCfsslBinaryRejectedInput(t *testing.T) {
	r := require.New(t)
	runner := cmdutilstest.NewFakeRunner().
		On("cfssl genkey", cmdutilstest.Response{Stderr: "invalid key size", Err: cmdutilstest.ErrExit})
	runner.Paths["cfssl"] = "/usr/bin/cfssl"
	p := certificates.NewCfsslBinaryProvider("cfssl", runner, certificates.NewPersister(afero.NewMemMapFs(), "/tmp"), 0)

	_, err := p.GenerateKey(context.Background(), "cn", nil, nil)
	r.ErrorIs(err, certificates.ErrProvider)
	r.NotErrorIs(err, certificates.ErrToolMissing)
	r.ErrorContains(err, "invalid key size")
}

func TestCfsslBinaryGenerateAndSign(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	// real material from the in-process provider, served by the fake binary
	lib := certificates.NewCfsslProvider(0)
	ca, caKey, err := lib.GenerateCA(ctx, "root", nil, nil)
	r.NoError(err)
	key, err := lib.GenerateKey(ctx, "api.example.com", nil, []string{"api.example.com"})
	r.NoError(err)
	signed, err := lib.Sign(ctx, key, ca)
	r.NoError(err)

	var request map[string]any
	var signFiles []string
	runner := cmdutilstest.NewFakeRunner().
		Handle("cfssl genkey -", func(c cmdutilstest.Call) cmdutilstest.Response {
			r.NoError(json.Unmarshal([]byte(c.Stdin), &request))
			out, _ := json.Marshal(map[string]string{"key": string(key.Key), "csr": string(key.CSR)})
			return cmdutilstest.Response{Stdout: string(out)}
		}).
		Handle("cfssl gencert -initca -", func(cmdutilstest.Call) cmdutilstest.Response {
			out, _ := json.Marshal(map[string]string{"cert": string(ca.Certificate), "key": string(ca.Key), "csr": string(caKey.CSR)})
			return cmdutilstest.Response{Stdout: string(out)}
		}).
		Handle("cfssl sign", func(c cmdutilstest.Call) cmdutilstest.Response {
			r.Equal(string(key.CSR), c.Stdin)
			profile := c.Args[slices.Index(c.Args, "-profile")+1]
			r.Equal(certificates.ProfileServer, profile)
			for _, flag := range []string{"-ca", "-ca-key", "-config"} {
				path := c.Args[slices.Index(c.Args, flag)+1]
				_, statErr := os.Stat(path)
				r.NoError(statErr, "%s is on disk while cfssl runs", flag)
				signFiles = append(signFiles, path)
			}
			out, _ := json.Marshal(map[string]string{"cert": string(signed.Certificate)})
			return cmdutilstest.Response{Stdout: string(out)}
		})

	p := certificates.NewCfsslBinaryProvider("cfssl", runner, certificates.NewOsPersister(t.TempDir()), 0)

	gotKey, err := p.GenerateKey(ctx, "api.example.com", nil, []string{"api.example.com"})
	r.NoError(err)
	r.Equal(key.Key, gotKey.Key)
	r.Equal("api.example.com", request["CN"])
	r.Equal([]any{"api.example.com"}, request["hosts"])

	gotCA, gotCAKey, err := p.GenerateCA(ctx, "root", nil, nil)
	r.NoError(err)
	r.True(gotCA.IsCA())
	r.Equal(caKey.CSR, gotCAKey.CSR)

	leaf, err := p.Sign(ctx, gotKey, gotCA)
	r.NoError(err)
	r.Equal(signed.Certificate, leaf.Certificate)
	r.Equal(ca.Certificate, leaf.Chain)

	r.Len(signFiles, 3)
	for _, path := range signFiles {
		_, statErr := os.Stat(path)
		r.True(os.IsNotExist(statErr), "signing material is removed after cfssl exits")
	}

	selfSigned, err := p.Sign(ctx, gotKey, nil)
	r.NoError(err)
	r.Empty(selfSigned.Chain)
}
