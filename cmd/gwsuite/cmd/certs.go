package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kgateway-dev/gwsuite/pkg/certificates"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
)

type certsOptions struct {
	dir        string
	label      string
	commonName string
	hosts      []string
	caLabel    string
	ca         bool
}

func newCertsCommand(s *settings.Settings) *cobra.Command {
	certsCmd := &cobra.Command{
		Use:   "certs",
		Short: "Manage the certificates used by TLS gateways and backends",
	}
	certsCmd.AddCommand(newCertsGenerateCommand(s))
	return certsCmd
}

func newCertsGenerateCommand(s *settings.Settings) *cobra.Command {
	opts := &certsOptions{}
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Issue a certificate into the certificate store directory",
		Example: `  gwsuite certs generate --ca --label root --cn "gwsuite CA"
  gwsuite certs generate --label echo --cn echo --host echo.apps.example.com --ca-label root`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.dir == "" {
				opts.dir = filepath.Join(s.ResultsDir, "certificates")
			}
			fs := afero.NewOsFs()
			m := certificates.NewManagerForBinary(s.CfsslBinary,
				certificates.NewFileStore(fs, opts.dir),
				certificates.NewPersister(fs, s.ResultsDir))
			defer m.Close()
			return generate(cmd, m, opts)
		},
	}
	flags := generateCmd.Flags()
	flags.StringVar(&opts.dir, "dir", "", "certificate store directory, defaults to <GWSUITE_RESULTS_DIR>/certificates")
	flags.StringVar(&opts.label, "label", "", "label the certificate is stored under")
	flags.StringVar(&opts.commonName, "cn", "", "common name, defaults to the label")
	flags.StringSliceVar(&opts.hosts, "host", nil, "DNS name or IP address of the certificate, may be repeated")
	flags.StringVar(&opts.caLabel, "ca-label", "", "label of a stored certificate authority to sign with")
	flags.BoolVar(&opts.ca, "ca", false, "issue a certificate authority")
	_ = generateCmd.MarkFlagRequired("label")
	return generateCmd
}

func generate(cmd *cobra.Command, m *certificates.Manager, opts *certsOptions) error {
	req := certificates.Request{CommonName: opts.commonName, Hosts: opts.hosts}
	if req.CommonName == "" {
		req.CommonName = opts.label
	}
	if opts.caLabel != "" {
		ca, err := m.Get(opts.caLabel)
		if err != nil {
			return fmt.Errorf("loading certificate authority: %w", err)
		}
		req.CA = ca
	}

	var err error
	if opts.ca {
		_, err = m.CreateCA(cmd.Context(), opts.label, req)
	} else {
		_, err = m.Create(cmd.Context(), opts.label, req)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %s in %s\n", opts.label, filepath.Join(opts.dir, opts.label))
	return nil
}
