package cmd

import (
	"fmt"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/kgateway-dev/gwsuite/pkg/capability"
	"github.com/kgateway-dev/gwsuite/pkg/cluster"
	"github.com/kgateway-dev/gwsuite/pkg/gateways"
	"github.com/kgateway-dev/gwsuite/pkg/scaler"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
)

func newCapabilitiesCommand(s *settings.Settings) *cobra.Command {
	var kind, output string
	capabilitiesCmd := &cobra.Command{
		Use:   "capabilities",
		Short: "List the capabilities the cluster and gateway kind provide",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kind == "" {
				kind = s.GatewayKind
			}
			k, err := gateways.ParseKind(kind)
			if err != nil {
				return err
			}
			restConfig, err := cluster.RestConfig(s.KubeContext)
			if err != nil {
				return err
			}
			c, err := cluster.New(restConfig, s)
			if err != nil {
				return err
			}
			reg := capability.NewRegistry()
			reg.RegisterProvider(gateways.CapabilityProvider(k))
			reg.RegisterProvider(cluster.FlavorProvider(c.Clientset.Discovery()))
			reg.RegisterProvider(scaler.Provider(c, s.ScalingAllowList))
			reg.RegisterProvider(capability.JaegerProvider(s.JaegerURL, http.DefaultClient))
			return printCapabilities(cmd, reg, output)
		},
	}
	capabilitiesCmd.Flags().StringVar(&kind, "gateway-kind", "", "gateway kind to report for, defaults to GWSUITE_GATEWAY_KIND")
	capabilitiesCmd.Flags().StringVarP(&output, "output", "o", "table", "output format, one of table or yaml")
	return capabilitiesCmd
}

type capabilityReport struct {
	Present []capability.Capability `json:"present"`
	Absent  []capability.Capability `json:"absent"`
}

// printCapabilities resolves reg and prints every known capability with its presence.
// Providers that fail are reported, and the capabilities they answer for are shown as absent.
func printCapabilities(cmd *cobra.Command, reg *capability.Registry, output string) error {
	present, err := reg.Resolve(cmd.Context())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	switch output {
	case "yaml":
		report := capabilityReport{Present: []capability.Capability{}, Absent: []capability.Capability{}}
		for _, c := range capability.All {
			if present != nil && present.Contains(c) {
				report.Present = append(report.Present, c)
			} else {
				report.Absent = append(report.Absent, c)
			}
		}
		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CAPABILITY\tPRESENT")
	for _, c := range capability.All {
		fmt.Fprintf(w, "%s\t%t\n", c, present != nil && present.Contains(c))
	}
	return w.Flush()
}
