package gateways

import (
	"fmt"

	"github.com/kgateway-dev/gwsuite/pkg/apim"
	"github.com/kgateway-dev/gwsuite/pkg/certificates"
	"github.com/kgateway-dev/gwsuite/pkg/cluster"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
)

// Config holds the collaborators and settings a gateway is built from.
// Each kind uses the fields it needs and rejects a Config missing them.
type Config struct {
	// Name of the resources backing the gateway. Defaults depend on the kind.
	Name string

	Settings *settings.Settings
	Cluster  *cluster.Client

	// Certificates issues the certificate of TLS gateways.
	Certificates *certificates.Manager
	// CA signs the certificate of TLS gateways. Nil self-signs.
	CA *certificates.Certificate

	// APIM is read by the mesh gateways when synchronizing services.
	APIM apim.Client

	// Renderer renders templated gateways. Defaults to the embedded apicast chart.
	Renderer *Renderer

	// ContainerStarter starts the container of containerized gateways.
	// Defaults to testcontainers.GenericContainer.
	ContainerStarter ContainerStarter
}

func (c Config) name(kind Kind, staging bool) string {
	if c.Name != "" {
		return c.Name
	}
	env := "production"
	if staging {
		env = "staging"
	}
	return fmt.Sprintf("gwsuite-%s-%s", kind, env)
}

func (c Config) requireCluster(kind Kind) error {
	if c.Settings == nil {
		return invalidConfig(kind, "settings are required")
	}
	if c.Cluster == nil {
		return invalidConfig(kind, "a cluster client is required")
	}
	return nil
}

func (c Config) requirePortal(kind Kind) error {
	if c.Settings == nil {
		return invalidConfig(kind, "settings are required")
	}
	if c.Settings.PortalEndpoint == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, kind, settings.MissingSettingError("PORTAL_ENDPOINT"))
	}
	return nil
}
