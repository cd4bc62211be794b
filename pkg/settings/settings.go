package settings

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/kgateway-dev/gwsuite/pkg/logging"
)

// Prefix is prepended to every environment variable read into Settings.
const Prefix = "GWSUITE"

var (
	// ErrMissingSetting is returned when a setting required by a component is empty.
	ErrMissingSetting = errors.New("missing required setting")
	// ErrInvalidSetting is returned when a setting holds an unusable value.
	ErrInvalidSetting = errors.New("invalid setting")
)

// MissingSettingError reports that the named setting must be provided.
func MissingSettingError(name string) error {
	return fmt.Errorf("%w: %s_%s", ErrMissingSetting, Prefix, name)
}

// ComponentList is a comma separated list of deployment names.
type ComponentList []string

// Decode implements envconfig.Decoder.
func (l *ComponentList) Decode(value string) error {
	var out ComponentList
	for _, c := range strings.Split(value, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if slices.Contains(out, c) {
			return fmt.Errorf("duplicate component: %q", c)
		}
		out = append(out, c)
	}
	*l = out
	return nil
}

// Contains reports whether the component is in the list.
func (l ComponentList) Contains(component string) bool {
	return slices.Contains(l, component)
}

type Settings struct {
	// Namespace where the product under test is installed.
	Namespace string `default:"threescale"`

	// KubeContext selects the kubeconfig context. Empty uses the current context.
	KubeContext string `split_words:"true"`

	// ResultsDir is the root directory for generated files such as temporary certificates.
	ResultsDir string `split_words:"true" default:"_output"`

	// RolloutTimeout bounds every rollout and readiness wait.
	RolloutTimeout time.Duration `split_words:"true" default:"90s"`

	// PollInterval is the delay between readiness polls.
	PollInterval time.Duration `split_words:"true" default:"1s"`

	// ReconcileAttempts bounds the polls made while waiting for an operator to
	// reconcile force-deleted pods.
	ReconcileAttempts uint `split_words:"true" default:"8"`

	// GatewayKind is the gateway variant tests run against by default.
	GatewayKind string `split_words:"true" default:"system"`

	// StagingDeployment and ProductionDeployment name the product-managed gateways.
	StagingDeployment    string `split_words:"true" default:"apicast-staging"`
	ProductionDeployment string `split_words:"true" default:"apicast-production"`

	// ScalingAllowList lists the components the scaler may touch.
	ScalingAllowList ComponentList `split_words:"true" default:"apicast-staging,apicast-production,backend-listener,backend-worker,backend-cron,system-app,system-sidekiq,zync,zync-que"`

	// CfsslBinary is the path or name of the cfssl executable. When empty,
	// certificates are generated in process.
	CfsslBinary string `split_words:"true"`

	// JaegerURL is the query endpoint of a Jaeger instance available to the gateways.
	JaegerURL string `envconfig:"JAEGER_URL"`

	// WildcardDomain is appended to per-service route hostnames, as in {id}-staging.<domain>.
	WildcardDomain string `split_words:"true"`

	// ParentGateway is the Gateway that per-service HTTPRoutes attach to.
	ParentGateway string `split_words:"true" default:"ingress"`

	// ApicastImage is used by gateways the suite deploys itself.
	ApicastImage string `split_words:"true" default:"quay.io/3scale/apicast:latest"`

	// WasmImage is the OCI reference of the authorization WASM module.
	WasmImage string `split_words:"true" default:"oci://quay.io/3scale/threescale-wasm-auth:latest"`

	// PortalEndpoint is the admin portal URL with an access token, used by self
	// deployed gateways to pull their configuration.
	PortalEndpoint string `split_words:"true"`

	// LogLevel is a level, optionally followed by component overrides,
	// for example "info,gateways=debug".
	LogLevel string `split_words:"true" default:"info"`

	// LogFormat is either text or json.
	LogFormat logging.LogFormat `split_words:"true" default:"text"`

	// SkipCleanup leaves created gateways and generated files in place after a run.
	SkipCleanup bool `split_words:"true" default:"false"`
}

// Validate checks values that envconfig cannot.
func (s *Settings) Validate() error {
	var errs []error
	if s.Namespace == "" {
		errs = append(errs, MissingSettingError("NAMESPACE"))
	}
	if s.RolloutTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: rollout timeout must be positive, got %s", ErrInvalidSetting, s.RolloutTimeout))
	}
	if s.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: poll interval must be positive, got %s", ErrInvalidSetting, s.PollInterval))
	}
	if s.ReconcileAttempts == 0 {
		errs = append(errs, fmt.Errorf("%w: reconcile attempts must be at least 1", ErrInvalidSetting))
	}
	return errors.Join(errs...)
}

// BuildSettings returns a zero-valued Settings obj if error is encountered when parsing env
func BuildSettings() (*Settings, error) {
	settings := &Settings{}
	if err := envconfig.Process(Prefix, settings); err != nil {
		return settings, err
	}
	return settings, settings.Validate()
}
