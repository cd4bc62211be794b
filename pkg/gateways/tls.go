package gateways

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/kgateway-dev/gwsuite/pkg/certificates"
	"github.com/kgateway-dev/gwsuite/pkg/cluster"
	"github.com/kgateway-dev/gwsuite/pkg/utils/kubeutils"
)

const httpsPort int32 = 8443

// tlsGateway decorates a templated apicast with a generated certificate
// and an HTTPS port.
type tlsGateway struct {
	*apicast
	certs *certificates.Manager
	ca    *certificates.Certificate

	cert *certificates.Certificate
}

// NewTLS returns a templated apicast serving HTTPS. Its certificate is issued
// by cfg.Certificates and signed by cfg.CA.
func NewTLS(staging bool, cfg Config) (Gateway, error) {
	if cfg.Certificates == nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, TLS, certificates.ErrCertificateRequired)
	}
	inner, err := newTemplated(TLS, staging, cfg, func(g *apicast, vals map[string]any) {
		vals["tls"] = map[string]any{
			"enabled":    true,
			"secretName": tlsSecretName(g.name),
			"port":       httpsPort,
		}
	})
	if err != nil {
		return nil, err
	}
	inner.scheme = "https"
	inner.port = httpsPort
	return &tlsGateway{apicast: inner, certs: cfg.Certificates, ca: cfg.CA}, nil
}

func tlsSecretName(name string) string {
	return name + "-tls"
}

// Certificate returns the certificate served by the gateway, once created.
func (g *tlsGateway) Certificate() *certificates.Certificate {
	return g.cert
}

func (g *tlsGateway) Create(ctx context.Context) error {
	return g.create(ctx, func(ctx context.Context) error {
		if err := g.issue(ctx); err != nil {
			return err
		}
		if err := g.provision(ctx); err != nil {
			return err
		}
		svc := &corev1.Service{ObjectMeta: objectMeta(g.name)}
		return g.cluster.JSONPatch(ctx, svc, cluster.Add("/spec/ports/-", map[string]any{
			"name":       "https",
			"port":       httpsPort,
			"targetPort": "https",
		}))
	})
}

// issue creates the certificate and stores it in the TLS secret.
func (g *tlsGateway) issue(ctx context.Context) error {
	svc := objectMeta(g.name)
	svc.Namespace = g.cluster.Namespace
	hosts := []string{g.name, kubeutils.ServiceHostname(g.name, g.cluster.Namespace), kubeutils.ServiceFQDN(svc)}
	if g.settings.WildcardDomain != "" {
		hosts = append(hosts, "*."+g.settings.WildcardDomain)
	}
	cert, err := g.certs.Create(ctx, g.name, certificates.Request{
		CommonName: g.name,
		Hosts:      hosts,
		CA:         g.ca,
	})
	if err != nil {
		return err
	}
	g.cert = cert
	g.ownSecret(tlsSecretName(g.name))
	return g.cluster.ApplySecret(ctx, tlsSecretName(g.name), corev1.SecretTypeTLS, cert.TLSSecretData(), g.labels())
}

func (g *tlsGateway) Destroy(ctx context.Context) error {
	return g.destroy(ctx, func(ctx context.Context) error {
		return errors.Join(g.teardown(ctx), g.certs.Delete(g.name))
	})
}
