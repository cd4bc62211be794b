// Package apim holds the slice of the product management API the gateways
// need: services, their mapping rules and the applications subscribed to them.
package apim

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a service does not exist in the portal.
var ErrNotFound = errors.New("not found")

// Service is a product service a gateway proxies.
type Service struct {
	ID         int64
	SystemName string
	// Backend is the upstream URL the gateway forwards to.
	Backend string
}

// Identifier is the name used for resources created per service, such as
// the {id}-staging and {id}-production routes.
func (s Service) Identifier() string {
	if s.SystemName != "" {
		return s.SystemName
	}
	return "service-" + itoa(s.ID)
}

// MappingRule maps a method and path pattern to a metric increment.
type MappingRule struct {
	ID         int64  `json:"id"`
	HTTPMethod string `json:"http_method"`
	Pattern    string `json:"pattern"`
	MetricID   int64  `json:"metric_id"`
	Delta      int64  `json:"delta"`
	Last       bool   `json:"last"`
}

// Application holds the credentials of one subscription to a service.
type Application struct {
	ID            int64  `json:"id"`
	ServiceID     int64  `json:"service_id"`
	UserKey       string `json:"user_key,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
}

// Client reads product configuration.
type Client interface {
	MappingRules(ctx context.Context, serviceID int64) ([]MappingRule, error)
	Applications(ctx context.Context, serviceID int64) ([]Application, error)
}
