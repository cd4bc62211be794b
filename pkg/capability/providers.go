package capability

import (
	"context"
	"net/http"
	"net/url"
)

// JaegerProvider answers for Jaeger. The capability is present when a query
// endpoint is configured and answers its services API.
func JaegerProvider(endpoint string, client *http.Client) *Provider {
	if client == nil {
		client = http.DefaultClient
	}
	return NewProvider("jaeger", func(ctx context.Context) (Set, error) {
		if endpoint == "" {
			return NewSet(), nil
		}
		u, err := url.JoinPath(endpoint, "api", "services")
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			logger.Info("jaeger is configured but unreachable", "endpoint", endpoint, "error", err)
			return NewSet(), nil
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			logger.Info("jaeger answered with unexpected status", "endpoint", endpoint, "status", resp.StatusCode)
			return NewSet(), nil
		}
		return NewSet(Jaeger), nil
	}, Jaeger)
}
