package apim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kgateway-dev/gwsuite/pkg/logging"
)

var logger = logging.New("apim")

// PortalClient reads configuration from the admin portal REST API.
type PortalClient struct {
	base   *url.URL
	token  string
	client *http.Client
}

var _ Client = &PortalClient{}

// NewPortalClient parses endpoint of the form https://TOKEN@admin.example.com.
func NewPortalClient(endpoint string, client *http.Client) (*PortalClient, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing portal endpoint: %w", err)
	}
	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("portal endpoint %s carries no access token", u.Redacted())
	}
	token := u.User.Username()
	u.User = nil
	if client == nil {
		client = http.DefaultClient
	}
	return &PortalClient{base: u, token: token, client: client}, nil
}

func (c *PortalClient) MappingRules(ctx context.Context, serviceID int64) ([]MappingRule, error) {
	var out struct {
		MappingRules []struct {
			MappingRule MappingRule `json:"mapping_rule"`
		} `json:"mapping_rules"`
	}
	path := fmt.Sprintf("/admin/api/services/%d/proxy/mapping_rules.json", serviceID)
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	rules := make([]MappingRule, 0, len(out.MappingRules))
	for _, r := range out.MappingRules {
		rules = append(rules, r.MappingRule)
	}
	return rules, nil
}

func (c *PortalClient) Applications(ctx context.Context, serviceID int64) ([]Application, error) {
	var out struct {
		Applications []struct {
			Application Application `json:"application"`
		} `json:"applications"`
	}
	query := url.Values{"service_id": []string{itoa(serviceID)}}
	if err := c.get(ctx, "/admin/api/applications.json", query, &out); err != nil {
		return nil, err
	}
	apps := make([]Application, 0, len(out.Applications))
	for _, a := range out.Applications {
		apps = append(apps, a.Application)
	}
	return apps, nil
}

func (c *PortalClient) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.token)
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	logger.Debug("portal request", "path", path)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("GET %s: %w", path, ErrNotFound)
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("GET %s: unexpected status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func itoa(i int64) string {
	return strconv.FormatInt(i, 10)
}
