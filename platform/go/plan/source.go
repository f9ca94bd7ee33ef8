package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PlanInfo is the slim payload of the secondary plan endpoint. It is served
// from the tenant registry and stays available during billing backend
// rollouts, which is why the fallback path trusts it.
type PlanInfo struct {
	PlanType PlanType `json:"planType"`
}

// UsageSource is the quota endpoint boundary: an authoritative usage call
// plus a more stable plan lookup used as the fallback source of truth.
type UsageSource interface {
	Usage(ctx context.Context, tenantRef string) (PlanUsage, error)
	Plan(ctx context.Context, tenantRef string) (PlanInfo, error)
}

// HTTPSource talks to the billing backend over HTTP.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource constructs an HTTPSource. client may be nil, in which case a
// client with a conservative timeout is used; quota checks sit in front of
// user actions and must not hang them.
func NewHTTPSource(baseURL string, client *http.Client) (*HTTPSource, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("billing base url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPSource{baseURL: baseURL, client: client}, nil
}

func (s *HTTPSource) Usage(ctx context.Context, tenantRef string) (PlanUsage, error) {
	var usage PlanUsage
	if err := s.getJSON(ctx, fmt.Sprintf("/tenants/%s/usage", url.PathEscape(tenantRef)), &usage); err != nil {
		return PlanUsage{}, err
	}

	// Re-derive the stat invariants locally: only plan type and raw counts
	// are trusted from the wire.
	return BuildPlanUsage(usage.PlanType, usage.Usage.Barbers.Current, usage.Usage.Appointments.Current), nil
}

func (s *HTTPSource) Plan(ctx context.Context, tenantRef string) (PlanInfo, error) {
	var info PlanInfo
	if err := s.getJSON(ctx, fmt.Sprintf("/tenants/%s/plan", url.PathEscape(tenantRef)), &info); err != nil {
		return PlanInfo{}, err
	}
	return info, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build billing request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call billing backend: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("billing backend %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode billing response: %w", err)
	}
	return nil
}
