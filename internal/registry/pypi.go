package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultPyPIURL is the public Python Package Index.
const DefaultPyPIURL = "https://pypi.org"

// PyPIClient looks packages up through the PyPI JSON API.
type PyPIClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// pypiProject is the subset of GET /pypi/{name}/json the client reads.
type pypiProject struct {
	Info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Summary string `json:"summary"`
	} `json:"info"`
}

// NewPyPIClient creates a client for the registry at baseURL.
// A zero timeout leaves the request bounded only by ctx.
func NewPyPIClient(baseURL string, timeout time.Duration) *PyPIClient {
	if baseURL == "" {
		baseURL = DefaultPyPIURL
	}
	return &PyPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "depseed",
	}
}

// Search returns the project named name, or no match when PyPI answers 404.
func (c *PyPIClient) Search(ctx context.Context, name string) ([]Package, error) {
	if strings.TrimSpace(name) == "" {
		return []Package{}, nil
	}

	endpoint := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry lookup for %s failed: %w", name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return []Package{}, nil
	default:
		return nil, fmt.Errorf("%w: lookup for %s returned %d %s", ErrUnexpectedStatus, name, resp.StatusCode, resp.Status)
	}

	var project pypiProject
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		return nil, fmt.Errorf("failed to decode registry response for %s: %w", name, err)
	}

	pkg := Package{
		Name:    project.Info.Name,
		Version: project.Info.Version,
		Summary: project.Info.Summary,
	}
	if pkg.Name == "" {
		pkg.Name = name
	}
	return []Package{pkg}, nil
}
