package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"fieldproof/internal/platform/config"
	dErrors "fieldproof/pkg/domain-errors"
)

// Client calls the HTTP geocoding service. Every request is bounded by the
// configured timeout on top of whatever deadline the caller supplies.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.GeocoderConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Resolve(ctx context.Context, addressText string) (Result, error) {
	if addressText == "" {
		return Result{}, dErrors.New(dErrors.CodeInvalidInput, "address text is required")
	}

	endpoint := fmt.Sprintf("%s/resolve?q=%s", c.baseURL, url.QueryEscape(addressText))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build geocode request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "geocoding service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Result{}, dErrors.New(dErrors.CodeNotFound, "address could not be resolved")
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, dErrors.Newf(dErrors.CodeUnavailable, "geocoding service returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed geocode response")
	}
	return result, nil
}
