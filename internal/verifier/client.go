package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultCheckerURL is TradingView's public light-weight Pine translator.
const DefaultCheckerURL = "https://pine-facade.tradingview.com/pine-facade/translate_light?user_name=Guest&pine_id=00000000-0000-0000-0000-000000000000"

const maxCheckerResponseBytes = 4 << 20

// Checker defines the interface for the external syntax checker
type Checker interface {
	Check(ctx context.Context, script string) (*CheckResult, error)
}

// CheckResult is the checker's structured response
type CheckResult struct {
	Success bool          `json:"success"`
	Reason  *string       `json:"reason,omitempty"`
	Result  *CheckDetails `json:"result,omitempty"`
}

// CheckDetails holds compilation diagnostics
type CheckDetails struct {
	Errors []CheckError `json:"errors,omitempty"`
}

// CheckError is a single compilation error
type CheckError struct {
	Message string    `json:"message"`
	Start   *Position `json:"start,omitempty"`
	End     *Position `json:"end,omitempty"`
}

// Position is a location in the submitted script
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// HTTPChecker submits scripts to a pine-facade compatible endpoint.
type HTTPChecker struct {
	url        string
	httpClient *http.Client
}

// NewHTTPChecker creates a checker client for checkerURL
func NewHTTPChecker(checkerURL string, httpClient *http.Client) *HTTPChecker {
	if checkerURL == "" {
		checkerURL = DefaultCheckerURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPChecker{url: checkerURL, httpClient: httpClient}
}

// URL returns the checker endpoint
func (c *HTTPChecker) URL() string {
	return c.url
}

// Check posts the script as form field "source" and decodes the verdict.
func (c *HTTPChecker) Check(ctx context.Context, script string) (*CheckResult, error) {
	form := url.Values{"source": {script}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create checker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "https://www.tradingview.com/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checker request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCheckerResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read checker response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("checker returned status %d", resp.StatusCode)
	}

	var result CheckResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode checker response: %w", err)
	}
	return &result, nil
}

// Ping reports whether the checker host answers HTTP at all. Any status
// below 500 counts as reachable since the endpoint only accepts POST.
func (c *HTTPChecker) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create checker request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("checker unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("checker returned status %d", resp.StatusCode)
	}
	return nil
}
