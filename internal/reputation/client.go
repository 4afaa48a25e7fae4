// Package reputation wraps the third-party reputation services consulted
// during a scan. Every client follows the same contract: no API key means
// key_missing without a request, a usable answer is returned as a typed
// result, and anything else is an error wrapping ErrServiceUnavailable.
package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	serrors "github.com/khanhnv2901/linkguard/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Service names as reported in degraded_services.
const (
	ServiceSafeBrowsing = "google_safe_browsing"
	ServiceVirusTotal   = "virustotal"
	ServiceAbuseIPDB    = "abuseipdb"
	ServiceURLScan      = "urlscan"
)

const maxResponseBytes = 1 << 20

// Config configures one reputation client.
type Config struct {
	APIKey     string
	BaseURL    string       // Optional, defaults to the public endpoint
	HTTPClient *http.Client // Optional, shared between clients
	RateLimit  float64      // Requests per second, zero for unlimited
	Burst      int
	Logger     *zap.Logger
}

// NewHTTPClient returns the client shared by all reputation services.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: consts.ReputationTimeout}
}

type client struct {
	service string
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func newClient(service, defaultBaseURL string, cfg Config) client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return client{
		service: service,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(base, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With(zap.String("service", service)),
	}
}

// Enabled reports whether an API key is configured.
func (c *client) Enabled() bool {
	return c.apiKey != ""
}

// Name returns the service name used in degraded_services.
func (c *client) Name() string {
	return c.service
}

func (c *client) endpoint(path string) string {
	return c.baseURL + path
}

// do sends req after waiting for the limiter. Transport failures are wrapped
// as service errors; the caller owns the response body.
func (c *client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(err)
	}
	req = req.WithContext(ctx)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", consts.ClientID+"/"+consts.ClientVersion)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(err)
	}
	c.logger.Debug("reputation request",
		zap.String("method", req.Method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))
	return resp, nil
}

// doJSON sends req and decodes a 2xx JSON body into out.
func (c *client) doJSON(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return c.fail(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return c.fail(fmt.Errorf("%w: %v", serrors.ErrUnexpectedPayload, err))
	}
	return nil
}

func (c *client) fail(err error) error {
	c.logger.Warn("reputation service failed", zap.Error(err))
	return fmt.Errorf("%s request failed: %w: %w", c.service, serrors.ErrServiceUnavailable, err)
}
