package checker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	"go.uber.org/zap"
)

// HTTPProbeResult is the raw outcome of an HTTP reachability probe.
type HTTPProbeResult struct {
	Reachable     bool
	StatusCode    int
	FinalURL      string
	RedirectCount int
	ContentType   string
	Body          []byte // nil when no body was fetched
}

// HTTPProber performs the HEAD-then-GET reachability probe.
type HTTPProber struct {
	RequestTimeout time.Duration // Per-request timeout
	Budget         time.Duration // Combined budget for HEAD and GET
	MaxRedirects   int
	// FetchContent fetches the page body with a GET when HEAD already
	// succeeded, so the content inspector has something to parse.
	FetchContent bool
	Transport    http.RoundTripper // Optional, for tests
	Logger       *zap.Logger
}

// NewHTTPProber returns a prober with the default budgets.
func NewHTTPProber(logger *zap.Logger) *HTTPProber {
	return &HTTPProber{
		RequestTimeout: consts.HTTPProbeRequestTimeout,
		Budget:         consts.HTTPProbeBudget,
		MaxRedirects:   consts.HTTPMaxRedirects,
		FetchContent:   true,
		Logger:         logger,
	}
}

// Name returns the name of this probe
func (h *HTTPProber) Name() string {
	return "probe http"
}

// Probe checks whether target answers over HTTP. Network failures are
// reported as an unreachable result, never as an error.
func (h *HTTPProber) Probe(ctx context.Context, target Target) HTTPProbeResult {
	result := HTTPProbeResult{FinalURL: target.URL}
	logger := loggerOrNop(h.Logger).With(zap.String("check", h.Name()), zap.String("target", target.URL))

	budget := h.Budget
	if budget <= 0 {
		budget = consts.HTTPProbeBudget
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	client := h.newClient()

	// Try HEAD first (cheap, no body)
	head, err := h.do(ctx, client, http.MethodHead, target.URL, false)
	if err != nil {
		logger.Debug("head request failed", zap.Error(err))
		return result
	}

	if head.statusCode < http.StatusBadRequest {
		result.apply(head)
		if h.FetchContent && isHTML(head.contentType) {
			page, err := h.do(ctx, client, http.MethodGet, head.finalURL, true)
			if err != nil {
				logger.Debug("content fetch failed", zap.Error(err))
			} else if page.statusCode < http.StatusBadRequest {
				result.Body = page.body
			}
		}
		return result
	}

	// HEAD was rejected: one GET fallback
	get, err := h.do(ctx, client, http.MethodGet, target.URL, true)
	if err != nil {
		logger.Debug("get fallback failed", zap.Error(err))
		// The server did answer the HEAD, even if with an error status.
		result.apply(head)
		return result
	}
	result.apply(get)
	result.Body = get.body
	return result
}

type httpAttempt struct {
	statusCode    int
	finalURL      string
	redirectCount int
	contentType   string
	body          []byte
}

func (r *HTTPProbeResult) apply(a *httpAttempt) {
	r.Reachable = true
	r.StatusCode = a.statusCode
	r.FinalURL = a.finalURL
	r.RedirectCount = a.redirectCount
	r.ContentType = a.contentType
}

func (h *HTTPProber) newClient() *http.Client {
	transport := h.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			TLSHandshakeTimeout: consts.TLSHandshakeTimeout,
			DisableKeepAlives:   true,
		}
	}
	return &http.Client{Transport: transport}
}

func (h *HTTPProber) do(ctx context.Context, client *http.Client, method, target string, readBody bool) (*httpAttempt, error) {
	timeout := h.RequestTimeout
	if timeout <= 0 {
		timeout = consts.HTTPProbeRequestTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxRedirects := h.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = consts.HTTPMaxRedirects
	}

	redirects := 0
	// Redirects are counted per attempt.
	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		redirects = len(via)
		return nil
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("User-Agent", "linkguard/"+consts.ClientVersion)

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	attempt := &httpAttempt{
		statusCode:    resp.StatusCode,
		finalURL:      resp.Request.URL.String(),
		redirectCount: redirects,
		contentType:   resp.Header.Get("Content-Type"),
	}

	if readBody {
		body, err := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
		if err != nil {
			// Partial bodies are still usable for inspection
			loggerOrNop(h.Logger).Debug("partial body read", zap.String("url", target), zap.Error(err))
		}
		attempt.body = body
	} else {
		// Discard response body - ignore errors as this is just cleanup
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	return attempt, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
