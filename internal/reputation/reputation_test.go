package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	serrors "github.com/khanhnv2901/linkguard/internal/shared/errors"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T, srv *httptest.Server, key string) Config {
	t.Helper()
	return Config{
		APIKey:     key,
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Logger:     zaptest.NewLogger(t),
	}
}

func failingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func closedServerURL(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv
}

func TestKeyMissingSendsNoRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()
	cfg := testConfig(t, srv, "")
	ctx := context.Background()

	if v, err := NewSafeBrowsing(cfg).Lookup(ctx, "http://x.example"); err != nil || v != scan.ReputationKeyMissing {
		t.Fatalf("safe browsing: got %s, %v", v, err)
	}
	if v, err := NewVirusTotal(cfg).Analyze(ctx, "http://x.example"); err != nil || v != scan.ReputationKeyMissing {
		t.Fatalf("virustotal: got %s, %v", v, err)
	}
	if r, err := NewAbuseIPDB(cfg).Check(ctx, "192.0.2.1"); err != nil || r.Status != scan.StatusKeyMissing {
		t.Fatalf("abuseipdb: got %+v, %v", r, err)
	}
	if r, err := NewURLScan(cfg).Submit(ctx, "http://x.example"); err != nil || r.Status != scan.StatusKeyMissing {
		t.Fatalf("urlscan: got %+v, %v", r, err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls)
	}
}

func TestSafeBrowsingLookup(t *testing.T) {
	tests := []struct {
		name string
		body string
		want scan.ReputationVerdict
	}{
		{name: "match", body: `{"matches":[{"threatType":"MALWARE"}]}`, want: scan.ReputationMalicious},
		{name: "empty object", body: `{}`, want: scan.ReputationClean},
		{name: "empty matches", body: `{"matches":[]}`, want: scan.ReputationClean},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/v4/threatMatches:find" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if r.URL.Query().Get("key") != "sb-key" {
					t.Errorf("expected key in query, got %q", r.URL.RawQuery)
				}
				var payload threatMatchRequest
				if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
					t.Errorf("decode payload: %v", err)
				}
				if len(payload.ThreatInfo.ThreatEntries) != 1 || payload.ThreatInfo.ThreatEntries[0].URL != "http://phish.example/login" {
					t.Errorf("unexpected threat entries %+v", payload.ThreatInfo.ThreatEntries)
				}
				if len(payload.ThreatInfo.ThreatTypes) != 3 {
					t.Errorf("expected 3 threat types, got %v", payload.ThreatInfo.ThreatTypes)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewSafeBrowsing(testConfig(t, srv, "sb-key")).Lookup(context.Background(), "http://phish.example/login")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSafeBrowsingServiceErrors(t *testing.T) {
	for name, srv := range map[string]*httptest.Server{
		"http 500":  failingServer(t, http.StatusInternalServerError),
		"transport": closedServerURL(t),
	} {
		t.Run(name, func(t *testing.T) {
			v, err := NewSafeBrowsing(testConfig(t, srv, "k")).Lookup(context.Background(), "http://x.example")
			if !serrors.IsServiceError(err) {
				t.Fatalf("expected service error, got %v", err)
			}
			if v != scan.ReputationError {
				t.Fatalf("expected error verdict, got %s", v)
			}
		})
	}
}

func TestAnalysisStatsClassify(t *testing.T) {
	tests := []struct {
		stats AnalysisStats
		want  scan.ReputationVerdict
	}{
		{AnalysisStats{Malicious: 2}, scan.ReputationMalicious},
		{AnalysisStats{Malicious: 1}, scan.ReputationSuspicious},
		{AnalysisStats{Suspicious: 3}, scan.ReputationSuspicious},
		{AnalysisStats{Harmless: 70, Undetected: 10}, scan.ReputationClean},
	}
	for _, tt := range tests {
		if got := tt.stats.Classify(); got != tt.want {
			t.Errorf("Classify(%+v) = %s, want %s", tt.stats, got, tt.want)
		}
	}
}

func TestVirusTotalAnalyze(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/urls", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("x-apikey") != "vt-key" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		if form.Get("url") != "http://bad.example" {
			t.Errorf("unexpected form %q", body)
		}
		_, _ = w.Write([]byte(`{"data":{"type":"analysis","id":"u-abc-123"}}`))
	})
	mux.HandleFunc("/api/v3/analyses/u-abc-123", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"attributes":{"stats":{"malicious":5,"suspicious":0,"harmless":60,"undetected":10}}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	got, err := NewVirusTotal(testConfig(t, srv, "vt-key")).Analyze(context.Background(), "http://bad.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != scan.ReputationMalicious {
		t.Fatalf("expected malicious, got %s", got)
	}
}

func TestVirusTotalMalformedPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/urls", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"x"}}`))
	})
	mux.HandleFunc("/api/v3/analyses/x", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := NewVirusTotal(testConfig(t, srv, "k")).Analyze(context.Background(), "http://x.example")
	if !errors.Is(err, serrors.ErrUnexpectedPayload) || !serrors.IsServiceError(err) {
		t.Fatalf("expected unexpected payload service error, got %v", err)
	}
}

func TestVirusTotalUnauthorized(t *testing.T) {
	srv := failingServer(t, http.StatusUnauthorized)
	_, err := NewVirusTotal(testConfig(t, srv, "bad")).Analyze(context.Background(), "http://x.example")
	if !serrors.IsServiceError(err) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestAbuseIPDBCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/check" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ipAddress") != "203.0.113.9" || q.Get("maxAgeInDays") != "90" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if r.Header.Get("Key") != "abuse-key" {
			t.Errorf("missing Key header")
		}
		_, _ = w.Write([]byte(`{"data":{"ipAddress":"203.0.113.9","abuseConfidenceScore":87,"totalReports":412,"countryCode":"NL"}}`))
	}))
	defer srv.Close()

	got, err := NewAbuseIPDB(testConfig(t, srv, "abuse-key")).Check(context.Background(), "203.0.113.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := scan.AbuseIPDBResult{Status: scan.StatusPresent, ConfidenceScore: 87, TotalReports: 412, CountryCode: "NL"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestAbuseIPDBNullCountry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"abuseConfidenceScore":0,"totalReports":0,"countryCode":null}}`))
	}))
	defer srv.Close()

	got, err := NewAbuseIPDB(testConfig(t, srv, "k")).Check(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != scan.StatusPresent || got.CountryCode != "" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestAbuseIPDBServiceError(t *testing.T) {
	srv := failingServer(t, http.StatusTooManyRequests)
	got, err := NewAbuseIPDB(testConfig(t, srv, "k")).Check(context.Background(), "10.0.0.1")
	if !serrors.IsServiceError(err) {
		t.Fatalf("expected service error, got %v", err)
	}
	if got.Status != scan.StatusError {
		t.Fatalf("expected error status, got %s", got.Status)
	}
}

func TestURLScanSubmit(t *testing.T) {
	const id = "0e37e828-a9d9-45c0-ac50-1ca579b86c72"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/scan/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("API-Key") != "us-key" {
			t.Errorf("missing API-Key header")
		}
		var payload urlscanSubmission
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.Visibility != "public" || payload.URL != "https://x.example" {
			t.Errorf("unexpected payload %+v", payload)
		}
		_, _ = w.Write([]byte(`{"message":"Submission successful","uuid":"` + id + `","result":"https://urlscan.io/result/` + id + `/"}`))
	}))
	defer srv.Close()

	got, err := NewURLScan(testConfig(t, srv, "us-key")).Submit(context.Background(), "https://x.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != scan.StatusSubmitted || got.ScanID != id {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.ResultURL != "https://urlscan.io/result/"+id+"/" {
		t.Fatalf("unexpected result url %q", got.ResultURL)
	}
}

func TestURLScanRejectedSubmission(t *testing.T) {
	srv := failingServer(t, http.StatusBadRequest)
	got, err := NewURLScan(testConfig(t, srv, "k")).Submit(context.Background(), "https://x.example")
	if err != nil {
		t.Fatalf("a rejected submission is not a service error, got %v", err)
	}
	if got.Status != scan.StatusError || got.Error != "submission failed with status 400" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestURLScanInvalidID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"uuid":"not-a-uuid"}`))
	}))
	defer srv.Close()

	_, err := NewURLScan(testConfig(t, srv, "k")).Submit(context.Background(), "https://x.example")
	if !errors.Is(err, serrors.ErrUnexpectedPayload) {
		t.Fatalf("expected unexpected payload error, got %v", err)
	}
}

func TestURLScanTransportError(t *testing.T) {
	srv := closedServerURL(t)
	_, err := NewURLScan(testConfig(t, srv, "k")).Submit(context.Background(), "https://x.example")
	if !serrors.IsServiceError(err) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestClientRateLimiterHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testConfig(t, srv, "k")
	cfg.RateLimit = 0.001
	cfg.Burst = 1
	sb := NewSafeBrowsing(cfg)

	if _, err := sb.Lookup(context.Background(), "http://a.example"); err != nil {
		t.Fatalf("first call should pass the limiter: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sb.Lookup(ctx, "http://a.example"); !serrors.IsServiceError(err) {
		t.Fatalf("expected limiter wait to fail as service error, got %v", err)
	}
}
