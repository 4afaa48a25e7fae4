package checker

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func mustTarget(t *testing.T, raw string) Target {
	t.Helper()
	target, err := ParseTarget(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return target
}

func TestHTTPProberHeadSuccessFetchesContent(t *testing.T) {
	var heads, gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.Method {
		case http.MethodHead:
			atomic.AddInt32(&heads, 1)
		case http.MethodGet:
			atomic.AddInt32(&gets, 1)
			_, _ = w.Write([]byte("<html><iframe></iframe></html>"))
		}
	}))
	defer srv.Close()

	prober := NewHTTPProber(zaptest.NewLogger(t))
	result := prober.Probe(context.Background(), mustTarget(t, srv.URL+"/"))

	if !result.Reachable {
		t.Fatal("expected reachable")
	}
	if result.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", result.StatusCode)
	}
	if string(result.Body) != "<html><iframe></iframe></html>" {
		t.Fatalf("unexpected body %q", result.Body)
	}
	if atomic.LoadInt32(&heads) != 1 || atomic.LoadInt32(&gets) != 1 {
		t.Fatalf("expected one HEAD and one GET, got %d/%d", heads, gets)
	}
}

func TestHTTPProberSkipsContentForNonHTML(t *testing.T) {
	var gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		if r.Method == http.MethodGet {
			atomic.AddInt32(&gets, 1)
		}
	}))
	defer srv.Close()

	result := NewHTTPProber(nil).Probe(context.Background(), mustTarget(t, srv.URL))
	if !result.Reachable {
		t.Fatal("expected reachable")
	}
	if result.Body != nil || atomic.LoadInt32(&gets) != 0 {
		t.Fatalf("expected no content fetch, body=%q gets=%d", result.Body, gets)
	}
}

func TestHTTPProberFallsBackToGet(t *testing.T) {
	var gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		atomic.AddInt32(&gets, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	result := NewHTTPProber(zaptest.NewLogger(t)).Probe(context.Background(), mustTarget(t, srv.URL))
	if !result.Reachable || result.StatusCode != http.StatusOK {
		t.Fatalf("expected GET fallback to succeed, got %+v", result)
	}
	if string(result.Body) != "<p>ok</p>" {
		t.Fatalf("unexpected body %q", result.Body)
	}
	if atomic.LoadInt32(&gets) != 1 {
		t.Fatalf("expected exactly one GET, got %d", gets)
	}
}

func TestHTTPProberErrorStatusStillReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	result := NewHTTPProber(nil).Probe(context.Background(), mustTarget(t, srv.URL))
	if !result.Reachable {
		t.Fatal("a server answering 404 is still reachable")
	}
	if result.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", result.StatusCode)
	}
}

func TestHTTPProberFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	result := NewHTTPProber(nil).Probe(context.Background(), mustTarget(t, srv.URL+"/start"))
	if result.RedirectCount != 2 {
		t.Fatalf("expected 2 redirects, got %d", result.RedirectCount)
	}
	if result.FinalURL != srv.URL+"/end" {
		t.Fatalf("unexpected final url %q", result.FinalURL)
	}
}

func TestHTTPProberRedirectLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer srv.Close()

	prober := NewHTTPProber(nil)
	prober.MaxRedirects = 3
	target := mustTarget(t, srv.URL+"/loop")
	result := prober.Probe(context.Background(), target)
	if result.Reachable {
		t.Fatalf("expected redirect loop to be unreachable, got %+v", result)
	}
	if result.FinalURL != target.URL || result.RedirectCount != 0 {
		t.Fatalf("expected input url and zero redirects, got %q/%d", result.FinalURL, result.RedirectCount)
	}
}

func TestHTTPProberUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	target := mustTarget(t, "http://"+addr+"/x")
	prober := &HTTPProber{RequestTimeout: time.Second, Budget: 2 * time.Second}
	result := prober.Probe(context.Background(), target)
	if result.Reachable {
		t.Fatal("expected unreachable")
	}
	if result.FinalURL != target.URL || result.RedirectCount != 0 || result.Body != nil {
		t.Fatalf("unexpected unreachable result %+v", result)
	}
}

func TestHTTPProberNoFallbackOnTransportError(t *testing.T) {
	var gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			atomic.AddInt32(&gets, 1)
			return
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	result := NewHTTPProber(zaptest.NewLogger(t)).Probe(context.Background(), mustTarget(t, srv.URL))
	if result.Reachable {
		t.Fatalf("expected unreachable after head transport error, got %+v", result)
	}
	if n := atomic.LoadInt32(&gets); n != 0 {
		t.Fatalf("expected no get fallback, got %d", n)
	}
}

func TestIsHTML(t *testing.T) {
	tests := map[string]bool{
		"":                         true,
		"text/html":                true,
		"text/html; charset=utf-8": true,
		"application/xhtml+xml":    true,
		"application/json":         false,
		"image/png":                false,
	}
	for ct, want := range tests {
		if got := isHTML(ct); got != want {
			t.Errorf("isHTML(%q) = %v, want %v", ct, got, want)
		}
	}
}
