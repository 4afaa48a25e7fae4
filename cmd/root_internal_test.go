package cmd

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func TestStoreAndGetAppContext(t *testing.T) {
	original := globalAppContext
	defer func() {
		globalAppContext = original
	}()

	cmd := &cobra.Command{Use: "root"}
	appCtx := &AppContext{Logger: zap.NewNop(), Config: newCLIConfig()}

	storeAppContext(cmd, appCtx)

	if got := getAppContext(cmd); got != appCtx {
		t.Fatalf("expected stored app context to be returned")
	}
	if got := getAppContext(&cobra.Command{Use: "other"}); got != appCtx {
		t.Fatalf("expected global app context as fallback")
	}
}

func TestAppContextServices(t *testing.T) {
	cfg := newCLIConfig()
	appCtx := &AppContext{Logger: zap.NewNop(), Config: cfg}
	first, err := appCtx.Services()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := appCtx.Services()
	if first != second || first.ScanService == nil {
		t.Fatal("services should be built once and reused")
	}

	bad := newCLIConfig()
	bad.Endpoints.VirusTotal = "ftp://nope"
	if _, err := (&AppContext{Logger: zap.NewNop(), Config: bad}).Services(); err == nil {
		t.Fatal("expected invalid endpoint error")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.env")
	if err := os.WriteFile(path, []byte("LINKGUARD_TEST_ENV_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("LINKGUARD_TEST_ENV_KEY", "")
	os.Unsetenv("LINKGUARD_TEST_ENV_KEY")

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("LINKGUARD_TEST_ENV_KEY"); got != "from-dotenv" {
		t.Fatalf("expected value from dotenv, got %q", got)
	}

	if err := loadEnvFile(filepath.Join(dir, "missing.env")); err == nil {
		t.Fatal("explicit missing env file should fail")
	}

	t.Chdir(dir)
	if err := loadEnvFile(""); err != nil {
		t.Fatalf("missing default .env should be ignored, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	quiet, err := newLogger(false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quiet.Core().Enabled(zap.InfoLevel) {
		t.Fatal("quiet logger should drop info logs")
	}
	debug, err := newLogger(true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !debug.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug logger should emit debug logs")
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	if got := out.String(); got != "linkguard version "+Version+"\n" {
		t.Fatalf("unexpected version output %q", got)
	}
}

func TestServeUntilDone(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveUntilDone(ctx, srv, time.Second, func(format string, a ...any) {})
	}()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("graceful shutdown failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
