package checker

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/ssh"
)

func startFakeSSHServer(t *testing.T) (Target, ssh.PublicKey) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	config := &ssh.ServerConfig{NoClientAuth: true, ServerVersion: "SSH-2.0-FakeSSH_1.0"}
	config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				_ = c.SetDeadline(time.Now().Add(5 * time.Second))
				// The prober aborts the handshake, so this always fails.
				_, _, _, _ = ssh.NewServerConn(c, config)
			}(conn)
		}
	}()

	target, err := ParseTarget("ssh://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("parse target: %v", err)
	}
	return target, signer.PublicKey()
}

func TestSSHProberCapturesHostKey(t *testing.T) {
	target, key := startFakeSSHServer(t)

	prober := &SSHProber{Timeout: 5 * time.Second, Logger: zaptest.NewLogger(t)}
	result := prober.Probe(t.Context(), target)

	if !result.Reachable {
		t.Fatal("expected reachable")
	}
	if result.HostKeyType == nil || *result.HostKeyType != ssh.KeyAlgoED25519 {
		t.Fatalf("unexpected host key type %v", result.HostKeyType)
	}
	if result.HostKeyFingerprint == nil || *result.HostKeyFingerprint != ssh.FingerprintSHA256(key) {
		t.Fatalf("unexpected fingerprint %v", result.HostKeyFingerprint)
	}
	if result.ServerBanner == nil || *result.ServerBanner != "SSH-2.0-FakeSSH_1.0" {
		t.Fatalf("unexpected banner %v", result.ServerBanner)
	}
}

func TestSSHProberNotSSH(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		conn.Close()
	}()

	target, err := ParseTarget("ssh://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("parse target: %v", err)
	}

	prober := &SSHProber{Timeout: 2 * time.Second}
	result := prober.Probe(t.Context(), target)
	if result.Reachable {
		t.Fatal("expected unreachable for a non-SSH service")
	}
	if result.ServerBanner != nil || result.HostKeyType != nil || result.HostKeyFingerprint != nil {
		t.Fatalf("expected all fields nil, got %+v", result)
	}
}

func TestSSHProberConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	target, err := ParseTarget("ssh://" + addr)
	if err != nil {
		t.Fatalf("parse target: %v", err)
	}
	result := (&SSHProber{Timeout: time.Second}).Probe(t.Context(), target)
	if result.Reachable {
		t.Fatal("expected unreachable")
	}
}

func TestSSHProberHonorsCancellation(t *testing.T) {
	target, err := ParseTarget("ssh://" + silentListener(t))
	if err != nil {
		t.Fatalf("parse target: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	result := (&SSHProber{Timeout: 5 * time.Second}).Probe(ctx, target)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("ssh handshake kept running %v after cancellation", elapsed)
	}
	if result.Reachable {
		t.Fatalf("expected unreachable, got %+v", result)
	}
}

func TestSSHIdentification(t *testing.T) {
	got := sshIdentification([]string{"Welcome banner", "SSH-2.0-OpenSSH_9.6", "garbage"})
	if got == nil || *got != "SSH-2.0-OpenSSH_9.6" {
		t.Fatalf("unexpected identification %v", got)
	}
	if sshIdentification([]string{"HTTP/1.1 200 OK"}) != nil {
		t.Fatal("expected nil for non-SSH lines")
	}
}
