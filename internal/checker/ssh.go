package checker

import (
	"context"
	"errors"
	"net"
	"time"

	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// errHostKeyCaptured aborts the handshake once the host key has been read.
var errHostKeyCaptured = errors.New("host key captured")

// SSHProbeResult is the raw outcome of an SSH probe.
type SSHProbeResult struct {
	Reachable          bool
	ServerBanner       *string
	HostKeyType        *string
	HostKeyFingerprint *string
}

// SSHProber reads the server identification and host key without
// authenticating.
type SSHProber struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewSSHProber returns a prober with the default timeout.
func NewSSHProber(logger *zap.Logger) *SSHProber {
	return &SSHProber{Timeout: consts.SSHProbeTimeout, Logger: logger}
}

// Name returns the name of this probe
func (s *SSHProber) Name() string {
	return "probe ssh"
}

// Probe performs the key exchange with target up to host key delivery.
func (s *SSHProber) Probe(ctx context.Context, target Target) SSHProbeResult {
	var result SSHProbeResult
	logger := loggerOrNop(s.Logger).With(zap.String("check", s.Name()), zap.String("target", target.Address()))

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = consts.SSHProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", target.Address())
	if err != nil {
		logger.Debug("ssh connect failed", zap.Error(err))
		return result
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)

	rec := &bannerRecorder{}
	var keyType, fingerprint string
	config := &ssh.ClientConfig{
		User: anonymousUser,
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			keyType = key.Type()
			fingerprint = ssh.FingerprintSHA256(key)
			return errHostKeyCaptured
		},
		Timeout: timeout,
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(&recordingConn{Conn: conn, rec: rec}, target.Address(), config)
	if err == nil {
		go ssh.DiscardRequests(reqs)
		go func() {
			for ch := range chans {
				_ = ch.Reject(ssh.Prohibited, "probe only")
			}
		}()
		_ = clientConn.Close()
	}
	if fingerprint == "" {
		logger.Debug("ssh handshake failed before host key", zap.Error(err))
		return result
	}

	result.Reachable = true
	result.ServerBanner = sshIdentification(rec.lines())
	result.HostKeyType = &keyType
	result.HostKeyFingerprint = &fingerprint
	return result
}
