package checker

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	"go.uber.org/zap"
)

const anonymousUser = "anonymous"

// FTPProbeResult is the raw outcome of an FTP probe.
type FTPProbeResult struct {
	Reachable             bool
	WelcomeMessage        *string
	AnonymousLoginAllowed bool
	DirectoryEntryCount   int
}

// FTPProber connects to an FTP server and tries an anonymous login.
type FTPProber struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewFTPProber returns a prober with the default timeout.
func NewFTPProber(logger *zap.Logger) *FTPProber {
	return &FTPProber{Timeout: consts.FTPProbeTimeout, Logger: logger}
}

// Name returns the name of this probe
func (f *FTPProber) Name() string {
	return "probe ftp"
}

// Probe connects to target, records the greeting and attempts an anonymous
// login. A rejected login still counts as reachable.
func (f *FTPProber) Probe(ctx context.Context, target Target) FTPProbeResult {
	var result FTPProbeResult
	logger := loggerOrNop(f.Logger).With(zap.String("check", f.Name()), zap.String("target", target.Address()))

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = consts.FTPProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()

	rec := &bannerRecorder{}
	var controlOnce sync.Once
	dialer := &net.Dialer{Timeout: timeout}
	dial := func(network, address string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		// jlaffaye/ftp has no per-command deadlines; bound every connection.
		_ = conn.SetDeadline(deadline)
		context.AfterFunc(ctx, func() { _ = conn.Close() })
		wrapped := conn
		controlOnce.Do(func() {
			wrapped = &recordingConn{Conn: conn, rec: rec}
		})
		return wrapped, nil
	}

	conn, err := ftp.Dial(target.Address(),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(timeout),
		ftp.DialWithDialFunc(dial),
	)
	if err != nil {
		logger.Debug("ftp connect failed", zap.Error(err))
		return result
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			logger.Debug("ftp quit failed", zap.Error(err))
		}
	}()

	result.Reachable = true
	result.WelcomeMessage = ftpWelcome(rec.lines())

	if err := conn.Login(anonymousUser, anonymousUser); err != nil {
		logger.Debug("anonymous login rejected", zap.Error(err))
		return result
	}
	result.AnonymousLoginAllowed = true

	entries, err := conn.List("/")
	if err != nil {
		logger.Debug("directory listing failed", zap.Error(err))
		return result
	}
	result.DirectoryEntryCount = len(entries)
	return result
}
