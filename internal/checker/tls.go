package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	"go.uber.org/zap"
)

const (
	sslErrExpired = "certificate expired"
	sslErrGeneric = "SSL validation failed"
)

// versionSSL30 represents the legacy SSL 3.0 protocol version (0x0300).
// Defined locally so we can report SSL 3.0 without referencing the
// deprecated tls.VersionSSL30 symbol.
const versionSSL30 uint16 = 0x0300

// TLSInspector performs a verified TLS handshake to read the leaf certificate.
type TLSInspector struct {
	Timeout time.Duration
	Port    int            // Defaults to 443
	RootCAs *x509.CertPool // Optional, nil uses the system pool
	Logger  *zap.Logger
	// Now returns the evaluation time. Defaults to time.Now.
	Now func() time.Time
}

// NewTLSInspector returns an inspector with the default handshake timeout.
func NewTLSInspector(logger *zap.Logger) *TLSInspector {
	return &TLSInspector{
		Timeout: consts.TLSHandshakeTimeout,
		Port:    consts.DefaultHTTPSPort,
		Logger:  logger,
	}
}

// Name returns the name of this probe
func (t *TLSInspector) Name() string {
	return "probe tls"
}

// Inspect handshakes with hostname and reports certificate validity. Failures
// are reduced to one of two fixed reasons; transport errors are only logged.
func (t *TLSInspector) Inspect(ctx context.Context, hostname string) scan.SSLInfo {
	logger := loggerOrNop(t.Logger).With(zap.String("check", t.Name()), zap.String("host", hostname))
	if hostname == "" {
		return scan.SSLInfo{Error: sslErrGeneric}
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = consts.TLSHandshakeTimeout
	}
	port := t.Port
	if port <= 0 {
		port = consts.DefaultHTTPSPort
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			ServerName: hostname,
			RootCAs:    t.RootCAs,
			MinVersion: tls.VersionTLS10,
		},
	}

	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(hostname, strconv.Itoa(port)))
	if err != nil {
		logger.Debug("tls handshake failed", zap.Error(err))
		if isExpiredCertError(err) {
			return scan.SSLInfo{Error: sslErrExpired}
		}
		return scan.SSLInfo{Error: sslErrGeneric}
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return scan.SSLInfo{Error: sslErrGeneric}
	}
	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return scan.SSLInfo{Error: sslErrGeneric}
	}

	return certificateInfo(state, t.now())
}

func (t *TLSInspector) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func certificateInfo(state tls.ConnectionState, now time.Time) scan.SSLInfo {
	cert := state.PeerCertificates[0]
	if cert.NotAfter.Before(now) {
		return scan.SSLInfo{Error: sslErrExpired}
	}
	expires := cert.NotAfter.UTC()
	return scan.SSLInfo{
		Valid:       true,
		Issuer:      cert.Issuer.String(),
		Subject:     cert.Subject.String(),
		Expires:     &expires,
		TLSVersion:  tlsVersionString(state.Version),
		CipherSuite: cipherSuiteString(state.CipherSuite),
	}
}

func isExpiredCertError(err error) bool {
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) {
		return invalid.Reason == x509.Expired
	}
	var verify *tls.CertificateVerificationError
	if errors.As(err, &verify) {
		return isExpiredCertError(verify.Err)
	}
	return false
}

// tlsVersionString converts TLS version constant to string
func tlsVersionString(version uint16) string {
	switch version {
	case versionSSL30:
		return "SSL 3.0"
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}

// cipherSuiteString converts cipher suite constant to string
func cipherSuiteString(suite uint16) string {
	if name := tls.CipherSuiteName(suite); name != "" {
		return name
	}
	return fmt.Sprintf("Unknown (0x%04x)", suite)
}
