package constants

import "time"

const (
	// HTTPProbeRequestTimeout bounds each individual HEAD/GET attempt.
	HTTPProbeRequestTimeout = 5 * time.Second
	// HTTPProbeBudget bounds the HEAD attempt plus its single GET fallback.
	HTTPProbeBudget = 10 * time.Second
	// HTTPMaxRedirects caps the redirect chain followed by the HTTP probe.
	HTTPMaxRedirects = 10
	// MaxBodyBytes caps how much of a fetched page is kept for content inspection.
	MaxBodyBytes = 2 << 20

	// TLSHandshakeTimeout bounds the certificate handshake on port 443.
	TLSHandshakeTimeout = 3 * time.Second
	// FTPProbeTimeout bounds the whole FTP session.
	FTPProbeTimeout = 10 * time.Second
	// SSHProbeTimeout bounds the SSH key exchange.
	SSHProbeTimeout = 5 * time.Second

	// DNSTimeout bounds address resolution.
	DNSTimeout = 5 * time.Second
	// RegistrationTimeout bounds the RDAP registration lookup.
	RegistrationTimeout = 8 * time.Second
	// ReputationTimeout bounds every reputation API call.
	ReputationTimeout = 10 * time.Second

	// ScanCeiling is the outer ceiling of one aggregation. It sits above the
	// slowest permitted component (the FTP probe) so that component can finish.
	ScanCeiling = 15 * time.Second
)

// Default ports per scheme.
const (
	DefaultHTTPPort  = 80
	DefaultHTTPSPort = 443
	DefaultFTPPort   = 21
	DefaultSSHPort   = 22
)

// Upstream reputation endpoints.
const (
	SafeBrowsingBaseURL = "https://safebrowsing.googleapis.com"
	VirusTotalBaseURL   = "https://www.virustotal.com"
	AbuseIPDBBaseURL    = "https://api.abuseipdb.com"
	URLScanBaseURL      = "https://urlscan.io"

	// ClientID identifies this tool to Safe Browsing.
	ClientID      = "linkguard"
	ClientVersion = "1.0"
)
