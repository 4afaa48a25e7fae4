package scan

import "time"

// Protocol discriminates the payload carried by an Evidence record.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolFTP  Protocol = "ftp"
	ProtocolSSH  Protocol = "ssh"
)

// Status is the tri-state marker attached to every optional sub-check.
// A field is never silently absent: it is present, clean, or explicitly
// unavailable with the reason recorded next to it.
type Status string

const (
	StatusPresent     Status = "present"
	StatusUnavailable Status = "unavailable"
	StatusSkipped     Status = "skipped"
	StatusKeyMissing  Status = "key_missing"
	StatusError       Status = "error"
	StatusSubmitted   Status = "submitted"
)

// ReputationVerdict is the outcome of a URL reputation lookup.
type ReputationVerdict string

const (
	ReputationClean      ReputationVerdict = "clean"
	ReputationSuspicious ReputationVerdict = "suspicious"
	ReputationMalicious  ReputationVerdict = "malicious"
	ReputationKeyMissing ReputationVerdict = "key_missing"
	ReputationError      ReputationVerdict = "error"
)

// Evidence is the normalized record gathered for one target. Exactly one of
// HTTP, FTP or SSH is non-nil and matches Protocol.
type Evidence struct {
	Protocol         Protocol     `json:"protocol"`
	Target           string       `json:"target"`
	IsReachable      bool         `json:"is_reachable"`
	IPAddress        *string      `json:"ip_address"`
	Registration     Registration `json:"dns_registration"`
	Reputation       Reputation   `json:"reputation"`
	Lexical          Lexical      `json:"lexical"`
	DegradedServices []string     `json:"degraded_services,omitempty"`

	HTTP *HTTPDetails `json:"http,omitempty"`
	FTP  *FTPDetails  `json:"ftp,omitempty"`
	SSH  *SSHDetails  `json:"ssh,omitempty"`
}

// Registration holds the registration (WHOIS/RDAP) facts for the hostname.
type Registration struct {
	Status         Status     `json:"status"`
	Registrar      string     `json:"registrar,omitempty"`
	CreationDate   *time.Time `json:"creation_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// Known reports whether a creation date is available for domain-age scoring.
func (r Registration) Known() bool {
	return r.Status == StatusPresent && r.CreationDate != nil
}

// Reputation groups reputation evidence common to all protocols.
type Reputation struct {
	AbuseIPDB AbuseIPDBResult `json:"abuseipdb"`
}

// AbuseIPDBResult is the AbuseIPDB report for the resolved address.
type AbuseIPDBResult struct {
	Status          Status `json:"status"`
	ConfidenceScore int    `json:"confidence_score"`
	TotalReports    int    `json:"total_reports"`
	CountryCode     string `json:"country_code,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Lexical holds structural metrics of the literal target string.
type Lexical struct {
	Length             int  `json:"length"`
	HostnameLength     int  `json:"hostname_length"`
	DotCount           int  `json:"dot_count"`
	SpecialCharCount   int  `json:"special_char_count"`
	HasDigitInHostname bool `json:"has_digit_in_hostname"`
}

// HTTPDetails is the HTTP/HTTPS specific payload.
type HTTPDetails struct {
	FinalURL      string            `json:"final_url"`
	RedirectCount int               `json:"redirect_count"`
	ProtocolValid bool              `json:"protocol_valid"`
	SyntaxValid   bool              `json:"syntax_valid"`
	SSL           SSLInfo           `json:"ssl"`
	Content       *Content          `json:"content"`
	SafeBrowsing  ReputationVerdict `json:"safe_browsing"`
	VirusTotal    ReputationVerdict `json:"virustotal"`
	URLScan       URLScanResult     `json:"urlscan"`
}

// SSLInfo describes the certificate presented on port 443.
type SSLInfo struct {
	Valid       bool       `json:"valid"`
	Issuer      string     `json:"issuer,omitempty"`
	Subject     string     `json:"subject,omitempty"`
	Expires     *time.Time `json:"expires,omitempty"`
	TLSVersion  string     `json:"tls_version,omitempty"`
	CipherSuite string     `json:"cipher_suite,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Content holds the structural markers found in the fetched page.
type Content struct {
	HasIframe         bool `json:"has_iframe"`
	HasPasswordForm   bool `json:"has_password_form"`
	ExternalLinkCount int  `json:"external_link_count"`
}

// URLScanResult records the outcome of a urlscan submission.
type URLScanResult struct {
	Status    Status `json:"status"`
	ScanID    string `json:"scan_id,omitempty"`
	ResultURL string `json:"result_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FTPDetails is the FTP specific payload.
type FTPDetails struct {
	AnonymousLoginAllowed bool    `json:"anonymous_login_allowed"`
	WelcomeMessage        *string `json:"welcome_message"`
	DirectoryEntryCount   int     `json:"directory_entry_count"`
}

// SSHDetails is the SSH specific payload.
type SSHDetails struct {
	ServerBanner       *string `json:"server_banner"`
	HostKeyType        *string `json:"host_key_type"`
	HostKeyFingerprint *string `json:"host_key_fingerprint"`
}

// Validate checks that the payload matches the protocol tag.
func (e Evidence) Validate() error {
	switch e.Protocol {
	case ProtocolHTTP:
		if e.HTTP == nil || e.FTP != nil || e.SSH != nil {
			return ErrPayloadMismatch
		}
	case ProtocolFTP:
		if e.FTP == nil || e.HTTP != nil || e.SSH != nil {
			return ErrPayloadMismatch
		}
	case ProtocolSSH:
		if e.SSH == nil || e.HTTP != nil || e.FTP != nil {
			return ErrPayloadMismatch
		}
	default:
		return ErrUnknownProtocol
	}
	return nil
}
