// Package scoring reduces an evidence record to a bounded risk score and a
// verdict. It performs no I/O and holds no state: the same record evaluated
// at the same instant always yields the same result.
package scoring

import (
	"strings"
	"time"

	"github.com/khanhnv2901/linkguard/internal/domain/scan"
)

// Signal weights.
const (
	WeightUnreachable      = 50
	WeightAbuseHigh        = 100
	WeightAbuseMedium      = 50
	WeightDomainVeryNew    = 40
	WeightDomainNew        = 20
	WeightInvalidSyntax    = 70
	WeightSafeBrowsing     = 100
	WeightVirusTotalBad    = 100
	WeightVirusTotalSus    = 40
	WeightInvalidSSL       = 30
	WeightIframe           = 20
	WeightInsecurePassword = 80
	WeightAnonymousFTP     = 15
)

// Thresholds and caps.
const (
	AbuseHighThreshold   = 80
	AbuseMediumThreshold = 50
	VeryNewDomainDays    = 90
	NewDomainDays        = 365

	RawCap      = 150
	ReportedCap = 100

	MaliciousThreshold  = 100
	HighRiskThreshold   = 70
	SuspiciousThreshold = 30
)

// Result is the scoring outcome.
type Result struct {
	// Total is the unsaturated sum of all signal weights.
	Total int
	// Raw is the additive total saturated at RawCap.
	Raw int
	// Score is Raw saturated at ReportedCap.
	Score   int
	Verdict scan.Verdict
	Reasons []scan.Reason
}

type tally struct {
	total   int
	reasons []scan.Reason
}

func (t *tally) add(signal string, weight int) {
	t.total += weight
	t.reasons = append(t.reasons, scan.Reason{Signal: signal, Weight: weight})
}

// Score evaluates ev at instant now. now is only used for the domain age.
func Score(ev scan.Evidence, now time.Time) Result {
	var t tally

	if !ev.IsReachable {
		t.add("unreachable", WeightUnreachable)
	}

	abuse := ev.Reputation.AbuseIPDB
	if abuse.Status == scan.StatusPresent {
		switch {
		case abuse.ConfidenceScore > AbuseHighThreshold:
			t.add("abuseipdb_confidence_high", WeightAbuseHigh)
		case abuse.ConfidenceScore > AbuseMediumThreshold:
			t.add("abuseipdb_confidence_medium", WeightAbuseMedium)
		}
	}

	if ev.Registration.Known() {
		switch age := DomainAgeDays(*ev.Registration.CreationDate, now); {
		case age < VeryNewDomainDays:
			t.add("domain_age_under_90_days", WeightDomainVeryNew)
		case age < NewDomainDays:
			t.add("domain_age_under_365_days", WeightDomainNew)
		}
	}

	switch ev.Protocol {
	case scan.ProtocolHTTP:
		if ev.HTTP != nil {
			scoreHTTP(&t, ev.IsReachable, ev.HTTP)
		}
	case scan.ProtocolFTP:
		if ev.FTP != nil && ev.FTP.AnonymousLoginAllowed {
			t.add("ftp_anonymous_login", WeightAnonymousFTP)
		}
	}

	raw := clamp(t.total, RawCap)
	score := clamp(raw, ReportedCap)
	return Result{
		Total:   t.total,
		Raw:     raw,
		Score:   score,
		Verdict: VerdictFor(score, ev.Protocol),
		Reasons: t.reasons,
	}
}

func scoreHTTP(t *tally, reachable bool, h *scan.HTTPDetails) {
	if !h.ProtocolValid || !h.SyntaxValid {
		t.add("invalid_protocol_or_syntax", WeightInvalidSyntax)
	}
	if h.SafeBrowsing == scan.ReputationMalicious {
		t.add("safe_browsing_malicious", WeightSafeBrowsing)
	}
	switch h.VirusTotal {
	case scan.ReputationMalicious:
		t.add("virustotal_malicious", WeightVirusTotalBad)
	case scan.ReputationSuspicious:
		t.add("virustotal_suspicious", WeightVirusTotalSus)
	}
	// A host that cannot be reached also fails its handshake; that is already
	// counted as unreachable.
	if reachable && !h.SSL.Valid {
		t.add("invalid_ssl", WeightInvalidSSL)
	}
	if h.Content != nil {
		if h.Content.HasIframe {
			t.add("embedded_iframe", WeightIframe)
		}
		if h.Content.HasPasswordForm && !isSecureURL(h.FinalURL) {
			t.add("password_form_over_http", WeightInsecurePassword)
		}
	}
}

// VerdictFor maps a reported score to its verdict. Low scores on FTP and SSH
// targets are Informational rather than Safe.
func VerdictFor(score int, protocol scan.Protocol) scan.Verdict {
	switch {
	case score >= MaliciousThreshold:
		return scan.VerdictMalicious
	case score >= HighRiskThreshold:
		return scan.VerdictHighRisk
	case score >= SuspiciousThreshold:
		return scan.VerdictSuspicious
	case protocol == scan.ProtocolHTTP:
		return scan.VerdictSafe
	default:
		return scan.VerdictInformational
	}
}

// DomainAgeDays returns the whole days elapsed between created and now.
// A creation date in the future counts as zero days.
func DomainAgeDays(created, now time.Time) int {
	d := now.Sub(created)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func isSecureURL(u string) bool {
	return strings.HasPrefix(strings.ToLower(u), "https://")
}

func clamp(v, limit int) int {
	if v > limit {
		return limit
	}
	if v < 0 {
		return 0
	}
	return v
}
