package scan

import (
	"errors"
	"time"
)

var (
	ErrPayloadMismatch = errors.New("evidence payload does not match protocol")
	ErrUnknownProtocol = errors.New("unknown evidence protocol")
)

// Verdict is the human-facing risk label derived from the score.
type Verdict string

const (
	VerdictSafe          Verdict = "safe"
	VerdictInformational Verdict = "informational"
	VerdictSuspicious    Verdict = "suspicious"
	VerdictHighRisk      Verdict = "high_risk"
	VerdictMalicious     Verdict = "malicious"
)

// Label returns the display form of the verdict.
func (v Verdict) Label() string {
	switch v {
	case VerdictSafe:
		return "Safe"
	case VerdictInformational:
		return "Informational"
	case VerdictSuspicious:
		return "Suspicious"
	case VerdictHighRisk:
		return "High Risk"
	case VerdictMalicious:
		return "Malicious"
	default:
		return string(v)
	}
}

// Reason is one signal that contributed to the score.
type Reason struct {
	Signal string `json:"signal"`
	Weight int    `json:"weight"`
}

// Report is the outcome of one scan as returned to callers.
type Report struct {
	ScanID           string    `json:"scan_id"`
	InputString      string    `json:"input_string"`
	ResolvedProtocol Protocol  `json:"resolved_protocol"`
	Verdict          Verdict   `json:"verdict"`
	RiskScore        int       `json:"risk_score"`
	Reasons          []Reason  `json:"reasons,omitempty"`
	ScannedAt        time.Time `json:"scanned_at"`
	DurationMs       float64   `json:"duration_ms"`
	Details          Evidence  `json:"details"`
}
