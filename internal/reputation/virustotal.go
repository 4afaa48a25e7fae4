package reputation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	serrors "github.com/khanhnv2901/linkguard/internal/shared/errors"
)

// VirusTotal submits URLs to the VirusTotal v3 API and reads the analysis.
type VirusTotal struct {
	client
}

// NewVirusTotal creates a VirusTotal client.
func NewVirusTotal(cfg Config) *VirusTotal {
	return &VirusTotal{client: newClient(ServiceVirusTotal, consts.VirusTotalBaseURL, cfg)}
}

type vtSubmission struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type vtAnalysis struct {
	Data struct {
		Attributes struct {
			Stats *AnalysisStats `json:"stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// AnalysisStats holds the per-verdict engine counts of an analysis.
type AnalysisStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
}

// Classify maps engine counts to a verdict: more than one malicious engine is
// malicious, any malicious or suspicious engine is suspicious.
func (s AnalysisStats) Classify() scan.ReputationVerdict {
	switch {
	case s.Malicious > 1:
		return scan.ReputationMalicious
	case s.Malicious > 0 || s.Suspicious > 0:
		return scan.ReputationSuspicious
	default:
		return scan.ReputationClean
	}
}

// Analyze submits target and classifies the resulting analysis. Submitting an
// already analysed URL returns the existing analysis.
func (v *VirusTotal) Analyze(ctx context.Context, target string) (scan.ReputationVerdict, error) {
	if !v.Enabled() {
		return scan.ReputationKeyMissing, nil
	}

	form := url.Values{"url": {target}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint("/api/v3/urls"), strings.NewReader(form.Encode()))
	if err != nil {
		return scan.ReputationError, v.fail(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("x-apikey", v.apiKey)

	var submission vtSubmission
	if err := v.doJSON(ctx, req, &submission); err != nil {
		return scan.ReputationError, err
	}
	if submission.Data.ID == "" {
		return scan.ReputationError, v.fail(fmt.Errorf("%w: missing analysis id", serrors.ErrUnexpectedPayload))
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint("/api/v3/analyses/"+url.PathEscape(submission.Data.ID)), nil)
	if err != nil {
		return scan.ReputationError, v.fail(err)
	}
	req.Header.Set("x-apikey", v.apiKey)

	var analysis vtAnalysis
	if err := v.doJSON(ctx, req, &analysis); err != nil {
		return scan.ReputationError, err
	}
	if analysis.Data.Attributes.Stats == nil {
		return scan.ReputationError, v.fail(fmt.Errorf("%w: missing analysis stats", serrors.ErrUnexpectedPayload))
	}
	return analysis.Data.Attributes.Stats.Classify(), nil
}
