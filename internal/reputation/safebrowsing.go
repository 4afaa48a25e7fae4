package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
)

// SafeBrowsing queries the Google Safe Browsing v4 Lookup API.
type SafeBrowsing struct {
	client
}

// NewSafeBrowsing creates a Safe Browsing client.
func NewSafeBrowsing(cfg Config) *SafeBrowsing {
	return &SafeBrowsing{client: newClient(ServiceSafeBrowsing, consts.SafeBrowsingBaseURL, cfg)}
}

type threatEntry struct {
	URL string `json:"url"`
}

type threatMatchRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string      `json:"threatTypes"`
		PlatformTypes    []string      `json:"platformTypes"`
		ThreatEntryTypes []string      `json:"threatEntryTypes"`
		ThreatEntries    []threatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type threatMatchResponse struct {
	Matches []json.RawMessage `json:"matches"`
}

// Lookup reports malicious when the URL matches any threat list.
func (s *SafeBrowsing) Lookup(ctx context.Context, target string) (scan.ReputationVerdict, error) {
	if !s.Enabled() {
		return scan.ReputationKeyMissing, nil
	}

	var payload threatMatchRequest
	payload.Client.ClientID = consts.ClientID
	payload.Client.ClientVersion = consts.ClientVersion
	payload.ThreatInfo.ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE"}
	payload.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	payload.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	payload.ThreatInfo.ThreatEntries = []threatEntry{{URL: target}}

	body, err := json.Marshal(payload)
	if err != nil {
		return scan.ReputationError, s.fail(err)
	}

	endpoint := s.endpoint("/v4/threatMatches:find?key=" + url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return scan.ReputationError, s.fail(err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp threatMatchResponse
	if err := s.doJSON(ctx, req, &resp); err != nil {
		return scan.ReputationError, err
	}
	if len(resp.Matches) > 0 {
		return scan.ReputationMalicious, nil
	}
	return scan.ReputationClean, nil
}
