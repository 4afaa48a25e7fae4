package reputation

import (
	"context"
	"net/http"
	"net/url"

	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
)

const abuseMaxAgeDays = "90"

// AbuseIPDB checks an address against the AbuseIPDB v2 API.
type AbuseIPDB struct {
	client
}

// NewAbuseIPDB creates an AbuseIPDB client.
func NewAbuseIPDB(cfg Config) *AbuseIPDB {
	return &AbuseIPDB{client: newClient(ServiceAbuseIPDB, consts.AbuseIPDBBaseURL, cfg)}
}

type abuseCheckResponse struct {
	Data struct {
		AbuseConfidenceScore int     `json:"abuseConfidenceScore"`
		TotalReports         int     `json:"totalReports"`
		CountryCode          *string `json:"countryCode"`
	} `json:"data"`
}

// Check returns the report for ip over the last 90 days.
func (a *AbuseIPDB) Check(ctx context.Context, ip string) (scan.AbuseIPDBResult, error) {
	if !a.Enabled() {
		return scan.AbuseIPDBResult{Status: scan.StatusKeyMissing}, nil
	}

	params := url.Values{"ipAddress": {ip}, "maxAgeInDays": {abuseMaxAgeDays}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint("/api/v2/check?"+params.Encode()), nil)
	if err != nil {
		return scan.AbuseIPDBResult{Status: scan.StatusError}, a.fail(err)
	}
	req.Header.Set("Key", a.apiKey)

	var resp abuseCheckResponse
	if err := a.doJSON(ctx, req, &resp); err != nil {
		return scan.AbuseIPDBResult{Status: scan.StatusError}, err
	}

	result := scan.AbuseIPDBResult{
		Status:          scan.StatusPresent,
		ConfidenceScore: resp.Data.AbuseConfidenceScore,
		TotalReports:    resp.Data.TotalReports,
	}
	if resp.Data.CountryCode != nil {
		result.CountryCode = *resp.Data.CountryCode
	}
	return result, nil
}
