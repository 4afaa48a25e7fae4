package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	serrors "github.com/khanhnv2901/linkguard/internal/shared/errors"
)

// URLScan submits URLs to urlscan.io for a public scan.
type URLScan struct {
	client
}

// NewURLScan creates a urlscan.io client.
func NewURLScan(cfg Config) *URLScan {
	return &URLScan{client: newClient(ServiceURLScan, consts.URLScanBaseURL, cfg)}
}

type urlscanSubmission struct {
	URL        string `json:"url"`
	Visibility string `json:"visibility"`
}

type urlscanResponse struct {
	UUID   string `json:"uuid"`
	Result string `json:"result"`
}

// Submit queues target for scanning. A non-200 answer is reported in the
// result, not as an error; only transport and payload failures are errors.
func (u *URLScan) Submit(ctx context.Context, target string) (scan.URLScanResult, error) {
	if !u.Enabled() {
		return scan.URLScanResult{Status: scan.StatusKeyMissing}, nil
	}

	body, err := json.Marshal(urlscanSubmission{URL: target, Visibility: "public"})
	if err != nil {
		return scan.URLScanResult{Status: scan.StatusError}, u.fail(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint("/api/v1/scan/"), bytes.NewReader(body))
	if err != nil {
		return scan.URLScanResult{Status: scan.StatusError}, u.fail(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Key", u.apiKey)

	resp, err := u.do(ctx, req)
	if err != nil {
		return scan.URLScanResult{Status: scan.StatusError}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return scan.URLScanResult{
			Status: scan.StatusError,
			Error:  fmt.Sprintf("submission failed with status %d", resp.StatusCode),
		}, nil
	}

	var out urlscanResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return scan.URLScanResult{Status: scan.StatusError}, u.fail(fmt.Errorf("%w: %v", serrors.ErrUnexpectedPayload, err))
	}
	id, err := uuid.Parse(out.UUID)
	if err != nil {
		return scan.URLScanResult{Status: scan.StatusError}, u.fail(fmt.Errorf("%w: scan id %q", serrors.ErrUnexpectedPayload, out.UUID))
	}

	return scan.URLScanResult{
		Status:    scan.StatusSubmitted,
		ScanID:    id.String(),
		ResultURL: out.Result,
	}, nil
}
