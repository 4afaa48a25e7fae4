package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/khanhnv2901/linkguard/internal/checker"
	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	"github.com/khanhnv2901/linkguard/internal/scoring"
	"go.uber.org/zap"
)

// Collector gathers the evidence record for one parsed target.
type Collector interface {
	Collect(ctx context.Context, target checker.Target) (scan.Evidence, error)
}

// Service turns one input string into a scored report.
type Service struct {
	collector Collector
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a scan service on top of collector.
func NewService(collector Collector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{collector: collector, logger: logger, now: time.Now}
}

// Scan normalizes input, gathers evidence and scores it. Errors are either
// input errors, raised before any network activity, or cancellation of ctx.
func (s *Service) Scan(ctx context.Context, input string) (scan.Report, error) {
	target, err := checker.ResolveTarget(input)
	if err != nil {
		return scan.Report{}, err
	}

	start := s.now()
	scanID := uuid.NewString()
	logger := s.logger.With(zap.String("scan_id", scanID), zap.String("target", target.URL))
	logger.Info("scan started", zap.String("protocol", string(target.Protocol())))

	evidence, err := s.collector.Collect(ctx, target)
	if err != nil {
		return scan.Report{}, fmt.Errorf("scan %s: %w", target.URL, err)
	}
	if err := evidence.Validate(); err != nil {
		return scan.Report{}, fmt.Errorf("scan %s: %w", target.URL, err)
	}

	finished := s.now()
	result := scoring.Score(evidence, finished)

	report := scan.Report{
		ScanID:           scanID,
		InputString:      input,
		ResolvedProtocol: evidence.Protocol,
		Verdict:          result.Verdict,
		RiskScore:        result.Score,
		Reasons:          result.Reasons,
		ScannedAt:        start.UTC(),
		DurationMs:       float64(finished.Sub(start).Microseconds()) / 1000,
		Details:          evidence,
	}

	logger.Info("scan finished",
		zap.String("verdict", string(report.Verdict)),
		zap.Int("risk_score", report.RiskScore),
		zap.Int("raw_score", result.Raw),
		zap.Float64("duration_ms", report.DurationMs))
	return report, nil
}
