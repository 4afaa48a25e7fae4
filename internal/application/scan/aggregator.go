package scan

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/khanhnv2901/linkguard/internal/checker"
	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Collaborators of the aggregator. The concrete types live in the checker
// and reputation packages.
type (
	DomainIntel interface {
		ResolveIP(ctx context.Context, hostname string) *string
		LookupRegistration(ctx context.Context, hostname string) scan.Registration
	}
	HTTPProber interface {
		Probe(ctx context.Context, target checker.Target) checker.HTTPProbeResult
	}
	TLSInspector interface {
		Inspect(ctx context.Context, hostname string) scan.SSLInfo
	}
	FTPProber interface {
		Probe(ctx context.Context, target checker.Target) checker.FTPProbeResult
	}
	SSHProber interface {
		Probe(ctx context.Context, target checker.Target) checker.SSHProbeResult
	}
	SafeBrowsingClient interface {
		Name() string
		Lookup(ctx context.Context, target string) (scan.ReputationVerdict, error)
	}
	VirusTotalClient interface {
		Name() string
		Analyze(ctx context.Context, target string) (scan.ReputationVerdict, error)
	}
	AbuseIPDBClient interface {
		Name() string
		Check(ctx context.Context, ip string) (scan.AbuseIPDBResult, error)
	}
	URLScanClient interface {
		Name() string
		Submit(ctx context.Context, target string) (scan.URLScanResult, error)
	}
)

// Aggregator fans out every sub-check for one target and assembles the
// evidence record. Sub-check failures never abort the scan.
type Aggregator struct {
	Intel        DomainIntel
	HTTP         HTTPProber
	TLS          TLSInspector
	FTP          FTPProber
	SSH          SSHProber
	SafeBrowsing SafeBrowsingClient
	VirusTotal   VirusTotalClient
	AbuseIPDB    AbuseIPDBClient
	URLScan      URLScanClient
	Ceiling      time.Duration // Outer bound for the whole aggregation
	Logger       *zap.Logger
}

// degraded collects the names of reputation services that failed.
type degraded struct {
	mu    sync.Mutex
	names []string
}

func (d *degraded) add(name string) {
	d.mu.Lock()
	d.names = append(d.names, name)
	d.mu.Unlock()
}

func (d *degraded) sorted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.names) == 0 {
		return nil
	}
	out := append([]string(nil), d.names...)
	sort.Strings(out)
	return out
}

// Collect gathers evidence for target. The only error is the caller's own
// context being cancelled; the ceiling expiring yields partial evidence.
func (a *Aggregator) Collect(ctx context.Context, target checker.Target) (scan.Evidence, error) {
	logger := a.logger().With(zap.String("target", target.URL), zap.String("protocol", string(target.Protocol())))

	ceiling := a.Ceiling
	if ceiling <= 0 {
		ceiling = consts.ScanCeiling
	}
	scanCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	ev := scan.Evidence{
		Protocol: target.Protocol(),
		Target:   target.URL,
		Lexical:  checker.AnalyzeLexical(target.Raw),
		Registration: scan.Registration{
			Status: scan.StatusUnavailable,
		},
		Reputation: scan.Reputation{
			AbuseIPDB: scan.AbuseIPDBResult{Status: scan.StatusSkipped},
		},
	}
	var failed degraded

	g, gctx := errgroup.WithContext(scanCtx)

	// Address resolution feeds AbuseIPDB, so both run in one goroutine.
	g.Go(func() error {
		if a.Intel == nil {
			return nil
		}
		ev.IPAddress = a.Intel.ResolveIP(gctx, target.Hostname)
		if ev.IPAddress == nil {
			return nil
		}
		ev.Reputation.AbuseIPDB = a.checkAbuse(gctx, *ev.IPAddress, &failed)
		return nil
	})

	g.Go(func() error {
		if a.Intel != nil {
			ev.Registration = a.Intel.LookupRegistration(gctx, target.Hostname)
		}
		return nil
	})

	switch target.Protocol() {
	case scan.ProtocolHTTP:
		ev.HTTP = a.collectHTTP(gctx, g, target, &ev.IsReachable, &failed)
	case scan.ProtocolFTP:
		ev.FTP = &scan.FTPDetails{}
		g.Go(func() error {
			if a.FTP == nil {
				return nil
			}
			res := a.FTP.Probe(gctx, target)
			ev.IsReachable = res.Reachable
			ev.FTP.AnonymousLoginAllowed = res.AnonymousLoginAllowed
			ev.FTP.WelcomeMessage = res.WelcomeMessage
			ev.FTP.DirectoryEntryCount = res.DirectoryEntryCount
			return nil
		})
	case scan.ProtocolSSH:
		ev.SSH = &scan.SSHDetails{}
		g.Go(func() error {
			if a.SSH == nil {
				return nil
			}
			res := a.SSH.Probe(gctx, target)
			ev.IsReachable = res.Reachable
			ev.SSH.ServerBanner = res.ServerBanner
			ev.SSH.HostKeyType = res.HostKeyType
			ev.SSH.HostKeyFingerprint = res.HostKeyFingerprint
			return nil
		})
	}

	_ = g.Wait()
	ev.DegradedServices = failed.sorted()

	if err := ctx.Err(); err != nil {
		return ev, err
	}
	if scanCtx.Err() != nil {
		logger.Warn("scan ceiling reached, returning partial evidence", zap.Duration("ceiling", ceiling))
	}
	logger.Debug("evidence collected",
		zap.Bool("reachable", ev.IsReachable),
		zap.Strings("degraded_services", ev.DegradedServices))
	return ev, nil
}

// collectHTTP schedules the HTTP sub-checks on g. Each goroutine writes a
// distinct field of the returned details.
func (a *Aggregator) collectHTTP(ctx context.Context, g *errgroup.Group, target checker.Target, reachable *bool, failed *degraded) *scan.HTTPDetails {
	details := &scan.HTTPDetails{
		FinalURL:      target.URL,
		ProtocolValid: checker.ProtocolValid(target.URL),
		SyntaxValid:   checker.SyntaxValid(target.URL),
		SSL:           scan.SSLInfo{Error: "SSL validation failed"},
		SafeBrowsing:  scan.ReputationKeyMissing,
		VirusTotal:    scan.ReputationKeyMissing,
		URLScan:       scan.URLScanResult{Status: scan.StatusKeyMissing},
	}

	g.Go(func() error {
		if a.HTTP == nil {
			return nil
		}
		res := a.HTTP.Probe(ctx, target)
		*reachable = res.Reachable
		details.FinalURL = res.FinalURL
		details.RedirectCount = res.RedirectCount
		details.ProtocolValid = checker.ProtocolValid(res.FinalURL)
		details.SyntaxValid = checker.SyntaxValid(res.FinalURL)
		if len(res.Body) > 0 {
			base, _ := url.Parse(res.FinalURL)
			details.Content = checker.InspectContent(res.Body, base)
		}
		return nil
	})

	if a.TLS != nil {
		g.Go(func() error {
			details.SSL = a.TLS.Inspect(ctx, target.Hostname)
			return nil
		})
	}

	if a.SafeBrowsing != nil {
		g.Go(func() error {
			verdict, err := a.SafeBrowsing.Lookup(ctx, target.URL)
			if err != nil {
				failed.add(a.SafeBrowsing.Name())
				verdict = scan.ReputationError
			}
			details.SafeBrowsing = verdict
			return nil
		})
	}

	if a.VirusTotal != nil {
		g.Go(func() error {
			verdict, err := a.VirusTotal.Analyze(ctx, target.URL)
			if err != nil {
				failed.add(a.VirusTotal.Name())
				verdict = scan.ReputationError
			}
			details.VirusTotal = verdict
			return nil
		})
	}

	if a.URLScan != nil {
		g.Go(func() error {
			res, err := a.URLScan.Submit(ctx, target.URL)
			if err != nil {
				failed.add(a.URLScan.Name())
				res = scan.URLScanResult{Status: scan.StatusError, Error: "submission failed"}
			}
			details.URLScan = res
			return nil
		})
	}

	return details
}

func (a *Aggregator) checkAbuse(ctx context.Context, ip string, failed *degraded) scan.AbuseIPDBResult {
	if a.AbuseIPDB == nil {
		return scan.AbuseIPDBResult{Status: scan.StatusKeyMissing}
	}
	res, err := a.AbuseIPDB.Check(ctx, ip)
	if err != nil {
		failed.add(a.AbuseIPDB.Name())
		return scan.AbuseIPDBResult{Status: scan.StatusError, Error: "lookup failed"}
	}
	return res
}

func (a *Aggregator) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
