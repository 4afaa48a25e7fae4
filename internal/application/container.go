package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	scanapp "github.com/khanhnv2901/linkguard/internal/application/scan"
	"github.com/khanhnv2901/linkguard/internal/checker"
	"github.com/khanhnv2901/linkguard/internal/reputation"
	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	"go.uber.org/zap"
)

// Config carries everything needed to wire a scanner.
type Config struct {
	// API keys; an empty key disables the service (key_missing).
	SafeBrowsingKey string
	VirusTotalKey   string
	AbuseIPDBKey    string
	URLScanKey      string

	// Optional endpoint overrides.
	SafeBrowsingURL string
	VirusTotalURL   string
	AbuseIPDBURL    string
	URLScanURL      string
	RDAPServer      string

	// Nameservers switches address resolution to direct DNS queries.
	Nameservers []string

	// Outbound rate limit per reputation service, zero for unlimited.
	ReputationRateLimit float64
	ReputationBurst     int
}

// Container holds all application services
// This is a simple dependency injection container
type Container struct {
	Aggregator  *scanapp.Aggregator
	ScanService *scanapp.Service

	enabled []string
}

// NewContainer creates a new application service container
func NewContainer(cfg Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for name, raw := range map[string]string{
		"safe browsing": cfg.SafeBrowsingURL,
		"virustotal":    cfg.VirusTotalURL,
		"abuseipdb":     cfg.AbuseIPDBURL,
		"urlscan":       cfg.URLScanURL,
		"rdap":          cfg.RDAPServer,
	} {
		if err := validateEndpoint(raw); err != nil {
			return nil, fmt.Errorf("invalid %s endpoint: %w", name, err)
		}
	}

	httpClient := reputation.NewHTTPClient()
	repCfg := func(key, baseURL string) reputation.Config {
		return reputation.Config{
			APIKey:     key,
			BaseURL:    baseURL,
			HTTPClient: httpClient,
			RateLimit:  cfg.ReputationRateLimit,
			Burst:      cfg.ReputationBurst,
			Logger:     logger,
		}
	}

	var resolver checker.Resolver = &checker.SystemResolver{Timeout: consts.DNSTimeout}
	if len(cfg.Nameservers) > 0 {
		resolver = &checker.DNSResolver{Nameservers: cfg.Nameservers, Timeout: consts.DNSTimeout}
	}
	rdapLookup := checker.NewRDAPLookup(httpClient, logger)
	rdapLookup.Server = cfg.RDAPServer

	aggregator := &scanapp.Aggregator{
		Intel: &checker.DomainIntel{
			Resolver:     resolver,
			Registration: rdapLookup,
			Logger:       logger,
		},
		HTTP:         checker.NewHTTPProber(logger),
		TLS:          checker.NewTLSInspector(logger),
		FTP:          checker.NewFTPProber(logger),
		SSH:          checker.NewSSHProber(logger),
		SafeBrowsing: reputation.NewSafeBrowsing(repCfg(cfg.SafeBrowsingKey, cfg.SafeBrowsingURL)),
		VirusTotal:   reputation.NewVirusTotal(repCfg(cfg.VirusTotalKey, cfg.VirusTotalURL)),
		AbuseIPDB:    reputation.NewAbuseIPDB(repCfg(cfg.AbuseIPDBKey, cfg.AbuseIPDBURL)),
		URLScan:      reputation.NewURLScan(repCfg(cfg.URLScanKey, cfg.URLScanURL)),
		Ceiling:      consts.ScanCeiling,
		Logger:       logger,
	}

	return &Container{
		Aggregator:  aggregator,
		ScanService: scanapp.NewService(aggregator, logger),
		enabled:     cfg.EnabledServices(),
	}, nil
}

// Check reports whether the scan pipeline is wired.
func (c *Container) Check(context.Context) error {
	if c == nil || c.ScanService == nil || c.Aggregator == nil {
		return errors.New("scan service not initialized")
	}
	if c.Aggregator.Intel == nil {
		return errors.New("domain intel not initialized")
	}
	return nil
}

// Ready reports whether the container can accept scans.
func (c *Container) Ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Check(ctx)
}

// ReputationServices lists the reputation services with an API key.
func (c *Container) ReputationServices() []string {
	if c == nil {
		return nil
	}
	return c.enabled
}

// EnabledServices lists the reputation services that have an API key.
func (cfg Config) EnabledServices() []string {
	var out []string
	if cfg.SafeBrowsingKey != "" {
		out = append(out, reputation.ServiceSafeBrowsing)
	}
	if cfg.VirusTotalKey != "" {
		out = append(out, reputation.ServiceVirusTotal)
	}
	if cfg.AbuseIPDBKey != "" {
		out = append(out, reputation.ServiceAbuseIPDB)
	}
	if cfg.URLScanKey != "" {
		out = append(out, reputation.ServiceURLScan)
	}
	return out
}

func validateEndpoint(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
