package cmd

import (
	"strings"
	"time"

	"github.com/khanhnv2901/linkguard/internal/application"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultScanTimeoutSeconds = 30
	defaultServerAddr         = "127.0.0.1:8080"
	defaultServerRateLimit    = 10
	defaultServerRateBurst    = 20
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Keys       KeyConfig
	Endpoints  EndpointConfig
	DNS        DNSConfig
	Reputation ReputationConfig
	Scan       ScanRuntimeConfig
	Server     ServerConfig
}

// KeyConfig holds the reputation service API keys.
type KeyConfig struct {
	SafeBrowsing string
	VirusTotal   string
	AbuseIPDB    string
	URLScan      string
}

// EndpointConfig overrides upstream base URLs, mostly for testing and proxies.
type EndpointConfig struct {
	SafeBrowsing string
	VirusTotal   string
	AbuseIPDB    string
	URLScan      string
	RDAP         string
}

// DNSConfig groups DNS-specific runtime options.
type DNSConfig struct {
	Nameservers []string
}

// ReputationConfig throttles outbound calls to each reputation service.
type ReputationConfig struct {
	RateLimit float64
	Burst     int
}

// ScanRuntimeConfig consolidates flag-driven settings for the scan command.
type ScanRuntimeConfig struct {
	Concurrency     int
	RateLimit       int
	TimeoutSecs     int
	JSON            bool
	ProgressEnabled bool
	InputFile       string
}

// ServerConfig configures the REST server.
type ServerConfig struct {
	Addr            string
	AuthToken       string
	CORSOrigins     []string
	RateLimit       int
	RateBurst       int
	ShutdownTimeout time.Duration
}

var (
	cliConfig      = newCLIConfig()
	envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")
)

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		DNS: DNSConfig{
			Nameservers: []string{},
		},
		Scan: ScanRuntimeConfig{
			Concurrency:     4,
			RateLimit:       0,
			TimeoutSecs:     defaultScanTimeoutSeconds,
			ProgressEnabled: true,
		},
		Server: ServerConfig{
			Addr:            defaultServerAddr,
			RateLimit:       defaultServerRateLimit,
			RateBurst:       defaultServerRateBurst,
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

// bindEnvironment maps config keys to LINKGUARD_* variables and to the
// conventional key names used by the upstream services.
func bindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix("LINKGUARD")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	_ = v.BindEnv("keys.safe_browsing", "LINKGUARD_KEYS_SAFE_BROWSING", "GOOGLE_SAFE_BROWSING_API_KEY")
	_ = v.BindEnv("keys.virustotal", "LINKGUARD_KEYS_VIRUSTOTAL", "VIRUSTOTAL_API_KEY")
	_ = v.BindEnv("keys.abuseipdb", "LINKGUARD_KEYS_ABUSEIPDB", "ABUSEIPDB_API_KEY")
	_ = v.BindEnv("keys.urlscan", "LINKGUARD_KEYS_URLSCAN", "URLSCAN_API_KEY")
}

// loadFileConfig copies keys, endpoints and other flagless settings from v.
func loadFileConfig(v *viper.Viper, cfg *CLIConfig) {
	cfg.Keys = KeyConfig{
		SafeBrowsing: v.GetString("keys.safe_browsing"),
		VirusTotal:   v.GetString("keys.virustotal"),
		AbuseIPDB:    v.GetString("keys.abuseipdb"),
		URLScan:      v.GetString("keys.urlscan"),
	}
	cfg.Endpoints = EndpointConfig{
		SafeBrowsing: v.GetString("endpoints.safe_browsing"),
		VirusTotal:   v.GetString("endpoints.virustotal"),
		AbuseIPDB:    v.GetString("endpoints.abuseipdb"),
		URLScan:      v.GetString("endpoints.urlscan"),
		RDAP:         v.GetString("endpoints.rdap"),
	}
	if v.IsSet("dns.nameservers") {
		cfg.DNS.Nameservers = v.GetStringSlice("dns.nameservers")
	}
	if v.IsSet("reputation.rate_limit") {
		cfg.Reputation.RateLimit = v.GetFloat64("reputation.rate_limit")
	}
	if v.IsSet("reputation.burst") {
		cfg.Reputation.Burst = v.GetInt("reputation.burst")
	}
}

// applyConfigDefaults merges config file defaults into the runtime config when the user
// did not explicitly override the corresponding flag.
func applyConfigDefaults(v *viper.Viper, cfg *CLIConfig) {
	scanFlags := scanCmd.Flags()
	if v.IsSet("scan.concurrency") {
		applyIntDefault(scanFlags, "concurrency", v.GetInt("scan.concurrency"), func(n int) {
			cfg.Scan.Concurrency = n
		})
	}
	if v.IsSet("scan.rate_limit") {
		applyIntDefault(scanFlags, "rate", v.GetInt("scan.rate_limit"), func(n int) {
			cfg.Scan.RateLimit = n
		})
	}
	if v.IsSet("scan.timeout_secs") {
		applyIntDefault(scanFlags, "timeout", v.GetInt("scan.timeout_secs"), func(n int) {
			cfg.Scan.TimeoutSecs = n
		})
	}
	if v.IsSet("scan.progress") {
		applyBoolDefault(scanFlags, "progress", v.GetBool("scan.progress"), func(b bool) {
			cfg.Scan.ProgressEnabled = b
		})
	}

	serveFlags := serveCmd.Flags()
	if v.IsSet("server.addr") {
		applyStringDefault(serveFlags, "addr", v.GetString("server.addr"), func(s string) {
			cfg.Server.Addr = s
		})
	}
	if v.IsSet("server.auth_token") {
		applyStringDefault(serveFlags, "auth-token", v.GetString("server.auth_token"), func(s string) {
			cfg.Server.AuthToken = s
		})
	}
	if v.IsSet("server.cors_origins") {
		applyStringSliceDefault(serveFlags, "cors-origins", v.GetStringSlice("server.cors_origins"), func(s []string) {
			cfg.Server.CORSOrigins = s
		})
	}
	if v.IsSet("server.rate_limit") {
		applyIntDefault(serveFlags, "rate-limit", v.GetInt("server.rate_limit"), func(n int) {
			cfg.Server.RateLimit = n
		})
	}
	if v.IsSet("server.rate_burst") {
		applyIntDefault(serveFlags, "rate-burst", v.GetInt("server.rate_burst"), func(n int) {
			cfg.Server.RateBurst = n
		})
	}
}

// containerConfig translates the CLI settings into the service wiring config.
func (c *CLIConfig) containerConfig() application.Config {
	return application.Config{
		SafeBrowsingKey:     c.Keys.SafeBrowsing,
		VirusTotalKey:       c.Keys.VirusTotal,
		AbuseIPDBKey:        c.Keys.AbuseIPDB,
		URLScanKey:          c.Keys.URLScan,
		SafeBrowsingURL:     c.Endpoints.SafeBrowsing,
		VirusTotalURL:       c.Endpoints.VirusTotal,
		AbuseIPDBURL:        c.Endpoints.AbuseIPDB,
		URLScanURL:          c.Endpoints.URLScan,
		RDAPServer:          c.Endpoints.RDAP,
		Nameservers:         c.DNS.Nameservers,
		ReputationRateLimit: c.Reputation.RateLimit,
		ReputationBurst:     c.Reputation.Burst,
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flagChanged(flags, name) || setter == nil {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flagChanged(flags, name) || setter == nil {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flagChanged(flags, name) || setter == nil {
		return
	}
	setter(value)
}

func applyStringSliceDefault(flags *pflag.FlagSet, name string, value []string, setter func([]string)) {
	if flagChanged(flags, name) || setter == nil {
		return
	}
	setter(value)
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	flag := flags.Lookup(name)
	return flag != nil && flag.Changed
}
