package checker

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	serrors "github.com/khanhnv2901/linkguard/internal/shared/errors"
	"golang.org/x/net/publicsuffix"
)

// Target is a parsed, scheme-typed endpoint. It is built once by ParseTarget
// and never modified afterwards.
type Target struct {
	Raw      string // Literal input URL (after command extraction)
	Scheme   string // http, https, ftp or ssh
	Hostname string // Hostname without port or brackets
	Port     int    // Explicit port or the scheme default
	Path     string // Path (HTTP only)
	RawQuery string // Query string (HTTP only)
	URL      string // Normalized URL
}

// Protocol returns the evidence protocol for the target's scheme.
func (t Target) Protocol() scan.Protocol {
	switch t.Scheme {
	case "ftp":
		return scan.ProtocolFTP
	case "ssh":
		return scan.ProtocolSSH
	default:
		return scan.ProtocolHTTP
	}
}

// Address returns host:port suitable for dialing.
func (t Target) Address() string {
	return net.JoinHostPort(t.Hostname, strconv.Itoa(t.Port))
}

var (
	schemePattern  = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.-]*)://`)
	commandPattern = regexp.MustCompile("https?://[^\\s'\"`]+")
)

var defaultPorts = map[string]int{
	"http":  consts.DefaultHTTPPort,
	"https": consts.DefaultHTTPSPort,
	"ftp":   consts.DefaultFTPPort,
	"ssh":   consts.DefaultSSHPort,
}

// NormalizeInput turns a raw request string into a URL string. The input is
// either a bare URL or a fetch command (curl, wget, ...) from which the first
// http(s) URL is extracted.
func NormalizeInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", serrors.ErrEmptyTarget
	}

	if m := schemePattern.FindStringSubmatch(input); m != nil {
		if _, ok := defaultPorts[strings.ToLower(m[1])]; !ok {
			return "", fmt.Errorf("%w: %s", serrors.ErrUnsupportedScheme, m[1])
		}
		return input, nil
	}

	if u := ExtractURLFromCommand(input); u != "" {
		return u, nil
	}
	return "", serrors.ErrNoURLInCommand
}

// ExtractURLFromCommand returns the first http(s) URL in a command string,
// stopping at whitespace and quote characters. It returns "" if none is found.
func ExtractURLFromCommand(command string) string {
	return commandPattern.FindString(command)
}

// ParseTarget parses a normalized URL into a Target.
func ParseTarget(raw string) (Target, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", serrors.ErrInvalidTarget, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	defaultPort, ok := defaultPorts[scheme]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", serrors.ErrUnsupportedScheme, parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return Target{}, fmt.Errorf("%w: missing hostname", serrors.ErrInvalidTarget)
	}

	port := defaultPort
	if p := parsed.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return Target{}, fmt.Errorf("%w: invalid port %q", serrors.ErrInvalidTarget, p)
		}
	}

	t := Target{
		Raw:      raw,
		Scheme:   scheme,
		Hostname: strings.ToLower(host),
		Port:     port,
	}

	// Path and query only carry meaning for HTTP.
	if t.Protocol() == scan.ProtocolHTTP {
		t.Path = parsed.Path
		t.RawQuery = parsed.RawQuery
	}

	parsed.Scheme = scheme
	t.URL = parsed.String()
	return t, nil
}

// ResolveTarget runs NormalizeInput followed by ParseTarget.
func ResolveTarget(input string) (Target, error) {
	raw, err := NormalizeInput(input)
	if err != nil {
		return Target{}, err
	}
	return ParseTarget(raw)
}

// ProtocolValid reports whether rawURL uses an http or https scheme.
func ProtocolValid(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// SyntaxValid reports whether the host of rawURL carries a name that is not
// itself a listed public suffix. IP literals and unlisted single-label hosts
// such as "localhost" are accepted.
func SyntaxValid(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil {
		return true
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return false
		}
	}
	suffix, icann := publicsuffix.PublicSuffix(host)
	if suffix != host {
		return true
	}
	// An unlisted TLD falls back to the "*" rule: non-ICANN and a single label.
	return !icann && !strings.Contains(host, ".")
}
