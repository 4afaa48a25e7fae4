package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	consts "github.com/khanhnv2901/linkguard/internal/shared/constants"
	"github.com/miekg/dns"
	"github.com/openrdap/rdap"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const registrationUnavailable = "registration data unavailable"

// Resolver resolves a hostname to a single address.
type Resolver interface {
	LookupIP(ctx context.Context, host string) (string, error)
}

// SystemResolver uses the Go resolver with the system configuration.
type SystemResolver struct {
	Timeout time.Duration
}

// LookupIP returns the first IPv4 address of host, or the first address of
// any family when no IPv4 address exists.
func (s *SystemResolver) LookupIP(ctx context.Context, host string) (string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = consts.DNSTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver := &net.Resolver{PreferGo: true}
	ips, err := resolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return "", err
	}
	return pickAddress(ips)
}

// DNSResolver queries the configured nameservers directly (A, then AAAA).
type DNSResolver struct {
	Nameservers []string // host or host:port, port 53 by default
	Timeout     time.Duration
}

// LookupIP asks each nameserver in turn until one returns an address.
func (d *DNSResolver) LookupIP(ctx context.Context, host string) (string, error) {
	if len(d.Nameservers) == 0 {
		return "", errors.New("no nameservers configured")
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = consts.DNSTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &dns.Client{Net: "udp", Timeout: timeout}
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)
		for _, ns := range d.Nameservers {
			resp, _, err := client.ExchangeContext(ctx, msg, nameserverAddr(ns))
			if err != nil {
				lastErr = err
				continue
			}
			if resp.Rcode != dns.RcodeSuccess {
				lastErr = fmt.Errorf("%s lookup for %s: %s", dns.TypeToString[qtype], host, dns.RcodeToString[resp.Rcode])
				continue
			}
			for _, ans := range resp.Answer {
				switch rr := ans.(type) {
				case *dns.A:
					return rr.A.String(), nil
				case *dns.AAAA:
					return rr.AAAA.String(), nil
				}
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no address records for %s", host)
	}
	return "", lastErr
}

func nameserverAddr(ns string) string {
	if _, _, err := net.SplitHostPort(ns); err == nil {
		return ns
	}
	return net.JoinHostPort(strings.Trim(ns, "[]"), "53")
}

func pickAddress(ips []net.IP) (string, error) {
	if len(ips) == 0 {
		return "", errors.New("no addresses found")
	}
	for _, ip := range ips {
		if ip.To4() != nil {
			return ip.String(), nil
		}
	}
	return ips[0].String(), nil
}

// RegistrationLookup fetches registration metadata for a hostname.
type RegistrationLookup interface {
	Lookup(ctx context.Context, hostname string) scan.Registration
}

// RDAPLookup looks up the registrable domain of a host over RDAP.
type RDAPLookup struct {
	Client  *rdap.Client
	Server  string // Optional fixed RDAP server; empty uses IANA bootstrap
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewRDAPLookup returns a lookup that bootstraps servers from IANA.
func NewRDAPLookup(httpClient *http.Client, logger *zap.Logger) *RDAPLookup {
	return &RDAPLookup{
		Client:  &rdap.Client{HTTP: httpClient},
		Timeout: consts.RegistrationTimeout,
		Logger:  logger,
	}
}

// Lookup returns a present record only when a creation date is known.
func (r *RDAPLookup) Lookup(ctx context.Context, hostname string) scan.Registration {
	logger := loggerOrNop(r.Logger).With(zap.String("check", "registration"), zap.String("host", hostname))
	unavailable := scan.Registration{Status: scan.StatusUnavailable, Error: registrationUnavailable}

	if hostname == "" || net.ParseIP(hostname) != nil {
		return unavailable
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		logger.Debug("no registrable domain", zap.Error(err))
		return unavailable
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = consts.RegistrationTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &rdap.Request{Type: rdap.DomainRequest, Query: domain}
	if r.Server != "" {
		server, err := parseServerURL(r.Server)
		if err != nil {
			logger.Warn("invalid rdap server", zap.Error(err))
			return unavailable
		}
		req.Server = server
	}
	req = req.WithContext(ctx)

	client := r.Client
	if client == nil {
		client = &rdap.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		logger.Debug("rdap lookup failed", zap.String("domain", domain), zap.Error(err))
		return unavailable
	}
	record, ok := resp.Object.(*rdap.Domain)
	if !ok {
		logger.Debug("rdap response is not a domain object", zap.String("domain", domain))
		return unavailable
	}

	reg := registrationFromRDAP(record)
	if reg.CreationDate == nil {
		return unavailable
	}
	return reg
}

func parseServerURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("rdap server must be an http(s) URL: %q", raw)
	}
	return u, nil
}

func registrationFromRDAP(d *rdap.Domain) scan.Registration {
	reg := scan.Registration{Status: scan.StatusPresent}
	for _, ent := range d.Entities {
		if !hasRole(ent.Roles, "registrar") {
			continue
		}
		name := ent.Handle
		if ent.VCard != nil && ent.VCard.Name() != "" {
			name = ent.VCard.Name()
		}
		if name != "" {
			reg.Registrar = name
			break
		}
	}
	// Registries sometimes report several events of one kind; the first wins.
	for _, ev := range d.Events {
		when, err := time.Parse(time.RFC3339, ev.Date)
		if err != nil {
			continue
		}
		when = when.UTC()
		switch strings.ToLower(ev.Action) {
		case "registration":
			if reg.CreationDate == nil {
				reg.CreationDate = &when
			}
		case "expiration":
			if reg.ExpirationDate == nil {
				reg.ExpirationDate = &when
			}
		}
	}
	return reg
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// DomainIntel bundles address resolution and registration lookup.
type DomainIntel struct {
	Resolver     Resolver
	Registration RegistrationLookup
	Logger       *zap.Logger
}

// ResolveIP returns the address of hostname, or nil when resolution fails.
// IP literals resolve to themselves.
func (d *DomainIntel) ResolveIP(ctx context.Context, hostname string) *string {
	if hostname == "" {
		return nil
	}
	if ip := net.ParseIP(hostname); ip != nil {
		s := ip.String()
		return &s
	}
	if d.Resolver == nil {
		return nil
	}
	ip, err := d.Resolver.LookupIP(ctx, hostname)
	if err != nil {
		loggerOrNop(d.Logger).Debug("address resolution failed",
			zap.String("check", "dns"), zap.String("host", hostname), zap.Error(err))
		return nil
	}
	return &ip
}

// LookupRegistration returns registration metadata for hostname.
func (d *DomainIntel) LookupRegistration(ctx context.Context, hostname string) scan.Registration {
	if d.Registration == nil {
		return scan.Registration{Status: scan.StatusUnavailable, Error: registrationUnavailable}
	}
	return d.Registration.Lookup(ctx, hostname)
}
