package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

var ErrNoRecords = errors.New("no records found")

// Resolver performs the DNS lookups needed by discovery and diagnostics.
type Resolver interface {
	LookupAddr(ctx context.Context, ip string) (string, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSResolver queries name servers directly with miekg/dns.
type DNSResolver struct {
	client  *dns.Client
	servers []string
}

// NewDNSResolver uses the given servers ("host" or "host:port"), falling back
// to /etc/resolv.conf when none are configured.
func NewDNSResolver(servers []string, timeout time.Duration) (*DNSResolver, error) {
	if timeout <= 0 {
		timeout = time.Second
	}

	if len(servers) == 0 {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("failed to read resolv.conf: %w", err)
		}
		for _, s := range conf.Servers {
			servers = append(servers, net.JoinHostPort(s, conf.Port))
		}
	}

	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(strings.Trim(s, "[]"), "53")
		}
		normalized = append(normalized, s)
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("no DNS servers configured")
	}

	return &DNSResolver{
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		servers: normalized,
	}, nil
}

// LookupAddr returns the first PTR name for ip without the trailing dot.
func (r *DNSResolver) LookupAddr(ctx context.Context, ip string) (string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("invalid address %s: %w", ip, err)
	}

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)

	resp, err := r.exchange(ctx, m)
	if err != nil {
		return "", err
	}

	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	return "", ErrNoRecords
}

// LookupHost returns the A and AAAA addresses of host.
func (r *DNSResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	var addrs []string
	var lastErr error

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(host), qtype)

		resp, err := r.exchange(ctx, m)
		if err != nil {
			lastErr = err
			continue
		}
		for _, rr := range resp.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				addrs = append(addrs, rec.A.String())
			case *dns.AAAA:
				addrs = append(addrs, rec.AAAA.String())
			}
		}
	}

	if len(addrs) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrNoRecords
	}
	return addrs, nil
}

func (r *DNSResolver) exchange(ctx context.Context, m *dns.Msg) (*dns.Msg, error) {
	var lastErr error
	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode == dns.RcodeNameError {
			return nil, ErrNoRecords
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("%s answered %s", server, dns.RcodeToString[resp.Rcode])
			continue
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = ErrNoRecords
	}
	return nil, lastErr
}
