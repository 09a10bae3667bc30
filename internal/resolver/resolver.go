// Package resolver resolves domain names to IPv4 addresses and classifies
// them against a CDN range set using a bounded worker pool.
package resolver

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"

	"github.com/m333rl1n/cdnx/internal/config"
	"github.com/m333rl1n/cdnx/internal/errors"
	"github.com/m333rl1n/cdnx/internal/log"
)

// Lookuper resolves a hostname to a single IPv4 address.
type Lookuper interface {
	LookupA(ctx context.Context, host string) (netip.Addr, error)
}

// Resolver queries configured DNS servers for A records.
type Resolver struct {
	client  *dns.Client
	servers []string
}

// NewResolver builds a resolver from the configured DNS servers, falling back
// to the system resolvers from /etc/resolv.conf.
func NewResolver(cfg *config.Config) (*Resolver, error) {
	servers := make([]string, 0, len(cfg.General.DNSServers))
	for _, server := range cfg.General.DNSServers {
		servers = append(servers, withDefaultPort(server))
	}

	if len(servers) == 0 {
		clientConfig, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, errors.NewConfigError("failed to read system DNS configuration", err)
		}
		for _, server := range clientConfig.Servers {
			servers = append(servers, net.JoinHostPort(server, clientConfig.Port))
		}
	}

	if len(servers) == 0 {
		return nil, errors.NewConfigError("no DNS servers available", nil)
	}

	log.Debugf("Resolver using DNS server(s): %v", servers)

	return &Resolver{
		client: &dns.Client{
			Net:     "udp",
			Timeout: cfg.LookupTimeout(),
		},
		servers: servers,
	}, nil
}

// withDefaultPort appends :53 to a bare server address.
func withDefaultPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}

// LookupA resolves host to its first IPv4 address. A literal IPv4 address is
// returned as-is without a query. Every failure mode (transport error, bad
// rcode, answer without an A record) is a DNS_ERROR the caller recovers from.
func (r *Resolver) LookupA(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if !addr.Is4() {
			return netip.Addr{}, errors.NewDNSError(fmt.Sprintf("%s is not an IPv4 address", host), nil)
		}
		return addr, nil
	}

	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(host), dns.TypeA)
	req.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, req, server)
		if err != nil {
			lastErr = err
			log.Debugf("DNS server %s failed for %s: %v", server, host, err)
			continue
		}

		if resp.Rcode != dns.RcodeSuccess {
			return netip.Addr{}, errors.NewDNSError(
				fmt.Sprintf("lookup %s failed with rcode %s", host, dns.RcodeToString[resp.Rcode]), nil)
		}

		for _, rr := range resp.Answer {
			if a, ok := rr.(*dns.A); ok {
				if addr, ok := netip.AddrFromSlice(a.A.To4()); ok {
					return addr, nil
				}
			}
		}

		return netip.Addr{}, errors.NewDNSError(fmt.Sprintf("no A record for %s", host), nil)
	}

	return netip.Addr{}, errors.NewDNSError(fmt.Sprintf("all DNS servers failed for %s", host), lastErr)
}

// lookupDeadline bounds a single lookup independently of the stream lifetime.
func lookupDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
