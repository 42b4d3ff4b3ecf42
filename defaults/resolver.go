// Package defaults provides one concrete implementation of every
// collaborator interface in package collab except KCPTransportFactory
// (for which a nil factory is valid), enough to run wsagent as a
// standalone binary. A real WebSocks dispatcher would substitute its own
// event-loop pool, DNS stack, and process supervisor instead.
package defaults

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

// DNSResolver implements collab.Resolver with a single upstream recursive
// resolver queried over UDP via github.com/miekg/dns, speaking the DNS
// wire protocol directly rather than through net.Resolver.
type DNSResolver struct {
	Upstream string // "host:port", e.g. "1.1.1.1:53"
	Client   *dns.Client
}

// NewDNSResolver builds a DNSResolver against upstream, defaulting the
// client to a 5s UDP timeout.
func NewDNSResolver(upstream string) *DNSResolver {
	return &DNSResolver{Upstream: upstream, Client: &dns.Client{Net: "udp", Timeout: 5 * time.Second}}
}

// ResolveV4 performs a single blocking A-record lookup.
func (r *DNSResolver) ResolveV4(ctx context.Context, name string) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)
	msg.RecursionDesired = true

	in, _, err := r.Client.ExchangeContext(ctx, msg, r.Upstream)
	if err != nil {
		return "", fmt.Errorf("resolving %q via %s: %w", name, r.Upstream, err)
	}
	for _, rr := range in.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", fmt.Errorf("no A record found for %q", name)
}
