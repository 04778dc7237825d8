/*
Package dns resolves an alias's FQN to a fresh IP address by querying
upstream DNS servers directly, using miekg/dns the way the teacher's
dns.Server.forwardQuery did for external lookups. This is the worker
side of spec.md's alias rows: the dealer only stores the IP an alias
last resolved to (pkg/types.Alias.IP); something has to produce the
next one.
*/
package dns

import (
	"fmt"

	"github.com/cuemby/netwatch/pkg/log"
	"github.com/cuemby/netwatch/pkg/types"
	"github.com/miekg/dns"
)

// DefaultUpstreams are tried in order until one answers.
var DefaultUpstreams = []string{"8.8.8.8:53", "1.1.1.1:53"}

// Resolver looks up the current address of an alias's fully-qualified name.
type Resolver struct {
	client    *dns.Client
	upstreams []string
}

// NewResolver builds a Resolver that queries upstreams in order.
func NewResolver(upstreams []string) *Resolver {
	if len(upstreams) == 0 {
		upstreams = DefaultUpstreams
	}
	return &Resolver{
		client:    &dns.Client{Net: "udp"},
		upstreams: upstreams,
	}
}

// Resolve returns the first address for fqn matching af (A for v4, AAAA
// for v6), trying each configured upstream until one answers.
func (r *Resolver) Resolve(fqn string, af types.AddressFamily) (string, error) {
	qtype := dns.TypeA
	if af == types.AFv6 {
		qtype = dns.TypeAAAA
	}

	msg := &dns.Msg{}
	msg.SetQuestion(dns.Fqdn(fqn), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, upstream := range r.upstreams {
		resp, _, err := r.client.Exchange(msg, upstream)
		if err != nil {
			lastErr = err
			log.Logger.Debug().Err(err).Str("upstream", upstream).Str("fqn", fqn).Msg("dns query failed, trying next upstream")
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("dns: %s returned rcode %d for %s", upstream, resp.Rcode, fqn)
			continue
		}
		for _, rr := range resp.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				return rec.A.String(), nil
			case *dns.AAAA:
				return rec.AAAA.String(), nil
			}
		}
		lastErr = fmt.Errorf("dns: %s returned no %s records for %s", upstream, dns.TypeToString[qtype], fqn)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("dns: no upstreams configured")
	}
	return "", lastErr
}
