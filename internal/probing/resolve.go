package probing

import (
	"context"
	"net"

	"github.com/miekg/dns"

	"github.com/fwprobe/fwprobe/internal/errors"
	"github.com/fwprobe/fwprobe/internal/logging"
)

// Resolver resolves target specifications to concrete IP addresses. Literal
// IPs pass through after format validation; hostnames go through the system
// resolver, or through an explicit DNS server when one is configured.
type Resolver struct {
	// Server is an optional DNS server (host:port). Empty uses the system
	// resolver.
	Server string
}

// NewResolver creates a resolver. server may be empty.
func NewResolver(server string) *Resolver {
	return &Resolver{Server: server}
}

// Resolve returns the IP address to probe for a target. IPv4 addresses are
// preferred when a hostname has both families; otherwise the first returned
// address is used. Failure yields a ResolutionError; the caller degrades the
// affected work units to error results instead of aborting the run.
func (r *Resolver) Resolve(ctx context.Context, target string) (string, error) {
	if ip := net.ParseIP(target); ip != nil {
		return ip.String(), nil
	}

	if r.Server != "" {
		return r.resolveVia(ctx, target)
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, target)
	if err != nil {
		return "", errors.WrapResolutionError(target, err)
	}
	if len(addrs) == 0 {
		return "", errors.NewResolutionError(target)
	}

	for _, addr := range addrs {
		if v4 := addr.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return addrs[0].IP.String(), nil
}

// resolveVia queries the configured DNS server directly, A records first,
// then AAAA.
func (r *Resolver) resolveVia(ctx context.Context, target string) (string, error) {
	client := new(dns.Client)
	fqdn := dns.Fqdn(target)

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(fqdn, qtype)
		msg.RecursionDesired = true

		reply, _, err := client.ExchangeContext(ctx, msg, r.Server)
		if err != nil {
			return "", errors.WrapResolutionError(target, err)
		}
		if reply.Rcode != dns.RcodeSuccess {
			logging.DebugResolver("query returned non-success rcode", target,
				"server", r.Server, "rcode", dns.RcodeToString[reply.Rcode])
			continue
		}

		for _, rr := range reply.Answer {
			switch record := rr.(type) {
			case *dns.A:
				return record.A.String(), nil
			case *dns.AAAA:
				return record.AAAA.String(), nil
			}
		}
	}

	return "", errors.NewResolutionError(target)
}
