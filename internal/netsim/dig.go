package netsim

import (
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
)

// Dig builds a synthetic DNS exchange for host and renders it like dig(1).
// IP addresses get a PTR answer, names get an A record pointing at answer.
func (g *Generator) Dig(host, answer string) ([]string, error) {
	query := new(dns.Msg)
	query.Id = uint16(g.Intn(1 << 16))
	query.RecursionDesired = true

	resp := new(dns.Msg)
	ttl := uint32(g.Between(60, 3600))

	if ip := net.ParseIP(host); ip != nil {
		arpa, err := dns.ReverseAddr(host)
		if err != nil {
			return nil, fmt.Errorf("reverse address: %w", err)
		}
		query.SetQuestion(arpa, dns.TypePTR)
		resp.SetReply(query)
		resp.Answer = append(resp.Answer, &dns.PTR{
			Hdr: dns.RR_Header{Name: arpa, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: ttl},
			Ptr: dns.Fqdn(answer),
		})
	} else {
		name := dns.Fqdn(strings.ToLower(host))
		if _, ok := dns.IsDomainName(name); !ok {
			return nil, fmt.Errorf("invalid domain name %q", host)
		}
		query.SetQuestion(name, dns.TypeA)
		resp.SetReply(query)
		addr := net.ParseIP(answer).To4()
		if addr == nil {
			return nil, fmt.Errorf("invalid answer address %q", answer)
		}
		resp.Answer = append(resp.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
			A:   addr,
		})
	}
	resp.Authoritative = true
	resp.RecursionAvailable = true

	wire, err := resp.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack response: %w", err)
	}

	lines := []string{fmt.Sprintf("; <<>> DiG 9.18 <<>> %s", host)}
	lines = append(lines, strings.Split(strings.TrimRight(resp.String(), "\n"), "\n")...)
	lines = append(lines,
		"",
		fmt.Sprintf(";; Query time: %d msec", g.Between(4, 90)),
		";; SERVER: 10.0.0.53#53(10.0.0.53) (UDP)",
		fmt.Sprintf(";; MSG SIZE  rcvd: %d", len(wire)),
	)
	return lines, nil
}
