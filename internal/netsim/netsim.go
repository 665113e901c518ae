// Package netsim generates the cosmetic network output behind scan, ping, dig and sniff.
// Nothing here touches a real network.
package netsim

import (
	"fmt"
	"math/rand"
	"net"
	"sort"
	"sync"
)

var commonPorts = []int{21, 22, 23, 25, 53, 80, 110, 143, 443, 445, 3306, 3389, 5432, 6379, 8080, 8443}

var services = map[int]string{
	21: "ftp", 22: "ssh", 23: "telnet", 25: "smtp", 53: "domain", 80: "http",
	110: "pop3", 143: "imap", 443: "https", 445: "microsoft-ds", 3306: "mysql",
	3389: "ms-wbt-server", 5432: "postgresql", 6379: "redis", 8080: "http-proxy", 8443: "https-alt",
}

var vulnerabilities = []string{
	"CVE-2077-0451 (buffer overflow in auth daemon)",
	"CVE-2077-1337 (SQL injection in admin panel)",
	"CVE-2076-9001 (unauthenticated RCE in mail relay)",
	"CVE-2077-2048 (path traversal in file service)",
	"CVE-2075-4242 (weak session token entropy)",
	"CVE-2077-0666 (heap spray in legacy telnetd)",
}

// Generator produces randomized cosmetic values. It is safe for concurrent use.
type Generator struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// NewGenerator wraps rng. A nil rng is seeded from the clock.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // cosmetic values only
	}
	return &Generator{rng: rng}
}

// Intn returns a value in [0, n).
func (g *Generator) Intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

// Between returns a value in [lo, hi].
func (g *Generator) Between(lo, hi int) int {
	return lo + g.Intn(hi-lo+1)
}

// IP returns a random private IPv4 address.
func (g *Generator) IP() string {
	switch g.Intn(3) {
	case 0:
		return fmt.Sprintf("10.%d.%d.%d", g.Intn(256), g.Intn(256), g.Between(1, 254))
	case 1:
		return fmt.Sprintf("172.%d.%d.%d", g.Between(16, 31), g.Intn(256), g.Between(1, 254))
	default:
		return fmt.Sprintf("192.168.%d.%d", g.Intn(256), g.Between(1, 254))
	}
}

// MAC returns a random locally administered unicast hardware address.
func (g *Generator) MAC() net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	g.mu.Lock()
	for i := range mac {
		mac[i] = byte(g.rng.Intn(256))
	}
	g.mu.Unlock()
	mac[0] = mac[0]&0xfe | 0x02
	return mac
}

// Ports returns n distinct well-known ports in ascending order.
func (g *Generator) Ports(n int) []int {
	n = min(n, len(commonPorts))
	g.mu.Lock()
	perm := g.rng.Perm(len(commonPorts))
	g.mu.Unlock()
	ports := make([]int, 0, n)
	for _, i := range perm[:n] {
		ports = append(ports, commonPorts[i])
	}
	sort.Ints(ports)
	return ports
}

// Service names a well-known port.
func Service(port int) string {
	if s, ok := services[port]; ok {
		return s
	}
	return "unknown"
}

// Vulnerability returns a made-up vulnerability description.
func (g *Generator) Vulnerability() string {
	return vulnerabilities[g.Intn(len(vulnerabilities))]
}

// Ping renders count echo replies from host.
func (g *Generator) Ping(host string, count int) []string {
	ip := host
	if net.ParseIP(host) == nil {
		ip = g.IP()
	}
	lines := []string{fmt.Sprintf("PING %s (%s) 56(84) bytes of data.", host, ip)}
	var total float64
	for seq := 1; seq <= count; seq++ {
		ms := float64(g.Between(8, 120)) + float64(g.Intn(1000))/1000
		total += ms
		lines = append(lines, fmt.Sprintf("64 bytes from %s: icmp_seq=%d ttl=%d time=%.3f ms", ip, seq, g.Between(48, 64), ms))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("--- %s ping statistics ---", host),
		fmt.Sprintf("%d packets transmitted, %d received, 0%% packet loss", count, count),
	)
	if count > 0 {
		lines = append(lines, fmt.Sprintf("rtt avg = %.3f ms", total/float64(count)))
	}
	return lines
}
