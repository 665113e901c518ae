package netsim

import (
	"math/rand"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *Generator {
	return NewGenerator(rand.New(rand.NewSource(7)))
}

func TestGeneratorValues(t *testing.T) {
	g := seeded()

	for i := 0; i < 50; i++ {
		ip := net.ParseIP(g.IP())
		require.NotNil(t, ip)
		assert.True(t, ip.IsPrivate(), "%s should be private", ip)

		n := g.Between(3, 5)
		assert.GreaterOrEqual(t, n, 3)
		assert.LessOrEqual(t, n, 5)
	}

	mac := g.MAC()
	assert.Len(t, mac, 6)
	assert.Equal(t, byte(0x02), mac[0]&0x03, "locally administered unicast")

	ports := g.Ports(4)
	assert.Len(t, ports, 4)
	assert.IsIncreasing(t, ports)
	assert.Len(t, g.Ports(100), len(commonPorts))

	assert.Equal(t, "ssh", Service(22))
	assert.Equal(t, "unknown", Service(1))
	assert.NotEmpty(t, g.Vulnerability())
}

func TestDeterministicWithSeed(t *testing.T) {
	assert.Equal(t, seeded().IP(), seeded().IP())
}

func TestPing(t *testing.T) {
	lines := seeded().Ping("10.0.0.13", 3)
	assert.Equal(t, "PING 10.0.0.13 (10.0.0.13) 56(84) bytes of data.", lines[0])
	replies := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "64 bytes from 10.0.0.13") {
			replies++
		}
	}
	assert.Equal(t, 3, replies)
	assert.Contains(t, strings.Join(lines, "\n"), "3 packets transmitted, 3 received")
}

func TestDig(t *testing.T) {
	g := seeded()

	lines, err := g.Dig("mail.neocorp.net", "192.168.1.42")
	require.NoError(t, err)
	out := strings.Join(lines, "\n")
	assert.Contains(t, out, "ANSWER SECTION")
	assert.Contains(t, out, "mail.neocorp.net.")
	assert.Contains(t, out, "192.168.1.42")
	assert.Contains(t, out, "MSG SIZE")

	lines, err = g.Dig("192.168.1.42", "gateway.neocorp.net")
	require.NoError(t, err)
	out = strings.Join(lines, "\n")
	assert.Contains(t, out, "42.1.168.192.in-addr.arpa.")
	assert.Contains(t, out, "gateway.neocorp.net.")

	_, err = g.Dig("mail.neocorp.net", "not-an-ip")
	assert.Error(t, err)
}

func TestFrameRoundTrip(t *testing.T) {
	g := seeded()
	frame, err := g.Frame(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.13"), 40000, 22, []byte("USER admin"))
	require.NoError(t, err)

	line := Describe(frame)
	assert.Contains(t, line, "10.0.0.1:40000")
	assert.Contains(t, line, "10.0.0.13:22")
	assert.Contains(t, line, "len=10")
	assert.Contains(t, line, `"USER admin"`)
}

func TestSniff(t *testing.T) {
	lines, err := seeded().Sniff("172.16.0.99", 5)
	require.NoError(t, err)
	require.Len(t, lines, 7)
	for _, l := range lines[1:6] {
		assert.Contains(t, l, "> 172.16.0.99:")
	}
	assert.Equal(t, "5 packets captured", lines[6])
}

func TestQR(t *testing.T) {
	lines, err := QR("https://neocorp.net")
	require.NoError(t, err)
	assert.Greater(t, len(lines), 10)
}
