package netsim

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var payloads = []string{
	"USER admin\r\n",
	"GET /admin/login HTTP/1.1\r\nHost: intranet.neocorp.net\r\n\r\n",
	"EHLO mail.neocorp.net\r\n",
	"AUTH PLAIN ********\r\n",
	"SELECT * FROM employees WHERE clearance > 3;",
}

// Frame crafts one Ethernet/IPv4/TCP frame carrying payload.
func (g *Generator) Frame(src, dst net.IP, srcPort, dstPort uint16, payload []byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       g.MAC(),
		DstMAC:       g.MAC(),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Id:       uint16(g.Intn(1 << 16)),
		SrcIP:    src.To4(),
		DstIP:    dst.To4(),
		Protocol: layers.IPProtocolTCP,
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     uint32(g.Intn(1 << 30)),
		Ack:     1,
		Window:  14600,
		ACK:     true,
		PSH:     true,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Describe dissects a frame into one summary line.
func Describe(frame []byte) string {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	if errLayer := pkt.ErrorLayer(); errLayer != nil {
		return fmt.Sprintf("[malformed] %v", errLayer.Error())
	}

	var src, dst string
	if l, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
		src, dst = l.SrcIP.String(), l.DstIP.String()
	}
	line := fmt.Sprintf("%d bytes", len(frame))
	if l, ok := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
		line = fmt.Sprintf("%s:%d > %s:%d TCP len=%d", src, l.SrcPort, dst, l.DstPort, len(l.Payload))
		if app := pkt.ApplicationLayer(); app != nil {
			line += fmt.Sprintf(" %q", truncate(string(app.Payload()), 48))
		}
	}
	return line
}

// Sniff captures count synthetic frames between target and random peers.
func (g *Generator) Sniff(target string, count int) ([]string, error) {
	dst := net.ParseIP(target)
	if dst == nil || dst.To4() == nil {
		dst = net.ParseIP(g.IP())
	}
	lines := []string{fmt.Sprintf("listening on eth0, capturing traffic for %s", dst)}
	for i := 0; i < count; i++ {
		src := net.ParseIP(g.IP())
		ports := g.Ports(1)
		payload := payloads[g.Intn(len(payloads))]
		frame, err := g.Frame(src, dst, uint16(g.Between(32768, 60999)), uint16(ports[0]), []byte(payload))
		if err != nil {
			return nil, fmt.Errorf("craft frame: %w", err)
		}
		lines = append(lines, Describe(frame))
	}
	lines = append(lines, fmt.Sprintf("%d packets captured", count))
	return lines, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
