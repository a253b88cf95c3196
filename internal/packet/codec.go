package packet

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// DefaultWindow is the window advertised by outbound probes when the frame
// leaves it unset.
const DefaultWindow = 8192

// protocolICMP is the IANA protocol number of ICMPv4.
const protocolICMP = 1

// EncodeTCP serializes a TCP segment (header only, no payload) with a
// checksum computed over the src/dst pseudo header.
func EncodeTCP(src, dst net.IP, f TCPFrame) ([]byte, error) {
	window := f.Window
	if window == 0 {
		window = DefaultWindow
	}

	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    src.To4(),
		DstIP:    dst.To4(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(f.SrcPort),
		DstPort: layers.TCPPort(f.DstPort),
		Seq:     f.Seq,
		Ack:     f.Ack,
		Window:  window,
		FIN:     f.Flags.Has(FIN),
		SYN:     f.Flags.Has(SYN),
		RST:     f.Flags.Has(RST),
		PSH:     f.Flags.Has(PSH),
		ACK:     f.Flags.Has(ACK),
		URG:     f.Flags.Has(URG),
		ECE:     f.Flags.Has(ECE),
		CWR:     f.Flags.Has(CWR),
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, fmt.Errorf("failed to set checksum layer: %w", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, tcp); err != nil {
		return nil, fmt.Errorf("failed to serialize tcp segment: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeTCP parses a TCP header from b.
func DecodeTCP(b []byte) (*TCPReply, error) {
	var tcp layers.TCP
	if err := tcp.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("failed to decode tcp segment: %w", err)
	}
	return &TCPReply{
		SrcPort: uint16(tcp.SrcPort),
		DstPort: uint16(tcp.DstPort),
		Flags:   tcpFlags(&tcp),
		Seq:     tcp.Seq,
		Ack:     tcp.Ack,
		Window:  tcp.Window,
	}, nil
}

func tcpFlags(tcp *layers.TCP) Flags {
	var f Flags
	for _, b := range []struct {
		set  bool
		flag Flags
	}{
		{tcp.FIN, FIN}, {tcp.SYN, SYN}, {tcp.RST, RST}, {tcp.PSH, PSH},
		{tcp.ACK, ACK}, {tcp.URG, URG}, {tcp.ECE, ECE}, {tcp.CWR, CWR},
	} {
		if b.set {
			f |= b.flag
		}
	}
	return f
}

// EncodeEcho serializes an ICMP echo request.
func EncodeEcho(e ICMPEcho) ([]byte, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   int(e.ID),
			Seq:  int(e.Seq),
			Data: e.Payload,
		},
	}
	b, err := msg.Marshal(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal icmp echo: %w", err)
	}
	return b, nil
}

// stripIPv4Header drops a leading IPv4 header when the platform delivers it
// on a raw ICMP socket.
func stripIPv4Header(b []byte) []byte {
	if len(b) < ipv4.HeaderLen || b[0]>>4 != 4 {
		return b
	}
	hlen := int(b[0]&0x0f) << 2
	if hlen < ipv4.HeaderLen || len(b) < hlen {
		return b
	}
	return b[hlen:]
}

// quotedDatagram is the part of an offending datagram quoted inside an ICMP
// error: its IPv4 header and the first eight bytes of its payload.
type quotedDatagram struct {
	dst      net.IP
	protocol int
	payload  []byte
}

func parseQuoted(data []byte) (*quotedDatagram, error) {
	h, err := ipv4.ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if len(data) < h.Len+4 {
		return nil, fmt.Errorf("quoted datagram too short: %d bytes", len(data))
	}
	return &quotedDatagram{dst: h.Dst, protocol: h.Protocol, payload: data[h.Len:]}, nil
}

// srcPort returns the TCP source port of the quoted datagram.
func (q *quotedDatagram) srcPort() uint16 {
	return binary.BigEndian.Uint16(q.payload[0:2])
}

// dstPort returns the TCP destination port of the quoted datagram.
func (q *quotedDatagram) dstPort() uint16 {
	return binary.BigEndian.Uint16(q.payload[2:4])
}

// echoID returns the identifier of a quoted ICMP echo request.
func (q *quotedDatagram) echoID() (uint16, bool) {
	if q.protocol != protocolICMP || len(q.payload) < 6 {
		return 0, false
	}
	return binary.BigEndian.Uint16(q.payload[4:6]), true
}

// icmpEvent is a parsed inbound ICMP message.
type icmpEvent struct {
	reply  ICMPReply
	echoID int
	isEcho bool
	quoted *quotedDatagram
}

func parseICMP(b []byte) (*icmpEvent, error) {
	msg, err := icmp.ParseMessage(protocolICMP, stripIPv4Header(b))
	if err != nil {
		return nil, err
	}

	typ, ok := msg.Type.(ipv4.ICMPType)
	if !ok {
		return nil, fmt.Errorf("unexpected icmp type %v", msg.Type)
	}

	ev := &icmpEvent{reply: ICMPReply{Type: uint8(typ), Code: uint8(msg.Code)}}
	switch body := msg.Body.(type) {
	case *icmp.Echo:
		ev.isEcho = true
		ev.echoID = body.ID
	case *icmp.DstUnreach:
		if q, err := parseQuoted(body.Data); err == nil {
			ev.quoted = q
		}
	}
	return ev, nil
}
