// Package packet builds, sends, and matches raw probe packets.
//
// Probes are described as protocol-level Frames (a TCP segment or an ICMP
// echo request) and handed to a Transport. RawTransport is the production
// implementation: it writes hand-built segments over raw IPv4 sockets and
// waits for the single reply that belongs to the probe's flow, whether that
// reply is a TCP segment from the target or an ICMP error quoting the probe.
//
// Frames are encoded with gopacket so checksums and header lengths are
// computed the same way a packet capture library would decode them.
//
// Raw sockets need root or CAP_NET_RAW. Use CanOpenRawSocket to check up
// front; transports return ErrNoPrivilege when the kernel refuses.
//
// The packettest subpackage provides a scripted Transport for tests.
package packet
