// Package main provides the entry point for the nmapclone CLI.
//
// nmapclone classifies TCP ports of a single IPv4 host by chaining raw
// packet probes (ICMP echo, ACK, half-open, window, connect, null, Xmas and
// FIN) and optionally guesses the operating system and the listening
// application of open ports.
//
// Usage:
//
//	nmapclone scan -a <address> -p <ports>
//	nmapclone compare <address>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
