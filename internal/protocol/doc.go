// Package protocol identifies the application behind an open TCP port.
//
// BannerGrabber connects with a plain TCP dialer or through a SOCKS5 proxy
// (golang.org/x/net/proxy), sends a probe message, reads the greeting and
// matches it against a table of product signatures. Well-known ports get a
// protocol-specific opener first: an HTTP HEAD request on 80/8000/8080, an FTP
// USER command on 21 and an SMTP HELO on 25. When a read times out the next
// probe message is tried on a fresh connection.
package protocol
