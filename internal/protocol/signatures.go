package protocol

import "strings"

// UnknownApplication is reported when a banner matches no signature.
const UnknownApplication = "Unknown"

// Signature maps a case-insensitive banner substring to a product name.
type Signature struct {
	Pattern string
	Name    string
}

// DefaultSignatures are checked in order; the first match wins, so more
// specific patterns must come before generic ones such as "SMTP".
var DefaultSignatures = []Signature{
	{Pattern: "nginx", Name: "Nginx Web Server"},
	{Pattern: "apache", Name: "Apache HTTP Server"},
	{Pattern: "IIS", Name: "Microsoft IIS Server"},
	{Pattern: "Postfix", Name: "Postfix Mail Server"},
	{Pattern: "Exim", Name: "Exim Mail Server"},
	{Pattern: "OpenSSH", Name: "OpenSSH Server"},
	{Pattern: "vsftpd", Name: "vsftpd FTP Server"},
	{Pattern: "ProFTPD", Name: "ProFTPD FTP Server"},
	{Pattern: "SMTP", Name: "SMTP Server"},
}

// MatchSignature returns the name of the first signature found in banner,
// or "" when none matches.
func MatchSignature(banner string, signatures []Signature) string {
	lower := strings.ToLower(banner)
	for _, sig := range signatures {
		if strings.Contains(lower, strings.ToLower(sig.Pattern)) {
			return sig.Name
		}
	}
	return ""
}

// ServerHeader returns the value of an HTTP Server header in response, or "".
func ServerHeader(response string) string {
	for line := range strings.SplitSeq(response, "\n") {
		name, value, ok := strings.Cut(strings.TrimRight(line, "\r"), ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "server") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
