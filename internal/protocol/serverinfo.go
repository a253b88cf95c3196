package protocol

import (
	"regexp"
	"strings"
)

// Disclosure is what a banner gives away beyond the product name.
type Disclosure struct {
	// Version is the product version, e.g. "1.18.0" or "9.6p1".
	Version string

	// OS is the operating system named or implied by the banner.
	OS string
}

var versionPattern = regexp.MustCompile(
	`(?i)\b(nginx|apache|microsoft-iis|openssh|proftpd|vsftpd|exim|postfix|lighttpd)[/_ ]v?(\d+(?:\.\d+)*[a-z0-9]*)`)

// osIndicators are checked in order against the lowercased banner.
var osIndicators = []struct {
	marker string
	os     string
}{
	{"ubuntu", "Ubuntu"},
	{"debian", "Debian"},
	{"centos", "CentOS"},
	{"red hat", "Red Hat"},
	{"fedora", "Fedora"},
	{"freebsd", "FreeBSD"},
	{"win32", "Windows"},
	{"win64", "Windows"},
}

// iisToWindows maps IIS releases to the Windows versions that ship them.
var iisToWindows = map[string]string{
	"7.0":  "Windows Server 2008/Vista",
	"7.5":  "Windows Server 2008 R2/Windows 7",
	"8.0":  "Windows Server 2012/Windows 8",
	"8.5":  "Windows Server 2012 R2/Windows 8.1",
	"10.0": "Windows Server 2016/2019/Windows 10",
}

// InspectBanner extracts the version and OS hints from a banner or HTTP
// response. Fields it cannot determine are left empty.
func InspectBanner(banner string) Disclosure {
	var d Disclosure

	if m := versionPattern.FindStringSubmatch(banner); m != nil {
		d.Version = m[2]
		if strings.EqualFold(m[1], "microsoft-iis") {
			d.OS = iisToWindows[d.Version]
		}
	}

	if d.OS == "" {
		lower := strings.ToLower(banner)
		for _, ind := range osIndicators {
			if strings.Contains(lower, ind.marker) {
				d.OS = ind.os
				break
			}
		}
	}

	return d
}
