// Package privacy masks client identifiers before they reach logs.
package privacy

import (
	"net/netip"
)

// AnonymizeIP keeps the network part of an address and drops the host part:
// IPv4 is cut to /24 and IPv6 to /48. Empty input yields "unknown" and
// anything unparseable yields "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
