// Package privacy masks client addresses before they reach the logs.
package privacy

import "net/netip"

// AnonymizeIP keeps the /24 network of an IPv4 address or the /48 prefix of
// an IPv6 address, so access logs never record a single host.
// It returns "unknown" for empty input and "invalid" for anything unparsable.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

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
