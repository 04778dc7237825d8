package store

import (
	"fmt"
	"net/netip"
)

// canonicalIP normalizes ip to lowercase hex, collapsed IPv6, with any
// zone id stripped, per spec.md §4.3's canonicalization rule. If ip does
// not parse, it is returned unchanged so that FQN-only rows (no IP yet)
// still canonicalize deterministically.
func canonicalIP(ip string) string {
	if ip == "" {
		return ""
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ip
	}
	return addr.WithZone("").String()
}

// ensurePublicIP validates that ip is a publicly routable address,
// rejecting loopback, private, link-local, multicast, and unspecified
// ranges. Used by Scheduler.UpdateAlias (spec.md §4.4.4).
func ensurePublicIP(ip string) (string, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a valid IP", ErrInvalidInput, ip)
	}
	if !isPublicAddr(addr) {
		return "", fmt.Errorf("%w: %q is not a public, routable address", ErrInvalidInput, ip)
	}
	return addr.WithZone("").String(), nil
}

func isPublicAddr(addr netip.Addr) bool {
	switch {
	case addr.IsLoopback():
		return false
	case addr.IsPrivate():
		return false
	case addr.IsLinkLocalUnicast():
		return false
	case addr.IsLinkLocalMulticast():
		return false
	case addr.IsInterfaceLocalMulticast():
		return false
	case addr.IsMulticast():
		return false
	case addr.IsUnspecified():
		return false
	default:
		return true
	}
}

// isPublicIP reports whether ip parses as a public routable address,
// without returning an error. Used by the alias-cascade condition (a) in
// spec.md §4.4.4, where a non-public current IP is itself the trigger to
// overwrite rather than an input to validate.
func isPublicIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return isPublicAddr(addr)
}

// EnsurePublicIP is the exported form of ensurePublicIP, for
// pkg/scheduler's UpdateAlias.
func EnsurePublicIP(ip string) (string, error) {
	return ensurePublicIP(ip)
}

// IsPublicIP is the exported form of isPublicIP, for pkg/scheduler's
// alias-cascade rule.
func IsPublicIP(ip string) bool {
	return isPublicIP(ip)
}
