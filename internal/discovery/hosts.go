package discovery

import (
	"fmt"
	"net/netip"
	"strings"
)

// ParseSubnet parses CIDR text and masks off host bits ("10.0.0.7/24" is
// treated as 10.0.0.0/24).
func ParseSubnet(cidr string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %v", ErrInvalidSubnet, err)
	}
	return prefix.Masked(), nil
}

// UsableHosts lists the addresses a sweep probes. Ranges of four or more
// addresses drop the network and broadcast address; /31 and /32 (and IPv6
// /127 and /128) keep every address.
func UsableHosts(prefix netip.Prefix, maxAddresses int) ([]netip.Addr, error) {
	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if hostBits >= 31 || (maxAddresses > 0 && 1<<hostBits > maxAddresses) {
		return nil, fmt.Errorf("%w: %s spans more than %d addresses", ErrInvalidSubnet, prefix, maxAddresses)
	}

	size := 1 << hostBits
	hosts := make([]netip.Addr, 0, size)
	addr := prefix.Addr()
	for i := 0; i < size; i++ {
		hosts = append(hosts, addr)
		addr = addr.Next()
	}

	if size >= 4 {
		hosts = hosts[1 : size-1]
	}
	return hosts, nil
}
