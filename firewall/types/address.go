package types

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Address is an IPv4 address stored as its four dotted-quad components. It is
// comparable, so it can be used directly as a map key.
type Address [4]uint8

// ParseAddress parses an address in dotted-quad notation, e.g. "192.168.1.2".
// Each of the four components must be a decimal number between 0 and 255.
func ParseAddress(text string) (Address, error) {
	var addr Address

	parts := strings.Split(text, ".")
	if len(parts) != len(addr) {
		return addr, fmt.Errorf("%w '%s': expected 4 components, got %d",
			ErrMalformedAddress, text, len(parts))
	}

	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return Address{}, fmt.Errorf("%w '%s': component %d is not a number between 0 and 255",
				ErrMalformedAddress, text, i)
		}
		addr[i] = uint8(n)
	}

	return addr, nil
}

// MustParseAddress is like ParseAddress, but panics on error.
func MustParseAddress(text string) Address {
	addr, err := ParseAddress(text)
	if err != nil {
		panic(err)
	}
	return addr
}

// AddressFromNetIP converts an IPv4 (or IPv4-mapped IPv6) netip.Addr.
func AddressFromNetIP(ip netip.Addr) (Address, error) {
	ip = ip.Unmap()
	if !ip.Is4() {
		return Address{}, fmt.Errorf("%w '%s': not an IPv4 address", ErrMalformedAddress, ip)
	}
	return Address(ip.As4()), nil
}

// Compare returns -1 if a sorts before other, +1 if it sorts after, and 0 if
// both are equal. Components are compared numerically from left to right, and
// the first one that differs decides the result.
func (a Address) Compare(other Address) int {
	for i := range a {
		switch {
		case a[i] < other[i]:
			return -1
		case a[i] > other[i]:
			return 1
		}
	}
	return 0
}

// NetIP returns the address as a netip.Addr.
func (a Address) NetIP() netip.Addr {
	return netip.AddrFrom4(a)
}

// String returns the dotted-quad representation of the address.
func (a Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}
