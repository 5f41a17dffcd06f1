package domain

import (
	"fmt"
	"net/netip"

	"go4.org/netipx"
)

// ParseIPv4 parses a four-octet address. Malformed or IPv6 input fails
// with ErrInvalidInput, never a coerced value.
func ParseIPv4(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: invalid ipv4 address %q", ErrInvalidInput, s)
	}
	return addr, nil
}

// ParseIPv4Prefix parses CIDR notation with an IPv4 base address. Host
// bits in the base are allowed; arithmetic always starts from the masked
// network address.
func ParseIPv4Prefix(s string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil || !prefix.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: invalid ipv4 cidr %q", ErrInvalidInput, s)
	}
	return prefix, nil
}

func (s Space) Contains(addr netip.Addr) bool {
	return s.CIDR.Contains(addr)
}

func (s Space) NetworkAddress() netip.Addr {
	return s.CIDR.Masked().Addr()
}

func (s Space) BroadcastAddress() netip.Addr {
	return netipx.RangeOfPrefix(s.CIDR.Masked()).To()
}

// UsableRange returns the first and last assignable address. A /31 is a
// point-to-point link with both addresses usable (RFC 3021); a /32 is a
// host route whose single address is usable. Everything wider reserves
// the network and broadcast addresses.
func (s Space) UsableRange() (first, last netip.Addr, ok bool) {
	r := netipx.RangeOfPrefix(s.CIDR.Masked())
	if !r.IsValid() {
		return netip.Addr{}, netip.Addr{}, false
	}
	if s.CIDR.Bits() >= 31 {
		return r.From(), r.To(), true
	}
	return r.From().Next(), r.To().Prev(), true
}

func (s Space) TotalUsableCount() uint64 {
	bits := s.CIDR.Bits()
	if bits < 0 || bits > 32 {
		return 0
	}
	size := uint64(1) << (32 - bits)
	if bits >= 31 {
		return size
	}
	return size - 2
}

// contains reports whether addr falls inside the inclusive range.
func (r ReservedRange) contains(addr netip.Addr) bool {
	return netipx.IPRangeFrom(r.Start, r.End).Contains(addr)
}
