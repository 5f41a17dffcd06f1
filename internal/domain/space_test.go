package domain

import (
	"errors"
	"net/netip"
	"testing"
)

func mustPrefix(t *testing.T, s string) netip.Prefix {
	t.Helper()
	prefix, err := ParseIPv4Prefix(s)
	if err != nil {
		t.Fatalf("parse prefix %q: %v", s, err)
	}
	return prefix
}

func TestSpaceArithmeticSlash24(t *testing.T) {
	space := Space{CIDR: mustPrefix(t, "192.168.1.0/24")}

	if got := space.NetworkAddress().String(); got != "192.168.1.0" {
		t.Errorf("network address = %s, want 192.168.1.0", got)
	}
	if got := space.BroadcastAddress().String(); got != "192.168.1.255" {
		t.Errorf("broadcast address = %s, want 192.168.1.255", got)
	}
	if got := space.TotalUsableCount(); got != 254 {
		t.Errorf("total usable = %d, want 254", got)
	}

	first, last, ok := space.UsableRange()
	if !ok {
		t.Fatal("expected usable range")
	}
	if first.String() != "192.168.1.1" || last.String() != "192.168.1.254" {
		t.Errorf("usable range = %s-%s, want 192.168.1.1-192.168.1.254", first, last)
	}
}

func TestSpaceNetworkAddressIdempotentAndContained(t *testing.T) {
	for _, cidr := range []string{"10.0.0.0/8", "172.16.5.0/22", "192.168.1.128/25", "203.0.113.7/32"} {
		space := Space{CIDR: mustPrefix(t, cidr)}

		network := space.NetworkAddress()
		again := Space{CIDR: netip.PrefixFrom(network, space.CIDR.Bits())}.NetworkAddress()
		if network != again {
			t.Errorf("%s: network address not idempotent: %s vs %s", cidr, network, again)
		}
		if !space.Contains(network) {
			t.Errorf("%s: space does not contain its own network address", cidr)
		}
	}
}

func TestSpaceUsableCountFormula(t *testing.T) {
	for bits := 0; bits <= 30; bits++ {
		space := Space{CIDR: netip.PrefixFrom(netip.MustParseAddr("10.0.0.0"), bits)}
		want := (uint64(1) << (32 - bits)) - 2
		if got := space.TotalUsableCount(); got != want {
			t.Errorf("/%d: total usable = %d, want %d", bits, got, want)
		}
	}
}

func TestSpaceSlash31IsPointToPoint(t *testing.T) {
	space := Space{CIDR: mustPrefix(t, "10.0.0.0/31")}

	if got := space.TotalUsableCount(); got != 2 {
		t.Errorf("total usable = %d, want 2", got)
	}
	first, last, ok := space.UsableRange()
	if !ok {
		t.Fatal("expected usable range")
	}
	if first.String() != "10.0.0.0" || last.String() != "10.0.0.1" {
		t.Errorf("usable range = %s-%s, want 10.0.0.0-10.0.0.1", first, last)
	}
}

func TestSpaceSlash32IsHostRoute(t *testing.T) {
	space := Space{CIDR: mustPrefix(t, "10.0.0.5/32")}

	if got := space.TotalUsableCount(); got != 1 {
		t.Errorf("total usable = %d, want 1", got)
	}
	first, last, ok := space.UsableRange()
	if !ok {
		t.Fatal("expected usable range")
	}
	if first != last || first.String() != "10.0.0.5" {
		t.Errorf("usable range = %s-%s, want 10.0.0.5 only", first, last)
	}
}

func TestParseIPv4RejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "10.0.0", "10.0.0.0.0", "10.0.0.256", "fe80::1", "not-an-ip"} {
		if _, err := ParseIPv4(input); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseIPv4(%q): expected ErrInvalidInput, got %v", input, err)
		}
	}
}

func TestParseIPv4PrefixRejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "10.0.0.0", "10.0.0.0/33", "10.0.0.0/-1", "fe80::/64", "10.0.0.256/24"} {
		if _, err := ParseIPv4Prefix(input); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseIPv4Prefix(%q): expected ErrInvalidInput, got %v", input, err)
		}
	}
}
