package ranges

import (
	"math/rand"
	"net/netip"
	"testing"
)

func mustParse(t *testing.T, s string) CIDRBlock {
	t.Helper()
	b, err := ParseBlock(s)
	if err != nil {
		t.Fatalf("ParseBlock(%q) failed: %v", s, err)
	}
	return b
}

func TestParseBlock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain cidr", input: "104.16.0.0/13", want: "104.16.0.0/13"},
		{name: "bare ip becomes /32", input: "8.8.8.8", want: "8.8.8.8/32"},
		{name: "host bits cleared", input: "10.1.2.3/8", want: "10.0.0.0/8"},
		{name: "whitespace trimmed", input: "  192.168.0.0/16 ", want: "192.168.0.0/16"},
		{name: "zero prefix", input: "0.0.0.0/0", want: "0.0.0.0/0"},
		{name: "prefix too long", input: "1.2.3.4/33", wantErr: true},
		{name: "negative prefix", input: "1.2.3.4/-1", wantErr: true},
		{name: "not an address", input: "hello/24", wantErr: true},
		{name: "ipv6 rejected", input: "2606:4700::/32", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBlock(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseBlock(%q) = %v, want error", tt.input, b)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBlock(%q) failed: %v", tt.input, err)
			}
			if b.String() != tt.want {
				t.Errorf("ParseBlock(%q) = %s, want %s", tt.input, b, tt.want)
			}
		})
	}
}

func TestRangeSet_Contains(t *testing.T) {
	set := Build([]CIDRBlock{
		mustParse(t, "104.16.0.0/13"),
		mustParse(t, "151.101.0.0/16"),
		mustParse(t, "8.8.8.8/32"),
	})

	inside := []string{"104.16.0.1", "104.23.255.255", "151.101.65.140", "8.8.8.8"}
	for _, ip := range inside {
		if !set.Contains(netip.MustParseAddr(ip)) {
			t.Errorf("Contains(%s) = false, want true", ip)
		}
	}

	outside := []string{"104.24.0.0", "151.102.0.1", "8.8.8.9", "19.12.14.1"}
	for _, ip := range outside {
		if set.Contains(netip.MustParseAddr(ip)) {
			t.Errorf("Contains(%s) = true, want false", ip)
		}
	}
}

func TestRangeSet_OverlappingBlocks(t *testing.T) {
	// A wide block followed by a narrower nested one: membership must be
	// a union, so an address inside the wide block but after the narrow
	// block's network must still match.
	set := Build([]CIDRBlock{
		mustParse(t, "10.0.0.0/8"),
		mustParse(t, "10.128.0.0/24"),
		mustParse(t, "10.128.1.0/24"),
	})

	cases := []string{
		"10.128.0.5",   // inside both /8 and first /24
		"10.128.2.9",   // inside /8 only, binary search lands past the /24s
		"10.255.255.1", // inside /8 only
	}
	for _, ip := range cases {
		if !set.Contains(netip.MustParseAddr(ip)) {
			t.Errorf("Contains(%s) = false, want true (union semantics)", ip)
		}
	}

	if set.Contains(netip.MustParseAddr("11.0.0.1")) {
		t.Error("Contains(11.0.0.1) = true, want false")
	}
}

func TestRangeSet_DuplicateBlocks(t *testing.T) {
	set := Build([]CIDRBlock{
		mustParse(t, "172.16.0.0/12"),
		mustParse(t, "172.16.0.0/12"),
		mustParse(t, "172.20.1.2/12"), // canonicalizes to the same network
	})

	if set.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after dedup", set.Len())
	}
	if !set.Contains(netip.MustParseAddr("172.20.1.2")) {
		t.Error("Contains(172.20.1.2) = false, want true")
	}
}

func TestRangeSet_BuildIdempotence(t *testing.T) {
	blocks := []CIDRBlock{
		mustParse(t, "104.16.0.0/13"),
		mustParse(t, "10.0.0.0/8"),
		mustParse(t, "10.128.0.0/24"),
		mustParse(t, "151.101.0.0/16"),
		mustParse(t, "198.41.128.0/17"),
		mustParse(t, "8.8.8.8/32"),
	}

	a := Build(blocks)

	shuffled := make([]CIDRBlock, len(blocks))
	copy(shuffled, blocks)
	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	b := Build(shuffled)

	probes := []string{
		"104.16.0.1", "104.24.0.0", "10.128.0.5", "10.200.0.1", "151.101.1.1",
		"198.41.200.10", "8.8.8.8", "8.8.8.9", "1.1.1.1", "255.255.255.255",
	}
	for _, ip := range probes {
		addr := netip.MustParseAddr(ip)
		if a.Contains(addr) != b.Contains(addr) {
			t.Errorf("membership for %s differs between build orders", ip)
		}
	}
}

func TestRangeSet_Empty(t *testing.T) {
	set := Build(nil)
	if set.Contains(netip.MustParseAddr("1.2.3.4")) {
		t.Error("empty set reported membership")
	}
	if set.Len() != 0 {
		t.Errorf("Len() = %d, want 0", set.Len())
	}
}

func TestRangeSet_ContainsIP(t *testing.T) {
	set := Build([]CIDRBlock{mustParse(t, "203.0.113.0/24")})

	if !set.ContainsIP("203.0.113.7") {
		t.Error("ContainsIP(203.0.113.7) = false, want true")
	}
	if set.ContainsIP("not-an-ip") {
		t.Error("ContainsIP(not-an-ip) = true, want false")
	}
	if set.ContainsIP("2606:4700::1") {
		t.Error("ContainsIP with IPv6 = true, want false")
	}
}

func TestRangeSet_ZeroPrefixMatchesEverything(t *testing.T) {
	set := Build([]CIDRBlock{mustParse(t, "0.0.0.0/0")})

	for _, ip := range []string{"0.0.0.0", "127.0.0.1", "255.255.255.255"} {
		if !set.Contains(netip.MustParseAddr(ip)) {
			t.Errorf("Contains(%s) = false, want true with 0.0.0.0/0 loaded", ip)
		}
	}
}
