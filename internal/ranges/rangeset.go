// Package ranges implements the IPv4 CIDR index that classification queries
// run against. A RangeSet is built once per refresh cycle and is immutable
// afterwards, so resolver workers can share it without locking.
package ranges

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"sort"
	"strconv"
	"strings"
)

// CIDRBlock is a single IPv4 network in canonical form: all address bits
// beyond the prefix length are cleared.
type CIDRBlock struct {
	Network uint32
	Prefix  uint8
}

// mask returns the network mask for the block's prefix length.
func (b CIDRBlock) mask() uint32 {
	if b.Prefix == 0 {
		return 0
	}
	return ^uint32(0) << (32 - b.Prefix)
}

// last returns the highest address covered by the block.
func (b CIDRBlock) last() uint32 {
	return b.Network | ^b.mask()
}

// contains reports whether addr falls inside the block.
func (b CIDRBlock) contains(addr uint32) bool {
	return addr&b.mask() == b.Network
}

// canonical returns the block with host bits cleared.
func (b CIDRBlock) canonical() CIDRBlock {
	return CIDRBlock{Network: b.Network & b.mask(), Prefix: b.Prefix}
}

func (b CIDRBlock) String() string {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], b.Network)
	return fmt.Sprintf("%s/%d", netip.AddrFrom4(buf).String(), b.Prefix)
}

// ParseBlock parses an IPv4 CIDR string. A bare address without an explicit
// prefix is treated as a /32 host route.
func ParseBlock(s string) (CIDRBlock, error) {
	s = strings.TrimSpace(s)
	addrPart := s
	prefix := 32

	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		addrPart = s[:idx]
		p, err := strconv.Atoi(s[idx+1:])
		if err != nil || p < 0 || p > 32 {
			return CIDRBlock{}, fmt.Errorf("invalid prefix length in %q", s)
		}
		prefix = p
	}

	addr, err := netip.ParseAddr(addrPart)
	if err != nil || !addr.Is4() {
		return CIDRBlock{}, fmt.Errorf("invalid IPv4 address in %q", s)
	}

	block := CIDRBlock{Network: addrToUint32(addr), Prefix: uint8(prefix)}
	return block.canonical(), nil
}

func addrToUint32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

// RangeSet is an immutable collection of CIDR blocks supporting membership
// queries. Blocks are sorted by network address; maxLast[i] holds the highest
// address covered by any of blocks[0..i], which bounds the backward scan in
// Contains when provider ranges overlap or nest.
type RangeSet struct {
	blocks  []CIDRBlock
	maxLast []uint32
}

// Build constructs a RangeSet from blocks. Input blocks are canonicalized and
// deduplicated; overlapping and nested blocks are allowed.
func Build(blocks []CIDRBlock) *RangeSet {
	seen := make(map[CIDRBlock]struct{}, len(blocks))
	unique := make([]CIDRBlock, 0, len(blocks))
	for _, b := range blocks {
		c := b.canonical()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, c)
	}

	sort.Slice(unique, func(i, j int) bool {
		if unique[i].Network != unique[j].Network {
			return unique[i].Network < unique[j].Network
		}
		return unique[i].Prefix < unique[j].Prefix
	})

	maxLast := make([]uint32, len(unique))
	var running uint32
	for i, b := range unique {
		if end := b.last(); i == 0 || end > running {
			running = end
		}
		maxLast[i] = running
	}

	return &RangeSet{blocks: unique, maxLast: maxLast}
}

// Contains reports whether addr belongs to any block in the set. Membership
// is a union over all blocks, not a nearest-match lookup. Safe for concurrent
// use.
func (s *RangeSet) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.Is4() || len(s.blocks) == 0 {
		return false
	}
	ip := addrToUint32(addr)

	// First block whose network is strictly above the query address; every
	// candidate lies before it.
	idx := sort.Search(len(s.blocks), func(i int) bool {
		return s.blocks[i].Network > ip
	})

	for j := idx - 1; j >= 0; j-- {
		if s.maxLast[j] < ip {
			// No earlier block reaches this address.
			return false
		}
		if s.blocks[j].contains(ip) {
			return true
		}
	}
	return false
}

// ContainsIP is a convenience wrapper accepting a textual IPv4 address.
// Unparsable input is never a member.
func (s *RangeSet) ContainsIP(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	return s.Contains(addr)
}

// Len returns the number of unique blocks in the set.
func (s *RangeSet) Len() int {
	return len(s.blocks)
}

// Strings returns the canonical textual form of every block, sorted by
// network address. Used for cache persistence.
func (s *RangeSet) Strings() []string {
	out := make([]string, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = b.String()
	}
	return out
}
