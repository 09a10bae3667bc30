// Package hashing provides checksum-based change detection for range data.
package hashing

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
)

// ChecksumStringSet is a deduplicating string set with a content checksum.
// The checksum is computed over the sorted entries, so two sets holding the
// same ranges hash identically regardless of provider fetch order.
type ChecksumStringSet struct {
	set map[string]struct{}
}

// NewChecksumStringSet creates an empty set.
func NewChecksumStringSet() *ChecksumStringSet {
	return &ChecksumStringSet{
		set: make(map[string]struct{}),
	}
}

// Put adds str to the set. Duplicates are ignored.
func (p *ChecksumStringSet) Put(str string) {
	p.set[str] = struct{}{}
}

// Size returns the number of unique entries.
func (p *ChecksumStringSet) Size() int {
	return len(p.set)
}

// Sorted returns the entries in lexicographic order.
func (p *ChecksumStringSet) Sorted() []string {
	out := make([]string, 0, len(p.set))
	for s := range p.set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Checksum returns the MD5 of the sorted entries as a hex string.
func (p *ChecksumStringSet) Checksum() string {
	h := md5.New()
	for _, s := range p.Sorted() {
		h.Write([]byte(s))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
