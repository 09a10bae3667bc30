package hashing

import "testing"

func TestChecksumStringSet_Deduplicates(t *testing.T) {
	set := NewChecksumStringSet()
	set.Put("1.2.3.0/24")
	set.Put("1.2.3.0/24")
	set.Put("10.0.0.0/8")

	if set.Size() != 2 {
		t.Errorf("Size() = %d, want 2", set.Size())
	}
}

func TestChecksumStringSet_OrderIndependentChecksum(t *testing.T) {
	a := NewChecksumStringSet()
	a.Put("1.2.3.0/24")
	a.Put("10.0.0.0/8")
	a.Put("172.16.0.0/12")

	b := NewChecksumStringSet()
	b.Put("172.16.0.0/12")
	b.Put("10.0.0.0/8")
	b.Put("1.2.3.0/24")

	if a.Checksum() != b.Checksum() {
		t.Errorf("checksums differ for identical content: %s vs %s", a.Checksum(), b.Checksum())
	}
}

func TestChecksumStringSet_DifferentContentDifferentChecksum(t *testing.T) {
	a := NewChecksumStringSet()
	a.Put("1.2.3.0/24")

	b := NewChecksumStringSet()
	b.Put("1.2.4.0/24")

	if a.Checksum() == b.Checksum() {
		t.Error("checksums match for different content")
	}
}

func TestChecksumStringSet_Sorted(t *testing.T) {
	set := NewChecksumStringSet()
	set.Put("b")
	set.Put("a")
	set.Put("c")

	sorted := set.Sorted()
	if len(sorted) != 3 || sorted[0] != "a" || sorted[1] != "b" || sorted[2] != "c" {
		t.Errorf("Sorted() = %v, want [a b c]", sorted)
	}
}
