package objstorage

import "testing"

func TestContentHash_StableAndFull256Bit(t *testing.T) {
	t.Parallel()

	a := contentHash([]byte("hello world"))
	b := contentHash([]byte("hello world"))
	c := contentHash([]byte("hello there"))

	if a != b {
		t.Fatalf("expected stable hash, got %q and %q", a, b)
	}
	if a == c {
		t.Fatalf("expected distinct hashes for distinct content")
	}
	if len(a) != 64 {
		t.Fatalf("expected full sha256 hex digest (64 chars), got %d", len(a))
	}
}
