package schemaregistry

import "testing"

func TestSchemaHash_StableAndDistinct(t *testing.T) {
	t.Parallel()

	a := schemaHash(`{"type":"record","name":"User"}`)
	b := schemaHash(`{"type":"record","name":"User"}`)
	c := schemaHash(`{"type":"record","name":"Order"}`)

	if a != b {
		t.Fatalf("expected stable hash, got %q and %q", a, b)
	}
	if a == c {
		t.Fatalf("expected distinct hashes for distinct schemas, got %q for both", a)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16-character hash prefix, got %d characters", len(a))
	}
}
