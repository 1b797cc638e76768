package dbtypes

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDArrayRoundTrip(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	arr := UUIDArray{first, second}

	value, err := arr.Value()
	if err != nil {
		t.Fatalf("unexpected Value error: %v", err)
	}

	var decoded UUIDArray
	if err := decoded.Scan(value); err != nil {
		t.Fatalf("unexpected Scan error: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != first || decoded[1] != second {
		t.Fatalf("round trip mismatch: %v", decoded)
	}
}

func TestUUIDArrayScanEmpty(t *testing.T) {
	var decoded UUIDArray
	if err := decoded.Scan("{}"); err != nil {
		t.Fatalf("unexpected Scan error: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected empty array, got %v", decoded)
	}
}

func TestUUIDArrayContainsAndWithout(t *testing.T) {
	member := uuid.New()
	other := uuid.New()
	arr := UUIDArray{member, other}

	if !arr.Contains(member) {
		t.Fatal("expected Contains true for member")
	}
	if arr.Contains(uuid.New()) {
		t.Fatal("expected Contains false for stranger")
	}

	trimmed := arr.Without(member)
	if len(trimmed) != 1 || trimmed[0] != other {
		t.Fatalf("unexpected Without result: %v", trimmed)
	}
	// original untouched
	if len(arr) != 2 {
		t.Fatalf("Without must not mutate the receiver, got %v", arr)
	}
}

func TestUUIDArrayScanRejectsGarbage(t *testing.T) {
	var decoded UUIDArray
	if err := decoded.Scan("{not-a-uuid}"); err == nil {
		t.Fatal("expected error for malformed uuid")
	}
}
