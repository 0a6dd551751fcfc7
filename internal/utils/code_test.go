package utils

import (
	"strings"
	"testing"
)

func TestNewReservationCode_ShapeAndAlphabet(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := NewReservationCode()
		if err != nil {
			t.Fatalf("code generation failed: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), codeLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	// 200 draws from a 32^10 space colliding would mean a broken source.
	if len(seen) < 200 {
		t.Fatalf("expected 200 distinct codes, got %d", len(seen))
	}
}
