package domain

import (
	"strings"
	"testing"

	"github.com/draco28/pulsedb/pkg/pulseerr"
)

func TestValidateCollectiveNameEmpty(t *testing.T) {
	if err := ValidateCollectiveName(""); err == nil {
		t.Fatal("expected error for empty name")
	} else if !pulseerr.Is(err, pulseerr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestValidateCollectiveNameWhitespace(t *testing.T) {
	if err := ValidateCollectiveName("   "); err == nil {
		t.Fatal("expected error for whitespace-only name")
	}
}

func TestValidateCollectiveNameTooLong(t *testing.T) {
	name := strings.Repeat("a", MaxCollectiveNameLength+1)
	if err := ValidateCollectiveName(name); err == nil {
		t.Fatal("expected error for overlong name")
	}
}

func TestValidateCollectiveNameOK(t *testing.T) {
	if err := ValidateCollectiveName("my-collective"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
