package domain

import (
	"strings"

	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// Collective is the isolation unit: every experience, relation, insight,
// and activity belongs to exactly one collective, and each collective
// has its own embedding dimension and vector index.
type Collective struct {
	ID                 ids.CollectiveID
	Name               string
	OwnerID            string // empty means unset
	EmbeddingDimension int
	CreatedAt          ids.Timestamp
	UpdatedAt          ids.Timestamp
}

// ValidateCollectiveName enforces the 1-255 character, not-whitespace-only
// rule shared by creation and rename.
func ValidateCollectiveName(name string) error {
	if len(name) == 0 {
		return pulseerr.RequiredField("name")
	}
	if len(name) > MaxCollectiveNameLength {
		return pulseerr.InvalidField("name", "must be at most 255 characters")
	}
	if strings.TrimSpace(name) == "" {
		return pulseerr.InvalidField("name", "must not be whitespace-only")
	}
	return nil
}
