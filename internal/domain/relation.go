package domain

import (
	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// RelationType is the closed set of typed edges between two experiences.
type RelationType byte

const (
	RelationSupports RelationType = iota
	RelationContradicts
	RelationElaborates
	RelationSupersedes
	RelationImplies
	RelationRelatedTo
)

// RelationDirection selects which side of a relation edge to traverse.
type RelationDirection int

const (
	DirectionOutgoing RelationDirection = iota
	DirectionIncoming
	DirectionBoth
)

// ExperienceRelation is a typed, strength-weighted edge from a source
// experience to a target experience. The pair (SourceID, TargetID,
// RelationType) is unique within a collective.
type ExperienceRelation struct {
	ID           ids.RelationID
	CollectiveID ids.CollectiveID
	SourceID     ids.ExperienceID
	TargetID     ids.ExperienceID
	RelationType RelationType
	Strength     float64 // [0, 1]
	Metadata     string  // empty means unset; JSON-encoded at the caller's discretion
	CreatedAt    ids.Timestamp
}

// NewRelation is the input to StoreRelation.
type NewRelation struct {
	CollectiveID ids.CollectiveID
	SourceID     ids.ExperienceID
	TargetID     ids.ExperienceID
	RelationType RelationType
	Strength     float64
	Metadata     string
}

// ValidateNewRelation checks the relation's own fields; referential
// integrity (that source and target exist in the same collective) is
// the facade's job, since it requires a storage lookup.
func ValidateNewRelation(n NewRelation) error {
	if n.SourceID == n.TargetID {
		return pulseerr.InvalidField("target_id", "a relation cannot link an experience to itself")
	}
	if n.Strength < 0 || n.Strength > 1 {
		return pulseerr.InvalidField("strength", "must be between 0.0 and 1.0")
	}
	if len(n.Metadata) > MaxRelationMetadataSize {
		return pulseerr.ContentTooLarge(len(n.Metadata), MaxRelationMetadataSize)
	}
	return nil
}
