package domain

import (
	"testing"

	"github.com/draco28/pulsedb/pkg/ids"
)

func TestValidateNewRelationOK(t *testing.T) {
	n := NewRelation{
		CollectiveID: ids.NewCollectiveID(),
		SourceID:     ids.NewExperienceID(),
		TargetID:     ids.NewExperienceID(),
		RelationType: RelationSupports,
		Strength:     0.7,
	}
	if err := ValidateNewRelation(n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateNewRelationRejectsSelfLink(t *testing.T) {
	exp := ids.NewExperienceID()
	n := NewRelation{
		SourceID:     exp,
		TargetID:     exp,
		RelationType: RelationRelatedTo,
		Strength:     0.5,
	}
	if err := ValidateNewRelation(n); err == nil {
		t.Fatal("expected error for self-referential relation")
	}
}

func TestValidateNewRelationRejectsOutOfRangeStrength(t *testing.T) {
	n := NewRelation{
		SourceID:     ids.NewExperienceID(),
		TargetID:     ids.NewExperienceID(),
		RelationType: RelationImplies,
		Strength:     1.1,
	}
	if err := ValidateNewRelation(n); err == nil {
		t.Fatal("expected error for out-of-range strength")
	}
}

func TestValidateNewRelationRejectsOversizedMetadata(t *testing.T) {
	big := make([]byte, MaxRelationMetadataSize+1)
	n := NewRelation{
		SourceID:     ids.NewExperienceID(),
		TargetID:     ids.NewExperienceID(),
		RelationType: RelationElaborates,
		Strength:     0.5,
		Metadata:     string(big),
	}
	if err := ValidateNewRelation(n); err == nil {
		t.Fatal("expected error for oversized metadata")
	}
}
