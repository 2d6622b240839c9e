package domain

import (
	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// InsightType classifies how a derived insight was arrived at.
type InsightType byte

const (
	InsightPattern InsightType = iota
	InsightSynthesis
	InsightAbstraction
	InsightCorrelation
)

// DerivedInsight is a higher-order observation synthesized from one or
// more source experiences, carrying its own embedding so it can be
// retrieved by semantic similarity independently of its sources.
type DerivedInsight struct {
	ID                 ids.InsightID
	CollectiveID       ids.CollectiveID
	Content            string
	Embedding          []float32
	SourceExperienceIDs []ids.ExperienceID
	InsightType        InsightType
	Confidence         float64 // [0, 1]
	Domain             string
	CreatedAt          ids.Timestamp
	UpdatedAt          ids.Timestamp
}

// NewInsight is the input to StoreInsight.
type NewInsight struct {
	CollectiveID        ids.CollectiveID
	Content             string
	Embedding           []float32
	SourceExperienceIDs []ids.ExperienceID
	InsightType         InsightType
	Confidence          float64
	Domain              string
}

// ValidateNewInsight checks the insight's own fields; that every
// SourceExperienceIDs entry exists in CollectiveID is the facade's job.
func ValidateNewInsight(n NewInsight) error {
	if len(n.Content) == 0 {
		return pulseerr.RequiredField("content")
	}
	if len(n.Content) > MaxInsightContentSize {
		return pulseerr.ContentTooLarge(len(n.Content), MaxInsightContentSize)
	}
	if len(n.SourceExperienceIDs) == 0 {
		return pulseerr.RequiredField("source_experience_ids")
	}
	if len(n.SourceExperienceIDs) > MaxInsightSources {
		return pulseerr.TooManyItems("source_experience_ids", len(n.SourceExperienceIDs), MaxInsightSources)
	}
	if n.Confidence < 0 || n.Confidence > 1 {
		return pulseerr.InvalidField("confidence", "must be between 0.0 and 1.0")
	}
	if n.Embedding == nil {
		return pulseerr.RequiredField("embedding")
	}
	return nil
}
