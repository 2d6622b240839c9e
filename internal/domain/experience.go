package domain

import (
	"strings"

	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// Experience is a single stored text+embedding pair, scoped to one
// collective and optionally attributed to an agent and a task.
type Experience struct {
	ID                ids.ExperienceID
	CollectiveID      ids.CollectiveID
	Content           string
	ExperienceType    ExperienceType
	Importance        float64 // [0, 1]
	Confidence        float64 // [0, 1]
	DomainTags        []string
	RelatedFiles      []string
	SourceAgent       string
	SourceTask        string
	EmbeddingProvided bool
	Applications      uint32
	Archived          bool
	CreatedAt         ids.Timestamp
	UpdatedAt         ids.Timestamp
}

// NewExperience is the input to RecordExperience: everything the caller supplies,
// before ids and timestamps are assigned.
type NewExperience struct {
	CollectiveID   ids.CollectiveID
	Content        string
	ExperienceType ExperienceType
	Importance     float64
	Confidence     float64
	DomainTags     []string
	RelatedFiles   []string
	SourceAgent    string
	SourceTask     string
	// Embedding, when non-nil, is used verbatim instead of being computed
	// from Content. It must match the collective's embedding dimension.
	Embedding []float32
}

// ExperienceUpdate carries the fields of an UpdateExperience call; nil pointers
// leave the corresponding field unchanged.
type ExperienceUpdate struct {
	Content        *string
	ExperienceType ExperienceType
	Importance     *float64
	Confidence     *float64
	DomainTags     []string
	RelatedFiles   []string
	Embedding      []float32
}

// ValidateNewExperience applies the full creation validation chain, in
// the order a caller would most usefully see failures: content first,
// then the bounded scalar fields, then collection bounds, then the
// variant-specific payload, and finally the embedding-required-when-
// external rule.
func ValidateNewExperience(n NewExperience, requireEmbedding bool) error {
	if err := validateContent(n.Content); err != nil {
		return err
	}
	if err := validateImportance(n.Importance); err != nil {
		return err
	}
	if err := validateConfidence(n.Confidence); err != nil {
		return err
	}
	if err := validateDomainTags(n.DomainTags); err != nil {
		return err
	}
	if err := validateRelatedFiles(n.RelatedFiles); err != nil {
		return err
	}
	if err := validateSourceAgent(n.SourceAgent); err != nil {
		return err
	}
	if n.ExperienceType != nil {
		if err := n.ExperienceType.Validate(); err != nil {
			return err
		}
	}
	if requireEmbedding && n.Embedding == nil {
		return pulseerr.RequiredField("embedding")
	}
	return nil
}

// ValidateExperienceUpdate applies the same per-field rules as
// ValidateNewExperience, but only to the fields the caller actually set.
func ValidateExperienceUpdate(u ExperienceUpdate) error {
	if u.Content != nil {
		if err := validateContent(*u.Content); err != nil {
			return err
		}
	}
	if u.Importance != nil {
		if err := validateImportance(*u.Importance); err != nil {
			return err
		}
	}
	if u.Confidence != nil {
		if err := validateConfidence(*u.Confidence); err != nil {
			return err
		}
	}
	if u.DomainTags != nil {
		if err := validateDomainTags(u.DomainTags); err != nil {
			return err
		}
	}
	if u.RelatedFiles != nil {
		if err := validateRelatedFiles(u.RelatedFiles); err != nil {
			return err
		}
	}
	if u.ExperienceType != nil {
		if err := u.ExperienceType.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return pulseerr.RequiredField("content")
	}
	if len(content) > MaxContentSize {
		return pulseerr.ContentTooLarge(len(content), MaxContentSize)
	}
	return nil
}

func validateImportance(v float64) error {
	if v < 0 || v > 1 {
		return pulseerr.InvalidField("importance", "must be between 0.0 and 1.0")
	}
	return nil
}

func validateConfidence(v float64) error {
	if v < 0 || v > 1 {
		return pulseerr.InvalidField("confidence", "must be between 0.0 and 1.0")
	}
	return nil
}

func validateDomainTags(tags []string) error {
	if len(tags) > MaxDomainTags {
		return pulseerr.TooManyItems("domain_tags", len(tags), MaxDomainTags)
	}
	for _, tag := range tags {
		if len(tag) > MaxTagLength {
			return pulseerr.InvalidField("domain_tags", "each tag must be at most 100 characters")
		}
	}
	return nil
}

func validateRelatedFiles(files []string) error {
	if len(files) > MaxSourceFiles {
		return pulseerr.TooManyItems("related_files", len(files), MaxSourceFiles)
	}
	for _, f := range files {
		if len(f) > MaxFilePathLength {
			return pulseerr.InvalidField("related_files", "each path must be at most 500 characters")
		}
	}
	return nil
}

func validateSourceAgent(agent string) error {
	if agent == "" {
		return pulseerr.RequiredField("source_agent")
	}
	if len(agent) > MaxSourceAgentLength {
		return pulseerr.InvalidField("source_agent", "must be at most 256 characters")
	}
	return nil
}
