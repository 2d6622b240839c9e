// Package search holds the query-side value objects shared by semantic
// kNN search and recency scans: a single Filter predicate is composed
// into both the vector traversal and the EXPERIENCES_BY_TIME walk so
// the two retrieval paths never drift apart.
package search

import (
	"github.com/draco28/pulsedb/internal/domain"
	"github.com/draco28/pulsedb/pkg/ids"
)

// Filter is a value object describing which experiences a search or
// recency scan should consider. Every clause is optional; a zero-value
// Filter matches every experience, archived ones included (use
// DefaultFilter to exclude archived experiences). Clauses AND together.
type Filter struct {
	Domains         []string
	ExperienceTypes []domain.ExperienceTypeTag
	MinImportance   *float64
	MinConfidence   *float64
	Since           *ids.Timestamp
	// ExcludeArchived defaults to true at the call site (via
	// DefaultFilter), matching the specification's default.
	ExcludeArchived bool
}

// DefaultFilter returns the zero-clause filter with ExcludeArchived set,
// the default every public search and scan operation starts from.
func DefaultFilter() Filter {
	return Filter{ExcludeArchived: true}
}

// Matches reports whether exp satisfies every clause of f. This is the
// single predicate shared by vector-index filter-during-traversal and by
// recency-scan filtering, so the two retrieval paths can never diverge.
func (f Filter) Matches(exp domain.Experience) bool {
	if f.ExcludeArchived && exp.Archived {
		return false
	}
	if len(f.Domains) > 0 && !intersects(f.Domains, exp.DomainTags) {
		return false
	}
	if len(f.ExperienceTypes) > 0 {
		tag := domain.TagGeneric
		if exp.ExperienceType != nil {
			tag = exp.ExperienceType.Tag()
		}
		if !containsTag(f.ExperienceTypes, tag) {
			return false
		}
	}
	if f.MinImportance != nil && exp.Importance < *f.MinImportance {
		return false
	}
	if f.MinConfidence != nil && exp.Confidence < *f.MinConfidence {
		return false
	}
	if f.Since != nil && exp.CreatedAt.Millis() < f.Since.Millis() {
		return false
	}
	return true
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func containsTag(tags []domain.ExperienceTypeTag, tag domain.ExperienceTypeTag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
