package search

import (
	"testing"

	"github.com/draco28/pulsedb/internal/domain"
	"github.com/draco28/pulsedb/pkg/ids"
)

func TestDefaultFilterExcludesArchived(t *testing.T) {
	f := DefaultFilter()
	exp := domain.Experience{Archived: true}
	if f.Matches(exp) {
		t.Error("expected archived experience to be excluded by default")
	}
}

func TestFilterExcludeArchivedFalseIncludesArchived(t *testing.T) {
	f := Filter{ExcludeArchived: false}
	exp := domain.Experience{Archived: true}
	if !f.Matches(exp) {
		t.Error("expected archived experience to match when ExcludeArchived is false")
	}
}

func TestFilterDomainsIntersection(t *testing.T) {
	f := Filter{Domains: []string{"build", "ci"}}
	match := domain.Experience{DomainTags: []string{"ci", "infra"}}
	noMatch := domain.Experience{DomainTags: []string{"infra"}}
	if !f.Matches(match) {
		t.Error("expected intersection match")
	}
	if f.Matches(noMatch) {
		t.Error("expected no match for disjoint domains")
	}
}

func TestFilterExperienceTypeIgnoresPayload(t *testing.T) {
	f := Filter{ExperienceTypes: []domain.ExperienceTypeTag{domain.TagSuccessPattern}}
	exp := domain.Experience{ExperienceType: domain.SuccessPattern{Quality: 0.1}}
	if !f.Matches(exp) {
		t.Error("expected match by tag regardless of payload")
	}
}

func TestFilterMinImportance(t *testing.T) {
	min := 0.5
	f := Filter{MinImportance: &min}
	if f.Matches(domain.Experience{Importance: 0.4}) {
		t.Error("expected low-importance experience to be excluded")
	}
	if !f.Matches(domain.Experience{Importance: 0.5}) {
		t.Error("expected boundary importance to match")
	}
}

func TestFilterSince(t *testing.T) {
	since := ids.FromMillis(1000)
	f := Filter{Since: &since}
	if f.Matches(domain.Experience{CreatedAt: ids.FromMillis(999)}) {
		t.Error("expected experience before Since to be excluded")
	}
	if !f.Matches(domain.Experience{CreatedAt: ids.FromMillis(1000)}) {
		t.Error("expected experience at Since to match")
	}
}

func TestFilterAllClausesAND(t *testing.T) {
	min := 0.9
	f := Filter{Domains: []string{"build"}, MinImportance: &min}
	exp := domain.Experience{DomainTags: []string{"build"}, Importance: 0.1}
	if f.Matches(exp) {
		t.Error("expected AND semantics to reject on failing second clause")
	}
}
