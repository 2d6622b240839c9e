package domain

import (
	"strings"
	"testing"

	"github.com/draco28/pulsedb/pkg/ids"
)

func validNewExperience() NewExperience {
	return NewExperience{
		CollectiveID:   ids.NewCollectiveID(),
		Content:        "the build fails when GOFLAGS is unset",
		ExperienceType: Generic{},
		Importance:     0.5,
		Confidence:     0.8,
		DomainTags:     []string{"build", "ci"},
		RelatedFiles:   []string{"Makefile"},
		SourceAgent:    "agent-1",
		Embedding:      []float32{0.1, 0.2, 0.3},
	}
}

func TestValidateNewExperienceOK(t *testing.T) {
	if err := ValidateNewExperience(validNewExperience(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateNewExperienceEmptyContent(t *testing.T) {
	n := validNewExperience()
	n.Content = "   "
	if err := ValidateNewExperience(n, true); err == nil {
		t.Fatal("expected error for blank content")
	}
}

func TestValidateNewExperienceContentTooLarge(t *testing.T) {
	n := validNewExperience()
	n.Content = strings.Repeat("x", MaxContentSize+1)
	if err := ValidateNewExperience(n, true); err == nil {
		t.Fatal("expected error for oversized content")
	}
}

func TestValidateNewExperienceImportanceOutOfRange(t *testing.T) {
	n := validNewExperience()
	n.Importance = 1.5
	if err := ValidateNewExperience(n, true); err == nil {
		t.Fatal("expected error for out-of-range importance")
	}
}

func TestValidateNewExperienceConfidenceOutOfRange(t *testing.T) {
	n := validNewExperience()
	n.Confidence = -0.1
	if err := ValidateNewExperience(n, true); err == nil {
		t.Fatal("expected error for out-of-range confidence")
	}
}

func TestValidateNewExperienceTooManyDomainTags(t *testing.T) {
	n := validNewExperience()
	tags := make([]string, MaxDomainTags+1)
	for i := range tags {
		tags[i] = "t"
	}
	n.DomainTags = tags
	if err := ValidateNewExperience(n, true); err == nil {
		t.Fatal("expected error for too many domain tags")
	}
}

func TestValidateNewExperienceTooManyRelatedFiles(t *testing.T) {
	n := validNewExperience()
	files := make([]string, MaxSourceFiles+1)
	for i := range files {
		files[i] = "f.go"
	}
	n.RelatedFiles = files
	if err := ValidateNewExperience(n, true); err == nil {
		t.Fatal("expected error for too many related files")
	}
}

func TestValidateNewExperienceRequiresEmbeddingWhenExternal(t *testing.T) {
	n := validNewExperience()
	n.Embedding = nil
	if err := ValidateNewExperience(n, true); err == nil {
		t.Fatal("expected error when embedding required but missing")
	}
	if err := ValidateNewExperience(n, false); err != nil {
		t.Errorf("unexpected error when embedding not required: %v", err)
	}
}

func TestValidateNewExperienceEmptySourceAgentRejected(t *testing.T) {
	n := validNewExperience()
	n.SourceAgent = ""
	if err := ValidateNewExperience(n, true); err == nil {
		t.Fatal("expected error for empty source_agent")
	}
}

func TestValidateNewExperienceSourceAgentTooLong(t *testing.T) {
	n := validNewExperience()
	n.SourceAgent = strings.Repeat("a", MaxSourceAgentLength+1)
	if err := ValidateNewExperience(n, true); err == nil {
		t.Fatal("expected error for oversized source_agent")
	}
}

func TestValidateNewExperienceSuccessPatternQuality(t *testing.T) {
	n := validNewExperience()
	n.ExperienceType = SuccessPattern{TaskType: "refactor", Approach: "extract function", Quality: 1.2}
	if err := ValidateNewExperience(n, true); err == nil {
		t.Fatal("expected error for out-of-range quality")
	}
}

func TestValidateNewExperienceUserPreferenceStrength(t *testing.T) {
	n := validNewExperience()
	n.ExperienceType = UserPreference{Category: "style", Preference: "tabs", Strength: -0.3}
	if err := ValidateNewExperience(n, true); err == nil {
		t.Fatal("expected error for out-of-range strength")
	}
}

func TestValidateExperienceUpdatePartial(t *testing.T) {
	content := "updated content"
	u := ExperienceUpdate{Content: &content}
	if err := ValidateExperienceUpdate(u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateExperienceUpdateRejectsBadImportance(t *testing.T) {
	bad := 2.0
	u := ExperienceUpdate{Importance: &bad}
	if err := ValidateExperienceUpdate(u); err == nil {
		t.Fatal("expected error for out-of-range importance")
	}
}

func TestExperienceTypeTags(t *testing.T) {
	cases := []struct {
		et   ExperienceType
		want ExperienceTypeTag
	}{
		{Generic{}, TagGeneric},
		{Fact{}, TagFact},
		{Lesson{}, TagLesson},
		{Solution{}, TagSolution},
		{SuccessPattern{}, TagSuccessPattern},
		{Difficulty{}, TagDifficulty},
		{UserPreference{}, TagUserPreference},
	}
	for _, c := range cases {
		if got := c.et.Tag(); got != c.want {
			t.Errorf("Tag() = %v, want %v", got, c.want)
		}
	}
}

func TestDifficultyValidateAlwaysOK(t *testing.T) {
	d := Difficulty{Description: "flaky test", Severity: SeverityHigh}
	if err := d.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
