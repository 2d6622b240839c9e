package domain

import "github.com/draco28/pulsedb/pkg/pulseerr"

// ExperienceTypeTag is the stable single-byte discriminant stored in the
// EXPERIENCES_BY_TYPE secondary-index key. It never changes meaning once
// assigned; adding a new ExperienceType variant requires a new tag value
// and a schema-version bump.
type ExperienceTypeTag byte

const (
	TagGeneric ExperienceTypeTag = iota
	TagFact
	TagLesson
	TagSolution
	TagSuccessPattern
	TagDifficulty
	TagUserPreference
)

// Severity grades a Difficulty experience.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

// ExperienceType is the closed sum of experience variants. Each concrete
// type implements Tag() to report its stable secondary-index
// discriminant and Validate() to check variant-specific payload fields.
// The interface itself carries no data; associated fields live on the
// concrete types.
type ExperienceType interface {
	Tag() ExperienceTypeTag
	Validate() error
}

// Generic is an experience with no specialized payload.
type Generic struct{}

func (Generic) Tag() ExperienceTypeTag { return TagGeneric }
func (Generic) Validate() error        { return nil }

// Fact is a stored factual statement.
type Fact struct{}

func (Fact) Tag() ExperienceTypeTag { return TagFact }
func (Fact) Validate() error        { return nil }

// Lesson is a learned takeaway.
type Lesson struct{}

func (Lesson) Tag() ExperienceTypeTag { return TagLesson }
func (Lesson) Validate() error        { return nil }

// Solution is a recorded fix or approach.
type Solution struct{}

func (Solution) Tag() ExperienceTypeTag { return TagSolution }
func (Solution) Validate() error        { return nil }

// SuccessPattern records a task/approach pairing that worked, graded by
// Quality in [0, 1].
type SuccessPattern struct {
	TaskType string
	Approach string
	Quality  float64
}

func (SuccessPattern) Tag() ExperienceTypeTag { return TagSuccessPattern }

func (s SuccessPattern) Validate() error {
	if s.Quality < 0 || s.Quality > 1 {
		return pulseerr.InvalidField("experience_type.quality", "must be between 0.0 and 1.0")
	}
	return nil
}

// Difficulty records an obstacle encountered, graded by Severity.
type Difficulty struct {
	Description string
	Severity    Severity
}

func (Difficulty) Tag() ExperienceTypeTag { return TagDifficulty }
func (Difficulty) Validate() error        { return nil }

// UserPreference records a preference expressed by a user, graded by
// Strength in [0, 1].
type UserPreference struct {
	Category   string
	Preference string
	Strength   float64
}

func (UserPreference) Tag() ExperienceTypeTag { return TagUserPreference }

func (u UserPreference) Validate() error {
	if u.Strength < 0 || u.Strength > 1 {
		return pulseerr.InvalidField("experience_type.strength", "must be between 0.0 and 1.0")
	}
	return nil
}
