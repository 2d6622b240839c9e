// Package ids provides the time-ordered identifier and timestamp
// primitives shared across PulseDB: UUIDv7 ids for the four entity
// kinds that need global uniqueness, plain string ids for caller-supplied
// agent/user/task references, and a millisecond Timestamp whose byte
// encoding preserves numeric ordering.
package ids

import (
	"fmt"

	"github.com/google/uuid"
)

// CollectiveID identifies an isolation namespace.
type CollectiveID uuid.UUID

// ExperienceID identifies a stored experience.
type ExperienceID uuid.UUID

// RelationID identifies a directed edge between two experiences.
type RelationID uuid.UUID

// InsightID identifies a derived insight.
type InsightID uuid.UUID

// AgentID, UserID, and TaskID are opaque caller-supplied identifiers;
// PulseDB never validates their format beyond the length bounds spec'd
// per entity (see internal/domain).
type AgentID string
type UserID string
type TaskID string

// NewCollectiveID returns a new time-ordered CollectiveID.
func NewCollectiveID() CollectiveID { return CollectiveID(mustV7()) }

// NewExperienceID returns a new time-ordered ExperienceID.
func NewExperienceID() ExperienceID { return ExperienceID(mustV7()) }

// NewRelationID returns a new time-ordered RelationID.
func NewRelationID() RelationID { return RelationID(mustV7()) }

// NewInsightID returns a new time-ordered InsightID.
func NewInsightID() InsightID { return InsightID(mustV7()) }

func mustV7() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the runtime's random source is broken,
		// which we treat the same way the source treats a pre-epoch clock:
		// degrade to a deterministic value rather than panic.
		return uuid.Nil
	}
	return id
}

// NilCollectiveID is the all-zero sentinel CollectiveID.
func NilCollectiveID() CollectiveID { return CollectiveID(uuid.Nil) }

// NilExperienceID is the all-zero sentinel ExperienceID.
func NilExperienceID() ExperienceID { return ExperienceID(uuid.Nil) }

// NilRelationID is the all-zero sentinel RelationID.
func NilRelationID() RelationID { return RelationID(uuid.Nil) }

// NilInsightID is the all-zero sentinel InsightID.
func NilInsightID() InsightID { return InsightID(uuid.Nil) }

func (id CollectiveID) String() string { return uuid.UUID(id).String() }
func (id ExperienceID) String() string { return uuid.UUID(id).String() }
func (id RelationID) String() string   { return uuid.UUID(id).String() }
func (id InsightID) String() string    { return uuid.UUID(id).String() }

func (id CollectiveID) AsBytes() [16]byte { return uuid.UUID(id) }
func (id ExperienceID) AsBytes() [16]byte { return uuid.UUID(id) }
func (id RelationID) AsBytes() [16]byte   { return uuid.UUID(id) }
func (id InsightID) AsBytes() [16]byte    { return uuid.UUID(id) }

// Bytes returns the id's 16 raw bytes as a slice, for use as a bbolt key
// or as a multimap key component. Each call allocates a fresh slice.
func (id CollectiveID) Bytes() []byte { b := id.AsBytes(); return b[:] }
func (id ExperienceID) Bytes() []byte { b := id.AsBytes(); return b[:] }
func (id RelationID) Bytes() []byte   { b := id.AsBytes(); return b[:] }
func (id InsightID) Bytes() []byte    { b := id.AsBytes(); return b[:] }

func (id CollectiveID) IsNil() bool { return id == CollectiveID(uuid.Nil) }
func (id ExperienceID) IsNil() bool { return id == ExperienceID(uuid.Nil) }
func (id RelationID) IsNil() bool   { return id == RelationID(uuid.Nil) }
func (id InsightID) IsNil() bool    { return id == InsightID(uuid.Nil) }

// CollectiveIDFromBytes reconstructs a CollectiveID from 16 raw bytes.
func CollectiveIDFromBytes(b []byte) (CollectiveID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return CollectiveID{}, fmt.Errorf("ids: collective id from bytes: %w", err)
	}
	return CollectiveID(u), nil
}

// ExperienceIDFromBytes reconstructs an ExperienceID from 16 raw bytes.
func ExperienceIDFromBytes(b []byte) (ExperienceID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return ExperienceID{}, fmt.Errorf("ids: experience id from bytes: %w", err)
	}
	return ExperienceID(u), nil
}

// RelationIDFromBytes reconstructs a RelationID from 16 raw bytes.
func RelationIDFromBytes(b []byte) (RelationID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return RelationID{}, fmt.Errorf("ids: relation id from bytes: %w", err)
	}
	return RelationID(u), nil
}

// InsightIDFromBytes reconstructs an InsightID from 16 raw bytes.
func InsightIDFromBytes(b []byte) (InsightID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return InsightID{}, fmt.Errorf("ids: insight id from bytes: %w", err)
	}
	return InsightID(u), nil
}

// ExperienceIDFromString parses a canonical UUID string into an ExperienceID.
func ExperienceIDFromString(s string) (ExperienceID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ExperienceID{}, fmt.Errorf("ids: experience id from string: %w", err)
	}
	return ExperienceID(u), nil
}
