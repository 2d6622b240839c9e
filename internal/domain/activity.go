package domain

import (
	"time"

	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// Activity is the last-known presence record for one agent within one
// collective. The pair (CollectiveID, AgentID) is its identity: a second
// RecordActivity call for the same pair upserts in place and preserves
// StartedAt.
type Activity struct {
	CollectiveID   ids.CollectiveID
	AgentID        string
	CurrentTask    string // empty means unset
	ContextSummary string // empty means unset
	StartedAt      ids.Timestamp
	LastHeartbeat  ids.Timestamp
}

// NewActivity is the input to RecordActivity.
type NewActivity struct {
	CollectiveID   ids.CollectiveID
	AgentID        string
	CurrentTask    string
	ContextSummary string
}

// ValidateNewActivity checks field bounds; the composite-key upsert
// semantics live in the facade, since they require a storage read.
func ValidateNewActivity(n NewActivity) error {
	if n.AgentID == "" {
		return pulseerr.RequiredField("agent_id")
	}
	if len(n.AgentID) > MaxActivityAgentIDLen {
		return pulseerr.InvalidField("agent_id", "must be at most 255 characters")
	}
	if len(n.CurrentTask) > MaxActivityFieldSize {
		return pulseerr.ContentTooLarge(len(n.CurrentTask), MaxActivityFieldSize)
	}
	if len(n.ContextSummary) > MaxActivityFieldSize {
		return pulseerr.ContentTooLarge(len(n.ContextSummary), MaxActivityFieldSize)
	}
	return nil
}

// IsStale reports whether the activity's last heartbeat is older than
// the given threshold, as of now.
func (a Activity) IsStale(threshold time.Duration, now ids.Timestamp) bool {
	age := now.Millis() - a.LastHeartbeat.Millis()
	return age > threshold.Milliseconds()
}
