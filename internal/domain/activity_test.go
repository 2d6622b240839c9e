package domain

import (
	"testing"
	"time"

	"github.com/draco28/pulsedb/pkg/ids"
)

func TestValidateNewActivityOK(t *testing.T) {
	n := NewActivity{
		CollectiveID:   ids.NewCollectiveID(),
		AgentID:        "agent-1",
		CurrentTask:    "refactoring the indexer",
		ContextSummary: "mid-way through splitting the file",
	}
	if err := ValidateNewActivity(n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateNewActivityRequiresAgentID(t *testing.T) {
	n := NewActivity{CollectiveID: ids.NewCollectiveID()}
	if err := ValidateNewActivity(n); err == nil {
		t.Fatal("expected error for missing agent_id")
	}
}

func TestValidateNewActivityAgentIDTooLong(t *testing.T) {
	n := NewActivity{CollectiveID: ids.NewCollectiveID(), AgentID: make62(MaxActivityAgentIDLen + 1)}
	if err := ValidateNewActivity(n); err == nil {
		t.Fatal("expected error for oversized agent_id")
	}
}

func TestIsStale(t *testing.T) {
	now := ids.FromMillis(10_000)
	a := Activity{LastHeartbeat: ids.FromMillis(1_000)}
	if !a.IsStale(5*time.Second, now) {
		t.Error("expected activity to be stale")
	}
	if a.IsStale(30*time.Second, now) {
		t.Error("expected activity not to be stale")
	}
}

func make62(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
