package storage

import (
	"path/filepath"
	"testing"

	"github.com/draco28/pulsedb/internal/domain"
	"github.com/draco28/pulsedb/pkg/ids"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := Open(filepath.Join(dir, "test.db"), OpenOptions{Dimension: 4})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestOpenCreatesMetadata(t *testing.T) {
	e := openTestEngine(t)
	meta, err := e.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.SchemaVersion != domain.SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", meta.SchemaVersion, domain.SchemaVersion)
	}
	if meta.EmbeddingDimension != 4 {
		t.Errorf("EmbeddingDimension = %d, want 4", meta.EmbeddingDimension)
	}
}

func TestReopenPreservesMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	e1, err := Open(path, OpenOptions{Dimension: 8})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	e1.Close()

	e2, err := Open(path, OpenOptions{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e2.Close()

	meta, err := e2.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.EmbeddingDimension != 8 {
		t.Errorf("EmbeddingDimension = %d, want 8", meta.EmbeddingDimension)
	}
}

func TestCollectiveCRUD(t *testing.T) {
	e := openTestEngine(t)
	c := domain.Collective{
		ID:                 ids.NewCollectiveID(),
		Name:               "proj",
		EmbeddingDimension: 4,
		CreatedAt:          ids.Now(),
		UpdatedAt:          ids.Now(),
	}
	if err := e.PutCollective(c); err != nil {
		t.Fatalf("PutCollective: %v", err)
	}
	got, err := e.GetCollective(c.ID)
	if err != nil {
		t.Fatalf("GetCollective: %v", err)
	}
	if got.Name != "proj" {
		t.Errorf("Name = %q, want %q", got.Name, "proj")
	}

	list, err := e.ListCollectives()
	if err != nil {
		t.Fatalf("ListCollectives: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
}

func TestGetCollectiveNotFound(t *testing.T) {
	e := openTestEngine(t)
	_, err := e.GetCollective(ids.NewCollectiveID())
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

func newTestCollective(t *testing.T, e *Engine) domain.Collective {
	t.Helper()
	c := domain.Collective{
		ID:                 ids.NewCollectiveID(),
		Name:               "proj",
		EmbeddingDimension: 4,
		CreatedAt:          ids.Now(),
		UpdatedAt:          ids.Now(),
	}
	if err := e.PutCollective(c); err != nil {
		t.Fatalf("PutCollective: %v", err)
	}
	return c
}

func TestExperienceCreateAndGet(t *testing.T) {
	e := openTestEngine(t)
	c := newTestCollective(t, e)

	exp := domain.Experience{
		ID:             ids.NewExperienceID(),
		CollectiveID:   c.ID,
		Content:        "validate input",
		ExperienceType: domain.Generic{},
		Importance:     0.8,
		SourceAgent:    "agent-1",
		CreatedAt:      ids.Now(),
		UpdatedAt:      ids.Now(),
	}
	embedding := []float32{0.1, 0.2, 0.3, 0.4}
	if err := e.CreateExperience(exp, embedding); err != nil {
		t.Fatalf("CreateExperience: %v", err)
	}

	got, err := e.GetExperience(exp.ID)
	if err != nil {
		t.Fatalf("GetExperience: %v", err)
	}
	if got.Content != "validate input" || got.Importance != 0.8 {
		t.Errorf("unexpected experience: %+v", got)
	}

	gotEmbedding, err := e.GetEmbedding(exp.ID)
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if len(gotEmbedding) != 4 {
		t.Errorf("len(embedding) = %d, want 4", len(gotEmbedding))
	}
}

func TestExperienceCreateUnknownCollective(t *testing.T) {
	e := openTestEngine(t)
	exp := domain.Experience{
		ID:           ids.NewExperienceID(),
		CollectiveID: ids.NewCollectiveID(),
		Content:      "x",
		CreatedAt:    ids.Now(),
	}
	if err := e.CreateExperience(exp, []float32{0, 0}); err == nil {
		t.Fatal("expected not-found error for missing collective")
	}
}

func TestGetRecentExperiencesOrdering(t *testing.T) {
	e := openTestEngine(t)
	c := newTestCollective(t, e)

	var ts []ids.Timestamp
	for i := 0; i < 3; i++ {
		ts = append(ts, ids.FromMillis(int64(1000+i)))
	}
	for i, stamp := range ts {
		exp := domain.Experience{
			ID:           ids.NewExperienceID(),
			CollectiveID: c.ID,
			Content:      "exp",
			CreatedAt:    stamp,
		}
		_ = i
		if err := e.CreateExperience(exp, []float32{0, 0, 0, 0}); err != nil {
			t.Fatalf("CreateExperience: %v", err)
		}
	}

	recent, err := e.GetRecentExperiences(c.ID, 10, nil)
	if err != nil {
		t.Fatalf("GetRecentExperiences: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want 3", len(recent))
	}
	for i := 0; i+1 < len(recent); i++ {
		if recent[i].CreatedAt.Millis() < recent[i+1].CreatedAt.Millis() {
			t.Errorf("expected descending timestamp order, got %v before %v",
				recent[i].CreatedAt.Millis(), recent[i+1].CreatedAt.Millis())
		}
	}
}

func TestDeleteExperienceCascadeRemovesRelations(t *testing.T) {
	e := openTestEngine(t)
	c := newTestCollective(t, e)

	exp1 := domain.Experience{ID: ids.NewExperienceID(), CollectiveID: c.ID, Content: "a", CreatedAt: ids.Now()}
	exp2 := domain.Experience{ID: ids.NewExperienceID(), CollectiveID: c.ID, Content: "b", CreatedAt: ids.Now()}
	if err := e.CreateExperience(exp1, []float32{0, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := e.CreateExperience(exp2, []float32{0, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}

	rel := domain.ExperienceRelation{
		ID:           ids.NewRelationID(),
		CollectiveID: c.ID,
		SourceID:     exp1.ID,
		TargetID:     exp2.ID,
		RelationType: domain.RelationSupports,
		Strength:     0.5,
		CreatedAt:    ids.Now(),
	}
	if err := e.CreateRelation(rel); err != nil {
		t.Fatalf("CreateRelation: %v", err)
	}

	if err := e.DeleteExperienceCascade(exp1.ID); err != nil {
		t.Fatalf("DeleteExperienceCascade: %v", err)
	}

	if _, err := e.GetExperience(exp1.ID); err == nil {
		t.Error("expected experience to be gone")
	}
	if _, err := e.GetRelation(rel.ID); err == nil {
		t.Error("expected relation to be cascade-deleted")
	}
}

func TestRelationUniquenessConstraint(t *testing.T) {
	e := openTestEngine(t)
	c := newTestCollective(t, e)
	exp1 := domain.Experience{ID: ids.NewExperienceID(), CollectiveID: c.ID, Content: "a", CreatedAt: ids.Now()}
	exp2 := domain.Experience{ID: ids.NewExperienceID(), CollectiveID: c.ID, Content: "b", CreatedAt: ids.Now()}
	_ = e.CreateExperience(exp1, []float32{0, 0, 0, 0})
	_ = e.CreateExperience(exp2, []float32{0, 0, 0, 0})

	rel := domain.ExperienceRelation{
		ID: ids.NewRelationID(), CollectiveID: c.ID, SourceID: exp1.ID, TargetID: exp2.ID,
		RelationType: domain.RelationSupports, Strength: 0.5, CreatedAt: ids.Now(),
	}
	if err := e.CreateRelation(rel); err != nil {
		t.Fatalf("first CreateRelation: %v", err)
	}
	dup := rel
	dup.ID = ids.NewRelationID()
	if err := e.CreateRelation(dup); err == nil {
		t.Error("expected uniqueness violation on duplicate relation")
	}
}

func TestGetRelatedExperiencesDirections(t *testing.T) {
	e := openTestEngine(t)
	c := newTestCollective(t, e)
	exp1 := domain.Experience{ID: ids.NewExperienceID(), CollectiveID: c.ID, Content: "a", CreatedAt: ids.Now()}
	exp2 := domain.Experience{ID: ids.NewExperienceID(), CollectiveID: c.ID, Content: "b", CreatedAt: ids.Now()}
	_ = e.CreateExperience(exp1, []float32{0, 0, 0, 0})
	_ = e.CreateExperience(exp2, []float32{0, 0, 0, 0})
	rel := domain.ExperienceRelation{
		ID: ids.NewRelationID(), CollectiveID: c.ID, SourceID: exp1.ID, TargetID: exp2.ID,
		RelationType: domain.RelationElaborates, Strength: 0.5, CreatedAt: ids.Now(),
	}
	if err := e.CreateRelation(rel); err != nil {
		t.Fatal(err)
	}

	out, err := e.GetRelatedExperiences(exp1.ID, domain.DirectionOutgoing)
	if err != nil {
		t.Fatalf("GetRelatedExperiences: %v", err)
	}
	if len(out) != 1 || out[0].Experience.ID != exp2.ID {
		t.Fatalf("unexpected outgoing result: %+v", out)
	}

	in, err := e.GetRelatedExperiences(exp2.ID, domain.DirectionIncoming)
	if err != nil {
		t.Fatalf("GetRelatedExperiences: %v", err)
	}
	if len(in) != 1 || in[0].Experience.ID != exp1.ID {
		t.Fatalf("unexpected incoming result: %+v", in)
	}
}

func TestActivityUpsertPreservesStartedAt(t *testing.T) {
	e := openTestEngine(t)
	c := newTestCollective(t, e)

	first := ids.FromMillis(1000)
	if err := e.RecordActivity(domain.NewActivity{CollectiveID: c.ID, AgentID: "agent-1", CurrentTask: "t1"}, first); err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}
	second := ids.FromMillis(5000)
	if err := e.RecordActivity(domain.NewActivity{CollectiveID: c.ID, AgentID: "agent-1", CurrentTask: "t2"}, second); err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}

	a, err := e.GetActivity(c.ID, "agent-1")
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if a.StartedAt.Millis() != first.Millis() {
		t.Errorf("StartedAt = %d, want %d", a.StartedAt.Millis(), first.Millis())
	}
	if a.LastHeartbeat.Millis() != second.Millis() {
		t.Errorf("LastHeartbeat = %d, want %d", a.LastHeartbeat.Millis(), second.Millis())
	}
	if a.CurrentTask != "t2" {
		t.Errorf("CurrentTask = %q, want %q", a.CurrentTask, "t2")
	}
}

func TestDeleteCollectiveCascade(t *testing.T) {
	e := openTestEngine(t)
	c := newTestCollective(t, e)
	exp := domain.Experience{ID: ids.NewExperienceID(), CollectiveID: c.ID, Content: "a", CreatedAt: ids.Now()}
	if err := e.CreateExperience(exp, []float32{0, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordActivity(domain.NewActivity{CollectiveID: c.ID, AgentID: "agent-1"}, ids.Now()); err != nil {
		t.Fatal(err)
	}

	if err := e.DeleteCollectiveCascade(c.ID); err != nil {
		t.Fatalf("DeleteCollectiveCascade: %v", err)
	}
	if _, err := e.GetCollective(c.ID); err == nil {
		t.Error("expected collective to be gone")
	}
	if _, err := e.GetExperience(exp.ID); err == nil {
		t.Error("expected experience to be cascade-deleted")
	}
}

func TestGetCollectiveStats(t *testing.T) {
	e := openTestEngine(t)
	c := newTestCollective(t, e)
	exp1 := domain.Experience{ID: ids.NewExperienceID(), CollectiveID: c.ID, Content: "a", CreatedAt: ids.Now()}
	exp2 := domain.Experience{ID: ids.NewExperienceID(), CollectiveID: c.ID, Content: "b", CreatedAt: ids.Now()}
	_ = e.CreateExperience(exp1, []float32{0, 0, 0, 0})
	_ = e.CreateExperience(exp2, []float32{0, 0, 0, 0})
	rel := domain.ExperienceRelation{
		ID: ids.NewRelationID(), CollectiveID: c.ID, SourceID: exp1.ID, TargetID: exp2.ID,
		RelationType: domain.RelationSupports, Strength: 0.5, CreatedAt: ids.Now(),
	}
	_ = e.CreateRelation(rel)

	stats, err := e.GetCollectiveStats(c.ID)
	if err != nil {
		t.Fatalf("GetCollectiveStats: %v", err)
	}
	if stats.ExperienceCount != 2 {
		t.Errorf("ExperienceCount = %d, want 2", stats.ExperienceCount)
	}
	if stats.RelationCount != 1 {
		t.Errorf("RelationCount = %d, want 1", stats.RelationCount)
	}
}
