// Package pulsedb is the embedded, single-process database for agent
// experiences described by the project's specification: text documents
// paired with dense embedding vectors, organized into isolated
// namespaces called collectives, enriched with typed relations, and
// derived higher-level insights.
//
// DB is the single public entry point. It composes a transactional
// key/value engine (internal/storage, backed by bbolt) with one
// in-memory HNSW vector index per live collective (internal/vector),
// enforcing the cross-entity invariants neither layer can enforce
// alone: collective isolation, embedding dimension contracts,
// referential integrity, cascade deletes, and activity upsert
// semantics. Every public method validates before opening a
// transaction, touches storage atomically, and — for writes that
// change embeddings — updates the vector index only after the
// transaction has committed, since storage (never the index) is the
// source of truth.
package pulsedb

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/draco28/pulsedb/internal/domain"
	"github.com/draco28/pulsedb/internal/embedding"
	"github.com/draco28/pulsedb/internal/logging"
	"github.com/draco28/pulsedb/internal/search"
	"github.com/draco28/pulsedb/internal/storage"
	"github.com/draco28/pulsedb/internal/vector"
	"github.com/draco28/pulsedb/pkg/config"
	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

var log = logging.GetLogger("pulsedb")

// DB is a single PulseDB handle. It is safe for concurrent use from
// multiple goroutines: the storage engine provides its own MVCC
// read/write serialization, each collective's vector index
// synchronizes itself, and the indexes map (the only other mutable
// state a DB owns directly) sits behind indexMu.
type DB struct {
	engine    *storage.Engine
	embed     embedding.Service
	config    *config.Config
	vectorDir string
	vectorCfg vector.Config

	indexMu sync.RWMutex
	indexes map[ids.CollectiveID]*vector.Index
}

// Open opens (or creates) the database file at path with the given
// configuration. A nil cfg uses config.DefaultConfig(). Every existing
// collective's vector index is rebuilt from its stored embeddings
// (EMBEDDINGS is always the source of truth) and its soft-deleted set is
// restored from the collective's .hnsw.meta sidecar, if present.
func Open(path string, cfg *config.Config) (*DB, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, pulseerr.InvalidField("config", err.Error())
	}

	engine, err := storage.Open(path, storage.OpenOptions{Dimension: cfg.Embedding.Dimension})
	if err != nil {
		return nil, err
	}

	svc, err := buildEmbeddingService(cfg)
	if err != nil {
		engine.Close()
		return nil, err
	}

	vectorDir := path + ".vectors"
	if err := os.MkdirAll(vectorDir, 0o755); err != nil {
		engine.Close()
		return nil, pulseerr.IO("failed to create vector index directory", err)
	}

	db := &DB{
		engine:    engine,
		embed:     svc,
		config:    cfg,
		vectorDir: vectorDir,
		vectorCfg: vector.DefaultConfig(),
		indexes:   make(map[ids.CollectiveID]*vector.Index),
	}

	collectives, err := engine.ListCollectives()
	if err != nil {
		engine.Close()
		return nil, err
	}
	for _, c := range collectives {
		if err := db.loadIndex(c); err != nil {
			engine.Close()
			return nil, err
		}
	}

	log.Info("pulsedb opened", "path", path, "collectives", len(collectives))
	return db, nil
}

// loadIndex rebuilds collective c's vector index from EMBEDDINGS and
// reapplies its sidecar's soft-delete set, then registers it.
func (db *DB) loadIndex(c domain.Collective) error {
	idx := vector.New(c.EmbeddingDimension, db.vectorCfg)

	pairs, err := db.engine.ListEmbeddingsByCollective(c.ID)
	if err != nil {
		return err
	}
	sources := make([]vector.EmbeddingSource, len(pairs))
	for i, p := range pairs {
		sources[i] = vector.NewPair(p.ExperienceID, p.Vector)
	}
	if err := idx.RebuildFromEmbeddings(sources, runtime.GOMAXPROCS(0)); err != nil {
		return err
	}
	if err := idx.LoadMeta(vector.MetaPath(db.vectorDir, c.ID)); err != nil {
		return err
	}

	db.indexMu.Lock()
	db.indexes[c.ID] = idx
	db.indexMu.Unlock()
	return nil
}

func (db *DB) indexFor(id ids.CollectiveID) *vector.Index {
	db.indexMu.RLock()
	defer db.indexMu.RUnlock()
	return db.indexes[id]
}

// buildEmbeddingService constructs the configured embedding.Service.
// External never computes; Local loads a hashing-based adapter rooted
// at the configured (or per-user cache) model directory — see
// internal/embedding/hashing.go for why this stands in for real ONNX
// inference, which is out of scope.
func buildEmbeddingService(cfg *config.Config) (embedding.Service, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderExternal:
		return embedding.NewExternal(cfg.Embedding.Dimension), nil
	case config.ProviderLocal:
		maxTokens := embedding.SmallModelMaxTokens
		switch cfg.Embedding.Dimension {
		case embedding.LargeModelDimension:
			maxTokens = embedding.LargeModelMaxTokens
		case embedding.SmallModelDimension:
			maxTokens = embedding.SmallModelMaxTokens
		}
		modelDir := cfg.Embedding.ModelPath
		if modelDir == "" {
			dir, err := embedding.EnsureModelCacheDir(modelName(cfg.Embedding.Dimension))
			if err != nil {
				return nil, err
			}
			modelDir = dir
		}
		return embedding.LoadLocal(modelDir, cfg.Embedding.Dimension, maxTokens)
	default:
		return nil, pulseerr.InvalidField("embedding.provider", fmt.Sprintf("unrecognized provider %q", cfg.Embedding.Provider))
	}
}

func modelName(dimension int) string {
	switch dimension {
	case embedding.LargeModelDimension:
		return "large"
	case embedding.SmallModelDimension:
		return "small"
	default:
		return fmt.Sprintf("custom-%d", dimension)
	}
}

// usesExternalEmbedding reports whether RecordExperience/StoreInsight
// must receive a caller-supplied embedding rather than computing one.
func (db *DB) usesExternalEmbedding() bool {
	_, ok := db.embed.(*embedding.External)
	return ok
}

// Close saves every live collective's vector index sidecar, then closes
// the storage engine. A sidecar save failure is logged and does not
// abort Close or fail the engine close: storage remains the source of
// truth and the next Open rebuilds the index regardless.
func (db *DB) Close() error {
	db.indexMu.RLock()
	for id, idx := range db.indexes {
		if err := idx.Save(db.vectorDir, id); err != nil {
			log.WithCollective(id.String()).Warn("failed to save vector index sidecar (non-fatal)", "error", err)
		}
	}
	db.indexMu.RUnlock()
	return db.engine.Close()
}

// --- Collectives ---

// CreateCollective validates name, inserts the collective in one write
// transaction, and registers a fresh empty vector index for it.
func (db *DB) CreateCollective(name, ownerID string) (ids.CollectiveID, error) {
	if err := domain.ValidateCollectiveName(name); err != nil {
		return ids.NilCollectiveID(), err
	}
	now := ids.Now()
	c := domain.Collective{
		ID:                 ids.NewCollectiveID(),
		Name:               name,
		OwnerID:            ownerID,
		EmbeddingDimension: db.embed.Dimension(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := db.engine.PutCollective(c); err != nil {
		return ids.NilCollectiveID(), err
	}
	db.indexMu.Lock()
	db.indexes[c.ID] = vector.New(c.EmbeddingDimension, db.vectorCfg)
	db.indexMu.Unlock()
	return c.ID, nil
}

// GetCollective fetches a collective by id.
func (db *DB) GetCollective(id ids.CollectiveID) (domain.Collective, error) {
	return db.engine.GetCollective(id)
}

// ListCollectives returns every collective in unspecified order.
func (db *DB) ListCollectives() ([]domain.Collective, error) {
	return db.engine.ListCollectives()
}

// ListCollectivesByOwner scans every collective and keeps the ones owned
// by ownerID. No index exists for this access pattern, per spec.
func (db *DB) ListCollectivesByOwner(ownerID string) ([]domain.Collective, error) {
	return db.engine.ListCollectivesByOwner(ownerID)
}

// GetCollectiveStats returns a collective's experience, relation, and
// insight counts.
func (db *DB) GetCollectiveStats(id ids.CollectiveID) (storage.CollectiveStats, error) {
	return db.engine.GetCollectiveStats(id)
}

// DeleteCollective cascades the removal of every experience, embedding,
// relation, insight, and activity scoped to id, drops its in-memory
// vector index, and removes its on-disk sidecar files.
func (db *DB) DeleteCollective(id ids.CollectiveID) error {
	if err := db.engine.DeleteCollectiveCascade(id); err != nil {
		return err
	}
	db.indexMu.Lock()
	delete(db.indexes, id)
	db.indexMu.Unlock()
	return vector.RemoveFiles(db.vectorDir, id)
}

// --- Experiences ---

// RecordExperience validates n, resolves its embedding (caller-supplied
// for External, computed from content for Local), verifies it against
// the collective's dimension, and inserts the experience, its embedding,
// and all three secondary-index entries in one write transaction.
// The vector index is updated after the transaction commits.
func (db *DB) RecordExperience(n domain.NewExperience) (ids.ExperienceID, error) {
	if err := domain.ValidateNewExperience(n, db.usesExternalEmbedding()); err != nil {
		return ids.NilExperienceID(), err
	}

	collective, err := db.engine.GetCollective(n.CollectiveID)
	if err != nil {
		return ids.NilExperienceID(), err
	}

	vec := n.Embedding
	if vec == nil {
		vec, err = db.embed.Embed(n.Content)
		if err != nil {
			return ids.NilExperienceID(), err
		}
	}
	if len(vec) != collective.EmbeddingDimension {
		return ids.NilExperienceID(), pulseerr.DimensionMismatch(collective.EmbeddingDimension, len(vec))
	}

	now := ids.Now()
	exp := domain.Experience{
		ID:                ids.NewExperienceID(),
		CollectiveID:      n.CollectiveID,
		Content:           n.Content,
		ExperienceType:    n.ExperienceType,
		Importance:        n.Importance,
		Confidence:        n.Confidence,
		DomainTags:        n.DomainTags,
		RelatedFiles:      n.RelatedFiles,
		SourceAgent:       n.SourceAgent,
		SourceTask:        n.SourceTask,
		EmbeddingProvided: n.Embedding != nil,
		Applications:      0,
		Archived:          false,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := db.engine.CreateExperience(exp, vec); err != nil {
		return ids.NilExperienceID(), err
	}

	if idx := db.indexFor(n.CollectiveID); idx != nil {
		if err := idx.Insert(exp.ID, vec); err != nil {
			log.WithCollective(n.CollectiveID.String()).Warn("failed to insert experience into vector index", "experience_id", exp.ID.String(), "error", err)
		}
	}
	return exp.ID, nil
}

// GetExperience fetches an experience by id.
func (db *DB) GetExperience(id ids.ExperienceID) (domain.Experience, error) {
	return db.engine.GetExperience(id)
}

// UpdateExperience applies only the fields u sets among the five mutable
// ones (importance, confidence, domain tags, related files, experience
// type); content and embedding are immutable once recorded, per spec.
func (db *DB) UpdateExperience(id ids.ExperienceID, u domain.ExperienceUpdate) error {
	if err := domain.ValidateExperienceUpdate(u); err != nil {
		return err
	}
	exp, err := db.engine.GetExperience(id)
	if err != nil {
		return err
	}
	if u.Importance != nil {
		exp.Importance = *u.Importance
	}
	if u.Confidence != nil {
		exp.Confidence = *u.Confidence
	}
	if u.DomainTags != nil {
		exp.DomainTags = u.DomainTags
	}
	if u.RelatedFiles != nil {
		exp.RelatedFiles = u.RelatedFiles
	}
	if u.ExperienceType != nil {
		exp.ExperienceType = u.ExperienceType
	}
	exp.UpdatedAt = ids.Now()
	return db.engine.PutExperience(exp)
}

// ArchiveExperience flips archived to true.
func (db *DB) ArchiveExperience(id ids.ExperienceID) error {
	return db.setArchived(id, true)
}

// UnarchiveExperience flips archived to false.
func (db *DB) UnarchiveExperience(id ids.ExperienceID) error {
	return db.setArchived(id, false)
}

func (db *DB) setArchived(id ids.ExperienceID, archived bool) error {
	exp, err := db.engine.GetExperience(id)
	if err != nil {
		return err
	}
	exp.Archived = archived
	exp.UpdatedAt = ids.Now()
	return db.engine.PutExperience(exp)
}

// ReinforceExperience increments the experience's applications counter.
func (db *DB) ReinforceExperience(id ids.ExperienceID) error {
	exp, err := db.engine.GetExperience(id)
	if err != nil {
		return err
	}
	exp.Applications++
	exp.UpdatedAt = ids.Now()
	return db.engine.PutExperience(exp)
}

// DeleteExperience removes the experience, its embedding, every relation
// touching it, and all three experience secondary indexes in one write
// transaction, then soft-deletes it from the collective's vector index.
func (db *DB) DeleteExperience(id ids.ExperienceID) error {
	exp, err := db.engine.GetExperience(id)
	if err != nil {
		return err
	}
	if err := db.engine.DeleteExperienceCascade(id); err != nil {
		return err
	}
	if idx := db.indexFor(exp.CollectiveID); idx != nil {
		idx.Delete(id)
	}
	return nil
}

// --- Search ---

// SimilarExperience pairs a resolved experience with its similarity
// (1 - cosine distance) to the query vector that retrieved it.
type SimilarExperience struct {
	Experience domain.Experience
	Similarity float64
}

// SearchSimilar validates query's dimension against collectiveID, then
// runs a filtered kNN search composing soft-delete exclusion with
// filter's clauses during traversal, resolving hits to full experience
// records. Results are ordered by similarity descending.
func (db *DB) SearchSimilar(collectiveID ids.CollectiveID, query []float32, k int, filter search.Filter) ([]SimilarExperience, error) {
	collective, err := db.engine.GetCollective(collectiveID)
	if err != nil {
		return nil, err
	}
	if len(query) != collective.EmbeddingDimension {
		return nil, pulseerr.DimensionMismatch(collective.EmbeddingDimension, len(query))
	}
	idx := db.indexFor(collectiveID)
	if idx == nil {
		return nil, pulseerr.NotFound(pulseerr.ErrCollectiveNotFound, "search_similar")
	}

	predicate := func(expID ids.ExperienceID) bool {
		exp, err := db.engine.GetExperience(expID)
		if err != nil {
			return false
		}
		return filter.Matches(exp)
	}

	results, err := idx.SearchFiltered(query, k, db.vectorCfg.EfSearch, predicate)
	if err != nil {
		return nil, err
	}

	out := make([]SimilarExperience, 0, len(results))
	for _, r := range results {
		exp, err := db.engine.GetExperience(r.ExperienceID)
		if err != nil {
			continue
		}
		out = append(out, SimilarExperience{Experience: exp, Similarity: 1 - float64(r.Distance)})
	}
	return out, nil
}

// GetRecentExperiences reverse-iterates a collective's EXPERIENCES_BY_TIME
// index, applying filter and stopping once k results are collected.
// Results come back in descending timestamp order.
func (db *DB) GetRecentExperiences(collectiveID ids.CollectiveID, k int, filter search.Filter) ([]domain.Experience, error) {
	if _, err := db.engine.GetCollective(collectiveID); err != nil {
		return nil, err
	}
	return db.engine.GetRecentExperiences(collectiveID, k, filter.Matches)
}

// --- Relations ---

// StoreRelation validates n, confirms both endpoints exist and share a
// collective, rejects a duplicate (source, target, type) triple, and
// inserts the relation and its two secondary-index entries atomically.
func (db *DB) StoreRelation(n domain.NewRelation) (ids.RelationID, error) {
	if err := domain.ValidateNewRelation(n); err != nil {
		return ids.NilRelationID(), err
	}
	rel := domain.ExperienceRelation{
		ID:           ids.NewRelationID(),
		CollectiveID: n.CollectiveID,
		SourceID:     n.SourceID,
		TargetID:     n.TargetID,
		RelationType: n.RelationType,
		Strength:     n.Strength,
		Metadata:     n.Metadata,
		CreatedAt:    ids.Now(),
	}
	if err := db.engine.CreateRelation(rel); err != nil {
		return ids.NilRelationID(), err
	}
	return rel.ID, nil
}

// GetRelation fetches a relation by id.
func (db *DB) GetRelation(id ids.RelationID) (domain.ExperienceRelation, error) {
	return db.engine.GetRelation(id)
}

// GetRelatedExperiences resolves every relation touching id in the given
// direction to the other endpoint's experience record.
func (db *DB) GetRelatedExperiences(id ids.ExperienceID, direction domain.RelationDirection) ([]storage.RelatedExperience, error) {
	return db.engine.GetRelatedExperiences(id, direction)
}

// DeleteRelation removes a relation from all three tables atomically.
func (db *DB) DeleteRelation(id ids.RelationID) error {
	return db.engine.DeleteRelation(id)
}

// --- Insights ---

// StoreInsight validates n, confirms every source experience exists in
// the target collective, and inserts the insight (with its inline
// embedding) atomically.
func (db *DB) StoreInsight(n domain.NewInsight) (ids.InsightID, error) {
	if err := domain.ValidateNewInsight(n); err != nil {
		return ids.NilInsightID(), err
	}
	collective, err := db.engine.GetCollective(n.CollectiveID)
	if err != nil {
		return ids.NilInsightID(), err
	}
	if len(n.Embedding) != collective.EmbeddingDimension {
		return ids.NilInsightID(), pulseerr.DimensionMismatch(collective.EmbeddingDimension, len(n.Embedding))
	}
	for _, srcID := range n.SourceExperienceIDs {
		exp, err := db.engine.GetExperience(srcID)
		if err != nil {
			return ids.NilInsightID(), err
		}
		if exp.CollectiveID != n.CollectiveID {
			return ids.NilInsightID(), pulseerr.InvalidField("source_experience_ids", "every source experience must belong to the insight's collective")
		}
	}

	now := ids.Now()
	insight := domain.DerivedInsight{
		ID:                  ids.NewInsightID(),
		CollectiveID:        n.CollectiveID,
		Content:             n.Content,
		Embedding:           n.Embedding,
		SourceExperienceIDs: n.SourceExperienceIDs,
		InsightType:         n.InsightType,
		Confidence:          n.Confidence,
		Domain:              n.Domain,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := db.engine.CreateInsight(insight); err != nil {
		return ids.NilInsightID(), err
	}
	return insight.ID, nil
}

// GetInsight fetches a derived insight by id.
func (db *DB) GetInsight(id ids.InsightID) (domain.DerivedInsight, error) {
	return db.engine.GetInsight(id)
}

// SimilarInsight pairs a derived insight with its similarity to the
// query vector that retrieved it.
type SimilarInsight struct {
	Insight    domain.DerivedInsight
	Similarity float64
}

// GetInsights runs a kNN search over a collective's insights by linear
// in-memory cosine scan: insights carry their embedding inline and are
// loaded in one read transaction, and a collective's insight count is
// small enough that a dedicated index is not worth the bookkeeping (see
// DESIGN.md).
func (db *DB) GetInsights(collectiveID ids.CollectiveID, query []float32, k int) ([]SimilarInsight, error) {
	collective, err := db.engine.GetCollective(collectiveID)
	if err != nil {
		return nil, err
	}
	if len(query) != collective.EmbeddingDimension {
		return nil, pulseerr.DimensionMismatch(collective.EmbeddingDimension, len(query))
	}
	all, err := db.engine.ListInsightsByCollective(collectiveID)
	if err != nil {
		return nil, err
	}

	scored := make([]SimilarInsight, 0, len(all))
	for _, insight := range all {
		d := vector.CosineDistance(query, insight.Embedding)
		scored = append(scored, SimilarInsight{Insight: insight, Similarity: 1 - float64(d)})
	}
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].Similarity > scored[j-1].Similarity; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}
	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// DeleteInsight removes an insight and its secondary-index entry.
func (db *DB) DeleteInsight(id ids.InsightID) error {
	return db.engine.DeleteInsight(id)
}

// --- Activities ---

// RegisterActivity upserts the (collective, agent) presence row,
// preserving StartedAt across re-registration and always refreshing
// LastHeartbeat.
func (db *DB) RegisterActivity(n domain.NewActivity) error {
	if err := domain.ValidateNewActivity(n); err != nil {
		return err
	}
	return db.engine.RecordActivity(n, ids.Now())
}

// UpdateHeartbeat refreshes an existing activity row's LastHeartbeat. The
// row must already exist (see RegisterActivity for the upsert path).
func (db *DB) UpdateHeartbeat(collectiveID ids.CollectiveID, agentID string) error {
	return db.engine.UpdateHeartbeat(collectiveID, agentID, ids.Now())
}

// EndActivity deletes an agent's presence row within a collective.
func (db *DB) EndActivity(collectiveID ids.CollectiveID, agentID string) error {
	return db.engine.EndActivity(collectiveID, agentID)
}

// GetActiveAgents returns every activity row in collectiveID whose last
// heartbeat is within the configured staleness threshold of now.
func (db *DB) GetActiveAgents(collectiveID ids.CollectiveID) ([]domain.Activity, error) {
	all, err := db.engine.ListActivitiesByCollective(collectiveID)
	if err != nil {
		return nil, err
	}
	now := ids.Now()
	out := make([]domain.Activity, 0, len(all))
	for _, a := range all {
		if a.IsStale(db.config.Activity.StaleThreshold, now) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// VectorDir returns the directory this handle's vector index sidecars
// live under, conventionally <path>.vectors.
func (db *DB) VectorDir() string { return db.vectorDir }
