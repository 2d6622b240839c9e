// Package vector implements the per-collective HNSW approximate nearest
// neighbor index: a hand-rolled graph (graph.go) wrapped by Index, which
// adds the entity-id <-> internal-id translation, soft-delete bookkeeping
// that survives a rebuild, and the .hnsw.meta sidecar persistence the
// specification calls for. Storage remains the source of truth — Index
// is always rebuildable from the embeddings table, and RebuildFromEmbeddings
// is the only path that is ever read back on open.
package vector

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// Result is one hit from a Search or SearchFiltered call: the original
// experience id and its cosine distance from the query (0 = identical,
// 2 = opposite).
type Result struct {
	ExperienceID ids.ExperienceID
	Distance     float32
}

// Index is one collective's vector index. It owns a Graph plus the
// bidirectional mapping between PulseDB experience ids and the Graph's
// internal uint64 node ids.
type Index struct {
	mu         sync.RWMutex
	graph      *Graph
	dimension  int
	nextID     uint64
	idToEntity map[uint64]ids.ExperienceID
	entityToID map[ids.ExperienceID]uint64
	deleted    map[ids.ExperienceID]struct{}
}

// New creates an empty index for a collective with the given embedding
// dimension.
func New(dimension int, cfg Config) *Index {
	return &Index{
		graph:      NewGraph(cfg),
		dimension:  dimension,
		idToEntity: make(map[uint64]ids.ExperienceID),
		entityToID: make(map[ids.ExperienceID]uint64),
		deleted:    make(map[ids.ExperienceID]struct{}),
	}
}

// Dimension returns the index's fixed embedding dimension.
func (idx *Index) Dimension() int { return idx.dimension }

// Insert validates the vector's dimension and adds it under experienceID.
// A second Insert for an id already present is a no-op: the index is a
// derived accelerator and re-inserting the same id (e.g. a retried
// RecordExperience side effect) must not create a duplicate node.
func (idx *Index) Insert(experienceID ids.ExperienceID, vector []float32) error {
	if len(vector) != idx.dimension {
		return pulseerr.DimensionMismatch(idx.dimension, len(vector))
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.entityToID[experienceID]; exists {
		return nil
	}
	internalID := atomic.AddUint64(&idx.nextID, 1) - 1
	idx.idToEntity[internalID] = experienceID
	idx.entityToID[experienceID] = internalID
	idx.graph.Insert(internalID, vector)
	return nil
}

// Delete soft-deletes experienceID. It is a no-op if the id is not
// present.
func (idx *Index) Delete(experienceID ids.ExperienceID) {
	idx.mu.Lock()
	internalID, ok := idx.entityToID[experienceID]
	if ok {
		idx.deleted[experienceID] = struct{}{}
	}
	idx.mu.Unlock()
	if ok {
		idx.graph.Delete(internalID)
	}
}

// Search returns up to k nearest neighbors of query with no additional
// filter beyond soft-delete exclusion.
func (idx *Index) Search(query []float32, k, efSearch int) ([]Result, error) {
	return idx.SearchFiltered(query, k, efSearch, nil)
}

// SearchFiltered returns up to k nearest neighbors of query whose
// experience id satisfies filter. filter is composed with the soft-delete
// check and applied during traversal, not as a post-filter, so k is
// satisfied whenever enough admissible nodes exist.
func (idx *Index) SearchFiltered(query []float32, k, efSearch int, filter func(ids.ExperienceID) bool) ([]Result, error) {
	if len(query) != idx.dimension {
		return nil, pulseerr.DimensionMismatch(idx.dimension, len(query))
	}
	// idToEntity is read inside the traversal closure the graph invokes
	// synchronously from graph.Search below, so the read lock must stay
	// held for the whole call — releasing it first (as a prior version
	// of this method did) races against Insert's map write and Go's
	// runtime fatally aborts on concurrent map read/write.
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	internalFilter := func(internalID uint64) bool {
		expID, ok := idx.idToEntity[internalID]
		if !ok {
			return false
		}
		if filter != nil && !filter(expID) {
			return false
		}
		return true
	}

	candidates := idx.graph.Search(query, k, efSearch, internalFilter)

	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		expID, ok := idx.idToEntity[c.id]
		if !ok {
			continue
		}
		out = append(out, Result{ExperienceID: expID, Distance: c.dist})
	}
	return out, nil
}

// Len reports how many experience ids are currently tracked (including
// soft-deleted ones still resident in the graph).
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entityToID)
}

// EmbeddingSource supplies the (id, vector) pairs RebuildFromEmbeddings
// inserts. The storage engine's embedding table is the production
// implementation of this; tests can supply an in-memory slice.
type EmbeddingSource interface {
	ExperienceID() ids.ExperienceID
	Vector() []float32
}

// pair is the concrete EmbeddingSource RebuildFromEmbeddings accepts.
type pair struct {
	id  ids.ExperienceID
	vec []float32
}

func (p pair) ExperienceID() ids.ExperienceID { return p.id }
func (p pair) Vector() []float32              { return p.vec }

// NewPair builds an EmbeddingSource pair for RebuildFromEmbeddings.
func NewPair(id ids.ExperienceID, vec []float32) EmbeddingSource { return pair{id: id, vec: vec} }

// RebuildFromEmbeddings discards the current graph and reinserts every
// given embedding concurrently via errgroup, then reapplies the
// previously-recorded soft-deletes. Storage (not this rebuilt graph) is
// always the source of truth: this is the only path that constructs an
// Index from persisted state. It reads no file itself: a dumped graph
// file is never read back, and the .hnsw.meta deleted-set sidecar is
// applied separately by LoadMeta.
func (idx *Index) RebuildFromEmbeddings(embeddings []EmbeddingSource, workers int) error {
	idx.mu.Lock()
	idx.graph = NewGraph(idx.graph.cfg)
	idx.idToEntity = make(map[uint64]ids.ExperienceID)
	idx.entityToID = make(map[ids.ExperienceID]uint64)
	atomic.StoreUint64(&idx.nextID, 0)
	preservedDeleted := idx.deleted
	idx.mu.Unlock()

	if workers <= 0 {
		workers = 1
	}

	type assigned struct {
		internalID uint64
		expID      ids.ExperienceID
		vec        []float32
	}
	assignments := make([]assigned, len(embeddings))
	idx.mu.Lock()
	for i, e := range embeddings {
		internalID := atomic.AddUint64(&idx.nextID, 1) - 1
		idx.idToEntity[internalID] = e.ExperienceID()
		idx.entityToID[e.ExperienceID()] = internalID
		assignments[i] = assigned{internalID: internalID, expID: e.ExperienceID(), vec: e.Vector()}
	}
	idx.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(workers)
	for _, a := range assignments {
		a := a
		g.Go(func() error {
			if len(a.vec) != idx.dimension {
				return pulseerr.DimensionMismatch(idx.dimension, len(a.vec))
			}
			idx.graph.Insert(a.internalID, a.vec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for expID := range preservedDeleted {
		idx.Delete(expID)
	}
	idx.mu.Lock()
	idx.deleted = preservedDeleted
	idx.mu.Unlock()
	return nil
}
