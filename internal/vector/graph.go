package vector

import (
	"container/heap"
	"math"
	"math/rand"
	"sync"
)

// Config tunes the HNSW graph's shape.
type Config struct {
	// M is the target number of bidirectional links a node keeps per
	// layer above layer 0. Layer 0 keeps 2*M.
	M int
	// EfConstruction is the candidate-list size used while inserting.
	// Larger values build a higher-recall graph at more insert cost.
	EfConstruction int
	// EfSearch is the default candidate-list size used by Search when
	// the caller doesn't override it.
	EfSearch int
}

// DefaultConfig matches the values used throughout the specification's
// worked examples.
func DefaultConfig() Config {
	return Config{M: 16, EfConstruction: 200, EfSearch: 50}
}

type graphNode struct {
	vector    []float32
	level     int
	neighbors [][]uint64 // neighbors[layer] holds that layer's links
	deleted   bool
}

// Graph is a single collective's HNSW index, keyed by internal uint64
// node ids (never the entity's UUID directly — see Index for that
// mapping). Deletes are soft: a deleted node's edges are left in place
// so neighboring nodes' graphs stay connected, and Search filters
// deleted nodes out of its result set rather than rewiring around them.
type Graph struct {
	mu         sync.RWMutex
	cfg        Config
	nodes      map[uint64]*graphNode
	entryPoint uint64
	hasEntry   bool
	maxLevel   int
	rng        *rand.Rand
}

// NewGraph creates an empty graph with the given configuration.
func NewGraph(cfg Config) *Graph {
	return &Graph{
		cfg:   cfg,
		nodes: make(map[uint64]*graphNode),
		rng:   rand.New(rand.NewSource(1)),
	}
}

// Len reports how many nodes (including soft-deleted ones) the graph
// holds.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *Graph) randomLevel() int {
	level := 0
	ml := 1.0 / math.Log(float64(maxInt(g.cfg.M, 2)))
	for g.rng.Float64() < math.Exp(-1/ml) && level < 32 {
		level++
	}
	return level
}

// Insert adds id with the given vector to the graph. id must not already
// be present.
func (g *Graph) Insert(id uint64, vector []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	level := g.randomLevel()
	node := &graphNode{
		vector:    vector,
		level:     level,
		neighbors: make([][]uint64, level+1),
	}
	g.nodes[id] = node

	if !g.hasEntry {
		g.entryPoint = id
		g.maxLevel = level
		g.hasEntry = true
		return
	}

	curr := g.entryPoint
	for lc := g.maxLevel; lc > level; lc-- {
		curr = g.greedyDescend(vector, curr, lc)
	}

	for lc := minInt(level, g.maxLevel); lc >= 0; lc-- {
		candidates := g.searchLayer(vector, curr, g.cfg.EfConstruction, lc, nil)
		maxConn := g.cfg.M
		if lc == 0 {
			maxConn = g.cfg.M * 2
		}
		selected := selectNeighbors(candidates, maxConn)
		node.neighbors[lc] = idsOf(selected)

		for _, nb := range selected {
			g.link(nb.id, id, lc, maxConn)
		}
		if len(candidates) > 0 {
			curr = candidates[0].id
		}
	}

	if level > g.maxLevel {
		g.maxLevel = level
		g.entryPoint = id
	}
}

// link adds a bidirectional edge from `from` to `to` at layer lc,
// pruning from's neighbor list back down to maxConn by keeping the
// closest candidates if it would otherwise grow unbounded.
func (g *Graph) link(from, to uint64, lc int, maxConn int) {
	n, ok := g.nodes[from]
	if !ok || lc >= len(n.neighbors) {
		return
	}
	n.neighbors[lc] = append(n.neighbors[lc], to)
	if len(n.neighbors[lc]) <= maxConn {
		return
	}
	cands := make([]candidate, 0, len(n.neighbors[lc]))
	for _, nid := range n.neighbors[lc] {
		other, ok := g.nodes[nid]
		if !ok {
			continue
		}
		cands = append(cands, candidate{id: nid, dist: cosineDistance(n.vector, other.vector)})
	}
	selected := selectNeighbors(cands, maxConn)
	n.neighbors[lc] = idsOf(selected)
}

// greedyDescend walks a single best-first hop per step through layer lc,
// starting from curr, and returns the closest node found.
func (g *Graph) greedyDescend(query []float32, curr uint64, lc int) uint64 {
	best := curr
	bestDist := cosineDistance(query, g.nodes[curr].vector)
	for {
		improved := false
		node := g.nodes[best]
		if lc >= len(node.neighbors) {
			break
		}
		for _, nid := range node.neighbors[lc] {
			other, ok := g.nodes[nid]
			if !ok {
				continue
			}
			d := cosineDistance(query, other.vector)
			if d < bestDist {
				bestDist = d
				best = nid
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return best
}

// searchLayer runs the standard HNSW best-first search on layer lc,
// starting from entry, and returns up to ef candidates sorted by
// ascending distance. filter, when non-nil, excludes candidates from the
// RETURNED set but still lets the traversal pass through them (so a
// heavily filtered query still explores enough of the graph to satisfy
// k results when they exist).
func (g *Graph) searchLayer(query []float32, entry uint64, ef int, lc int, filter func(uint64) bool) []candidate {
	visited := map[uint64]struct{}{entry: {}}
	entryDist := cosineDistance(query, g.nodes[entry].vector)

	candidatesHeap := &minHeap{{id: entry, dist: entryDist}}
	heap.Init(candidatesHeap)

	resultsHeap := &maxHeap{}
	if g.admissible(entry, filter) {
		heap.Push(resultsHeap, candidate{id: entry, dist: entryDist})
	}

	for candidatesHeap.Len() > 0 {
		c := heap.Pop(candidatesHeap).(candidate)
		if resultsHeap.Len() >= ef && c.dist > resultsHeap.Peek().dist {
			break
		}
		node, ok := g.nodes[c.id]
		if !ok || lc >= len(node.neighbors) {
			continue
		}
		for _, nid := range node.neighbors[lc] {
			if _, seen := visited[nid]; seen {
				continue
			}
			visited[nid] = struct{}{}
			other, ok := g.nodes[nid]
			if !ok {
				continue
			}
			d := cosineDistance(query, other.vector)
			if resultsHeap.Len() < ef || d < resultsHeap.Peek().dist {
				heap.Push(candidatesHeap, candidate{id: nid, dist: d})
				if g.admissible(nid, filter) {
					heap.Push(resultsHeap, candidate{id: nid, dist: d})
					if resultsHeap.Len() > ef {
						heap.Pop(resultsHeap)
					}
				}
			}
		}
	}

	out := make([]candidate, resultsHeap.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(resultsHeap).(candidate)
	}
	return out
}

func (g *Graph) admissible(id uint64, filter func(uint64) bool) bool {
	node, ok := g.nodes[id]
	if !ok || node.deleted {
		return false
	}
	return filter == nil || filter(id)
}

// Search returns up to k nearest neighbors of query, using ef as the
// search-time candidate-list size. filter, when non-nil, is
// applied during traversal (not as a post-filter), so the requested k
// is satisfied even under aggressive filtering whenever enough
// admissible nodes exist in the graph.
func (g *Graph) Search(query []float32, k, ef int, filter func(uint64) bool) []candidate {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasEntry {
		return nil
	}
	if ef < k {
		ef = k
	}

	curr := g.entryPoint
	for lc := g.maxLevel; lc > 0; lc-- {
		curr = g.greedyDescend(query, curr, lc)
	}

	candidates := g.searchLayer(query, curr, ef, 0, filter)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// Delete soft-deletes id: Search no longer returns it, but its edges
// stay in place so the rest of the graph remains navigable.
func (g *Graph) Delete(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[id]; ok {
		n.deleted = true
	}
}

// Contains reports whether id is present in the graph (deleted or not).
func (g *Graph) Contains(id uint64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

type candidate struct {
	id   uint64
	dist float32
}

func idsOf(cands []candidate) []uint64 {
	out := make([]uint64, len(cands))
	for i, c := range cands {
		out[i] = c.id
	}
	return out
}

// selectNeighbors keeps the maxConn closest candidates, sorted ascending
// by distance. This is the simple heuristic the specification's source
// design calls out as sufficient (as opposed to the more elaborate
// diversity heuristic HNSW papers describe as an optional refinement).
func selectNeighbors(cands []candidate, maxConn int) []candidate {
	sorted := append([]candidate(nil), cands...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].dist < sorted[j-1].dist; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if len(sorted) > maxConn {
		sorted = sorted[:maxConn]
	}
	return sorted
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// minHeap orders candidates by ascending distance (closest first), used
// for the traversal frontier.
type minHeap []candidate

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxHeap orders candidates by descending distance (farthest first), so
// the worst current result sits at the top and is cheap to evict.
type maxHeap []candidate

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
func (h maxHeap) Peek() candidate { return h[0] }
