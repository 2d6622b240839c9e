package embedding

import "github.com/draco28/pulsedb/pkg/pulseerr"

// External is the embedding provider for callers who compute their own
// vectors upstream (their own model server, a hosted embeddings API). It
// only validates; it never computes.
type External struct {
	dimension int
}

// NewExternal returns an External service contracted to the given
// dimension.
func NewExternal(dimension int) *External {
	return &External{dimension: dimension}
}

func (e *External) Dimension() int { return e.dimension }

// Embed always fails: External mode requires every embedding to be
// supplied by the caller at the call site (record_experience,
// create_insight), never computed here.
func (e *External) Embed(text string) ([]float32, error) {
	return nil, pulseerr.Embedding("External embedding mode: embeddings must be provided by the caller")
}

// EmbedBatch always fails, for the same reason as Embed.
func (e *External) EmbedBatch(texts []string) ([][]float32, error) {
	return nil, pulseerr.Embedding("External embedding mode: embeddings must be provided by the caller")
}
