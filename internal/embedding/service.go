// Package embedding provides the pluggable text-to-vector boundary:
// experiences and insights either arrive with a caller-supplied
// embedding (External) or have one computed from their content (Local).
// Both share the Service interface so the facade never branches on
// which provider is in play beyond the embedding-required validation
// rule the specification calls out.
package embedding

import "github.com/draco28/pulsedb/pkg/pulseerr"

// Service is the embedding boundary every provider implements.
type Service interface {
	// Embed computes a single embedding for text.
	Embed(text string) ([]float32, error)
	// EmbedBatch computes embeddings for every text, preserving order.
	EmbedBatch(texts []string) ([][]float32, error)
	// Dimension reports the fixed length every vector this service
	// produces (or validates) has.
	Dimension() int
}

// Validate reports DimensionMismatch when vector's length disagrees with
// svc's Dimension. It is the shared check every provider's Embed and
// EmbedBatch results (and every caller-supplied External vector) must
// pass before being written to storage or the vector index.
func Validate(svc Service, vector []float32) error {
	if len(vector) != svc.Dimension() {
		return pulseerr.DimensionMismatch(svc.Dimension(), len(vector))
	}
	return nil
}
