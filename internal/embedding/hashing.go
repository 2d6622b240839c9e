package embedding

import (
	"hash/fnv"
	"strings"
)

// hashingTokenizer is the in-tree default Tokenizer: it splits on
// whitespace and lowercases, which is enough structure for the hashing
// Runtime below to produce content-sensitive (not random) vectors
// without a real vocabulary file. truncation is longest-first in the
// sense the specification names for a single sequence: tokens beyond
// maxTokens are dropped from the end, same as truncating the one
// sequence that is, trivially, the longest.
type hashingTokenizer struct{}

func (hashingTokenizer) Tokenize(text string, maxTokens int) ([]int64, []int64, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) > maxTokens {
		words = words[:maxTokens]
	}
	inputIDs := make([]int64, len(words))
	attentionMask := make([]int64, len(words))
	for i, w := range words {
		inputIDs[i] = int64(hashToken(w))
		attentionMask[i] = 1
	}
	return inputIDs, attentionMask, nil
}

func hashToken(tok string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tok))
	return h.Sum32()
}

// hashingRuntime stands in for an ONNX Runtime session: ONNX inference
// itself is out of scope (spec.md §1), so this implements a deterministic
// feature-hashing embedding instead — each token id is hashed into a
// dimension/sign pair and scattered into the output vector, the same
// trick bag-of-words hashing vectorizers use to avoid a growing
// vocabulary table. It keeps the documented pipeline shape (tokenize,
// pad, infer, mean-pool, normalize) real and content-sensitive end to
// end without a model binary.
type hashingRuntime struct {
	dimension int
}

func (r hashingRuntime) Infer(inputIDs, attentionMask, tokenTypeIDs [][]int64) ([][][]float32, error) {
	out := make([][][]float32, len(inputIDs))
	for i, row := range inputIDs {
		seq := make([][]float32, len(row))
		for t, tokenID := range row {
			seq[t] = hashEmbed(tokenID, r.dimension)
		}
		out[i] = seq
	}
	return out, nil
}

// hashEmbed deterministically scatters tokenID across dimension buckets
// with a sign derived from a second hash, so distinct tokens tend to
// land on different dimensions and repeated tokens reinforce each other
// under mean-pooling.
func hashEmbed(tokenID int64, dimension int) []float32 {
	vec := make([]float32, dimension)
	h := uint32(tokenID)
	for k := 0; k < 4; k++ {
		h = h*2654435761 + uint32(k)
		bucket := int(h % uint32(dimension))
		sign := float32(1)
		if (h>>16)%2 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}
	return vec
}

// LoadLocal builds a Local embedding service for the given output
// dimension and per-sequence token cap, using the in-tree hashing
// Tokenizer/Runtime pair above. modelDir names the per-user model cache
// directory a real ONNX binding would load model.onnx/tokenizer.json
// from (see cachedir.go); this implementation doesn't require those
// files to exist, since it never calls out to ONNX Runtime, but a future
// real binding would use modelDir exactly as this signature implies.
func LoadLocal(modelDir string, dimension, maxTokens int) (*Local, error) {
	return NewLocal(hashingTokenizer{}, hashingRuntime{dimension: dimension}, dimension, maxTokens), nil
}
