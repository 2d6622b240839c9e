package embedding

import (
	"math"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/draco28/pulsedb/internal/logging"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

var log = logging.GetLogger("embedding")

// Tokenizer turns text into token ids with an attention mask, truncating
// to maxTokens with a longest-first strategy when text overruns it. A
// real implementation wraps a tokenizer.json vocabulary; tests supply a
// stub.
type Tokenizer interface {
	// Tokenize returns input ids and an attention mask of equal length,
	// at most maxTokens long.
	Tokenize(text string, maxTokens int) (inputIDs []int64, attentionMask []int64, err error)
}

// Runtime runs the loaded inference session over a padded batch and
// returns one per-token embedding sequence per input row. A real
// implementation wraps an ONNX Runtime session; tests supply a stub.
type Runtime interface {
	// Infer takes batched, equal-length inputIDs/attentionMask/tokenTypeIDs
	// (shape [batch][seq]) and returns, for each row, a [seq][hidden]
	// matrix of per-token embeddings.
	Infer(inputIDs, attentionMask, tokenTypeIDs [][]int64) ([][][]float32, error)
}

// Local is the transformer-based embedding provider: tokenize, run
// inference, mean-pool over the attention mask, L2-normalize. It loads
// its tokenizer and inference session eagerly at construction time, the
// way a real ONNX Runtime session would be expensive to open lazily on
// every call.
type Local struct {
	tokenizer Tokenizer
	runtime   Runtime
	dimension int
	maxTokens int
	// runtimeMu serializes calls into runtime.Infer: the specification
	// treats the inference session as requiring exclusive access per
	// call, with batching (not finer-grained locking) as the way callers
	// amortize it.
	runtimeMu sync.Mutex
}

// NewLocal wires a Tokenizer and Runtime (already loaded by the caller,
// see LoadLocal) into a Local service with the given output dimension
// and per-sequence token cap.
func NewLocal(tokenizer Tokenizer, runtime Runtime, dimension, maxTokens int) *Local {
	return &Local{tokenizer: tokenizer, runtime: runtime, dimension: dimension, maxTokens: maxTokens}
}

func (l *Local) Dimension() int { return l.dimension }

// Embed computes a single embedding for text.
func (l *Local) Embed(text string) ([]float32, error) {
	vecs, err := l.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch tokenizes every text concurrently (bounded by errgroup),
// pads the batch to its own longest sequence (not the model maximum),
// runs one inference call over the whole batch, then mean-pools and
// normalizes each row independently.
func (l *Local) EmbedBatch(texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, pulseerr.Embedding("cannot embed empty text")
		}
	}

	tokenized := make([][]int64, len(texts))
	masks := make([][]int64, len(texts))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			ids, mask, err := l.tokenizer.Tokenize(text, l.maxTokens)
			if err != nil {
				return pulseerr.Embedding("tokenization failed: " + err.Error())
			}
			tokenized[i] = ids
			masks[i] = mask
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	longest := 0
	for _, ids := range tokenized {
		if len(ids) > longest {
			longest = len(ids)
		}
	}

	inputIDs := make([][]int64, len(texts))
	attentionMask := make([][]int64, len(texts))
	tokenTypeIDs := make([][]int64, len(texts))
	for i := range texts {
		inputIDs[i] = padTo(tokenized[i], longest)
		attentionMask[i] = padTo(masks[i], longest)
		tokenTypeIDs[i] = make([]int64, longest)
	}

	l.runtimeMu.Lock()
	perTokenEmbeddings, err := l.runtime.Infer(inputIDs, attentionMask, tokenTypeIDs)
	l.runtimeMu.Unlock()
	if err != nil {
		return nil, pulseerr.Embedding("inference failed: " + err.Error())
	}
	if len(perTokenEmbeddings) != len(texts) {
		return nil, pulseerr.Embedding("inference returned unexpected batch size")
	}

	out := make([][]float32, len(texts))
	for i, tokens := range perTokenEmbeddings {
		pooled, err := meanPool(tokens, attentionMask[i], l.dimension)
		if err != nil {
			return nil, err
		}
		out[i] = l2Normalize(pooled)
	}
	return out, nil
}

func padTo(ids []int64, n int) []int64 {
	out := make([]int64, n)
	copy(out, ids)
	return out
}

// meanPool averages per-token embeddings, weighted by the attention
// mask, along the sequence axis.
func meanPool(tokens [][]float32, mask []int64, dimension int) ([]float32, error) {
	if len(tokens) != len(mask) {
		return nil, pulseerr.Embedding("attention mask length does not match token count")
	}
	sum := make([]float64, dimension)
	var count float64
	for t, maskVal := range mask {
		if maskVal == 0 {
			continue
		}
		if len(tokens[t]) != dimension {
			return nil, pulseerr.Embedding("inference output dimension mismatch")
		}
		for d, v := range tokens[t] {
			sum[d] += float64(v)
		}
		count++
	}
	if count == 0 {
		return nil, pulseerr.Embedding("attention mask excludes every token")
	}
	out := make([]float32, dimension)
	for d, v := range sum {
		out[d] = float32(v / count)
	}
	return out, nil
}

func l2Normalize(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
