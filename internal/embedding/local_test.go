package embedding

import "testing"

type stubTokenizer struct{}

func (stubTokenizer) Tokenize(text string, maxTokens int) ([]int64, []int64, error) {
	n := len(text)
	if n > maxTokens {
		n = maxTokens
	}
	ids := make([]int64, n)
	mask := make([]int64, n)
	for i := range ids {
		ids[i] = int64(text[i])
		mask[i] = 1
	}
	return ids, mask, nil
}

type stubRuntime struct{ dimension int }

func (r stubRuntime) Infer(inputIDs, attentionMask, tokenTypeIDs [][]int64) ([][][]float32, error) {
	out := make([][][]float32, len(inputIDs))
	for i, row := range inputIDs {
		seq := make([][]float32, len(row))
		for t := range row {
			vec := make([]float32, r.dimension)
			for d := range vec {
				vec[d] = float32(row[t]%7) + float32(d)
			}
			seq[t] = vec
		}
		out[i] = seq
	}
	return out, nil
}

func newTestLocal(dimension int) *Local {
	return NewLocal(stubTokenizer{}, stubRuntime{dimension: dimension}, dimension, 256)
}

func TestLocalEmbedReturnsNormalizedVector(t *testing.T) {
	l := newTestLocal(8)
	vec, err := l.Embed("hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 8 {
		t.Fatalf("len(vec) = %d, want 8", len(vec))
	}
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares < 0.98 || sumSquares > 1.02 {
		t.Errorf("expected L2-normalized vector (sum of squares ~1), got %v", sumSquares)
	}
}

func TestLocalEmbedRejectsEmptyText(t *testing.T) {
	l := newTestLocal(8)
	if _, err := l.Embed(""); err == nil {
		t.Fatal("expected error for empty text")
	}
	if _, err := l.Embed("   "); err == nil {
		t.Fatal("expected error for whitespace-only text")
	}
}

func TestLocalEmbedBatchPadsToLongestInBatch(t *testing.T) {
	l := newTestLocal(4)
	vecs, err := l.EmbedBatch([]string{"a", "longer input text"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("len(vecs) = %d, want 2", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 4 {
			t.Errorf("len(vecs[%d]) = %d, want 4", i, len(v))
		}
	}
}

func TestLocalDimension(t *testing.T) {
	l := newTestLocal(384)
	if l.Dimension() != 384 {
		t.Errorf("Dimension() = %d, want 384", l.Dimension())
	}
}
