package embedding

import "testing"

func TestExternalEmbedAlwaysFails(t *testing.T) {
	e := NewExternal(384)
	if _, err := e.Embed("text"); err == nil {
		t.Fatal("expected External.Embed to fail")
	}
	if _, err := e.EmbedBatch([]string{"a", "b"}); err == nil {
		t.Fatal("expected External.EmbedBatch to fail")
	}
}

func TestExternalDimension(t *testing.T) {
	e := NewExternal(768)
	if e.Dimension() != 768 {
		t.Errorf("Dimension() = %d, want 768", e.Dimension())
	}
}

func TestValidateDimensionMismatch(t *testing.T) {
	e := NewExternal(4)
	if err := Validate(e, []float32{1, 2, 3}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if err := Validate(e, []float32{1, 2, 3, 4}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
