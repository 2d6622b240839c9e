package ids

import "testing"

func TestNewExperienceIDUnique(t *testing.T) {
	a := NewExperienceID()
	b := NewExperienceID()
	if a == b {
		t.Error("expected two freshly generated ids to differ")
	}
	if a.IsNil() || b.IsNil() {
		t.Error("freshly generated ids should never be nil")
	}
}

func TestExperienceIDBytesRoundTrip(t *testing.T) {
	id := NewExperienceID()
	bytes := id.AsBytes()

	restored, err := ExperienceIDFromBytes(bytes[:])
	if err != nil {
		t.Fatalf("ExperienceIDFromBytes failed: %v", err)
	}
	if restored != id {
		t.Errorf("round trip mismatch: got %s, want %s", restored, id)
	}
}

func TestExperienceIDStringRoundTrip(t *testing.T) {
	id := NewExperienceID()
	restored, err := ExperienceIDFromString(id.String())
	if err != nil {
		t.Fatalf("ExperienceIDFromString failed: %v", err)
	}
	if restored != id {
		t.Error("string round trip mismatch")
	}
}

func TestNilCollectiveID(t *testing.T) {
	if !NilCollectiveID().IsNil() {
		t.Error("NilCollectiveID should report IsNil() == true")
	}
}

func TestTimestampBEBytesOrdering(t *testing.T) {
	ts := []Timestamp{FromMillis(0), FromMillis(1), FromMillis(1000), FromMillis(1 << 40)}
	for i := 1; i < len(ts); i++ {
		prev := ts[i-1].ToBEBytes()
		cur := ts[i].ToBEBytes()
		if !lessBytes(prev[:], cur[:]) {
			t.Errorf("expected %v < %v in big-endian byte order", prev, cur)
		}
	}
}

func TestTimestampBEBytesRoundTrip(t *testing.T) {
	orig := FromMillis(1735689600123)
	b := orig.ToBEBytes()
	restored := TimestampFromBEBytes(b[:])
	if restored != orig {
		t.Errorf("round trip mismatch: got %d, want %d", restored, orig)
	}
}

func TestTimestampNowNeverNegative(t *testing.T) {
	if Now().Millis() < 0 {
		t.Error("Now() must never return a negative timestamp")
	}
}

func lessBytes(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
