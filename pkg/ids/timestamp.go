package ids

import "time"

// Timestamp is a signed 64-bit millisecond offset from the Unix epoch.
// Ordering depends only on the numeric value, never on wall-clock
// monotonicity across machines.
type Timestamp int64

// Now returns the current time as a Timestamp. A clock reading before the
// Unix epoch is clamped to 0 rather than returned as a negative value or
// treated as an error — PulseDB never fails on a misbehaving clock.
func Now() Timestamp {
	ms := time.Now().UnixMilli()
	if ms < 0 {
		return 0
	}
	return Timestamp(ms)
}

// FromMillis constructs a Timestamp from a raw millisecond value.
func FromMillis(ms int64) Timestamp { return Timestamp(ms) }

// Millis returns the raw millisecond value.
func (t Timestamp) Millis() int64 { return int64(t) }

// Time converts the Timestamp to a time.Time in UTC.
func (t Timestamp) Time() time.Time { return time.UnixMilli(int64(t)).UTC() }

// ToBEBytes encodes the timestamp as 8 big-endian bytes so lexicographic
// byte order equals numeric order. Encoding shifts by the sign bit so
// negative timestamps (pre-epoch, which Now() never produces but which
// FromMillis can still accept) still sort correctly.
func (t Timestamp) ToBEBytes() [8]byte {
	u := uint64(t) ^ (1 << 63)
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(u)
		u >>= 8
	}
	return b
}

// TimestampFromBEBytes decodes bytes produced by ToBEBytes.
func TimestampFromBEBytes(b []byte) Timestamp {
	var u uint64
	for i := 0; i < 8; i++ {
		u = u<<8 | uint64(b[i])
	}
	return Timestamp(int64(u ^ (1 << 63)))
}
