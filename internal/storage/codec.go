package storage

import (
	"bytes"
	"encoding/gob"

	"github.com/draco28/pulsedb/internal/domain"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// The specification leaves the record codec to the implementor, provided
// round-trip equality holds. gob is the stdlib choice here rather than a
// third-party serializer: every record type is a plain Go struct with no
// cross-language wire requirement, and gob's interface-value support
// (via Register) is exactly what encoding the ExperienceType sum type
// needs, so there is no concern left for a library like protobuf or
// msgpack to add value on.
func init() {
	gob.Register(domain.Generic{})
	gob.Register(domain.Fact{})
	gob.Register(domain.Lesson{})
	gob.Register(domain.Solution{})
	gob.Register(domain.SuccessPattern{})
	gob.Register(domain.Difficulty{})
	gob.Register(domain.UserPreference{})
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, pulseerr.Serialization("encode failed", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return pulseerr.Serialization("decode failed", err)
	}
	return nil
}

func encodeCollective(c domain.Collective) ([]byte, error) { return encode(c) }
func decodeCollective(data []byte) (domain.Collective, error) {
	var c domain.Collective
	err := decode(data, &c)
	return c, err
}

func encodeExperience(e domain.Experience) ([]byte, error) { return encode(e) }
func decodeExperience(data []byte) (domain.Experience, error) {
	var e domain.Experience
	err := decode(data, &e)
	return e, err
}

func encodeEmbedding(vec []float32) ([]byte, error) { return encode(vec) }
func decodeEmbedding(data []byte) ([]float32, error) {
	var vec []float32
	err := decode(data, &vec)
	return vec, err
}

func encodeRelation(r domain.ExperienceRelation) ([]byte, error) { return encode(r) }
func decodeRelation(data []byte) (domain.ExperienceRelation, error) {
	var r domain.ExperienceRelation
	err := decode(data, &r)
	return r, err
}

func encodeInsight(i domain.DerivedInsight) ([]byte, error) { return encode(i) }
func decodeInsight(data []byte) (domain.DerivedInsight, error) {
	var i domain.DerivedInsight
	err := decode(data, &i)
	return i, err
}

func encodeActivity(a domain.Activity) ([]byte, error) { return encode(a) }
func decodeActivity(data []byte) (domain.Activity, error) {
	var a domain.Activity
	err := decode(data, &a)
	return a, err
}

func encodeMetadata(m domain.DatabaseMetadata) ([]byte, error) { return encode(m) }
func decodeMetadata(data []byte) (domain.DatabaseMetadata, error) {
	var m domain.DatabaseMetadata
	err := decode(data, &m)
	return m, err
}
