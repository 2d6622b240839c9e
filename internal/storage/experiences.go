package storage

import (
	bolt "go.etcd.io/bbolt"

	"github.com/draco28/pulsedb/internal/domain"
	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// experienceByTypeOuterKey builds the (collective id, type tag) outer
// key EXPERIENCES_BY_TYPE is keyed on.
func experienceByTypeOuterKey(collectiveID []byte, tag domain.ExperienceTypeTag) []byte {
	k := make([]byte, 0, len(collectiveID)+1)
	k = append(k, collectiveID...)
	k = append(k, byte(tag))
	return k
}

// experienceByTimeInnerKey builds the BE(timestamp) || experience id
// inner key, which sorts a collective's nested by-time bucket into
// chronological order.
func experienceByTimeInnerKey(ts ids.Timestamp, expID []byte) []byte {
	be := ts.ToBEBytes()
	k := make([]byte, 0, len(be)+len(expID))
	k = append(k, be[:]...)
	k = append(k, expID...)
	return k
}

// CreateExperience inserts the experience record, its embedding, and all
// three secondary-index entries in one write transaction. The caller
// supplies a fully-formed domain.Experience (id, timestamps, and
// embedding-required validation already resolved).
func (e *Engine) CreateExperience(exp domain.Experience, embedding []float32) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketCollectives).Get(exp.CollectiveID.Bytes()) == nil {
			return pulseerr.NotFound(pulseerr.ErrCollectiveNotFound, "record_experience")
		}
		return putExperienceTx(tx, exp, embedding)
	})
}

func putExperienceTx(tx *bolt.Tx, exp domain.Experience, embedding []float32) error {
	expData, err := encodeExperience(exp)
	if err != nil {
		return err
	}
	if err := tx.Bucket(bucketExperiences).Put(exp.ID.Bytes(), expData); err != nil {
		return err
	}

	if embedding != nil {
		embData, err := encodeEmbedding(embedding)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketEmbeddings).Put(exp.ID.Bytes(), embData); err != nil {
			return err
		}
	}

	if err := addMultimapEntry(tx, bucketExperiencesByCollective, exp.CollectiveID.Bytes(), exp.ID.Bytes()); err != nil {
		return err
	}
	tag := domain.TagGeneric
	if exp.ExperienceType != nil {
		tag = exp.ExperienceType.Tag()
	}
	if err := addMultimapEntry(tx, bucketExperiencesByType, experienceByTypeOuterKey(exp.CollectiveID.Bytes(), tag), exp.ID.Bytes()); err != nil {
		return err
	}
	return addMultimapEntry(tx, bucketExperiencesByTime, exp.CollectiveID.Bytes(), experienceByTimeInnerKey(exp.CreatedAt, exp.ID.Bytes()))
}

// GetExperience fetches an experience by id.
func (e *Engine) GetExperience(id ids.ExperienceID) (domain.Experience, error) {
	var exp domain.Experience
	err := e.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketExperiences).Get(id.Bytes())
		if data == nil {
			return pulseerr.NotFound(pulseerr.ErrExperienceNotFound, "get_experience")
		}
		var derr error
		exp, derr = decodeExperience(data)
		return derr
	})
	return exp, err
}

// GetEmbedding fetches an experience's embedding by experience id.
func (e *Engine) GetEmbedding(id ids.ExperienceID) ([]float32, error) {
	var vec []float32
	err := e.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketEmbeddings).Get(id.Bytes())
		if data == nil {
			return pulseerr.NotFound(pulseerr.ErrExperienceNotFound, "get_embedding")
		}
		var derr error
		vec, derr = decodeEmbedding(data)
		return derr
	})
	return vec, err
}

// PutExperience overwrites an experience record in place, without
// touching its embedding or secondary indexes. Used by update, archive,
// unarchive, and reinforce, none of which change collective, type tag,
// or creation timestamp.
func (e *Engine) PutExperience(exp domain.Experience) error {
	data, err := encodeExperience(exp)
	if err != nil {
		return err
	}
	return e.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketExperiences).Get(exp.ID.Bytes()) == nil {
			return pulseerr.NotFound(pulseerr.ErrExperienceNotFound, "update_experience")
		}
		return tx.Bucket(bucketExperiences).Put(exp.ID.Bytes(), data)
	})
}

// GetRecentExperiences reverse-iterates a collective's EXPERIENCES_BY_TIME
// nested bucket, decoding and filtering as it goes, and stops as soon as
// k results have been collected or the bucket is exhausted. filter may be
// nil, meaning no predicate is applied.
func (e *Engine) GetRecentExperiences(collectiveID ids.CollectiveID, k int, filter func(domain.Experience) bool) ([]domain.Experience, error) {
	var out []domain.Experience
	err := e.db.View(func(tx *bolt.Tx) error {
		top := tx.Bucket(bucketExperiencesByTime)
		nested := top.Bucket(collectiveID.Bytes())
		if nested == nil {
			return nil
		}
		expBucket := tx.Bucket(bucketExperiences)
		c := nested.Cursor()
		for key, _ := c.Last(); key != nil; key, _ = c.Prev() {
			if len(out) >= k {
				break
			}
			if len(key) < 16 {
				continue
			}
			expIDBytes := key[len(key)-16:]
			data := expBucket.Get(expIDBytes)
			if data == nil {
				continue
			}
			exp, err := decodeExperience(data)
			if err != nil {
				return err
			}
			if filter != nil && !filter(exp) {
				continue
			}
			out = append(out, exp)
		}
		return nil
	})
	return out, err
}

// EmbeddingPair is one (experience id, vector) pair, as returned by
// ListEmbeddingsByCollective for vector-index rebuild on open.
type EmbeddingPair struct {
	ExperienceID ids.ExperienceID
	Vector       []float32
}

// ListEmbeddingsByCollective resolves every experience id in a
// collective's EXPERIENCES_BY_COLLECTIVE multimap to its stored
// embedding, skipping any experience that has none (there shouldn't be
// any, since every write path stores both together). This is the only
// read path the facade uses to rebuild a collective's vector index from
// storage on open; the index itself is never the source of truth.
func (e *Engine) ListEmbeddingsByCollective(collectiveID ids.CollectiveID) ([]EmbeddingPair, error) {
	var out []EmbeddingPair
	err := e.db.View(func(tx *bolt.Tx) error {
		embBucket := tx.Bucket(bucketEmbeddings)
		for _, expIDBytes := range listMultimap(tx, bucketExperiencesByCollective, collectiveID.Bytes()) {
			data := embBucket.Get(expIDBytes)
			if data == nil {
				continue
			}
			vec, err := decodeEmbedding(data)
			if err != nil {
				return err
			}
			expID, err := ids.ExperienceIDFromBytes(expIDBytes)
			if err != nil {
				return pulseerr.Corrupted("experience id undecodable: " + err.Error())
			}
			out = append(out, EmbeddingPair{ExperienceID: expID, Vector: vec})
		}
		return nil
	})
	return out, err
}

// DeleteExperienceCascade removes the experience, its embedding, every
// relation touching it, and all three experience secondary indexes, in
// one write transaction.
func (e *Engine) DeleteExperienceCascade(id ids.ExperienceID) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketExperiences).Get(id.Bytes()) == nil {
			return pulseerr.NotFound(pulseerr.ErrExperienceNotFound, "delete_experience")
		}
		return deleteExperienceCascadeTx(tx, id.Bytes())
	})
}

// deleteExperienceCascadeTx performs the cascade within an
// already-open transaction, so DeleteCollectiveCascade can reuse it
// per experience without nesting Update calls.
func deleteExperienceCascadeTx(tx *bolt.Tx, expIDBytes []byte) error {
	data := tx.Bucket(bucketExperiences).Get(expIDBytes)
	if data == nil {
		return nil
	}
	exp, err := decodeExperience(data)
	if err != nil {
		return err
	}

	for _, relIDBytes := range listMultimap(tx, bucketRelationsBySource, expIDBytes) {
		if err := deleteRelationCascadeTx(tx, relIDBytes); err != nil {
			return err
		}
	}
	for _, relIDBytes := range listMultimap(tx, bucketRelationsByTarget, expIDBytes) {
		if err := deleteRelationCascadeTx(tx, relIDBytes); err != nil {
			return err
		}
	}

	tag := domain.TagGeneric
	if exp.ExperienceType != nil {
		tag = exp.ExperienceType.Tag()
	}
	if err := removeMultimapEntry(tx, bucketExperiencesByCollective, exp.CollectiveID.Bytes(), expIDBytes); err != nil {
		return err
	}
	if err := removeMultimapEntry(tx, bucketExperiencesByType, experienceByTypeOuterKey(exp.CollectiveID.Bytes(), tag), expIDBytes); err != nil {
		return err
	}
	if err := removeMultimapEntry(tx, bucketExperiencesByTime, exp.CollectiveID.Bytes(), experienceByTimeInnerKey(exp.CreatedAt, expIDBytes)); err != nil {
		return err
	}
	if err := tx.Bucket(bucketEmbeddings).Delete(expIDBytes); err != nil {
		return err
	}
	return tx.Bucket(bucketExperiences).Delete(expIDBytes)
}
