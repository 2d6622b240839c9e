package storage

import (
	bolt "go.etcd.io/bbolt"

	"github.com/draco28/pulsedb/internal/domain"
	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// CreateRelation validates that both endpoints exist and share a
// collective, rejects a duplicate (source, target, type) triple by
// scanning the source's existing outgoing relations, then inserts the
// relation and both of its secondary-index entries, all in one write
// transaction.
func (e *Engine) CreateRelation(rel domain.ExperienceRelation) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		srcData := tx.Bucket(bucketExperiences).Get(rel.SourceID.Bytes())
		if srcData == nil {
			return pulseerr.NotFound(pulseerr.ErrExperienceNotFound, "store_relation")
		}
		dstData := tx.Bucket(bucketExperiences).Get(rel.TargetID.Bytes())
		if dstData == nil {
			return pulseerr.NotFound(pulseerr.ErrExperienceNotFound, "store_relation")
		}
		src, err := decodeExperience(srcData)
		if err != nil {
			return err
		}
		dst, err := decodeExperience(dstData)
		if err != nil {
			return err
		}
		if src.CollectiveID != dst.CollectiveID {
			return pulseerr.InvalidField("target_id", "must belong to the same collective as source_id")
		}
		rel.CollectiveID = src.CollectiveID

		relationsBucket := tx.Bucket(bucketRelations)
		for _, existingIDBytes := range listMultimap(tx, bucketRelationsBySource, rel.SourceID.Bytes()) {
			data := relationsBucket.Get(existingIDBytes)
			if data == nil {
				continue
			}
			existing, err := decodeRelation(data)
			if err != nil {
				return err
			}
			if existing.TargetID == rel.TargetID && existing.RelationType == rel.RelationType {
				return pulseerr.InvalidField("relation_type", "a relation of this type already exists between these experiences")
			}
		}

		data, err := encodeRelation(rel)
		if err != nil {
			return err
		}
		if err := relationsBucket.Put(rel.ID.Bytes(), data); err != nil {
			return err
		}
		if err := addMultimapEntry(tx, bucketRelationsBySource, rel.SourceID.Bytes(), rel.ID.Bytes()); err != nil {
			return err
		}
		return addMultimapEntry(tx, bucketRelationsByTarget, rel.TargetID.Bytes(), rel.ID.Bytes())
	})
}

// GetRelation fetches a relation by id.
func (e *Engine) GetRelation(id ids.RelationID) (domain.ExperienceRelation, error) {
	var rel domain.ExperienceRelation
	err := e.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRelations).Get(id.Bytes())
		if data == nil {
			return pulseerr.NotFound(pulseerr.ErrRelationNotFound, "get_relation")
		}
		var derr error
		rel, derr = decodeRelation(data)
		return derr
	})
	return rel, err
}

// RelatedExperience pairs a resolved experience with the relation that
// connects it to the experience GetRelatedExperiences was called with.
type RelatedExperience struct {
	Experience domain.Experience
	Relation   domain.ExperienceRelation
}

// GetRelatedExperiences resolves every relation touching id in the given
// direction, following each to the *other* endpoint's experience
// record. Both direction reads the union of outgoing and incoming
// relations, de-duplicated by relation id.
func (e *Engine) GetRelatedExperiences(id ids.ExperienceID, direction domain.RelationDirection) ([]RelatedExperience, error) {
	var out []RelatedExperience
	err := e.db.View(func(tx *bolt.Tx) error {
		relationsBucket := tx.Bucket(bucketRelations)
		experiencesBucket := tx.Bucket(bucketExperiences)
		seen := make(map[ids.RelationID]struct{})

		resolve := func(relIDBytes []byte, otherEndpoint func(domain.ExperienceRelation) ids.ExperienceID) error {
			relID, err := ids.RelationIDFromBytes(relIDBytes)
			if err != nil {
				return pulseerr.Corrupted("relation id undecodable: " + err.Error())
			}
			if _, dup := seen[relID]; dup {
				return nil
			}
			seen[relID] = struct{}{}
			data := relationsBucket.Get(relIDBytes)
			if data == nil {
				return nil
			}
			rel, err := decodeRelation(data)
			if err != nil {
				return err
			}
			otherID := otherEndpoint(rel)
			expData := experiencesBucket.Get(otherID.Bytes())
			if expData == nil {
				return nil
			}
			exp, err := decodeExperience(expData)
			if err != nil {
				return err
			}
			out = append(out, RelatedExperience{Experience: exp, Relation: rel})
			return nil
		}

		if direction == domain.DirectionOutgoing || direction == domain.DirectionBoth {
			for _, relIDBytes := range listMultimap(tx, bucketRelationsBySource, id.Bytes()) {
				if err := resolve(relIDBytes, func(r domain.ExperienceRelation) ids.ExperienceID { return r.TargetID }); err != nil {
					return err
				}
			}
		}
		if direction == domain.DirectionIncoming || direction == domain.DirectionBoth {
			for _, relIDBytes := range listMultimap(tx, bucketRelationsByTarget, id.Bytes()) {
				if err := resolve(relIDBytes, func(r domain.ExperienceRelation) ids.ExperienceID { return r.SourceID }); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return out, err
}

// DeleteRelation removes a relation from all three tables atomically.
func (e *Engine) DeleteRelation(id ids.RelationID) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketRelations).Get(id.Bytes()) == nil {
			return pulseerr.NotFound(pulseerr.ErrRelationNotFound, "delete_relation")
		}
		return deleteRelationCascadeTx(tx, id.Bytes())
	})
}

func deleteRelationCascadeTx(tx *bolt.Tx, relIDBytes []byte) error {
	relationsBucket := tx.Bucket(bucketRelations)
	data := relationsBucket.Get(relIDBytes)
	if data == nil {
		return nil
	}
	rel, err := decodeRelation(data)
	if err != nil {
		return err
	}
	if err := removeMultimapEntry(tx, bucketRelationsBySource, rel.SourceID.Bytes(), relIDBytes); err != nil {
		return err
	}
	if err := removeMultimapEntry(tx, bucketRelationsByTarget, rel.TargetID.Bytes(), relIDBytes); err != nil {
		return err
	}
	return relationsBucket.Delete(relIDBytes)
}
