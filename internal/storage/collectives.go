package storage

import (
	bolt "go.etcd.io/bbolt"

	"github.com/draco28/pulsedb/internal/domain"
	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// PutCollective inserts or overwrites a collective row. Callers are
// responsible for id allocation and timestamp bookkeeping.
func (e *Engine) PutCollective(c domain.Collective) error {
	data, err := encodeCollective(c)
	if err != nil {
		return err
	}
	return e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCollectives).Put(c.ID.Bytes(), data)
	})
}

// GetCollective fetches a collective by id.
func (e *Engine) GetCollective(id ids.CollectiveID) (domain.Collective, error) {
	var c domain.Collective
	err := e.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCollectives).Get(id.Bytes())
		if data == nil {
			return pulseerr.NotFound(pulseerr.ErrCollectiveNotFound, "get_collective")
		}
		var derr error
		c, derr = decodeCollective(data)
		return derr
	})
	return c, err
}

// ListCollectives returns every collective in unspecified order.
func (e *Engine) ListCollectives() ([]domain.Collective, error) {
	var out []domain.Collective
	err := e.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCollectives).ForEach(func(_, v []byte) error {
			c, err := decodeCollective(v)
			if err != nil {
				return err
			}
			out = append(out, c)
			return nil
		})
	})
	return out, err
}

// ListCollectivesByOwner scans every collective and keeps the ones whose
// OwnerID matches. No index exists for this access pattern, matching the
// specification's own expectation of a linear scan here.
func (e *Engine) ListCollectivesByOwner(ownerID string) ([]domain.Collective, error) {
	all, err := e.ListCollectives()
	if err != nil {
		return nil, err
	}
	var out []domain.Collective
	for _, c := range all {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

// CollectiveStats holds the three counts GetCollectiveStats returns.
type CollectiveStats struct {
	ExperienceCount int
	RelationCount   int
	InsightCount    int
}

// GetCollectiveStats counts the collective's experiences and insights by
// the size of their respective multimap buckets, and its relations by
// summing RELATIONS_BY_SOURCE across every experience in the collective
// (no single relations-by-collective index exists).
func (e *Engine) GetCollectiveStats(id ids.CollectiveID) (CollectiveStats, error) {
	var stats CollectiveStats
	err := e.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketCollectives).Get(id.Bytes()) == nil {
			return pulseerr.NotFound(pulseerr.ErrCollectiveNotFound, "get_collective_stats")
		}
		expIDs := listMultimap(tx, bucketExperiencesByCollective, id.Bytes())
		stats.ExperienceCount = len(expIDs)
		stats.InsightCount = countMultimap(tx, bucketInsightsByCollective, id.Bytes())
		for _, raw := range expIDs {
			stats.RelationCount += countMultimap(tx, bucketRelationsBySource, raw)
		}
		return nil
	})
	return stats, err
}

// DeleteCollectiveCascade removes the collective and everything scoped
// to it: every experience (and its embedding, relations, and secondary
// index entries), every insight, and every activity. The vector index
// itself is the caller's responsibility to drop, since it lives outside
// this engine.
func (e *Engine) DeleteCollectiveCascade(id ids.CollectiveID) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketCollectives).Get(id.Bytes()) == nil {
			return pulseerr.NotFound(pulseerr.ErrCollectiveNotFound, "delete_collective")
		}

		expIDs := listMultimap(tx, bucketExperiencesByCollective, id.Bytes())
		for _, expID := range expIDs {
			if err := deleteExperienceCascadeTx(tx, expID); err != nil {
				return err
			}
		}
		if err := deleteMultimapOuter(tx, bucketExperiencesByCollective, id.Bytes()); err != nil {
			return err
		}
		if err := deleteMultimapOuter(tx, bucketInsightsByCollective, id.Bytes()); err != nil {
			return err
		}

		insightsBucket := tx.Bucket(bucketInsights)
		var insightKeysToDelete [][]byte
		_ = insightsBucket.ForEach(func(k, v []byte) error {
			insight, err := decodeInsight(v)
			if err != nil {
				return err
			}
			if insight.CollectiveID == id {
				insightKeysToDelete = append(insightKeysToDelete, append([]byte{}, k...))
			}
			return nil
		})
		for _, k := range insightKeysToDelete {
			if err := insightsBucket.Delete(k); err != nil {
				return err
			}
		}

		activitiesBucket := tx.Bucket(bucketActivities)
		var activityKeysToDelete [][]byte
		_ = activitiesBucket.ForEach(func(k, _ []byte) error {
			if len(k) >= 16 && string(k[:16]) == string(id.Bytes()) {
				activityKeysToDelete = append(activityKeysToDelete, append([]byte{}, k...))
			}
			return nil
		})
		for _, k := range activityKeysToDelete {
			if err := activitiesBucket.Delete(k); err != nil {
				return err
			}
		}

		return tx.Bucket(bucketCollectives).Delete(id.Bytes())
	})
}
