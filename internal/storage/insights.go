package storage

import (
	bolt "go.etcd.io/bbolt"

	"github.com/draco28/pulsedb/internal/domain"
	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// CreateInsight inserts the insight record and its INSIGHTS_BY_COLLECTIVE
// entry in one write transaction.
func (e *Engine) CreateInsight(insight domain.DerivedInsight) error {
	data, err := encodeInsight(insight)
	if err != nil {
		return err
	}
	return e.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketCollectives).Get(insight.CollectiveID.Bytes()) == nil {
			return pulseerr.NotFound(pulseerr.ErrCollectiveNotFound, "create_insight")
		}
		if err := tx.Bucket(bucketInsights).Put(insight.ID.Bytes(), data); err != nil {
			return err
		}
		return addMultimapEntry(tx, bucketInsightsByCollective, insight.CollectiveID.Bytes(), insight.ID.Bytes())
	})
}

// GetInsight fetches a derived insight by id.
func (e *Engine) GetInsight(id ids.InsightID) (domain.DerivedInsight, error) {
	var insight domain.DerivedInsight
	err := e.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketInsights).Get(id.Bytes())
		if data == nil {
			return pulseerr.NotFound(pulseerr.ErrInsightNotFound, "get_insight")
		}
		var derr error
		insight, derr = decodeInsight(data)
		return derr
	})
	return insight, err
}

// ListInsightsByCollective resolves every insight id in a collective's
// INSIGHTS_BY_COLLECTIVE multimap entry to its full record.
func (e *Engine) ListInsightsByCollective(collectiveID ids.CollectiveID) ([]domain.DerivedInsight, error) {
	var out []domain.DerivedInsight
	err := e.db.View(func(tx *bolt.Tx) error {
		insightsBucket := tx.Bucket(bucketInsights)
		for _, idBytes := range listMultimap(tx, bucketInsightsByCollective, collectiveID.Bytes()) {
			data := insightsBucket.Get(idBytes)
			if data == nil {
				continue
			}
			insight, err := decodeInsight(data)
			if err != nil {
				return err
			}
			out = append(out, insight)
		}
		return nil
	})
	return out, err
}

// DeleteInsight removes an insight and its secondary-index entry.
func (e *Engine) DeleteInsight(id ids.InsightID) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketInsights).Get(id.Bytes())
		if data == nil {
			return pulseerr.NotFound(pulseerr.ErrInsightNotFound, "delete_insight")
		}
		insight, err := decodeInsight(data)
		if err != nil {
			return err
		}
		if err := removeMultimapEntry(tx, bucketInsightsByCollective, insight.CollectiveID.Bytes(), id.Bytes()); err != nil {
			return err
		}
		return tx.Bucket(bucketInsights).Delete(id.Bytes())
	})
}
