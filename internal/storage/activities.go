package storage

import (
	"bytes"

	bolt "go.etcd.io/bbolt"

	"github.com/draco28/pulsedb/internal/domain"
	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// activityKey builds the composite (collective id, agent id) key an
// activity row is stored under.
func activityKey(collectiveID ids.CollectiveID, agentID string) []byte {
	k := make([]byte, 0, 16+len(agentID))
	k = append(k, collectiveID.Bytes()...)
	k = append(k, []byte(agentID)...)
	return k
}

// RecordActivity upserts the (collective, agent) presence row. A second
// call for the same pair preserves the original StartedAt and refreshes
// everything else.
func (e *Engine) RecordActivity(n domain.NewActivity, now ids.Timestamp) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketCollectives).Get(n.CollectiveID.Bytes()) == nil {
			return pulseerr.NotFound(pulseerr.ErrCollectiveNotFound, "record_activity")
		}
		b := tx.Bucket(bucketActivities)
		key := activityKey(n.CollectiveID, n.AgentID)
		startedAt := now
		if existing := b.Get(key); existing != nil {
			prior, err := decodeActivity(existing)
			if err != nil {
				return err
			}
			startedAt = prior.StartedAt
		}
		activity := domain.Activity{
			CollectiveID:   n.CollectiveID,
			AgentID:        n.AgentID,
			CurrentTask:    n.CurrentTask,
			ContextSummary: n.ContextSummary,
			StartedAt:      startedAt,
			LastHeartbeat:  now,
		}
		data, err := encodeActivity(activity)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// UpdateHeartbeat refreshes only LastHeartbeat on an existing activity
// row. Unlike RecordActivity it is not an upsert: the row must already
// exist.
func (e *Engine) UpdateHeartbeat(collectiveID ids.CollectiveID, agentID string, now ids.Timestamp) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketActivities)
		key := activityKey(collectiveID, agentID)
		data := b.Get(key)
		if data == nil {
			return pulseerr.NotFound(pulseerr.ErrActivityNotFound, "update_heartbeat")
		}
		activity, err := decodeActivity(data)
		if err != nil {
			return err
		}
		activity.LastHeartbeat = now
		encoded, err := encodeActivity(activity)
		if err != nil {
			return err
		}
		return b.Put(key, encoded)
	})
}

// EndActivity deletes an agent's presence row within a collective. A
// missing row is not an error.
func (e *Engine) EndActivity(collectiveID ids.CollectiveID, agentID string) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketActivities).Delete(activityKey(collectiveID, agentID))
	})
}

// GetActivity fetches a single agent's presence row within a collective.
func (e *Engine) GetActivity(collectiveID ids.CollectiveID, agentID string) (domain.Activity, error) {
	var activity domain.Activity
	err := e.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketActivities).Get(activityKey(collectiveID, agentID))
		if data == nil {
			return pulseerr.NotFound(pulseerr.ErrActivityNotFound, "get_activity")
		}
		var derr error
		activity, derr = decodeActivity(data)
		return derr
	})
	return activity, err
}

// ListActivitiesByCollective prefix-scans every activity row belonging
// to a collective. Staleness filtering is the caller's job (it depends
// on a configured threshold, not stored state).
func (e *Engine) ListActivitiesByCollective(collectiveID ids.CollectiveID) ([]domain.Activity, error) {
	var out []domain.Activity
	prefix := collectiveID.Bytes()
	err := e.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketActivities).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			activity, err := decodeActivity(v)
			if err != nil {
				return err
			}
			out = append(out, activity)
		}
		return nil
	})
	return out, err
}
