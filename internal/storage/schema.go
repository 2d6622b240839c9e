// Package storage is the transactional persistence layer: a single
// go.etcd.io/bbolt file holding every PulseDB table as a top-level
// bucket, with multimap secondary indexes realized as nested buckets
// (one sub-bucket per outer key). bbolt's single-writer/multi-reader
// mmap B+Tree and copy-on-write pages play the role the specification's
// shadow-paging engine plays in the original: callers get the same
// read-snapshot-isolation guarantees from View transactions and the same
// all-or-nothing guarantees from Update transactions.
package storage

// Bucket names for the simple (key -> record) tables.
var (
	bucketMetadata    = []byte("metadata")
	bucketCollectives = []byte("collectives")
	bucketExperiences = []byte("experiences")
	bucketEmbeddings  = []byte("embeddings")
	bucketInsights    = []byte("insights")
	bucketRelations   = []byte("relations")
	bucketActivities  = []byte("activities")
)

// Bucket names for the multimap (outer key -> nested bucket of inner
// keys) secondary indexes.
var (
	bucketExperiencesByCollective = []byte("experiences_by_collective")
	bucketExperiencesByType       = []byte("experiences_by_type")
	bucketExperiencesByTime       = []byte("experiences_by_time")
	bucketRelationsBySource       = []byte("relations_by_source")
	bucketRelationsByTarget       = []byte("relations_by_target")
	bucketInsightsByCollective    = []byte("insights_by_collective")
)

// metadataKey is the single key under bucketMetadata holding the
// singleton DatabaseMetadata record.
var metadataKey = []byte("db_metadata")

// allBuckets lists every top-level bucket the engine creates on Open, in
// the order they are created. An Open against an existing file missing
// the metadata bucket fails with pulseerr.Corrupted; missing any other
// of these, it fails with pulseerr.TableNotFound.
var allBuckets = [][]byte{
	bucketMetadata,
	bucketCollectives,
	bucketExperiences,
	bucketEmbeddings,
	bucketInsights,
	bucketRelations,
	bucketActivities,
	bucketExperiencesByCollective,
	bucketExperiencesByType,
	bucketExperiencesByTime,
	bucketRelationsBySource,
	bucketRelationsByTarget,
	bucketInsightsByCollective,
}
