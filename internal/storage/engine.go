package storage

import (
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/draco28/pulsedb/internal/domain"
	"github.com/draco28/pulsedb/internal/logging"
	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

var log = logging.GetLogger("storage")

// Engine is the transactional persistence layer for one PulseDB file. It
// owns every bucket and secondary-index multimap; callers interact with
// it exclusively through the typed methods in this package, never with
// *bolt.Tx directly.
type Engine struct {
	db   *bolt.DB
	path string
}

// OpenOptions configures Open. A zero value uses sane defaults.
type OpenOptions struct {
	// Dimension is the embedding dimension to record in a newly-created
	// database's metadata. When opening an existing file it is checked
	// against the recorded dimension instead.
	Dimension int
	// Timeout bounds how long Open waits for another process's file
	// lock before giving up with pulseerr.DatabaseLocked.
	Timeout time.Duration
}

// Open opens (or creates) the database file at path. A missing file is
// created with a fresh schema and metadata; an existing file is
// validated against the current SchemaVersion.
func Open(path string, opts OpenOptions) (*Engine, error) {
	if opts.Timeout == 0 {
		opts.Timeout = time.Second
	}

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: opts.Timeout})
	if err != nil {
		if err == bolt.ErrTimeout {
			return nil, pulseerr.DatabaseLocked()
		}
		return nil, pulseerr.EngineError("failed to open database file", err)
	}

	e := &Engine{db: db, path: path}

	if isNew {
		if err := e.initSchema(opts.Dimension); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("created database", "path", path, "dimension", opts.Dimension)
	} else {
		if err := e.validateSchema(opts.Dimension); err != nil {
			db.Close()
			return nil, err
		}
		if err := e.touchLastOpened(); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("opened database", "path", path)
	}

	return e, nil
}

func (e *Engine) initSchema(dimension int) error {
	start := time.Now()
	defer func() { log.LogTransaction("write", time.Since(start).Seconds(), "op", "init_schema") }()
	return e.db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return pulseerr.EngineError("failed to create bucket "+string(name), err)
			}
		}
		meta := domain.NewDatabaseMetadata(dimension)
		data, err := encodeMetadata(meta)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMetadata).Put(metadataKey, data)
	})
}

// validateSchema checks an existing database's persisted metadata
// against the running code's schema version and, when wantDimension is
// non-zero, against the caller's configured embedding dimension.
func (e *Engine) validateSchema(wantDimension int) error {
	return e.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketMetadata) == nil {
			return pulseerr.Corrupted("Cannot open metadata table")
		}
		for _, name := range allBuckets {
			if tx.Bucket(name) == nil {
				return pulseerr.TableNotFound(string(name))
			}
		}
		data := tx.Bucket(bucketMetadata).Get(metadataKey)
		if data == nil {
			return pulseerr.Corrupted("Missing database metadata")
		}
		meta, err := decodeMetadata(data)
		if err != nil {
			return pulseerr.Corrupted("Invalid metadata format")
		}
		if meta.SchemaVersion != domain.SchemaVersion {
			return pulseerr.SchemaVersionMismatch(domain.SchemaVersion, meta.SchemaVersion)
		}
		if wantDimension != 0 && meta.EmbeddingDimension != wantDimension {
			return pulseerr.DimensionMismatch(meta.EmbeddingDimension, wantDimension)
		}
		return nil
	})
}

func (e *Engine) touchLastOpened() error {
	start := time.Now()
	defer func() { log.LogTransaction("write", time.Since(start).Seconds(), "op", "touch_last_opened") }()
	return e.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMetadata)
		data := b.Get(metadataKey)
		meta, err := decodeMetadata(data)
		if err != nil {
			return pulseerr.Corrupted("metadata record undecodable: " + err.Error())
		}
		meta.LastOpenedAt = ids.Now()
		encoded, err := encodeMetadata(meta)
		if err != nil {
			return err
		}
		return b.Put(metadataKey, encoded)
	})
}

// Metadata returns the database's singleton metadata record.
func (e *Engine) Metadata() (domain.DatabaseMetadata, error) {
	var meta domain.DatabaseMetadata
	err := e.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMetadata).Get(metadataKey)
		if data == nil {
			return pulseerr.Corrupted("metadata record missing")
		}
		var derr error
		meta, derr = decodeMetadata(data)
		return derr
	})
	return meta, err
}

// Close releases the file lock and flushes pending writes.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Path returns the file path the engine was opened against.
func (e *Engine) Path() string { return e.path }

// --- Multimap helpers shared by every secondary index ---

// addMultimapEntry ensures the nested bucket for outerKey exists under
// top, then sets innerKey to an empty value inside it.
func addMultimapEntry(tx *bolt.Tx, top []byte, outerKey, innerKey []byte) error {
	b := tx.Bucket(top)
	nested, err := b.CreateBucketIfNotExists(outerKey)
	if err != nil {
		return pulseerr.EngineError("failed to create multimap bucket", err)
	}
	return nested.Put(innerKey, []byte{})
}

// removeMultimapEntry deletes innerKey from outerKey's nested bucket, if
// both exist. It is a no-op when either is already absent.
func removeMultimapEntry(tx *bolt.Tx, top []byte, outerKey, innerKey []byte) error {
	b := tx.Bucket(top)
	nested := b.Bucket(outerKey)
	if nested == nil {
		return nil
	}
	return nested.Delete(innerKey)
}

// listMultimap returns every inner key stored under outerKey, in
// ascending byte order.
func listMultimap(tx *bolt.Tx, top []byte, outerKey []byte) [][]byte {
	b := tx.Bucket(top)
	nested := b.Bucket(outerKey)
	if nested == nil {
		return nil
	}
	var out [][]byte
	_ = nested.ForEach(func(k, _ []byte) error {
		cp := make([]byte, len(k))
		copy(cp, k)
		out = append(out, cp)
		return nil
	})
	return out
}

// countMultimap reports how many inner keys outerKey's nested bucket
// holds, without allocating a slice of copies.
func countMultimap(tx *bolt.Tx, top []byte, outerKey []byte) int {
	b := tx.Bucket(top)
	nested := b.Bucket(outerKey)
	if nested == nil {
		return 0
	}
	return nested.Stats().KeyN
}

// deleteMultimapOuter drops the entire nested bucket for outerKey, if
// present.
func deleteMultimapOuter(tx *bolt.Tx, top []byte, outerKey []byte) error {
	b := tx.Bucket(top)
	if b.Bucket(outerKey) == nil {
		return nil
	}
	return b.DeleteBucket(outerKey)
}
