package domain

import "github.com/draco28/pulsedb/pkg/ids"

// DatabaseMetadata is the singleton record stored under the metadata
// table's "db_metadata" key. It is written once at creation and its
// SchemaVersion / EmbeddingDimension fields are immutable for the life
// of the database file.
type DatabaseMetadata struct {
	SchemaVersion     uint32
	EmbeddingDimension int
	CreatedAt         ids.Timestamp
	LastOpenedAt      ids.Timestamp
}

// NewDatabaseMetadata builds the metadata record written when a database
// is first created.
func NewDatabaseMetadata(dimension int) DatabaseMetadata {
	now := ids.Now()
	return DatabaseMetadata{
		SchemaVersion:      SchemaVersion,
		EmbeddingDimension: dimension,
		CreatedAt:          now,
		LastOpenedAt:       now,
	}
}
