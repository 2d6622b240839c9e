// Package pulseerr defines PulseDB's error taxonomy. Every public
// operation returns errors built with this package rather than ad-hoc
// fmt.Errorf values, so callers can branch on Kind or use errors.Is/As
// the way the examples in this codebase do (see the sentinel-plus-typed-
// struct pattern).
package pulseerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of the six top-level categories
// from the design.
type Kind int

const (
	KindStorage Kind = iota
	KindValidation
	KindNotFound
	KindIO
	KindEmbedding
	KindVector
)

func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindIO:
		return "io"
	case KindEmbedding:
		return "embedding"
	case KindVector:
		return "vector"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by every public PulseDB
// operation. Op names the operation that failed and is optional context
// for logging; Kind drives programmatic handling.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("pulsedb: %s: %s: %v", e.Op, e.Msg, e.Err)
		}
		return fmt.Sprintf("pulsedb: %s: %s", e.Op, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("pulsedb: %s: %v", e.Msg, e.Err)
	}
	return "pulsedb: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func new_(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// --- Storage kind constructors ---

// Corrupted reports damaged on-disk state detected while opening the
// database: a missing metadata table, a missing metadata key, or bytes
// that fail to decode.
func Corrupted(msg string) *Error {
	return new_(KindStorage, "open", msg, nil)
}

// DatabaseNotFound reports a storage path that does not exist.
func DatabaseNotFound(path string) *Error {
	return new_(KindStorage, "open", "database not found: "+path, nil)
}

// DatabaseLocked reports that another writer already holds the storage
// file's exclusive lock.
func DatabaseLocked() *Error {
	return new_(KindStorage, "open", "database is locked by another writer", nil)
}

// Transaction wraps a failure committing or aborting a storage
// transaction.
func Transaction(msg string, err error) *Error {
	return new_(KindStorage, "transaction", msg, err)
}

// Serialization wraps a record encode/decode failure.
func Serialization(msg string, err error) *Error {
	return new_(KindStorage, "codec", msg, err)
}

// EngineError wraps an opaque failure surfaced by the underlying storage
// engine that doesn't fit a more specific storage kind.
func EngineError(msg string, err error) *Error {
	return new_(KindStorage, "engine", msg, err)
}

// SchemaVersionMismatch reports that an opened database's persisted
// schema version does not match the running code's constant.
func SchemaVersionMismatch(expected, found uint32) *Error {
	return new_(KindStorage, "open",
		fmt.Sprintf("schema version mismatch: expected %d, found %d", expected, found), nil)
}

// TableNotFound reports a registered table missing from an opened
// database file.
func TableNotFound(name string) *Error {
	return new_(KindStorage, "open", "table not found: "+name, nil)
}

// --- Validation kind constructors ---

// DimensionMismatch reports an embedding vector whose length disagrees
// with the collective's (or query's) contracted dimension.
func DimensionMismatch(expected, got int) *Error {
	return new_(KindValidation, "", fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil)
}

// InvalidField reports a field whose value fails validation for the
// given reason.
func InvalidField(field, reason string) *Error {
	return new_(KindValidation, "", fmt.Sprintf("invalid field %q: %s", field, reason), nil)
}

// ContentTooLarge reports a content/metadata payload that exceeds its
// configured maximum size.
func ContentTooLarge(size, max int) *Error {
	return new_(KindValidation, "", fmt.Sprintf("content too large: %d bytes exceeds maximum of %d", size, max), nil)
}

// RequiredField reports a field that must be present but was empty.
func RequiredField(field string) *Error {
	return new_(KindValidation, "", fmt.Sprintf("required field %q is missing", field), nil)
}

// TooManyItems reports a collection field (tags, paths, sources) that
// exceeds its configured maximum element count.
func TooManyItems(field string, count, max int) *Error {
	return new_(KindValidation, "", fmt.Sprintf("too many items in %q: %d exceeds maximum of %d", field, count, max), nil)
}

// --- NotFound kind sentinels ---
//
// Each entity has a distinct sentinel so callers can discriminate with
// errors.Is without inspecting message text.
var (
	ErrCollectiveNotFound = errors.New("collective not found")
	ErrExperienceNotFound = errors.New("experience not found")
	ErrRelationNotFound   = errors.New("relation not found")
	ErrInsightNotFound    = errors.New("insight not found")
	ErrActivityNotFound   = errors.New("activity not found")
)

// NotFound wraps one of the Err*NotFound sentinels into the uniform
// *Error shape while staying errors.Is-compatible with the sentinel.
func NotFound(sentinel error, op string) *Error {
	return new_(KindNotFound, op, sentinel.Error(), sentinel)
}

// --- IO, Embedding, Vector kinds ---

// IO wraps a failure from the filesystem (sidecar read/write, model
// cache download, directory creation).
func IO(msg string, err error) *Error {
	return new_(KindIO, "", msg, err)
}

// Embedding wraps a failure from the embedding service: caller misuse
// for the External provider, or tokenization/inference/extraction
// failure for the Local provider.
func Embedding(msg string) *Error {
	return new_(KindEmbedding, "", msg, nil)
}

// Vector builds a KindVector error for a failure in the vector index
// layer. The index in internal/vector does not use it: it reports a
// dimension mismatch on insert/search with DimensionMismatch
// (KindValidation).
func Vector(msg string) *Error {
	return new_(KindVector, "", msg, nil)
}

// Is reports whether err (or any error it wraps) is a pulseerr.Error of
// the given Kind.
func Is(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
