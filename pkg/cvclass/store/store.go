package store

import (
	"context"
	"time"
)

// Store persists versioned artifact sets. A set is written once, together
// with all of its blobs, and is read-only afterwards.
type Store interface {
	Close() error

	// Sets
	PutSet(ctx context.Context, rec SetRecord, blobs []Blob) error
	GetSet(ctx context.Context, id string) (SetRecord, error)
	GetBlobs(ctx context.Context, id string) ([]Blob, error)
	LatestID(ctx context.Context) (string, error)
	ListSets(ctx context.Context, limit int) ([]SetRecord, error)
	DeleteSet(ctx context.Context, id string) error

	// Evaluation reports
	PutReport(ctx context.Context, id string, body []byte) error
	GetReport(ctx context.Context, id string) ([]byte, error)
}

// SetRecord is the stored header of an artifact set. IDs sort by creation
// time, so the greatest ID is the newest set.
type SetRecord struct {
	ID        string
	CreatedAt time.Time
	Manifest  []byte // JSON
}

// Blob is one serialized artifact of a set.
type Blob struct {
	Kind    string // vectorizer, reducer, selector, model
	Codec   string // e.g. "json+zstd"
	RawSize int    // size before compression
	Data    []byte
}
