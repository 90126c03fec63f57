// Package modelstore keeps snapshots of trained models.
//
// A snapshot is a model file (the model's own WriteTo output) plus a CBOR
// manifest describing it, stored under a per alphabet prefix:
//
//	v1/models/<alphabet-slug>/<uuid>.dlf
//	v1/models/<alphabet-slug>/<uuid>.cbor
//	v1/models/<alphabet-slug>/latest
//
// latest holds the text uuid of the most recent snapshot. Snapshots are
// written before latest is moved, so a reader never sees a latest naming a
// missing snapshot.
//
// Backends are a local directory (DirStore) or an Azure blob container
// (BlobStore).
package modelstore

import (
	"context"
	"errors"
	"time"

	"github.com/dasher-project/DasherCore-sub000/lm"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("modelstore: not found")
	ErrNoAlphabet    = errors.New("modelstore: an alphabet name is required")
	ErrBadManifest   = errors.New("modelstore: manifest does not describe the snapshot")
	ErrBadLatest     = errors.New("modelstore: latest does not hold a snapshot id")
	ErrUnknownObject = errors.New("modelstore: unknown object type")
)

// Model is a persistable model that describes itself with a header.
type Model interface {
	lm.Persistable
	Header() lm.Header
}

// Backend stores whole objects by path.
type Backend interface {
	Put(ctx context.Context, path string, data []byte) error
	// Get returns ErrNotFound, possibly wrapped, for a missing path.
	Get(ctx context.Context, path string) ([]byte, error)
}

// Manifest describes one snapshot.
type Manifest struct {
	ID           uuid.UUID  `cbor:"id"`
	LMID         lm.ModelID `cbor:"lmid"`
	LMVersion    uint16     `cbor:"lmversion"`
	Alphabet     string     `cbor:"alphabet"`
	AlphabetSize int        `cbor:"alphabetsize"`
	Created      time.Time  `cbor:"created"`
	// Symbols is the number of symbols learnt into the model.
	Symbols int64    `cbor:"symbols"`
	Sources []string `cbor:"sources,omitempty"`
	// Size is the model file's length in bytes.
	Size int64 `cbor:"size"`
	// ArenaNodes is the CTW arena size the model was saved with, zero for
	// models without one.
	ArenaNodes uint64 `cbor:"arenanodes,omitempty"`
}
