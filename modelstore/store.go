package modelstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/dasher-project/DasherCore-sub000/lm"
	"github.com/google/uuid"
)

// Store saves and loads model snapshots through a Backend.
type Store struct {
	log     logger.Logger
	backend Backend
	codec   ManifestCodec
	now     func() time.Time
}

func New(log logger.Logger, backend Backend) (*Store, error) {
	codec, err := NewManifestCodec()
	if err != nil {
		return nil, err
	}
	return &Store{log: log, backend: backend, codec: codec, now: time.Now}, nil
}

// Save writes model as a new snapshot and makes it the alphabet's latest. The
// identity, model fields, size and creation time of m are filled in; the
// alphabet is taken from the model header when m names none.
func (s *Store) Save(ctx context.Context, model Model, m Manifest) (Manifest, error) {
	h := model.Header()
	if m.Alphabet == "" {
		m.Alphabet = h.AlphabetName
	}
	if Slug(m.Alphabet) == "" {
		return Manifest{}, ErrNoAlphabet
	}
	m.ID = uuid.New()
	m.LMID = h.LMID
	m.LMVersion = h.LMVersion
	m.AlphabetSize = h.AlphabetSize
	m.Created = s.now().UTC()

	var body bytes.Buffer
	n, err := model.WriteTo(&body)
	if err != nil {
		return Manifest{}, err
	}
	m.Size = n

	manifest, err := s.codec.Encode(m)
	if err != nil {
		return Manifest{}, err
	}

	modelPath, err := ObjectPath(m.Alphabet, m.ID, ObjectModel)
	if err != nil {
		return Manifest{}, err
	}
	manifestPath, _ := ObjectPath(m.Alphabet, m.ID, ObjectManifest)
	latestPath, _ := ObjectPath(m.Alphabet, m.ID, ObjectLatest)

	if err := s.backend.Put(ctx, modelPath, body.Bytes()); err != nil {
		return Manifest{}, err
	}
	if err := s.backend.Put(ctx, manifestPath, manifest); err != nil {
		return Manifest{}, err
	}
	if err := s.backend.Put(ctx, latestPath, []byte(m.ID.String()+"\n")); err != nil {
		return Manifest{}, err
	}
	s.log.Infof("saved %s model %s for %q: %d bytes", m.LMID, m.ID, m.Alphabet, m.Size)
	return m, nil
}

// Manifest reads the manifest of one snapshot.
func (s *Store) Manifest(ctx context.Context, alphabet string, id uuid.UUID) (Manifest, error) {
	path, err := ObjectPath(alphabet, id, ObjectManifest)
	if err != nil {
		return Manifest{}, err
	}
	data, err := s.backend.Get(ctx, path)
	if err != nil {
		return Manifest{}, err
	}
	m, err := s.codec.Decode(data)
	if err != nil {
		return Manifest{}, err
	}
	if m.ID != id {
		return Manifest{}, fmt.Errorf("%w: id %s in %s", ErrBadManifest, m.ID, path)
	}
	return m, nil
}

// Latest returns the id of the alphabet's most recent snapshot.
func (s *Store) Latest(ctx context.Context, alphabet string) (uuid.UUID, error) {
	path, err := ObjectPath(alphabet, uuid.Nil, ObjectLatest)
	if err != nil {
		return uuid.Nil, err
	}
	data, err := s.backend.Get(ctx, path)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrBadLatest, err)
	}
	return id, nil
}

// Load reads a snapshot into model. The manifest must name the model's kind;
// the model file itself is checked by the model's ReadFrom, which leaves the
// model untouched on failure.
func (s *Store) Load(ctx context.Context, alphabet string, id uuid.UUID, model Model) (Manifest, error) {
	m, err := s.Manifest(ctx, alphabet, id)
	if err != nil {
		return Manifest{}, err
	}
	if want := model.Header().LMID; m.LMID != want {
		return Manifest{}, fmt.Errorf("%w: snapshot holds %s, not %s", lm.ErrWrongModel, m.LMID, want)
	}

	path, _ := ObjectPath(alphabet, id, ObjectModel)
	data, err := s.backend.Get(ctx, path)
	if err != nil {
		return Manifest{}, err
	}
	if int64(len(data)) != m.Size {
		return Manifest{}, fmt.Errorf("%w: %s is %d bytes, not %d", ErrBadManifest, path, len(data), m.Size)
	}
	if _, err := model.ReadFrom(bytes.NewReader(data)); err != nil {
		s.log.Infof("rejected snapshot %s: %v", id, err)
		return Manifest{}, err
	}
	s.log.Infof("loaded %s model %s for %q", m.LMID, m.ID, alphabet)
	return m, nil
}

// LoadLatest loads the alphabet's most recent snapshot into model.
func (s *Store) LoadLatest(ctx context.Context, alphabet string, model Model) (Manifest, error) {
	id, err := s.Latest(ctx, alphabet)
	if err != nil {
		return Manifest{}, err
	}
	return s.Load(ctx, alphabet, id, model)
}
