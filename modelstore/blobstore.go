package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	azStorageBlob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
)

// blobClient is the part of azblob.Storer the store needs.
type blobClient interface {
	Put(
		ctx context.Context,
		identity string,
		source io.ReadSeekCloser,
		opts ...azblob.Option,
	) (*azblob.WriteResponse, error)
	Reader(
		ctx context.Context,
		identity string,
		opts ...azblob.Option,
	) (*azblob.ReaderResponse, error)
}

// BlobStore keeps objects as blobs in one container. Every blob written is
// tagged with Tags.
type BlobStore struct {
	Log   logger.Logger
	Tags  map[string]string
	blobs blobClient
}

var _ Backend = (*BlobStore)(nil)

func NewBlobStore(log logger.Logger, blobs blobClient, tags map[string]string) *BlobStore {
	return &BlobStore{Log: log, Tags: tags, blobs: blobs}
}

func (b *BlobStore) Put(ctx context.Context, path string, data []byte) error {
	var opts []azblob.Option
	if len(b.Tags) > 0 {
		opts = append(opts, azblob.WithTags(b.Tags))
	}
	_, err := b.blobs.Put(ctx, path, azblob.NewBytesReaderCloser(data), opts...)
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	b.Log.Debugf("put %s: %d bytes", path, len(data))
	return nil
}

// Get reads a whole blob. The reader is always closed on return. Only the
// service's BlobNotFound is reported as ErrNotFound, other failures are
// returned as they are.
func (b *BlobStore) Get(ctx context.Context, path string) ([]byte, error) {
	rr, err := b.blobs.Reader(ctx, path)
	if err != nil {
		if IsBlobNotFound(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rr.Reader.Close()
	data, err := io.ReadAll(rr.Reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// IsBlobNotFound reports whether err carries the storage service's
// BlobNotFound error code.
func IsBlobNotFound(err error) bool {
	var serr *azStorageBlob.StorageError
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ErrorCode == azStorageBlob.StorageErrorCodeBlobNotFound
}
