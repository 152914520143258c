// Package images keeps the photos behind trash items and hands out references to them.
package images

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"cloud.google.com/go/storage"

	"go-beachwise/llm"
	"go-beachwise/logger"

	"go.uber.org/zap"
)

// Store saves one photo and returns a reference to it.
type Store interface {
	Put(ctx context.Context, uid string, photo *llm.DataURI) (string, error)
}

func digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashStore stores nothing, the reference is the content hash.
type HashStore struct{}

func (HashStore) Put(_ context.Context, _ string, photo *llm.DataURI) (string, error) {
	return "sha256:" + digest(photo.Data), nil
}

// BucketStore uploads photos to a Cloud Storage bucket under trash/{uid}/.
// Objects are content addressed, so uploading the same photo twice is harmless.
type BucketStore struct {
	bucket *storage.BucketHandle
	name   string
}

func NewBucketStore(bucket *storage.BucketHandle, name string) *BucketStore {
	return &BucketStore{bucket: bucket, name: name}
}

func (b *BucketStore) Put(ctx context.Context, uid string, photo *llm.DataURI) (string, error) {
	object := fmt.Sprintf("trash/%s/%s%s", uid, digest(photo.Data), photo.Extension)

	w := b.bucket.Object(object).NewWriter(ctx)
	w.ContentType = photo.MIMEType
	if _, err := w.Write(photo.Data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", object, err)
	}

	return fmt.Sprintf("gs://%s/%s", b.name, object), nil
}

type fallbackStore struct {
	primary  Store
	fallback Store
}

// WithFallback uses fallback whenever primary fails. A lost upload must not lose the item.
func WithFallback(primary, fallback Store) Store {
	return &fallbackStore{primary: primary, fallback: fallback}
}

func (f *fallbackStore) Put(ctx context.Context, uid string, photo *llm.DataURI) (string, error) {
	ref, err := f.primary.Put(ctx, uid, photo)
	if err == nil {
		return ref, nil
	}
	logger.Log.Warn("Image upload failed, using fallback reference", zap.String("uid", uid), zap.Error(err))
	return f.fallback.Put(ctx, uid, photo)
}
