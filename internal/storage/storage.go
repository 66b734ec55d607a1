// Package storage contains the blob store abstraction and its S3-compatible implementations.
package storage

import (
	"context"
	"io"
	"mime"
	"time"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// PresignOptions tune the presigned download URL.
// A non-empty Filename makes the URL answer with "Content-Disposition: attachment".
type PresignOptions struct {
	Filename string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	Location     string
	LastModified time.Time
}

// Storage is the blob store used by the gateway.
// Implementations are safe for concurrent use by multiple goroutines.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration, opt PresignOptions) (string, error)
	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// contentDisposition builds an attachment header value for filename.
// Non-ASCII names are emitted in the RFC 2231 filename* form.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
