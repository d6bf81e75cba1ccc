// Package blobstore provides storage for immutable blobs, used for backend
// snapshots.
//
// Store implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic rename on close
//   - MemoryStore: in-process, for tests
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3 with multipart uploads
//
// # Custom Implementations
//
//	type Store interface {
//	    Create(ctx, name) (WritableBlob, error) // Streaming write
//	    Put(ctx, name, data) error              // Atomic write
//	    Open(ctx, name) (io.ReadCloser, error)
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
