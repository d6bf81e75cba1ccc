// Package backup copies backend snapshots to a blob store and restores them.
//
// Each backup is two blobs under a prefix: "<id>.snapshot" holding the
// (optionally compressed) snapshot bytes and "<id>.json" holding its
// Manifest. IDs are random UUIDs.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hupe1980/vecscan/backend"
	"github.com/hupe1980/vecscan/blobstore"
	"github.com/hupe1980/vecscan/codec"
	"github.com/hupe1980/vecscan/internal/hash"
)

var (
	// ErrNoBackups is returned by Latest when the prefix holds no manifest.
	ErrNoBackups = errors.New("no backups found")
	// ErrChecksumMismatch is returned by Restore when the restored bytes do
	// not match the manifest checksum.
	ErrChecksumMismatch = errors.New("backup checksum mismatch")
)

const (
	snapshotExt = ".snapshot"
	manifestExt = ".json"
)

// Manifest describes one backup.
type Manifest struct {
	ID          string    `json:"id"`
	Blob        string    `json:"blob"`
	Compression string    `json:"compression"`
	Bytes       int64     `json:"bytes"`
	Checksum    uint32    `json:"crc32c"` // CRC32C of the uncompressed snapshot
	CreatedAt   time.Time `json:"createdAt"`
}

type options struct {
	prefix      string
	compression codec.Compression
	now         func() time.Time
}

// Option configures Run.
type Option func(*options)

// WithPrefix places backup blobs under prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithCompression compresses the snapshot stream. Defaults to zstd.
func WithCompression(ct codec.Compression) Option {
	return func(o *options) { o.compression = ct }
}

func applyOptions(optFns []Option) options {
	o := options{compression: codec.CompressionZSTD, now: time.Now}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Run streams a snapshot of src into dst and writes its manifest.
// The manifest is written last, so a backup without one is incomplete.
func Run(ctx context.Context, src backend.Snapshotter, dst blobstore.Store, optFns ...Option) (Manifest, error) {
	o := applyOptions(optFns)

	id := uuid.NewString()
	m := Manifest{
		ID:          id,
		Blob:        path.Join(o.prefix, id+snapshotExt),
		Compression: o.compression.String(),
		CreatedAt:   o.now().UTC(),
	}

	w, err := dst.Create(ctx, m.Blob)
	if err != nil {
		return Manifest{}, fmt.Errorf("create %s: %w", m.Blob, err)
	}
	cw, err := codec.NewWriter(w, o.compression)
	if err != nil {
		_ = w.Abort()
		return Manifest{}, err
	}

	h := hash.NewCRC32C()
	if m.Bytes, err = src.Snapshot(ctx, io.MultiWriter(cw, h)); err != nil {
		_ = w.Abort()
		return Manifest{}, fmt.Errorf("snapshot: %w", err)
	}
	if err := cw.Close(); err != nil {
		_ = w.Abort()
		return Manifest{}, fmt.Errorf("flush %s: %w", o.compression, err)
	}
	if err := w.Close(); err != nil {
		return Manifest{}, fmt.Errorf("upload %s: %w", m.Blob, err)
	}
	m.Checksum = h.Sum32()

	data, err := gojson.Marshal(m)
	if err != nil {
		return Manifest{}, err
	}
	if err := dst.Put(ctx, path.Join(o.prefix, id+manifestExt), data); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

// List returns the manifests under prefix, oldest first.
func List(ctx context.Context, dst blobstore.Store, prefix string) ([]Manifest, error) {
	names, err := dst.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var out []Manifest
	for _, name := range names {
		if !strings.HasSuffix(name, manifestExt) {
			continue
		}
		m, err := readManifest(ctx, dst, name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Latest returns the newest manifest under prefix.
func Latest(ctx context.Context, dst blobstore.Store, prefix string) (Manifest, error) {
	all, err := List(ctx, dst, prefix)
	if err != nil {
		return Manifest{}, err
	}
	if len(all) == 0 {
		return Manifest{}, ErrNoBackups
	}
	return all[len(all)-1], nil
}

// Get reads the manifest of backup id.
func Get(ctx context.Context, dst blobstore.Store, prefix, id string) (Manifest, error) {
	return readManifest(ctx, dst, path.Join(prefix, id+manifestExt))
}

func readManifest(ctx context.Context, dst blobstore.Store, name string) (Manifest, error) {
	r, err := dst.Open(ctx, name)
	if err != nil {
		return Manifest{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer r.Close()

	var m Manifest
	if err := gojson.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return m, nil
}

// Restore writes the decompressed snapshot of m to w and returns the number
// of bytes written. The size and checksum are verified after the copy; on a
// mismatch w already holds the corrupt bytes.
func Restore(ctx context.Context, dst blobstore.Store, m Manifest, w io.Writer) (int64, error) {
	ct, err := codec.ParseCompression(m.Compression)
	if err != nil {
		return 0, err
	}

	r, err := dst.Open(ctx, m.Blob)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", m.Blob, err)
	}
	defer r.Close()

	dr, err := codec.NewReader(r, ct)
	if err != nil {
		return 0, err
	}
	defer dr.Close()

	h := hash.NewCRC32C()
	n, err := io.Copy(io.MultiWriter(w, h), dr)
	if err != nil {
		return n, fmt.Errorf("restore %s: %w", m.ID, err)
	}
	if n != m.Bytes {
		return n, fmt.Errorf("restore %s: wrote %d bytes, manifest says %d", m.ID, n, m.Bytes)
	}
	if sum := h.Sum32(); sum != m.Checksum {
		return n, fmt.Errorf("%w: %s: got %08x, manifest says %08x", ErrChecksumMismatch, m.ID, sum, m.Checksum)
	}
	return n, nil
}

// Delete removes the snapshot and manifest of m.
func Delete(ctx context.Context, dst blobstore.Store, prefix string, m Manifest) error {
	if err := dst.Delete(ctx, m.Blob); err != nil {
		return err
	}
	return dst.Delete(ctx, path.Join(prefix, m.ID+manifestExt))
}
