package vecscan

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hupe1980/vecscan/accel"
	"github.com/hupe1980/vecscan/backend"
	"github.com/hupe1980/vecscan/codec"
	"github.com/hupe1980/vecscan/embedding"
	"github.com/hupe1980/vecscan/quantization"
)

// Store is an exact vector-similarity index over a transactional key-value
// backend. Records are keyed by a caller-supplied ID and carry either a
// dense vector (cosine queries) or a packed bit-vector (Hamming queries).
//
// A Store is safe for concurrent use. Reads run in one read-only transaction
// and never observe a partially committed write; multi-record writes run in
// one read-write transaction and roll back as a whole.
type Store struct {
	cfg     Config
	backend backend.Backend

	// primary resolves the configured vector field only; fallback adds the
	// default field. Both are fixed at construction.
	primary  accessor
	fallback accessor

	codec       codec.Codec
	embedder    embedding.Provider
	kernel      *accel.Kernel
	parallelism int
	logger      *Logger
	metrics     MetricsCollector

	closed atomic.Bool
}

// New returns a store persisting to b. The store owns b and closes it on Close.
func New(b backend.Backend, cfg Config, optFns ...Option) (*Store, error) {
	if b == nil {
		return nil, errors.New("vecscan: backend is required")
	}
	cfg = cfg.withDefaults()
	o := applyOptions(optFns)

	return &Store{
		cfg:         cfg,
		backend:     b,
		primary:     newAccessor(cfg.VectorField),
		fallback:    newAccessor(cfg.VectorField, DefaultVectorField),
		codec:       o.codec,
		embedder:    o.embedder,
		kernel:      o.kernel,
		parallelism: max(o.parallelism, 1),
		logger:      o.logger.WithStore(cfg.Name),
		metrics:     o.metricsCollector,
	}, nil
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// Codec returns the record codec.
func (s *Store) Codec() codec.Codec {
	return s.codec
}

func (s *Store) view(ctx context.Context, fn func(backend.Tx) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return backendFailure(s.backend.View(ctx, s.cfg.Name, fn))
}

func (s *Store) update(ctx context.Context, fn func(backend.Tx) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return backendFailure(s.backend.Update(ctx, s.cfg.Name, fn))
}

func (s *Store) encode(d document) ([]byte, error) {
	data, err := s.codec.Marshal(d)
	if err != nil {
		return nil, &encodeError{fmt.Errorf("encode %q: %w", d.ID, err)}
	}
	return data, nil
}

func (s *Store) decode(data []byte) (document, error) {
	var d document
	if err := s.codec.Unmarshal(data, &d); err != nil {
		return document{}, fmt.Errorf("decode with %s: %w", s.codec.Name(), err)
	}
	return d, nil
}

func (s *Store) get(tx backend.Tx, id string) (document, error) {
	data, err := tx.Get(id)
	if err != nil {
		return document{}, err
	}
	return s.decode(data)
}

// resolveVector returns r.Vector, or the embedding of r.Text when the vector
// is empty. A record with neither is stored without a vector.
func (s *Store) resolveVector(ctx context.Context, r Record) ([]float32, error) {
	if len(r.Vector) > 0 || r.Text == "" {
		return r.Vector, nil
	}
	if s.embedder == nil {
		return nil, ErrNoEmbedder
	}
	return s.embedder.Embed(ctx, r.Text)
}

// newDocument builds the persisted form of r with vec as its vector.
func (s *Store) newDocument(r Record, vec []float32, binary bool) document {
	d := document{
		ID:         r.ID,
		Text:       r.Text,
		Attributes: r.Attributes,
	}
	if len(vec) > 0 {
		v := denseVector(vec)
		if binary {
			v = packedVector(quantization.Quantize(vec))
		}
		d.Vectors = map[string]vector{s.primary.field(): v}
	}
	return d
}

func (s *Store) prepare(ctx context.Context, r Record, embed, binary bool) (document, error) {
	if r.ID == "" {
		return document{}, ErrMissingIdentifier
	}
	vec := r.Vector
	if embed {
		var err error
		if vec, err = s.resolveVector(ctx, r); err != nil {
			return document{}, err
		}
	}
	if err := checkFinite(vec); err != nil {
		return document{}, err
	}
	return s.newDocument(r, vec, binary), nil
}

func (s *Store) insertOne(ctx context.Context, op string, r Record, embed, binary bool) (err error) {
	start := time.Now()
	dim := 0
	defer func() {
		s.metrics.RecordInsert(time.Since(start), err)
		s.logger.LogInsert(ctx, r.ID, dim, err)
	}()

	d, err := s.prepare(ctx, r, embed, binary)
	if err != nil {
		return opError(op, r.ID, err)
	}
	if v, ok := s.primary.resolve(d); ok {
		dim = len(v.Dense) + v.Bits
	}
	data, err := s.encode(d)
	if err != nil {
		return opError(op, r.ID, err)
	}

	err = s.update(ctx, func(tx backend.Tx) error {
		return tx.Add(d.ID, data)
	})
	return opError(op, r.ID, err)
}

// Insert stores r as a dense record. If r.Vector is empty and r.Text is set,
// the vector is obtained from the configured embedder.
//
// Fails with ErrMissingIdentifier when r.ID is empty and with
// ErrDuplicateIdentifier when the ID is already stored.
func (s *Store) Insert(ctx context.Context, r Record) error {
	return s.insertOne(ctx, "insert", r, true, false)
}

// InsertBinary is Insert followed by median binarization and packing.
func (s *Store) InsertBinary(ctx context.Context, r Record) error {
	return s.insertOne(ctx, "insertBinary", r, true, true)
}

// InsertManual stores r.Vector verbatim without consulting the embedder.
func (s *Store) InsertManual(ctx context.Context, r Record) error {
	return s.insertOne(ctx, "insertManual", r, false, false)
}

func (s *Store) insertMany(ctx context.Context, op string, records []Record, embed, binary bool) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordBatch(op, len(records), time.Since(start), err)
		s.logger.LogBatch(ctx, op, len(records), err)
	}()

	// Embeddings are resolved before the transaction opens.
	payloads := make([][]byte, len(records))
	for i, r := range records {
		d, err := s.prepare(ctx, r, embed, binary)
		if err != nil {
			return opError(op, r.ID, err)
		}
		if payloads[i], err = s.encode(d); err != nil {
			return opError(op, r.ID, err)
		}
	}

	var failed string
	err = s.update(ctx, func(tx backend.Tx) error {
		for i, r := range records {
			if err := tx.Add(r.ID, payloads[i]); err != nil {
				failed = r.ID
				return err
			}
		}
		return nil
	})
	return opError(op, failed, err)
}

// InsertBatch inserts records in one transaction. Any invalid record or
// backend error aborts the whole batch and nothing is persisted.
func (s *Store) InsertBatch(ctx context.Context, records []Record) error {
	return s.insertMany(ctx, "insertBatch", records, true, false)
}

// InsertBinaryBatch is InsertBatch with binary quantization.
func (s *Store) InsertBinaryBatch(ctx context.Context, records []Record) error {
	return s.insertMany(ctx, "insertBinaryBatch", records, true, true)
}

// InsertManualBatch is InsertBatch without the embedding step.
func (s *Store) InsertManualBatch(ctx context.Context, records []Record) error {
	return s.insertMany(ctx, "insertManualBatch", records, false, false)
}

// Update merges p into the record stored under id.
//
// Attributes in p overwrite stored attributes key by key. The stored vector
// is replaced only when p.Vector is non-empty. The ID is immutable; p.ID is
// ignored. Fails with ErrNotFound when id is not stored.
func (s *Store) Update(ctx context.Context, id string, p Patch) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordUpdate(time.Since(start), err)
		s.logger.LogUpdate(ctx, id, err)
	}()

	if id == "" {
		return opError("update", id, ErrMissingIdentifier)
	}
	if err := checkFinite(p.Vector); err != nil {
		return opError("update", id, err)
	}

	err = s.update(ctx, func(tx backend.Tx) error {
		d, err := s.get(tx, id)
		if err != nil {
			return err
		}
		data, err := s.encode(mergePatch(d, p, s.primary))
		if err != nil {
			return err
		}
		return tx.Put(id, data)
	})
	return opError("update", id, err)
}

// UpdateBatch applies every patch in one transaction with the Update merge
// rule.
//
// Missing records are a hard failure, as in Update: if any patch has no ID,
// names a record that is not stored or carries a non-finite vector, nothing
// is applied. The returned outcomes always have one entry per patch; the
// failing items carry ErrMissingIdentifier, ErrNotFound or ErrInvalidVector,
// the others ErrAborted. The returned error joins the item errors.
func (s *Store) UpdateBatch(ctx context.Context, patches []Patch) (outcomes []UpdateOutcome, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordBatch("updateBatch", len(patches), time.Since(start), err)
		s.logger.LogBatch(ctx, "updateBatch", len(patches), err)
	}()

	outcomes = make([]UpdateOutcome, len(patches))
	for i, p := range patches {
		outcomes[i].ID = p.ID
	}

	var itemErrs []error
	err = s.update(ctx, func(tx backend.Tx) error {
		for i, p := range patches {
			if p.ID == "" {
				outcomes[i].Err = ErrMissingIdentifier
				itemErrs = append(itemErrs, fmt.Errorf("patch %d: %w", i, ErrMissingIdentifier))
				continue
			}
			if err := checkFinite(p.Vector); err != nil {
				outcomes[i].Err = ErrInvalidVector
				itemErrs = append(itemErrs, fmt.Errorf("%q: %w", p.ID, err))
				continue
			}
			d, err := s.get(tx, p.ID)
			if errors.Is(err, backend.ErrKeyNotFound) {
				outcomes[i].Err = ErrNotFound
				itemErrs = append(itemErrs, fmt.Errorf("%q: %w", p.ID, ErrNotFound))
				continue
			}
			if err != nil {
				return err
			}
			if len(itemErrs) > 0 {
				continue // transaction is already doomed
			}
			data, err := s.encode(mergePatch(d, p, s.primary))
			if err != nil {
				return err
			}
			if err := tx.Put(p.ID, data); err != nil {
				return err
			}
		}
		if len(itemErrs) > 0 {
			return errors.Join(itemErrs...)
		}
		return nil
	})

	if err != nil {
		for i := range outcomes {
			if outcomes[i].Err == nil {
				outcomes[i].Err = ErrAborted
			}
		}
	}
	return outcomes, opError("updateBatch", "", err)
}

// Delete removes the record stored under id. Deleting an absent ID is a no-op.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordDelete(time.Since(start), err)
		s.logger.LogDelete(ctx, id, err)
	}()

	if id == "" {
		return opError("delete", id, ErrMissingIdentifier)
	}
	err = s.update(ctx, func(tx backend.Tx) error {
		return tx.Delete(id)
	})
	return opError("delete", id, err)
}

// DeleteBatch removes ids in one transaction. Absent IDs are skipped.
func (s *Store) DeleteBatch(ctx context.Context, ids []string) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordBatch("deleteBatch", len(ids), time.Since(start), err)
		s.logger.LogBatch(ctx, "deleteBatch", len(ids), err)
	}()

	for _, id := range ids {
		if id == "" {
			return opError("deleteBatch", id, ErrMissingIdentifier)
		}
	}
	err = s.update(ctx, func(tx backend.Tx) error {
		for _, id := range ids {
			if err := tx.Delete(id); err != nil {
				return err
			}
		}
		return nil
	})
	return opError("deleteBatch", "", err)
}

// HasEmbedding reports whether a non-empty vector is stored for id.
// A missing record reports false.
func (s *Store) HasEmbedding(ctx context.Context, id string) (bool, error) {
	has, err := s.hasEmbeddings(ctx, []string{id})
	if err != nil {
		return false, opError("hasEmbedding", id, err)
	}
	return has[0], nil
}

// HasEmbeddings is HasEmbedding for several IDs in one read transaction.
func (s *Store) HasEmbeddings(ctx context.Context, ids []string) ([]bool, error) {
	out, err := s.hasEmbeddings(ctx, ids)
	if err != nil {
		return nil, opError("hasEmbeddings", "", err)
	}
	return out, nil
}

func (s *Store) hasEmbeddings(ctx context.Context, ids []string) ([]bool, error) {
	out := make([]bool, len(ids))
	err := s.view(ctx, func(tx backend.Tx) error {
		for i, id := range ids {
			d, err := s.get(tx, id)
			if errors.Is(err, backend.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			_, out[i] = s.primary.resolve(d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetAllKeys returns every stored ID in backend order (byte order for all
// shipped backends).
func (s *Store) GetAllKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.view(ctx, func(tx backend.Tx) error {
		var err error
		keys, err = tx.Keys()
		return err
	})
	if err != nil {
		return nil, opError("getAllKeys", "", err)
	}
	return keys, nil
}

// Get returns the record stored under id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (StoredRecord, error) {
	var out StoredRecord
	err := s.view(ctx, func(tx backend.Tx) error {
		d, err := s.get(tx, id)
		if err != nil {
			return err
		}
		out = d.toStored(s.primary)
		return nil
	})
	if err != nil {
		return StoredRecord{}, opError("get", id, err)
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.view(ctx, func(tx backend.Tx) error {
		return tx.ForEach(func(string, []byte) error {
			n++
			return nil
		})
	})
	if err != nil {
		return 0, opError("count", "", err)
	}
	return n, nil
}
