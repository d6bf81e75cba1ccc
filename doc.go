// Package vecscan is an embedded, exact vector-similarity index.
//
// Records are keyed by a caller-supplied ID and carry either a dense float32
// embedding, ranked by cosine similarity, or a binary-quantized packed
// bit-vector, ranked by Hamming distance. Every query is a full scan over
// one consistent read transaction followed by a bounded top-k selection, so
// results are exact.
//
// # Quick Start
//
//	b := memory.New()
//	s, err := vecscan.New(b, vecscan.Config{Name: "docs"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	_ = s.InsertManual(ctx, vecscan.Record{ID: "1", Vector: []float32{1, 0, 0}})
//	_ = s.InsertManual(ctx, vecscan.Record{ID: "2", Vector: []float32{0, 1, 0}})
//
//	hits, err := s.QueryManual(ctx, []float32{1, 0, 0}, 10)
//
// # Binary Mode
//
// InsertBinary binarizes the vector at its median and stores the packed
// bits. QueryByVector with distance.MetricHamming quantizes the query the
// same way and ranks by ascending distance. A loaded acceleration module
// (see package accel) computes the same distances faster:
//
//	k, _ := accel.Load(accel.BuiltinName)
//	s, _ := vecscan.New(b, cfg, vecscan.WithAccelerator(k))
//
// # Embeddings
//
// Records and queries given as text are embedded by an embedding.Provider.
// Wrap the provider factory in embedding.NewLazy so that the model is
// initialised once, on first use:
//
//	lazy := embedding.NewLazy(func(ctx context.Context) (embedding.Provider, error) {
//	    return embedding.NewOllama(embedding.DefaultOllamaConfig())
//	})
//	s, _ := vecscan.New(b, cfg, vecscan.WithEmbedder(lazy))
//
// # Backends
//
// Storage is delegated to a backend.Backend: backend/bolt (bbolt),
// backend/sqlite (pure-Go SQLite) or backend/memory. Multi-record writes run
// in one backend transaction and roll back as a whole.
//
// # Errors
//
// Every operation returns an *OpError naming the operation and record ID.
// Match the cause with errors.Is:
//
//	if errors.Is(err, vecscan.ErrDuplicateIdentifier) { ... }
package vecscan
