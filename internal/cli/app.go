package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	gojson "github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"

	"github.com/hupe1980/vecscan"
	"github.com/hupe1980/vecscan/accel"
	"github.com/hupe1980/vecscan/backend"
	"github.com/hupe1980/vecscan/backend/bolt"
	"github.com/hupe1980/vecscan/backend/memory"
	"github.com/hupe1980/vecscan/backend/sqlite"
	"github.com/hupe1980/vecscan/blobstore"
	miniostore "github.com/hupe1980/vecscan/blobstore/minio"
	s3store "github.com/hupe1980/vecscan/blobstore/s3"
	"github.com/hupe1980/vecscan/codec"
	"github.com/hupe1980/vecscan/embedding"
	"github.com/hupe1980/vecscan/internal/config"
)

// app is an opened store plus the configuration it was built from.
type app struct {
	cfg     *config.Config
	logger  *vecscan.Logger
	backend backend.Backend
	store   *vecscan.Store
}

// loadConfig resolves the configuration and applies flag overrides.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := f.loader.LoadConfig(f.cfgFile)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// openApp loads the configuration and opens the store it describes.
func (f *rootFlags) openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, err
	}

	b, err := openBackend(cmd.Context(), cfg.Backend)
	if err != nil {
		return nil, err
	}

	c, _ := codec.ByName(cfg.Codec)
	opts := []vecscan.Option{
		vecscan.WithCodec(c),
		vecscan.WithParallelism(cfg.Parallelism),
		vecscan.WithLogger(logger),
	}
	if e := newEmbedder(cfg); e != nil {
		opts = append(opts, vecscan.WithEmbedder(e))
	}
	if cfg.Accel.Module != "" {
		k, err := accel.Load(cfg.Accel.Module)
		if err != nil {
			logger.Warn("acceleration disabled", "module", cfg.Accel.Module, "error", err)
		} else {
			opts = append(opts, vecscan.WithAccelerator(k))
		}
	}

	s, err := vecscan.New(b, cfg.Store, opts...)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, backend: b, store: s}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func newLogger(w io.Writer, cfg config.LogConfig) (*vecscan.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return vecscan.NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return vecscan.NewLogger(slog.NewTextHandler(w, opts)), nil
}

func openBackend(ctx context.Context, cfg config.BackendConfig) (backend.Backend, error) {
	switch cfg.Type {
	case "bolt":
		return bolt.Open(cfg.Path, nil)
	case "sqlite":
		return sqlite.Open(ctx, cfg.Path)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %q", cfg.Type)
	}
}

// newEmbedder returns nil when no embedder is configured. The Ollama client
// is built on first use so that commands not embedding text never contact
// the server.
func newEmbedder(cfg *config.Config) embedding.Provider {
	switch cfg.Embedder.Type {
	case "hashing":
		return embedding.NewHashing(cfg.Embedder.Dim)
	case "ollama":
		oc := embedding.DefaultOllamaConfig()
		oc.BaseURL = cfg.Embedder.BaseURL
		oc.Timeout = cfg.Embedder.Timeout
		oc.RequestsPerSecond = cfg.Embedder.RequestsPerSecond
		if cfg.Store.ModelID != "" {
			oc.Model = cfg.Store.ModelID
		}
		return embedding.NewLazy(func(context.Context) (embedding.Provider, error) {
			return embedding.NewOllama(oc)
		})
	default:
		return nil
	}
}

func openBlobStore(ctx context.Context, cfg config.BackupConfig) (blobstore.Store, error) {
	switch cfg.Target {
	case "local":
		return blobstore.NewLocalStore(cfg.Path), nil
	case "minio":
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniostore.NewStore(client, cfg.Bucket, ""), nil
	case "s3":
		var opts []s3store.Option
		if cfg.Region != "" {
			opts = append(opts, s3store.WithRegion(cfg.Region))
		}
		return s3store.New(ctx, cfg.Bucket, opts...)
	default:
		return nil, fmt.Errorf("unsupported backup target: %q", cfg.Target)
	}
}

// writeJSONLines writes each value as one JSON document per line.
func writeJSONLines[T any](w io.Writer, values []T) error {
	enc := gojson.NewEncoder(w)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
