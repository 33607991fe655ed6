package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/stepwise/internal/config"
	"github.com/aretw0/stepwise/pkg/adapters/file"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/adapters/redis"
	"github.com/aretw0/stepwise/pkg/adapters/sqlite"
	"github.com/aretw0/stepwise/pkg/persistence/middleware"
	"github.com/aretw0/stepwise/pkg/ports"
)

// LockPrefix namespaces distributed session locks in Redis.
const LockPrefix = "stepwise:lock:"

// Backend bundles the persistence adapters selected by the configuration.
type Backend struct {
	Name   string
	Store  ports.StateStore
	Sink   ports.SubmissionSink
	Locker ports.DistributedLocker

	closers []func() error
}

// OpenBackend builds the state store, submission sink and, for redis, the
// distributed locker. Submissions are archived in SQLite for every backend
// except memory.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{Name: cfg.Store}

	switch cfg.Store {
	case config.BackendMemory:
		b.Store = memory.NewStore()
		b.Sink = memory.NewSink()
		if err := b.secure(cfg); err != nil {
			return nil, err
		}
		return b, nil

	case config.BackendFile:
		b.Store = file.NewStore(cfg.SessionsDir())

	case config.BackendRedis:
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.RedisTTL))
		b.closers = append(b.closers, rs.Close)
		if err := rs.Ping(ctx); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		b.Store = rs
		b.Locker = redis.NewLocker(rs.Client(), LockPrefix)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLiteFile()), 0o755); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlite.Open(cfg.SQLiteFile())
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.closers = append(b.closers, db.Close)
	b.Sink = db
	if b.Store == nil {
		b.Store = db
	}

	if err := b.secure(cfg); err != nil {
		_ = b.Close()
		return nil, err
	}

	logger.Debug("backend opened", "store", cfg.Store, "sqlite", cfg.SQLiteFile())
	return b, nil
}

// secure wraps the state store with PII masking and encryption when configured.
func (b *Backend) secure(cfg *config.Config) error {
	var mws []middleware.Middleware
	if len(cfg.PIIPatterns) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.PIIPatterns)
		if err != nil {
			return err
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey != "" {
		active, err := middleware.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			return fmt.Errorf("encryption key: %w", err)
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for i, encoded := range cfg.EncryptionFallback {
			key, err := middleware.DecodeKey(encoded)
			if err != nil {
				return fmt.Errorf("fallback key %d: %w", i, err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return err
		}
		mws = append(mws, mw)
	}
	b.Store = middleware.Chain(b.Store, mws...)
	return nil
}

// Close releases every connection in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
