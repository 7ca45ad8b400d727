package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/leads/internal/logging"
)

// Defaults applied by NewService when Options leaves a value unset.
const (
	DefaultImportTimeout = 10 * time.Minute
	DefaultMaxFileSize   = 100 << 20
)

// Routing keys for published domain events.
const (
	EventLeadsImported = "leads.imported"
	EventLeadsExported = "leads.exported"
	EventLeadsDeleted  = "leads.deleted"
	EventLeadAssigned  = "lead.assigned"
)

// Cache stores JSON-encodable values under string keys.
type Cache interface {
	// Get decodes the value under key into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// EventPublisher delivers domain events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Recorder receives operation metrics.
type Recorder interface {
	ObserveImport(source string, res *ImportResult, err error)
	ObserveExport(kind string, rows int)
}

// Options configures a Service. Nil collaborators are replaced with no-ops.
type Options struct {
	MaxConcurrentImports int
	ImportWait           time.Duration
	ImportTimeout        time.Duration
	MaxFileSize          int64

	Cache   Cache
	Events  EventPublisher
	Metrics Recorder
	Sheets  SheetFetcher
}

// Service provides the lead management operations over a PostgreSQL pool.
type Service struct {
	pool    *pgxpool.Pool
	limiter *ImportLimiter
	cache   Cache
	events  EventPublisher
	metrics Recorder
	sheets  SheetFetcher

	importTimeout time.Duration
	maxFileSize   int64
	now           func() time.Time
}

// NewService creates a new Service instance.
func NewService(pool *pgxpool.Pool, opts Options) *Service {
	s := &Service{
		pool:          pool,
		limiter:       NewImportLimiter(opts.MaxConcurrentImports, opts.ImportWait),
		cache:         opts.Cache,
		events:        opts.Events,
		metrics:       opts.Metrics,
		sheets:        opts.Sheets,
		importTimeout: opts.ImportTimeout,
		maxFileSize:   opts.MaxFileSize,
		now:           time.Now,
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}
	if s.importTimeout <= 0 {
		s.importTimeout = DefaultImportTimeout
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxFileSize
	}
	return s
}

// Ping checks database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errNoDatabase
	}
	return s.pool.Ping(ctx)
}

// SheetsEnabled reports whether spreadsheet import is configured.
func (s *Service) SheetsEnabled() bool {
	return s.sheets != nil
}

// ImportLimiter exposes the import semaphore for shutdown draining.
func (s *Service) ImportLimiter() *ImportLimiter {
	return s.limiter
}

// inTx runs fn in a transaction, committing when it returns nil.
func (s *Service) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// publish sends an event. Delivery failures are logged, never returned.
func (s *Service) publish(ctx context.Context, key string, payload any) {
	if err := s.events.Publish(ctx, key, payload); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "routing_key", key, "error", err)
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, string, any) error { return nil }
func (noopCache) DeletePrefix(context.Context, string) error { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }

type noopRecorder struct{}

func (noopRecorder) ObserveImport(string, *ImportResult, error) {}
func (noopRecorder) ObserveExport(string, int) {}
