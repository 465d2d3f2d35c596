package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"watchlog/internal/config"
	"watchlog/internal/dedup"
	"watchlog/internal/logging"
	"watchlog/internal/notion"
	"watchlog/internal/record"
	"watchlog/internal/services"
	"watchlog/internal/settings"
	"watchlog/internal/upsert"
	"watchlog/internal/worker"
)

// runtime bundles everything one Notion-facing command needs. It owns the
// worker lock until Close.
type runtime struct {
	ctx        context.Context
	cfg        *config.Config
	logger     *slog.Logger
	baseLogger *slog.Logger
	store      *settings.Store
	lock       *worker.Lock
	creds      settings.Credentials
	fields     record.Fields
	client     *notion.Client
	resolver   *dedup.Resolver
	service    *upsert.Service
}

func (c *commandContext) openRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	ctx := runContext(cmd)

	store, err := settings.Open(cfg)
	if err != nil {
		return nil, err
	}
	creds, err := store.ResolveCredentials(ctx, settings.Credentials{
		APIToken:   cfg.Notion.Token,
		DatabaseID: cfg.Notion.DatabaseID,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	ctx = services.WithDatabaseID(ctx, creds.DatabaseID)
	logger = logging.WithContext(ctx, logger)

	lock, err := worker.Acquire(ctx, cfg.LockPath())
	if err != nil {
		store.Close()
		return nil, err
	}
	cliLogger := logging.NewComponentLogger(logger, "cli")
	cliLogger.Debug("worker lock acquired", logging.String("lock", lock.Path()))

	rt := &runtime{
		ctx:        ctx,
		cfg:        cfg,
		logger:     cliLogger,
		baseLogger: logger,
		store:      store,
		lock:       lock,
		creds:      creds,
		fields:     record.FieldsFromConfig(cfg.Properties),
		client:     newNotionClient(cfg, creds, logger),
	}
	rt.wire(rt.fields)
	return rt, nil
}

// wire builds the resolver and upsert service for the given columns.
func (r *runtime) wire(fields record.Fields) {
	r.resolver = dedup.NewResolver(r.client, r.creds.DatabaseID, fields, dedup.Config{
		FuzzyThreshold: r.cfg.Dedup.FuzzyThreshold,
		PageSize:       r.cfg.Dedup.PageSize,
		MaxPages:       r.cfg.Dedup.MaxPages,
		MaxCandidates:  r.cfg.Dedup.MaxCandidates,
	}, r.baseLogger)
	mapper := record.NewMapper(fields, r.cfg.Defaults.Status)
	r.service = upsert.NewService(r.client, r.resolver, mapper, r.creds.DatabaseID, r.baseLogger)
}

func (r *runtime) Close() {
	if r == nil {
		return
	}
	if r.client != nil {
		r.client.Queue().Close()
	}
	if err := r.lock.Release(); err != nil {
		logging.WarnWithContext(r.logger, "worker lock release failed", "worker_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no other watchlog process is running"),
		)
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}

// schema returns the cached schema snapshot for the target database, fetching
// and caching it when absent or when refresh is set.
func (r *runtime) schema(refresh bool) (settings.SchemaSnapshot, error) {
	if !refresh {
		snap, ok, err := r.store.Schema(r.ctx, r.creds.DatabaseID)
		if err != nil {
			return settings.SchemaSnapshot{}, err
		}
		if ok {
			return snap, nil
		}
	}
	db, err := r.client.RetrieveDatabase(r.ctx, r.creds.DatabaseID)
	if err != nil {
		return settings.SchemaSnapshot{}, err
	}
	info := record.InspectDatabase(db, r.fields)
	if err := r.store.SaveSchema(r.ctx, r.creds.DatabaseID, info); err != nil {
		return settings.SchemaSnapshot{}, err
	}
	r.logger.Info("database schema cached",
		logging.String("status_kind", string(info.StatusKind)),
		logging.Int("status_options", len(info.StatusOptions)),
		logging.Int("tag_options", len(info.TagOptions)),
	)
	return settings.SchemaSnapshot{DatabaseID: r.creds.DatabaseID, Info: info, FetchedAt: time.Now()}, nil
}

// bindSchema rewires the resolver and service to skip columns the database
// lacks and returns the status column kind. When discovery fails every
// configured column stays enabled and the status is written as a status
// column.
func (r *runtime) bindSchema() notion.StatusKind {
	snap, err := r.schema(false)
	if err != nil {
		logging.WarnWithContext(r.logger, "schema discovery failed", "schema_discovery_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status written as a status column"),
		)
		return notion.StatusKindStatus
	}
	r.wire(r.fields.Restrict(snap.Info))
	return snap.Info.StatusKind
}

func newNotionClient(cfg *config.Config, creds settings.Credentials, logger *slog.Logger) *notion.Client {
	queue := notion.NewQueue(notion.QueueConfig{
		MinInterval:       time.Duration(cfg.Queue.MinIntervalMillis) * time.Millisecond,
		MaxRetries:        cfg.Queue.MaxRetries,
		RetryBuffer:       time.Duration(cfg.Queue.RetryBufferMillis) * time.Millisecond,
		DefaultRetryAfter: time.Duration(cfg.Queue.DefaultRetryAfterSeconds) * time.Second,
	}, notion.WithQueueLogger(logger))
	return notion.New(creds.APIToken,
		notion.WithBaseURL(cfg.Notion.BaseURL),
		notion.WithVersion(cfg.Notion.APIVersion),
		notion.WithTimeout(cfg.RequestTimeout()),
		notion.WithQueue(queue),
		notion.WithLogger(logger),
	)
}
