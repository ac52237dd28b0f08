package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/docimpact/internal/config"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
	"github.com/bryanwahyu/docimpact/internal/domain/joberrors"
	"github.com/bryanwahyu/docimpact/internal/domain/tasks"
	"github.com/bryanwahyu/docimpact/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/docimpact/internal/infra/db/mysql"
	"github.com/bryanwahyu/docimpact/internal/infra/db/postgres"
	"github.com/bryanwahyu/docimpact/internal/logger"
)

// stores is the set of repositories selected by database.driver.
type stores struct {
	db        *sql.DB // nil for the memory driver
	documents documents.Repository
	analysis  analysis.Repository
	messages  chat.Repository
	tasks     tasks.Repository
	jobErrors joberrors.Repository
}

func (s *stores) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN(), postgres.PoolOptions{
			MaxOpen:     cfg.Database.MaxOpenConns,
			MaxIdle:     cfg.Database.MaxIdleConns,
			MaxLifetime: cfg.Database.ConnMaxLifetimeDuration(),
		})
		if err != nil {
			return nil, fmt.Errorf("postgres connect error: %w", err)
		}
		return db, nil
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN(), mysqlp.PoolOptions{
			MaxOpen:     cfg.Database.MaxOpenConns,
			MaxIdle:     cfg.Database.MaxIdleConns,
			MaxLifetime: cfg.Database.ConnMaxLifetimeDuration(),
		})
		if err != nil {
			return nil, fmt.Errorf("mysql connect error: %w", err)
		}
		return db, nil
	}
	return nil, nil
}

func migrate(ctx context.Context, driver string, db *sql.DB) error {
	switch driver {
	case "postgres":
		return postgres.Migrate(ctx, db)
	case "mysql":
		return mysqlp.Migrate(ctx, db)
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, cfg.Database.Driver, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	switch cfg.Database.Driver {
	case "postgres":
		s := postgres.NewStores(db)
		logger.Info("using postgres store", zap.String("host", cfg.Database.Host))
		return &stores{db: db, documents: s.Documents, analysis: s.Analysis, messages: s.Messages, tasks: s.Tasks, jobErrors: s.JobErrors}, nil
	case "mysql":
		s := mysqlp.NewStores(db)
		logger.Info("using mysql store", zap.String("host", cfg.Database.Host))
		return &stores{db: db, documents: s.Documents, analysis: s.Analysis, messages: s.Messages, tasks: s.Tasks, jobErrors: s.JobErrors}, nil
	}

	logger.Warn("using in-memory store; data is lost on restart")
	return &stores{
		documents: memory.NewDocumentRepository(),
		analysis:  memory.NewAnalysisRepository(),
		messages:  memory.NewMessageRepository(),
		tasks:     memory.NewTaskRepository(),
		jobErrors: memory.NewJobErrorRepository(),
	}, nil
}
