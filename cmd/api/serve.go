package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/docimpact/internal/application"
	appai "github.com/bryanwahyu/docimpact/internal/application/ai"
	appanalysis "github.com/bryanwahyu/docimpact/internal/application/analysis"
	appchat "github.com/bryanwahyu/docimpact/internal/application/chat"
	appdocs "github.com/bryanwahyu/docimpact/internal/application/documents"
	apptasks "github.com/bryanwahyu/docimpact/internal/application/tasks"
	"github.com/bryanwahyu/docimpact/internal/application/worker"
	"github.com/bryanwahyu/docimpact/internal/config"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
	"github.com/bryanwahyu/docimpact/internal/infra/ai/openai"
	"github.com/bryanwahyu/docimpact/internal/infra/ai/prompt"
	"github.com/bryanwahyu/docimpact/internal/infra/cache"
	"github.com/bryanwahyu/docimpact/internal/infra/httpserver"
	"github.com/bryanwahyu/docimpact/internal/infra/knowledge"
	"github.com/bryanwahyu/docimpact/internal/infra/storage"
	"github.com/bryanwahyu/docimpact/internal/infra/tracker"
	"github.com/bryanwahyu/docimpact/internal/logger"
	"github.com/bryanwahyu/docimpact/internal/metrics"
	"github.com/bryanwahyu/docimpact/internal/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()
		return serve(cfg)
	},
}

func serve(cfg *config.Config) error {
	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if st.db != nil {
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: st.db}
	}

	// init file store
	var files documents.FileStore = storage.NewMemoryStore()
	if cfg.Minio.Enabled {
		store, err := storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			Presign:   cfg.Minio.PresignDuration(),
		})
		if err != nil {
			return fmt.Errorf("minio init error: %w", err)
		}
		files = store
		checkers["storage"] = store
	}

	// optional result cache
	var resultCache analysis.ResultCache
	if cfg.Redis.Enabled {
		rc, err := cache.NewResultCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTLDuration())
		if err != nil {
			return err
		}
		defer rc.Close()
		resultCache = rc
		checkers["redis"] = rc
	}

	catalog, err := knowledge.Load(cfg.Analysis.CatalogPath)
	if err != nil {
		return fmt.Errorf("knowledge catalog error: %w", err)
	}

	// AI: openai kalau ada key, fallback ke analyzer/responder offline
	ai := &appai.Service{
		FallbackAnalyzer: prompt.NewKnowledgeAnalyzer(catalog),
		FallbackChat:     prompt.KeywordResponder{},
	}
	if cfg.OpenAI.APIKey != "" {
		client := openai.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens)
		ai.PrimaryAnalyzer = &openai.Analyzer{Client: client}
		ai.PrimaryChat = &openai.Responder{Client: client, HistoryLimit: cfg.Chat.HistoryLimit}
		logger.Info("openai enabled", zap.String("model", cfg.OpenAI.Model))
	} else {
		logger.Warn("openai api key not set; using offline analyzer and responder")
	}

	clock := application.SystemClock{}
	analysisSvc := &appanalysis.Service{
		Documents: st.documents,
		Repo:      st.analysis,
		Analyzer:  ai,
		Errors:    st.jobErrors,
		Cache:     resultCache,
		Clock:     clock,
		Workers:   worker.NewPool("analysis", cfg.Analysis.Workers),
		Timeout:   cfg.Analysis.TimeoutDuration(),
	}
	if err := analysisSvc.Recover(ctx); err != nil {
		return err
	}
	chatSvc := &appchat.Service{
		Documents:    st.documents,
		Analysis:     analysisSvc,
		Messages:     st.messages,
		Generator:    ai,
		Errors:       st.jobErrors,
		Clock:        clock,
		Workers:      worker.NewPool("chat", cfg.Chat.Workers),
		ReplyTimeout: cfg.Chat.ReplyTimeoutDuration(),
	}
	tr, err := tracker.NewLocalTracker(1)
	if err != nil {
		return err
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
		defer limiter.Stop()
	}

	handler := httpserver.NewRouter(httpserver.Services{
		Documents: &appdocs.Service{
			Repo:     st.documents,
			Files:    files,
			Analysis: analysisSvc,
			Clock:    clock,
			MaxBytes: cfg.Server.MaxUploadBytes,
		},
		Analysis: analysisSvc,
		Chat:     chatSvc,
		Tasks: &apptasks.Service{
			Documents: st.documents,
			Analysis:  analysisSvc,
			Repo:      st.tasks,
			Tracker:   tr,
			Clock:     clock,
		},
	}, httpserver.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		RateLimiter:    limiter,
		HealthCheckers: checkers,
		Metrics:        metrics.Handler(),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:  60 * time.Second,
	}

	// run server
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	if err := chatSvc.Shutdown(ctx2); err != nil {
		logger.Error("chat workers did not drain", zap.Error(err))
	}
	if err := analysisSvc.Shutdown(ctx2); err != nil {
		logger.Error("analysis workers did not drain", zap.Error(err))
	}
	return nil
}
