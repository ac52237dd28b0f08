package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bryanwahyu/docimpact/internal/application"
	"github.com/bryanwahyu/docimpact/internal/application/worker"
	domain "github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
	"github.com/bryanwahyu/docimpact/internal/domain/joberrors"
	"github.com/bryanwahyu/docimpact/internal/logger"
	"github.com/bryanwahyu/docimpact/internal/metrics"
)

const defaultTimeout = 2 * time.Minute

// Service owns the analysis lifecycle: starting jobs, running them on the
// worker pool and resolving the state pollers see.
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	Documents documents.Repository
	Repo      domain.Repository
	Analyzer  domain.Analyzer
	Errors    joberrors.Repository
	Cache     domain.ResultCache // optional
	Clock     application.Clock
	Workers   *worker.Pool
	Timeout   time.Duration

	once sync.Once
}

func (s *Service) pool() *worker.Pool {
	s.once.Do(func() {
		if s.Workers == nil {
			s.Workers = worker.NewPool("analysis", 0)
		}
	})
	return s.Workers
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

//
// ==== USE CASES ====
//

// StartAnalysis fences the document to IN_PROGRESS and dispatches the job.
// It returns before the job runs. A document that is already running is a
// no-op; a completed one is rejected with ErrAlreadyAnalyzed.
func (s *Service) StartAnalysis(ctx context.Context, documentID int64) error {
	doc, err := s.Documents.Get(ctx, documentID)
	if err != nil {
		logger.Warn("analysis not started", zap.Int64("document_id", documentID), zap.Error(err))
		return err
	}

	st, started, err := s.Repo.TryStart(ctx, documentID, s.now())
	if err != nil {
		return fmt.Errorf("start analysis: %w", err)
	}
	if !started {
		if st != nil && st.State == domain.StateComplete {
			return domain.ErrAlreadyAnalyzed
		}
		metrics.AnalysisJobs.WithLabelValues("deduplicated").Inc()
		logger.Debug("analysis already in progress", zap.Int64("document_id", documentID))
		return nil
	}

	attempt := 1
	if st != nil {
		attempt = st.Attempts
	}
	metrics.AnalysisJobs.WithLabelValues("started").Inc()
	logger.Info("analysis started", zap.Int64("document_id", documentID), zap.Int("attempt", attempt))

	// TryStart already fences one job per document; the attempt in the key
	// keeps a retry from coalescing into a job that is still recording its failure.
	err = s.pool().Submit(jobKey(documentID, attempt), func(jobCtx context.Context) {
		s.run(jobCtx, doc, attempt)
	})
	if err != nil {
		s.fail(doc.ID, attempt, "dispatch", err)
		return fmt.Errorf("dispatch analysis: %w", err)
	}
	return nil
}

func jobKey(documentID int64, attempt int) string {
	return strconv.FormatInt(documentID, 10) + ":" + strconv.Itoa(attempt)
}

// RetryAnalysis re-runs a FAILED (or never started) analysis.
func (s *Service) RetryAnalysis(ctx context.Context, documentID int64) (domain.View, error) {
	if err := s.StartAnalysis(ctx, documentID); err != nil {
		return domain.View{}, err
	}
	return s.CurrentState(ctx, documentID)
}

// GetAnalysisState is the polling read. It never waits on a running job.
func (s *Service) GetAnalysisState(ctx context.Context, documentID int64) (domain.View, error) {
	if _, err := s.Documents.Get(ctx, documentID); err != nil {
		return domain.View{}, err
	}
	return s.CurrentState(ctx, documentID)
}

// CurrentState resolves the view without checking that the document exists.
func (s *Service) CurrentState(ctx context.Context, documentID int64) (domain.View, error) {
	if s.Cache != nil {
		r, ok, err := s.Cache.Get(ctx, documentID)
		if err != nil {
			logger.Warn("analysis cache read failed", zap.Int64("document_id", documentID), zap.Error(err))
		} else if ok {
			return domain.View{DocumentID: documentID, State: domain.StateComplete, Result: r}, nil
		}
	}

	st, err := s.Repo.Status(ctx, documentID)
	if err != nil {
		return domain.View{}, fmt.Errorf("analysis status: %w", err)
	}
	view := domain.ViewOf(documentID, st)
	if view.State != domain.StateComplete {
		return view, nil
	}

	r, err := s.Repo.Result(ctx, documentID)
	if err != nil {
		return domain.View{}, fmt.Errorf("analysis result: %w", err)
	}
	view.Result = r
	s.cache(ctx, r)
	return view, nil
}

// Recover fails jobs left IN_PROGRESS by a previous process so they can be retried.
func (s *Service) Recover(ctx context.Context) error {
	n, err := s.Repo.ResetRunning(ctx, "interrupted by restart", s.now())
	if err != nil {
		return fmt.Errorf("recover analyses: %w", err)
	}
	if n > 0 {
		logger.Warn("marked interrupted analyses as failed", zap.Int64("count", n))
	}
	return nil
}

// Shutdown waits for in-flight jobs.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.pool().Shutdown(ctx)
}

//
// ==== JOB ====
//

func (s *Service) run(ctx context.Context, doc *documents.Document, attempt int) {
	metrics.AnalysisInFlight.Inc()
	defer metrics.AnalysisInFlight.Dec()
	timer := prometheus.NewTimer(metrics.AnalysisDuration)
	defer timer.ObserveDuration()

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := s.Analyzer.Analyze(ctx, domain.Input{
		DocumentID:  doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		FileType:    doc.FileType,
		FileURL:     doc.FileURL,
		Content:     doc.ContentText,
	})
	if err != nil {
		s.fail(doc.ID, attempt, "analyze", err)
		return
	}
	if err := domain.Validate(payload); err != nil {
		s.fail(doc.ID, attempt, "validate", err)
		return
	}

	res := domain.NewResult(doc.ID, payload, s.now())
	if err := s.Repo.Complete(ctx, res, s.now()); err != nil {
		s.fail(doc.ID, attempt, "persist", err)
		return
	}
	s.cache(ctx, res)

	metrics.AnalysisJobs.WithLabelValues("completed").Inc()
	logger.Info("analysis completed",
		zap.Int64("document_id", doc.ID),
		zap.String("impact_level", string(res.ImpactLevel)),
		zap.Int("impacted_areas", len(res.ImpactedAreas)))
}

// fail records a job failure. It uses its own context because the job
// context may already be done.
func (s *Service) fail(documentID int64, attempt int, phase string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics.AnalysisJobs.WithLabelValues("failed").Inc()
	logger.Error("analysis failed",
		zap.Int64("document_id", documentID),
		zap.String("phase", phase),
		zap.Int("attempt", attempt),
		zap.Error(cause))

	if err := s.Repo.Fail(ctx, documentID, cause.Error(), s.now()); err != nil && !errors.Is(err, domain.ErrNotInProgress) {
		logger.Error("failed to mark analysis failed", zap.Int64("document_id", documentID), zap.Error(err))
	}

	if s.Errors == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{
		"invalid_payload": errors.Is(cause, domain.ErrInvalidAnalysisPayload),
		"timeout":         errors.Is(cause, context.DeadlineExceeded),
	})
	entry := &joberrors.Entry{
		DocumentID:  documentID,
		Job:         joberrors.JobAnalysis,
		Phase:       phase,
		Attempt:     attempt,
		Message:     cause.Error(),
		DetailsJSON: string(details),
		CreatedAt:   s.now(),
	}
	if err := s.Errors.Save(ctx, entry); err != nil {
		logger.Error("failed to record analysis error", zap.Int64("document_id", documentID), zap.Error(err))
	}
}

func (s *Service) cache(ctx context.Context, r *domain.Result) {
	if s.Cache == nil || r == nil {
		return
	}
	if err := s.Cache.Set(ctx, r); err != nil {
		logger.Warn("analysis cache write failed", zap.Int64("document_id", r.DocumentID), zap.Error(err))
	}
}

// FailureLog lists recorded failures for a document, newest first.
func (s *Service) FailureLog(ctx context.Context, documentID int64, limit int) ([]*joberrors.Entry, error) {
	if _, err := s.Documents.Get(ctx, documentID); err != nil {
		return nil, err
	}
	if s.Errors == nil {
		return []*joberrors.Entry{}, nil
	}
	return s.Errors.ListByDocument(ctx, documentID, limit)
}
