package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bryanwahyu/docimpact/internal/application"
	"github.com/bryanwahyu/docimpact/internal/application/worker"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	domain "github.com/bryanwahyu/docimpact/internal/domain/chat"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
	"github.com/bryanwahyu/docimpact/internal/domain/joberrors"
	"github.com/bryanwahyu/docimpact/internal/logger"
	"github.com/bryanwahyu/docimpact/internal/metrics"
)

const defaultReplyTimeout = 30 * time.Second

// Service implements the conversational turn protocol for document chats and
// document-less sessions (nil document id).
type Service struct {
	Documents    documents.Repository
	Analysis     analysis.StateReader
	Messages     domain.Repository
	Generator    domain.Generator
	Errors       joberrors.Repository
	Clock        application.Clock
	Workers      *worker.Pool
	ReplyTimeout time.Duration

	once     sync.Once
	inflight singleflight.Group
}

func (s *Service) pool() *worker.Pool {
	s.once.Do(func() {
		if s.Workers == nil {
			s.Workers = worker.NewPool("chat", 0)
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

// BuildContext reads the document, its analysis state and the history, each
// once and in that order. A missing analysis result is a valid, degraded context.
func (s *Service) BuildContext(ctx context.Context, documentID *int64) (*domain.Context, error) {
	c := &domain.Context{}
	if documentID != nil {
		doc, err := s.Documents.Get(ctx, *documentID)
		if err != nil {
			return nil, err
		}
		view, err := s.Analysis.CurrentState(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("chat context analysis: %w", err)
		}
		c.Document = doc
		c.Analysis = &view
	}

	history, err := s.Messages.History(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("chat context history: %w", err)
	}
	c.History = history
	return c, nil
}

// PostMessage appends a user message and schedules its reply in the background.
func (s *Service) PostMessage(ctx context.Context, documentID *int64, content string) (*domain.Message, error) {
	// content disimpan apa adanya, hanya dicek kosong
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyMessage
	}
	if err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		DocumentID: documentID,
		Role:       domain.RoleUser,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.Messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	err := s.pool().Submit("message:"+strconv.FormatInt(msg.ID, 10), func(jobCtx context.Context) {
		// failures are already appended as failed replies and logged
		_, _ = s.reply(jobCtx, msg)
	})
	if err != nil {
		logger.Warn("chat reply not scheduled", zap.Int64("message_id", msg.ID), zap.Error(err))
	}
	return msg, nil
}

// History returns the ordered conversation.
func (s *Service) History(ctx context.Context, documentID *int64) ([]*domain.Message, error) {
	if err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.Messages.History(ctx, documentID)
}

// Respond answers the newest pending user message (one without a successful
// reply) synchronously. When every user message is answered, the latest one's
// reply is returned instead of generating a second one. On generator failure
// the failed reply is returned together with ErrGenerationFailure.
func (s *Service) Respond(ctx context.Context, documentID *int64) (*domain.Message, error) {
	if err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}
	last, err := s.Messages.LatestUserMessage(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("latest user message: %w", err)
	}
	if last == nil {
		return nil, domain.ErrNoMessageToRespondTo
	}

	history, err := s.Messages.History(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if pending := domain.LatestPending(history); pending != nil {
		return s.reply(ctx, pending)
	}
	return s.reply(ctx, last)
}

// Shutdown waits for in-flight reply generations.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.pool().Shutdown(ctx)
}

// reply generates and appends the answer to userMsg. Concurrent callers for
// the same message share one generation.
func (s *Service) reply(ctx context.Context, userMsg *domain.Message) (*domain.Message, error) {
	ctx = context.WithoutCancel(ctx)
	v, err, _ := s.inflight.Do(strconv.FormatInt(userMsg.ID, 10), func() (any, error) {
		existing, err := s.Messages.FindReply(ctx, userMsg.ID)
		if err != nil {
			return nil, fmt.Errorf("find reply: %w", err)
		}
		if existing != nil {
			metrics.ChatReplies.WithLabelValues("reused").Inc()
			return existing, nil
		}
		return s.generate(ctx, userMsg)
	})
	msg, _ := v.(*domain.Message)
	return msg, err
}

func (s *Service) generate(ctx context.Context, userMsg *domain.Message) (*domain.Message, error) {
	timeout := s.ReplyTimeout
	if timeout <= 0 {
		timeout = defaultReplyTimeout
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, genErr := func() (string, error) {
		cctx, err := s.BuildContext(genCtx, userMsg.DocumentID)
		if err != nil {
			return "", err
		}
		text, err := s.Generator.Generate(genCtx, cctx, userMsg.Content)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", errors.New("generator returned an empty reply")
		}
		return text, nil
	}()

	replyTo := userMsg.ID
	reply := &domain.Message{
		DocumentID: userMsg.DocumentID,
		Role:       domain.RoleAssistant,
		Content:    text,
		ReplyTo:    &replyTo,
		CreatedAt:  s.now(),
	}
	if genErr != nil {
		reply.Failed = true
		reply.Content = "Sorry, I couldn't generate a reply to that message. Please try again."
	}
	if err := s.Messages.Append(ctx, reply); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	if genErr != nil {
		s.recordFailure(ctx, userMsg, genErr)
		return reply, fmt.Errorf("%w: %w", domain.ErrGenerationFailure, genErr)
	}
	metrics.ChatReplies.WithLabelValues("generated").Inc()
	return reply, nil
}

func (s *Service) recordFailure(ctx context.Context, userMsg *domain.Message, cause error) {
	metrics.ChatReplies.WithLabelValues("failed").Inc()
	logger.Error("chat reply failed", zap.Int64("message_id", userMsg.ID), zap.Error(cause))

	if s.Errors == nil || userMsg.DocumentID == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{"message_id": userMsg.ID})
	entry := &joberrors.Entry{
		DocumentID:  *userMsg.DocumentID,
		Job:         joberrors.JobChat,
		Phase:       "generate",
		Message:     cause.Error(),
		DetailsJSON: string(details),
		CreatedAt:   s.now(),
	}
	if err := s.Errors.Save(ctx, entry); err != nil {
		logger.Error("failed to record chat error", zap.Int64("message_id", userMsg.ID), zap.Error(err))
	}
}

func (s *Service) ensureDocument(ctx context.Context, documentID *int64) error {
	if documentID == nil {
		return nil
	}
	_, err := s.Documents.Get(ctx, *documentID)
	return err
}
