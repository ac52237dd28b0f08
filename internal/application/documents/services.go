package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/docimpact/internal/application"
	domain "github.com/bryanwahyu/docimpact/internal/domain/documents"
	"github.com/bryanwahyu/docimpact/internal/logger"
)

// AnalysisStarter is the slice of the analysis service an upload needs.
type AnalysisStarter interface {
	StartAnalysis(ctx context.Context, documentID int64) error
}

// Service implements use-cases untuk Document
type Service struct {
	Repo     domain.Repository
	Files    domain.FileStore
	Analysis AnalysisStarter
	Clock    application.Clock
	MaxBytes int64
}

// UploadCommand carries one multipart upload.
type UploadCommand struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Title       string
	Description string
	// ContentText is the extracted text for binary formats; txt uploads use the body.
	ContentText string
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) maxBytes() int64 {
	if s.MaxBytes <= 0 {
		return domain.DefaultMaxUploadBytes
	}
	return s.MaxBytes
}

// Upload stores the file, records the document and kicks off its analysis.
// Analysis errors never fail the upload; the state endpoint reports them.
func (s *Service) Upload(ctx context.Context, cmd UploadCommand) (*domain.Document, error) {
	if cmd.Body == nil || strings.TrimSpace(cmd.Filename) == "" {
		return nil, domain.ErrMissingFile
	}
	fileType, err := domain.DetectFileType(cmd.ContentType, cmd.Filename)
	if err != nil {
		return nil, err
	}

	// baca satu byte lebih supaya ketahuan kalau kebesaran
	limit := s.maxBytes()
	data, err := io.ReadAll(io.LimitReader(cmd.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, domain.ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, domain.ErrMissingFile
	}

	name := filepath.Base(cmd.Filename)
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		title = name
	}
	content := strings.TrimSpace(cmd.ContentText)
	if fileType == "txt" {
		content = string(data)
	}

	key := fmt.Sprintf("documents/%s/%s", uuid.New().String(), name)
	url, err := s.Files.Put(ctx, key, bytes.NewReader(data), int64(len(data)), cmd.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	doc := &domain.Document{
		Title:       title,
		Description: strings.TrimSpace(cmd.Description),
		FileName:    name,
		FileType:    fileType,
		FileSize:    int64(len(data)),
		FileURL:     url,
		ContentText: content,
		UploadedAt:  s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		// object tanpa record tidak berguna, hapus lagi
		if derr := s.Files.Delete(ctx, key); derr != nil {
			logger.Warn("cleanup orphaned upload failed", zap.String("key", key), zap.Error(derr))
		}
		return nil, fmt.Errorf("create document: %w", err)
	}
	logger.Info("document uploaded",
		zap.Int64("document_id", doc.ID),
		zap.String("file_type", fileType),
		zap.Int64("size", doc.FileSize))

	if s.Analysis != nil {
		if err := s.Analysis.StartAnalysis(ctx, doc.ID); err != nil {
			logger.Warn("analysis not started after upload", zap.Int64("document_id", doc.ID), zap.Error(err))
		}
	}
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Document, error) {
	return s.Repo.Get(ctx, id)
}

// List returns the newest documents first.
func (s *Service) List(ctx context.Context, limit int) ([]*domain.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.Repo.List(ctx, limit)
}
