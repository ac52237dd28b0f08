package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/docimpact/internal/application"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
	domain "github.com/bryanwahyu/docimpact/internal/domain/tasks"
	"github.com/bryanwahyu/docimpact/internal/logger"
)

type Service struct {
	Documents documents.Repository
	Analysis  analysis.StateReader
	Repo      domain.Repository
	Tracker   domain.Tracker
	Clock     application.Clock
}

type CreateTaskCommand struct {
	DocumentID  int64
	Title       string
	Description string
	Assignee    string
	DueDate     *time.Time
	ImpactArea  string
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

// Create registers the task with the tracker first, then stores it with the
// tracker's id. Empty fields are filled from the named impact area when the
// document's analysis is complete.
func (s *Service) Create(ctx context.Context, cmd CreateTaskCommand) (*domain.Task, error) {
	if _, err := s.Documents.Get(ctx, cmd.DocumentID); err != nil {
		return nil, err
	}

	t := &domain.Task{
		DocumentID:  cmd.DocumentID,
		Title:       strings.TrimSpace(cmd.Title),
		Description: strings.TrimSpace(cmd.Description),
		Assignee:    strings.TrimSpace(cmd.Assignee),
		DueDate:     cmd.DueDate,
		Status:      domain.StatusOpen,
		ImpactArea:  strings.TrimSpace(cmd.ImpactArea),
		CreatedAt:   s.now(),
	}
	if t.ImpactArea != "" {
		if err := s.fillFromArea(ctx, t); err != nil {
			return nil, err
		}
	}
	if t.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidTask)
	}

	externalID, err := s.Tracker.CreateTask(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("tracker create task: %w", err)
	}
	t.ExternalID = externalID
	if err := s.Repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	logger.Info("task created",
		zap.Int64("task_id", t.ID),
		zap.Int64("document_id", t.DocumentID),
		zap.String("external_id", externalID))
	return t, nil
}

func (s *Service) fillFromArea(ctx context.Context, t *domain.Task) error {
	if s.Analysis == nil {
		return nil
	}
	view, err := s.Analysis.CurrentState(ctx, t.DocumentID)
	if err != nil {
		return fmt.Errorf("task impact area: %w", err)
	}
	if view.Result == nil {
		return nil
	}
	for _, area := range view.Result.ImpactedAreas {
		if !strings.EqualFold(area.Name, t.ImpactArea) {
			continue
		}
		if t.Title == "" {
			t.Title = "Address impact on " + area.Name
		}
		if t.Description == "" {
			parts := []string{area.Description}
			if area.Conflict != "" {
				parts = append(parts, "Conflict: "+area.Conflict)
			}
			if area.Recommendation != "" {
				parts = append(parts, "Recommendation: "+area.Recommendation)
			}
			t.Description = strings.Join(parts, "\n")
		}
		if t.Assignee == "" {
			t.Assignee = area.Contact.Email
		}
		return nil
	}
	return nil
}

func (s *Service) ListByDocument(ctx context.Context, documentID int64) ([]*domain.Task, error) {
	if _, err := s.Documents.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.Repo.ListByDocument(ctx, documentID)
}

// UpdateStatus pushes the new status to the tracker and then stores it.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.Status) (*domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTask, status)
	}
	t, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.ExternalID != "" {
		if err := s.Tracker.UpdateTask(ctx, t.ExternalID, status); err != nil {
			return nil, fmt.Errorf("tracker update task: %w", err)
		}
	}
	if err := s.Repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	t.Status = status
	return t, nil
}
