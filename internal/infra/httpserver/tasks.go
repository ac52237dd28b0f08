package httpserver

import (
	"net/http"
	"strings"
	"time"

	apptasks "github.com/bryanwahyu/docimpact/internal/application/tasks"
	"github.com/bryanwahyu/docimpact/internal/domain/tasks"
	"github.com/bryanwahyu/docimpact/internal/middleware"
)

type createTaskBody struct {
	DocumentID  int64  `json:"documentId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	DueDate     string `json:"dueDate"` // RFC3339 or YYYY-MM-DD
	ImpactArea  string `json:"impactArea"`
}

// POST /api/tasks
func (r *Router) handleCreateTask(w http.ResponseWriter, req *http.Request) error {
	var body createTaskBody
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}
	if body.DocumentID <= 0 {
		return badRequest("documentId is required")
	}
	due, err := parseDueDate(body.DueDate)
	if err != nil {
		return err
	}

	t, err := r.svc.Tasks.Create(req.Context(), apptasks.CreateTaskCommand{
		DocumentID:  body.DocumentID,
		Title:       middleware.SanitizeString(body.Title),
		Description: middleware.SanitizeString(body.Description),
		Assignee:    middleware.SanitizeString(body.Assignee),
		DueDate:     due,
		ImpactArea:  middleware.SanitizeString(body.ImpactArea),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, t)
}

// GET /api/documents/{id}/tasks
func (r *Router) handleListTasks(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	list, err := r.svc.Tasks.ListByDocument(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// PATCH /api/tasks/{taskID} body {"status":"completed"}
func (r *Router) handleUpdateTask(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "taskID")
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}
	t, err := r.svc.Tasks.UpdateStatus(req.Context(), id, tasks.Status(strings.TrimSpace(body.Status)))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, t)
}

func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, badRequest("dueDate must be RFC3339 or YYYY-MM-DD")
}
