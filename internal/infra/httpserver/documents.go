package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	appdocs "github.com/bryanwahyu/docimpact/internal/application/documents"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
	"github.com/bryanwahyu/docimpact/internal/middleware"
)

// multipart framing on top of the file itself
const uploadOverhead = 1 << 20

// POST /api/documents/upload (multipart: file, title, description, content)
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+uploadOverhead)
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return documents.ErrFileTooLarge
		}
		return badRequest("malformed multipart form: %v", err)
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("file")
	if err != nil {
		return documents.ErrMissingFile
	}
	defer file.Close()

	title := middleware.SanitizeString(req.FormValue("title"))
	if err := middleware.ValidateLength("title", title, 255); err != nil {
		return badRequest("%v", err)
	}

	doc, err := r.svc.Documents.Upload(req.Context(), appdocs.UploadCommand{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Title:       title,
		Description: middleware.SanitizeString(req.FormValue("description")),
		ContentText: req.FormValue("content"),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, doc)
}

// GET /api/documents?limit=
func (r *Router) handleListDocuments(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.svc.Documents.List(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/documents/{id}
func (r *Router) handleGetDocument(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	doc, err := r.svc.Documents.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, doc)
}
