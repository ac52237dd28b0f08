package httpserver

import (
	"errors"
	"net/http"

	"github.com/bryanwahyu/docimpact/internal/domain/chat"
	"github.com/bryanwahyu/docimpact/internal/middleware"
)

type postMessageBody struct {
	Content string `json:"content"`
	// Message is accepted as an alias of Content.
	Message string `json:"message"`
}

// POST /api/documents/{id}/chat, POST /api/chat
func (r *Router) handlePostMessage(w http.ResponseWriter, req *http.Request) error {
	docID, err := documentID(req)
	if err != nil {
		return err
	}
	var body postMessageBody
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}
	content := body.Content
	if content == "" {
		content = body.Message
	}
	// chat content dicek saja, tidak diubah
	if err := middleware.ValidateText("content", content); err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateLength("content", content, 8000); err != nil {
		return badRequest("%v", err)
	}

	msg, err := r.svc.Chat.PostMessage(req.Context(), docID, content)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, msg)
}

// GET /api/documents/{id}/chat, GET /api/chat
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	docID, err := documentID(req)
	if err != nil {
		return err
	}
	history, err := r.svc.Chat.History(req.Context(), docID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, history)
}

// GET /api/documents/{id}/chat/respond, GET /api/chat/respond
func (r *Router) handleRespond(w http.ResponseWriter, req *http.Request) error {
	docID, err := documentID(req)
	if err != nil {
		return err
	}
	reply, err := r.svc.Chat.Respond(req.Context(), docID)
	if err != nil {
		if reply != nil && errors.Is(err, chat.ErrGenerationFailure) {
			status, code := classify(err)
			return writeJSON(w, status, failedReplyBody{
				errorBody: errorBody{Error: code, Message: err.Error()},
				Reply:     reply,
			})
		}
		return err
	}
	return writeJSON(w, http.StatusOK, reply)
}

// failedReplyBody carries the stored failed reply next to the error.
type failedReplyBody struct {
	errorBody
	Reply *chat.Message `json:"reply"`
}
