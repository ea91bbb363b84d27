package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
	"github.com/moneta-lab/moneta/pkg/usecase"
	"github.com/moneta-lab/moneta/pkg/utils/errutil"
)

type chatRequest struct {
	SessionID      string           `json:"session_id"`
	ConversationID string           `json:"conversation_id,omitempty"`
	Question       string           `json:"question"`
	Attachments    []chatAttachment `json:"attachments,omitempty"`
}

type chatAttachment struct {
	Name string `json:"name"`
	// Raw UTF-8 text; binary uploads go through /api/documents
	Content string `json:"content"`
}

type chatResponse struct {
	Answer     string   `json:"answer"`
	Iterations int      `json:"iterations"`
	ToolCalls  []string `json:"tool_calls,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid chat request body"), http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || req.Question == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("session_id and question are required"), http.StatusBadRequest)
		return
	}

	attachments := make([]model.FileRef, len(req.Attachments))
	for i, a := range req.Attachments {
		attachments[i] = model.FileRef{Name: a.Name, Data: []byte(a.Content)}
	}

	result, err := s.uc.Chat(ctx, usecase.ChatRequest{
		SessionID:      req.SessionID,
		ConversationID: model.ConversationID(req.ConversationID),
		Question:       req.Question,
		Attachments:    attachments,
	})
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, chatErrorStatus(err))
		return
	}

	writeJSON(ctx, w, http.StatusOK, chatResponse{
		Answer:     result.Text,
		Iterations: result.Iterations,
		ToolCalls:  result.ToolCalls,
	})
}

// chatErrorStatus maps turn failures to HTTP statuses by error class
func chatErrorStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case goerr.HasTag(err, types.ErrTagModelUnavailable):
		return http.StatusBadGateway
	case goerr.HasTag(err, types.ErrTagConfiguration):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
