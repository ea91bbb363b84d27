package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
	"github.com/moneta-lab/moneta/pkg/utils/errutil"
)

type createConversationRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("user_id is required"), http.StatusBadRequest)
		return
	}

	conv, err := s.uc.CreateConversation(ctx, model.UserID(req.UserID), req.Title)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, conv)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("user_id is required"), http.StatusBadRequest)
		return
	}

	convs, err := s.uc.ListConversations(ctx, model.UserID(userID))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}
	if convs == nil {
		convs = []*model.Conversation{}
	}
	writeJSON(ctx, w, http.StatusOK, convs)
}

type messageResponse struct {
	ID          string   `json:"id"`
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := model.ConversationID(chi.URLParam(r, "conversationID"))
	msgs, err := s.uc.ConversationMessages(ctx, id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, types.ErrNotFound) {
			status = http.StatusNotFound
		}
		errutil.HandleHTTP(ctx, w, err, status)
		return
	}

	result := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		names := make([]string, len(m.Attachments))
		for j, f := range m.Attachments {
			names[j] = f.Name
		}
		result[i] = messageResponse{
			ID:          string(m.ID),
			Role:        m.Role.String(),
			Content:     m.Content,
			Attachments: names,
			CreatedAt:   m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(ctx, w, http.StatusOK, result)
}
