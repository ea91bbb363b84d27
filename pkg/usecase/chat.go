package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/moneta-lab/moneta/pkg/domain/interfaces"
	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
	"github.com/moneta-lab/moneta/pkg/service/prompt"
	"github.com/moneta-lab/moneta/pkg/utils/logging"
	"github.com/moneta-lab/moneta/pkg/utils/safe"
)

// ChatRequest is one user turn
type ChatRequest struct {
	// SessionID keys the in-memory conversation history
	SessionID string

	// ConversationID, when set together with a repository, selects the
	// durable conversation the turn is appended to
	ConversationID model.ConversationID

	Question    string
	Attachments []model.FileRef
}

// ChatResult is the outcome of one completed turn
type ChatResult struct {
	Text       string
	Iterations int
	ToolCalls  []string
}

// Chat runs one agent turn: retrieve context, assemble the prompt, loop
// between the model and tools until the model answers in text, then
// memorize the turn. A failed turn leaves the session history unchanged.
// Turns on the same session are serialized; turns on distinct sessions
// proceed concurrently.
func (uc *UseCase) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if req.Question == "" {
		return nil, goerr.New("question is required")
	}
	logger := logging.From(ctx)

	sess := uc.sessions.Get(req.SessionID)
	sess.LockTurn()
	defer sess.UnlockTurn()

	// Attachments become searchable knowledge before retrieval runs, so
	// the turn that uploads a document can already draw on it.
	if len(req.Attachments) > 0 {
		docs := make([]model.Document, len(req.Attachments))
		for i, f := range req.Attachments {
			docs[i] = model.Document{
				Content:  string(f.Data),
				Metadata: map[string]string{"filename": f.Name},
			}
		}
		if err := uc.AddDocuments(ctx, docs); err != nil {
			return nil, err
		}
	}

	chunks, err := uc.index.Search(ctx, req.Question, uc.searchLimit)
	if err != nil {
		return nil, err
	}

	assembled, err := uc.assembler.Assemble(prompt.Input{
		Instructions: uc.instructions,
		Context:      chunks,
		History:      sess.Messages(),
		Question:     req.Question,
	})
	if err != nil {
		return nil, err
	}

	result, err := uc.runModelLoop(ctx, assembled)
	if err != nil {
		return nil, err
	}

	userMsg := model.NewMessage(types.RoleUser, req.Question)
	userMsg.Attachments = req.Attachments
	assistantMsg := model.NewMessage(types.RoleAssistant, result.Text)

	// Durable history first: if persistence fails the turn fails whole,
	// with the in-memory session untouched.
	if uc.repo != nil && req.ConversationID != "" {
		if err := uc.repo.Conversation().AppendTurn(ctx, req.ConversationID, userMsg, assistantMsg); err != nil {
			return nil, err
		}
	}
	sess.Append(userMsg, assistantMsg)

	logger.Debug("turn completed",
		"session_id", req.SessionID,
		"iterations", result.Iterations,
		"tool_calls", len(result.ToolCalls),
	)
	return result, nil
}

// runModelLoop drives the model until it answers with text or the
// iteration bound is hit. Tool failures are reported back to the model;
// model failures abort the loop.
func (uc *UseCase) runModelLoop(ctx context.Context, assembled *prompt.Prompt) (*ChatResult, error) {
	logger := logging.From(ctx)

	var toolSet interfaces.ToolSet
	var gollemTools []gollem.Tool
	if uc.tools != nil {
		ts, err := uc.tools.Connect(ctx)
		if err != nil {
			return nil, err
		}
		defer safe.Close(ctx, ts)
		toolSet = ts

		gollemTools, err = toolSet.Tools(ctx)
		if err != nil {
			return nil, err
		}
	}

	sessionOpts := []gollem.SessionOption{
		gollem.WithSessionSystemPrompt(assembled.System),
	}
	if len(gollemTools) > 0 {
		sessionOpts = append(sessionOpts, gollem.WithSessionTools(gollemTools...))
	}

	llmSession, err := uc.llm.NewSession(ctx, sessionOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create model session",
			goerr.T(types.ErrTagModelUnavailable))
	}

	byName := make(map[string]gollem.Tool, len(gollemTools))
	for _, t := range gollemTools {
		byName[t.Spec().Name] = t
	}

	result := &ChatResult{}
	inputs := []gollem.Input{gollem.Text(assembled.Input)}

	for i := 0; i < uc.maxIterations; i++ {
		result.Iterations = i + 1

		resp, err := llmSession.GenerateContent(ctx, inputs...)
		if err != nil {
			return nil, goerr.Wrap(err, "model call failed",
				goerr.T(types.ErrTagModelUnavailable))
		}

		if len(resp.FunctionCalls) == 0 {
			for _, text := range resp.Texts {
				result.Text += text
			}
			return result, nil
		}

		inputs = inputs[:0]
		for _, call := range resp.FunctionCalls {
			result.ToolCalls = append(result.ToolCalls, call.Name)

			tool, ok := byName[call.Name]
			if !ok {
				inputs = append(inputs, gollem.FunctionResponse{
					ID:    call.ID,
					Name:  call.Name,
					Error: goerr.New("unknown tool", goerr.V("tool", call.Name)),
				})
				continue
			}

			data, err := tool.Run(ctx, call.Arguments)
			if err != nil {
				// Recoverable: the model sees the failure and decides
				// how to continue
				logger.Warn("tool invocation failed", "tool", call.Name, "error", err.Error())
				inputs = append(inputs, gollem.FunctionResponse{
					ID:    call.ID,
					Name:  call.Name,
					Error: err,
				})
				continue
			}
			inputs = append(inputs, gollem.FunctionResponse{
				ID:   call.ID,
				Name: call.Name,
				Data: data,
			})
		}
	}

	return nil, goerr.New("agent loop exceeded iteration bound",
		goerr.V("max_iterations", uc.maxIterations),
	)
}

// Ping performs a minimal model round trip, verifying credentials and
// connectivity without touching the index or any session.
func (uc *UseCase) Ping(ctx context.Context) (string, error) {
	llmSession, err := uc.llm.NewSession(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create model session",
			goerr.T(types.ErrTagModelUnavailable))
	}

	resp, err := llmSession.GenerateContent(ctx,
		gollem.Text("Reply with one short sentence confirming you can read this."))
	if err != nil {
		return "", goerr.Wrap(err, "model call failed",
			goerr.T(types.ErrTagModelUnavailable))
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("model returned an empty response",
			goerr.T(types.ErrTagModelUnavailable))
	}
	return resp.Texts[0], nil
}
