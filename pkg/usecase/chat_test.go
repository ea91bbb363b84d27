package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"

	"github.com/moneta-lab/moneta/pkg/domain/interfaces"
	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
	"github.com/moneta-lab/moneta/pkg/repository/memory"
	"github.com/moneta-lab/moneta/pkg/service/index"
	"github.com/moneta-lab/moneta/pkg/service/prompt"
	"github.com/moneta-lab/moneta/pkg/service/session"
	"github.com/moneta-lab/moneta/pkg/usecase"
)

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	if s.generateContentFn != nil {
		return s.generateContentFn(ctx, input...)
	}
	return &gollem.Response{Texts: []string{"mock answer"}}, nil
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.GenerateContent(ctx, input...)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return s.GenerateStream(ctx, input...)
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	newSessionFn func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	if c.newSessionFn != nil {
		return c.newSessionFn(ctx, options...)
	}
	return &mockLLMSession{}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	result := make([][]float64, len(input))
	for i, text := range input {
		vec := make([]float64, dimension)
		lower := strings.ToLower(text)
		for j, kw := range []string{"revenue", "apple", "dividend", "growth"} {
			if j >= dimension {
				break
			}
			vec[j] = float64(strings.Count(lower, kw))
		}
		result[i] = vec
	}
	return result, nil
}

// mockTool is a scripted gollem.Tool
type mockTool struct {
	name  string
	runFn func(ctx context.Context, args map[string]any) (map[string]any, error)
	calls int
}

func (t *mockTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{Name: t.name, Description: "mock tool"}
}

func (t *mockTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	t.calls++
	if t.runFn != nil {
		return t.runFn(ctx, args)
	}
	return map[string]any{"ok": true}, nil
}

// mockToolSet hands out scripted tools and records Close calls
type mockToolSet struct {
	tools  []gollem.Tool
	closed int
}

func (ts *mockToolSet) Tools(ctx context.Context) ([]gollem.Tool, error) {
	return ts.tools, nil
}

func (ts *mockToolSet) Close() error {
	ts.closed++
	return nil
}

// mockConnector opens the same mockToolSet for every turn
type mockConnector struct {
	set      *mockToolSet
	connects int
}

func (c *mockConnector) Connect(ctx context.Context) (interfaces.ToolSet, error) {
	c.connects++
	return c.set, nil
}

func newTestUseCase(t *testing.T, llm gollem.LLMClient, opts ...usecase.Option) *usecase.UseCase {
	t.Helper()

	idx, err := index.New(llm, index.WithDimension(4))
	gt.NoError(t, err).Required()
	assembler, err := prompt.New()
	gt.NoError(t, err).Required()

	uc, err := usecase.New(llm, idx, session.NewStore(8), assembler, opts...)
	gt.NoError(t, err).Required()
	return uc
}

func TestChatPlainAnswer(t *testing.T) {
	ctx := context.Background()
	llm := &mockLLMClient{}
	uc := newTestUseCase(t, llm)

	result, err := uc.Chat(ctx, usecase.ChatRequest{
		SessionID: "s1",
		Question:  "What is a dividend?",
	})
	gt.NoError(t, err).Required()
	gt.Value(t, result.Text).Equal("mock answer")
	gt.Value(t, result.Iterations).Equal(1)
	gt.Array(t, result.ToolCalls).Length(0)
}

func TestChatMemorizesTurn(t *testing.T) {
	ctx := context.Background()
	llm := &mockLLMClient{}

	var seenSystem []string
	llm.newSessionFn = func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
		cfg := gollem.NewSessionConfig(options...)
		seenSystem = append(seenSystem, cfg.SystemPrompt())
		return &mockLLMSession{}, nil
	}

	uc := newTestUseCase(t, llm)

	_, err := uc.Chat(ctx, usecase.ChatRequest{SessionID: "s1", Question: "first question"})
	gt.NoError(t, err).Required()
	_, err = uc.Chat(ctx, usecase.ChatRequest{SessionID: "s1", Question: "second question"})
	gt.NoError(t, err).Required()

	// The second turn's system prompt carries the first turn verbatim
	gt.Array(t, seenSystem).Length(2).Required()
	gt.Bool(t, strings.Contains(seenSystem[1], "[user] first question")).True()
	gt.Bool(t, strings.Contains(seenSystem[1], "[assistant] mock answer")).True()

	// Turns on another session share nothing
	_, err = uc.Chat(ctx, usecase.ChatRequest{SessionID: "s2", Question: "third question"})
	gt.NoError(t, err).Required()
	gt.Bool(t, strings.Contains(seenSystem[2], "first question")).False()
}

func TestChatFailedTurnLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	llm := &mockLLMClient{}
	fail := false
	llm.newSessionFn = func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
		return &mockLLMSession{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				if fail {
					return nil, goerr.New("model is down")
				}
				return &gollem.Response{Texts: []string{"fine"}}, nil
			},
		}, nil
	}

	repo := memory.New()
	uc := newTestUseCase(t, llm, usecase.WithRepository(repo))

	conv, err := repo.Conversation().Create(ctx, "u1", "test")
	gt.NoError(t, err).Required()

	fail = true
	_, err = uc.Chat(ctx, usecase.ChatRequest{
		SessionID:      "s1",
		ConversationID: conv.ID,
		Question:       "doomed question",
	})
	gt.Error(t, err).Required()
	gt.Bool(t, goerr.HasTag(err, types.ErrTagModelUnavailable)).True()

	msgs, err := repo.Conversation().Messages(ctx, conv.ID)
	gt.NoError(t, err)
	gt.Array(t, msgs).Length(0)

	// The next successful turn starts from clean history
	fail = false
	_, err = uc.Chat(ctx, usecase.ChatRequest{
		SessionID:      "s1",
		ConversationID: conv.ID,
		Question:       "working question",
	})
	gt.NoError(t, err).Required()

	msgs, err = repo.Conversation().Messages(ctx, conv.ID)
	gt.NoError(t, err)
	gt.Array(t, msgs).Length(2)
	gt.Value(t, msgs[0].Role).Equal(types.RoleUser)
	gt.Value(t, msgs[0].Content).Equal("working question")
	gt.Value(t, msgs[1].Role).Equal(types.RoleAssistant)
}

// flakyTurnRepo persists through the embedded repository but can be told
// to fail turn writes.
type flakyTurnRepo struct {
	interfaces.Repository
	fail bool
}

func (r *flakyTurnRepo) Conversation() interfaces.ConversationRepository {
	return &flakyTurnConversation{ConversationRepository: r.Repository.Conversation(), repo: r}
}

type flakyTurnConversation struct {
	interfaces.ConversationRepository
	repo *flakyTurnRepo
}

func (c *flakyTurnConversation) AppendTurn(ctx context.Context, id model.ConversationID, user, assistant *model.Message) error {
	if c.repo.fail {
		return goerr.New("storage write failed", goerr.T(types.ErrTagPersistence))
	}
	return c.ConversationRepository.AppendTurn(ctx, id, user, assistant)
}

func TestChatPersistenceFailureDropsWholeTurn(t *testing.T) {
	ctx := context.Background()
	llm := &mockLLMClient{}

	var seenSystem []string
	llm.newSessionFn = func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
		cfg := gollem.NewSessionConfig(options...)
		seenSystem = append(seenSystem, cfg.SystemPrompt())
		return &mockLLMSession{}, nil
	}

	backing := memory.New()
	repo := &flakyTurnRepo{Repository: backing}
	uc := newTestUseCase(t, llm, usecase.WithRepository(repo))

	conv, err := backing.Conversation().Create(ctx, "u1", "test")
	gt.NoError(t, err).Required()

	repo.fail = true
	_, err = uc.Chat(ctx, usecase.ChatRequest{
		SessionID:      "s1",
		ConversationID: conv.ID,
		Question:       "doomed question",
	})
	gt.Error(t, err).Required()

	// Neither half of the turn may be visible afterwards
	msgs, err := backing.Conversation().Messages(ctx, conv.ID)
	gt.NoError(t, err)
	gt.Array(t, msgs).Length(0)

	// The in-memory session stayed untouched too
	repo.fail = false
	_, err = uc.Chat(ctx, usecase.ChatRequest{
		SessionID:      "s1",
		ConversationID: conv.ID,
		Question:       "working question",
	})
	gt.NoError(t, err).Required()
	gt.Array(t, seenSystem).Length(2).Required()
	gt.Bool(t, strings.Contains(seenSystem[1], "doomed question")).False()

	msgs, err = backing.Conversation().Messages(ctx, conv.ID)
	gt.NoError(t, err)
	gt.Array(t, msgs).Length(2)
}

func TestChatToolLoop(t *testing.T) {
	ctx := context.Background()

	tool := &mockTool{
		name: "get_stock_price",
		runFn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"price": 187.5}, nil
		},
	}
	connector := &mockConnector{set: &mockToolSet{tools: []gollem.Tool{tool}}}

	llm := &mockLLMClient{}
	llm.newSessionFn = func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
		turn := 0
		return &mockLLMSession{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				turn++
				if turn == 1 {
					return &gollem.Response{
						FunctionCalls: []*gollem.FunctionCall{
							{ID: "call-1", Name: "get_stock_price", Arguments: map[string]any{"symbol": "AAPL"}},
						},
					}, nil
				}
				// The tool result must have come back as a function response
				gt.Array(t, input).Length(1).Required()
				resp, ok := input[0].(gollem.FunctionResponse)
				gt.Bool(t, ok).True()
				gt.Value(t, resp.Name).Equal("get_stock_price")
				gt.Value(t, resp.Data["price"]).Equal(187.5)
				return &gollem.Response{Texts: []string{"AAPL trades at 187.50 USD"}}, nil
			},
		}, nil
	}

	uc := newTestUseCase(t, llm, usecase.WithToolConnector(connector))

	result, err := uc.Chat(ctx, usecase.ChatRequest{SessionID: "s1", Question: "AAPL price?"})
	gt.NoError(t, err).Required()
	gt.Value(t, result.Text).Equal("AAPL trades at 187.50 USD")
	gt.Value(t, result.Iterations).Equal(2)
	gt.Array(t, result.ToolCalls).Length(1)
	gt.Value(t, tool.calls).Equal(1)

	// Tool connection is per turn and closed on exit
	gt.Value(t, connector.connects).Equal(1)
	gt.Value(t, connector.set.closed).Equal(1)
}

func TestChatToolErrorFedBack(t *testing.T) {
	ctx := context.Background()

	tool := &mockTool{
		name: "get_stock_price",
		runFn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, goerr.New("unknown symbol", goerr.T(types.ErrTagTool))
		},
	}
	connector := &mockConnector{set: &mockToolSet{tools: []gollem.Tool{tool}}}

	llm := &mockLLMClient{}
	llm.newSessionFn = func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
		turn := 0
		return &mockLLMSession{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				turn++
				if turn == 1 {
					return &gollem.Response{
						FunctionCalls: []*gollem.FunctionCall{
							{ID: "call-1", Name: "get_stock_price", Arguments: map[string]any{"symbol": "NOPE"}},
						},
					}, nil
				}
				// The failure reaches the model instead of aborting the turn
				resp, ok := input[0].(gollem.FunctionResponse)
				gt.Bool(t, ok).True()
				gt.Error(t, resp.Error)
				return &gollem.Response{Texts: []string{"I could not find that symbol."}}, nil
			},
		}, nil
	}

	uc := newTestUseCase(t, llm, usecase.WithToolConnector(connector))

	result, err := uc.Chat(ctx, usecase.ChatRequest{SessionID: "s1", Question: "NOPE price?"})
	gt.NoError(t, err).Required()
	gt.Value(t, result.Text).Equal("I could not find that symbol.")
}

func TestChatIterationBound(t *testing.T) {
	ctx := context.Background()

	tool := &mockTool{name: "spin"}
	connector := &mockConnector{set: &mockToolSet{tools: []gollem.Tool{tool}}}

	llm := &mockLLMClient{}
	llm.newSessionFn = func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
		return &mockLLMSession{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				// Never answers in text
				return &gollem.Response{
					FunctionCalls: []*gollem.FunctionCall{
						{ID: "again", Name: "spin", Arguments: map[string]any{}},
					},
				}, nil
			},
		}, nil
	}

	uc := newTestUseCase(t, llm,
		usecase.WithToolConnector(connector),
		usecase.WithMaxIterations(3),
	)

	_, err := uc.Chat(ctx, usecase.ChatRequest{SessionID: "s1", Question: "loop forever"})
	gt.Error(t, err).Required()
	gt.Value(t, tool.calls).Equal(3)
	gt.Value(t, connector.set.closed).Equal(1)
}

func TestChatAttachmentsBecomeSearchable(t *testing.T) {
	ctx := context.Background()
	llm := &mockLLMClient{}

	var seenSystem string
	llm.newSessionFn = func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
		cfg := gollem.NewSessionConfig(options...)
		seenSystem = cfg.SystemPrompt()
		return &mockLLMSession{}, nil
	}

	uc := newTestUseCase(t, llm)

	_, err := uc.Chat(ctx, usecase.ChatRequest{
		SessionID: "s1",
		Question:  "What was Apple revenue growth?",
		Attachments: []model.FileRef{
			{Name: "apple.txt", Data: []byte("Apple revenue growth reached 12% in the third quarter.")},
		},
	})
	gt.NoError(t, err).Required()

	// The uploaded document was retrieved into this same turn's prompt
	gt.Bool(t, strings.Contains(seenSystem, "Apple revenue growth reached 12%")).True()
}

func TestChatRejectsEmptyQuestion(t *testing.T) {
	uc := newTestUseCase(t, &mockLLMClient{})
	_, err := uc.Chat(context.Background(), usecase.ChatRequest{SessionID: "s1"})
	gt.Error(t, err)
}

func TestPing(t *testing.T) {
	llm := &mockLLMClient{}
	uc := newTestUseCase(t, llm)

	reply, err := uc.Ping(context.Background())
	gt.NoError(t, err)
	gt.Value(t, reply).Equal("mock answer")
}
