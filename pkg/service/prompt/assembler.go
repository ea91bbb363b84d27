package prompt

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
)

//go:embed system.md
var systemTmplRaw string

var systemTmpl = template.Must(template.New("system").Parse(systemTmplRaw))

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// ContextDelimiter joins retrieved chunk contents inside the assembled
// system prompt.
const ContextDelimiter = "\n---\n"

// DefaultTokenBudget bounds the assembled prompt. Oldest non-system history
// entries are dropped first when the budget is exceeded.
const DefaultTokenBudget = 8000

// Prompt is the structured model input: system instructions with retrieved
// context and history baked in, plus the literal user turn.
type Prompt struct {
	System string
	Input  string
}

// Input carries everything one turn contributes to the prompt
type Input struct {
	Instructions string
	Context      []model.Chunk
	History      []*model.Message
	Question     string
}

// Assembler renders the model prompt from instructions, retrieved context
// and conversation history.
type Assembler struct {
	budget   int
	encoding *tiktoken.Tiktoken
}

// Option configures an Assembler
type Option func(*Assembler)

// WithTokenBudget overrides the default prompt token budget
func WithTokenBudget(budget int) Option {
	return func(a *Assembler) {
		a.budget = budget
	}
}

// New creates an Assembler. The cl100k_base encoding is loaded from the
// bundled offline BPE data, so no network access is needed.
func New(opts ...Option) (*Assembler, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load token encoding")
	}
	a := &Assembler{
		budget:   DefaultTokenBudget,
		encoding: enc,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.budget <= 0 {
		return nil, goerr.New("token budget must be positive", goerr.V("budget", a.budget))
	}
	return a, nil
}

// Assemble builds the prompt. History is included verbatim in chronological
// order. If the rendered prompt exceeds the token budget, the oldest
// non-system history entries are dropped until it fits; the system
// instructions and the new user turn are never dropped.
func (a *Assembler) Assemble(in Input) (*Prompt, error) {
	history := make([]*model.Message, 0, len(in.History))
	for _, msg := range in.History {
		if msg.Role == types.RoleSystem {
			continue
		}
		history = append(history, msg)
	}

	for {
		system, err := a.render(in, history)
		if err != nil {
			return nil, err
		}
		if a.countTokens(system)+a.countTokens(in.Question) <= a.budget || len(history) == 0 {
			return &Prompt{System: system, Input: in.Question}, nil
		}
		history = history[1:]
	}
}

// CountTokens reports the token count of text under the assembler's encoding
func (a *Assembler) CountTokens(text string) int {
	return a.countTokens(text)
}

func (a *Assembler) countTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(a.encoding.Encode(text, nil, nil))
}

func (a *Assembler) render(in Input, history []*model.Message) (string, error) {
	contents := make([]string, 0, len(in.Context))
	for _, c := range in.Context {
		contents = append(contents, c.Content)
	}

	data := struct {
		Instructions string
		Context      string
		History      []*model.Message
	}{
		Instructions: in.Instructions,
		Context:      strings.Join(contents, ContextDelimiter),
		History:      history,
	}

	var buf bytes.Buffer
	if err := systemTmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render system prompt")
	}
	return buf.String(), nil
}
