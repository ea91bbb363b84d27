package prompt_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
	"github.com/moneta-lab/moneta/pkg/service/prompt"
)

func TestAssembleBasic(t *testing.T) {
	a, err := prompt.New()
	gt.NoError(t, err).Required()

	out, err := a.Assemble(prompt.Input{
		Instructions: "Prefer conservative estimates.",
		Context: []model.Chunk{
			{Content: "Q3 revenue was $94B."},
			{Content: "Dividend was raised 4%."},
		},
		History: []*model.Message{
			model.NewMessage(types.RoleUser, "How did Q3 go?"),
			model.NewMessage(types.RoleAssistant, "Revenue beat expectations."),
		},
		Question: "And the dividend?",
	})
	gt.NoError(t, err).Required()

	gt.Value(t, out.Input).Equal("And the dividend?")
	gt.Bool(t, strings.Contains(out.System, "Prefer conservative estimates.")).True()
	gt.Bool(t, strings.Contains(out.System, "Q3 revenue was $94B."+prompt.ContextDelimiter+"Dividend was raised 4%.")).True()
	gt.Bool(t, strings.Contains(out.System, "[user] How did Q3 go?")).True()
	gt.Bool(t, strings.Contains(out.System, "[assistant] Revenue beat expectations.")).True()

	// History appears in chronological order
	userPos := strings.Index(out.System, "How did Q3 go?")
	asstPos := strings.Index(out.System, "Revenue beat expectations.")
	gt.Bool(t, userPos < asstPos).True()
}

func TestAssembleFiltersSystemMessages(t *testing.T) {
	a, err := prompt.New()
	gt.NoError(t, err).Required()

	out, err := a.Assemble(prompt.Input{
		History: []*model.Message{
			model.NewMessage(types.RoleSystem, "internal marker that must not leak"),
			model.NewMessage(types.RoleUser, "hello there"),
		},
		Question: "follow up",
	})
	gt.NoError(t, err).Required()

	gt.Bool(t, strings.Contains(out.System, "internal marker")).False()
	gt.Bool(t, strings.Contains(out.System, "hello there")).True()
}

func TestAssembleTruncatesOldestFirst(t *testing.T) {
	// The oldest entry alone is far over budget, while the template plus
	// the rest of the history fits comfortably
	a, err := prompt.New(prompt.WithTokenBudget(400))
	gt.NoError(t, err).Required()

	long := strings.Repeat("portfolio diversification commentary ", 200)
	out, err := a.Assemble(prompt.Input{
		History: []*model.Message{
			model.NewMessage(types.RoleUser, "OLDEST "+long),
			model.NewMessage(types.RoleAssistant, "MIDDLE answer"),
			model.NewMessage(types.RoleUser, "NEWEST question"),
		},
		Question: "What should I do next?",
	})
	gt.NoError(t, err).Required()

	// The oldest entry is dropped first; later entries and the question
	// always survive
	gt.Bool(t, strings.Contains(out.System, "OLDEST")).False()
	gt.Bool(t, strings.Contains(out.System, "MIDDLE answer")).True()
	gt.Bool(t, strings.Contains(out.System, "NEWEST question")).True()
	gt.Value(t, out.Input).Equal("What should I do next?")

	// Under budget after truncation
	gt.Bool(t, a.CountTokens(out.System)+a.CountTokens(out.Input) <= 400).True()
}

func TestAssembleKeepsQuestionWhenHistoryExhausted(t *testing.T) {
	a, err := prompt.New(prompt.WithTokenBudget(1))
	gt.NoError(t, err).Required()

	out, err := a.Assemble(prompt.Input{
		History: []*model.Message{
			model.NewMessage(types.RoleUser, "some history"),
		},
		Question: "still asked",
	})
	gt.NoError(t, err).Required()

	// Even an impossible budget never drops the question itself
	gt.Value(t, out.Input).Equal("still asked")
	gt.Bool(t, strings.Contains(out.System, "some history")).False()
}

func TestAssembleRejectsInvalidBudget(t *testing.T) {
	_, err := prompt.New(prompt.WithTokenBudget(-5))
	gt.Error(t, err)
}
