package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/wiki-rag/internal/chat"
	"github.com/bull/wiki-rag/internal/index"
	"github.com/bull/wiki-rag/internal/retriever"
)

func passage(title, text string, score float32) retriever.Result {
	return retriever.Result{
		Record: index.Record{ChunkID: title + "#0", DocID: title, DocTitle: title, Text: text},
		Score:  score,
	}
}

func TestAssembleLayout(t *testing.T) {
	a := New("System instructions.")
	history := []chat.Message{
		chat.NewMessage(chat.RoleUser, "Do cats purr?"),
		chat.NewMessage(chat.RoleAssistant, "Yes, cats purr."),
	}
	current := chat.NewMessage(chat.RoleUser, "How fast can a cat run?")
	chunks := []retriever.Result{
		passage("Cat", "Cats can run up to 48 km/h.", 0.9),
		passage("Cheetah", "Cheetahs are faster than cats.", 0.5),
	}

	out, err := a.Assemble(history, current, chunks, 4096)
	require.NoError(t, err)

	// Fixed section order: system, passages, history, current turn.
	sysIdx := strings.Index(out, "System instructions.")
	ctxIdx := strings.Index(out, "Context passages:")
	catIdx := strings.Index(out, "[Source: Cat]")
	cheetahIdx := strings.Index(out, "[Source: Cheetah]")
	histIdx := strings.Index(out, "Conversation so far:")
	curIdx := strings.Index(out, "user: How fast can a cat run?")

	for name, idx := range map[string]int{
		"system": sysIdx, "context": ctxIdx, "cat": catIdx,
		"cheetah": cheetahIdx, "history": histIdx, "current": curIdx,
	} {
		require.GreaterOrEqual(t, idx, 0, "missing section %s", name)
	}

	assert.Less(t, sysIdx, ctxIdx)
	assert.Less(t, ctxIdx, catIdx)
	assert.Less(t, catIdx, cheetahIdx) // best-scored passage first
	assert.Less(t, cheetahIdx, histIdx)
	assert.Less(t, histIdx, curIdx)
	assert.True(t, strings.HasSuffix(out, "assistant:"))
}

func TestAssembleSectionTag(t *testing.T) {
	a := New("Sys.")
	chunks := []retriever.Result{{
		Record: index.Record{ChunkID: "go#1", DocTitle: "Go", Section: "Go > History", Text: "Designed in 2007."},
		Score:  0.8,
	}}

	out, err := a.Assemble(nil, chat.NewMessage(chat.RoleUser, "When?"), chunks, 4096)
	require.NoError(t, err)
	assert.Contains(t, out, "[Source: Go — Go > History]")
}

func TestAssembleNoPassages(t *testing.T) {
	a := New("Sys.")
	out, err := a.Assemble(nil, chat.NewMessage(chat.RoleUser, "Anything?"), nil, 4096)
	require.NoError(t, err)
	assert.Contains(t, out, "No context passages were found")
	assert.NotContains(t, out, "Context passages:")
}

func TestAssembleDropsPassagesBeforeHistory(t *testing.T) {
	a := New("Sys.")
	history := []chat.Message{
		chat.NewMessage(chat.RoleUser, "Earlier question about cats."),
		chat.NewMessage(chat.RoleAssistant, "Earlier answer about cats."),
	}
	current := chat.NewMessage(chat.RoleUser, "Next?")
	chunks := []retriever.Result{
		passage("A", strings.Repeat("alpha ", 40), 0.9),
		passage("B", strings.Repeat("beta ", 40), 0.5),
	}

	// Budget fits one passage and the history, not both passages.
	full := EstimateTokens(a.System()) + EstimateTokens("user: Next?") + promptFramingTokens +
		passagesTokens(chunks[:1]) + historyTokens(history)

	out, err := a.Assemble(history, current, chunks, full)
	require.NoError(t, err)

	// The lowest-scored passage goes first; history survives.
	assert.Contains(t, out, "[Source: A]")
	assert.NotContains(t, out, "[Source: B]")
	assert.Contains(t, out, "Earlier question about cats.")
}

func TestAssembleDropsOldestHistoryFirst(t *testing.T) {
	a := New("Sys.")
	history := []chat.Message{
		chat.NewMessage(chat.RoleUser, strings.Repeat("old ", 50)),
		chat.NewMessage(chat.RoleAssistant, "Recent answer."),
	}
	current := chat.NewMessage(chat.RoleUser, "Next?")

	budget := EstimateTokens(a.System()) + EstimateTokens("user: Next?") + promptFramingTokens +
		historyTokens(history[1:])

	out, err := a.Assemble(history, current, nil, budget)
	require.NoError(t, err)

	assert.NotContains(t, out, "old old")
	assert.Contains(t, out, "Recent answer.")
}

func TestAssemblePinnedHistorySurvives(t *testing.T) {
	a := New("Sys.")
	pinned := chat.NewMessage(chat.RoleUser, "Pinned instruction to remember.")
	pinned.Pinned = true
	history := []chat.Message{
		pinned,
		chat.NewMessage(chat.RoleAssistant, strings.Repeat("filler ", 60)),
	}
	current := chat.NewMessage(chat.RoleUser, "Next?")

	budget := EstimateTokens(a.System()) + EstimateTokens("user: Next?") + promptFramingTokens +
		historyTokens(history[:1])

	out, err := a.Assemble(history, current, nil, budget)
	require.NoError(t, err)

	assert.Contains(t, out, "Pinned instruction to remember.")
	assert.NotContains(t, out, "filler filler")
}

func TestAssemblePinnedOutranksPassages(t *testing.T) {
	a := New("Sys.")
	pinned := chat.NewMessage(chat.RoleUser, strings.Repeat("pinned ", 30))
	pinned.Pinned = true
	history := []chat.Message{pinned}
	current := chat.NewMessage(chat.RoleUser, "Next?")
	chunks := []retriever.Result{passage("A", strings.Repeat("alpha ", 30), 0.9)}

	// Room for the pinned message or the passage, not both.
	budget := EstimateTokens(a.System()) + EstimateTokens("user: Next?") + promptFramingTokens +
		historyTokens(history)

	out, err := a.Assemble(history, current, chunks, budget)
	require.NoError(t, err)

	assert.Contains(t, out, "pinned pinned")
	assert.NotContains(t, out, "[Source: A]")
}

func TestAssembleCurrentTurnNeverDropped(t *testing.T) {
	a := New("Sys.")
	current := chat.NewMessage(chat.RoleUser, "Essential question?")

	minimum := EstimateTokens(a.System()) + EstimateTokens(renderTurn(current)) + promptFramingTokens
	out, err := a.Assemble(
		[]chat.Message{chat.NewMessage(chat.RoleUser, "history")},
		current,
		[]retriever.Result{passage("A", "text", 0.9)},
		minimum,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Essential question?")
}

func TestAssemblePromptTooLarge(t *testing.T) {
	a := New("Sys.")
	current := chat.NewMessage(chat.RoleUser, strings.Repeat("long question ", 100))

	_, err := a.Assemble(nil, current, nil, 20)
	assert.ErrorIs(t, err, ErrPromptTooLarge)

	_, err = a.Assemble(nil, current, nil, 0)
	assert.ErrorIs(t, err, ErrPromptTooLarge)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}
