// Package prompt merges conversation history and retrieved context into
// a bounded prompt.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bull/wiki-rag/internal/chat"
	"github.com/bull/wiki-rag/internal/retriever"
)

// ErrPromptTooLarge means the current user turn plus the system
// instructions alone exceed the context budget. There is nothing left
// to truncate, so the caller has to shorten the input.
var ErrPromptTooLarge = errors.New("prompt exceeds context budget")

// DefaultSystem instructs the model to stay grounded in the supplied
// passages.
const DefaultSystem = `You are a helpful assistant answering questions about a fixed text corpus.
Base your answers on the context passages below when they are relevant, and cite the source titles you used.
If the passages do not cover the question, say so before answering from general knowledge.`

// Assembler builds prompts under a token budget.
type Assembler struct {
	system string
}

// New creates an assembler. An empty system string uses DefaultSystem.
func New(system string) *Assembler {
	if system == "" {
		system = DefaultSystem
	}
	return &Assembler{system: system}
}

// System returns the system instructions in use.
func (a *Assembler) System() string { return a.system }

// Assemble produces the prompt for one turn. Layout, fixed for
// determinism: system instructions, retrieved passages (most relevant
// first, tagged with their source), history oldest to newest, and the
// current user turn last.
//
// When the budget is exceeded, content is dropped in priority order:
// lowest-scored passages first, then oldest non-pinned history
// messages. The system instructions and the current turn are never
// dropped; if they alone exceed the budget the assembly fails with
// ErrPromptTooLarge.
func (a *Assembler) Assemble(history []chat.Message, current chat.Message, chunks []retriever.Result, maxContextTokens int) (string, error) {
	if maxContextTokens <= 0 {
		return "", fmt.Errorf("%w: budget is %d tokens", ErrPromptTooLarge, maxContextTokens)
	}

	mandatory := EstimateTokens(a.system) + EstimateTokens(renderTurn(current)) + promptFramingTokens
	if mandatory > maxContextTokens {
		return "", fmt.Errorf("%w: user turn and instructions need %d tokens, budget is %d",
			ErrPromptTooLarge, mandatory, maxContextTokens)
	}
	budget := maxContextTokens - mandatory

	// Passages are already ordered best-first; keep a prefix that fits.
	kept := chunks
	for len(kept) > 0 {
		if passagesTokens(kept) <= budget {
			break
		}
		kept = kept[:len(kept)-1]
	}
	budget -= passagesTokens(kept)

	// History: drop oldest non-pinned messages until the rest fits.
	keptHistory := append([]chat.Message(nil), history...)
	for historyTokens(keptHistory) > budget {
		dropped := false
		for i, msg := range keptHistory {
			if !msg.Pinned {
				keptHistory = append(keptHistory[:i], keptHistory[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			// Everything left is pinned; pinned history outranks passages.
			if len(kept) > 0 {
				budget += passagesTokens(kept)
				kept = kept[:len(kept)-1]
				budget -= passagesTokens(kept)
				continue
			}
			keptHistory = nil
			break
		}
	}

	return render(a.system, kept, keptHistory, current), nil
}

// promptFramingTokens covers the section markers around the variable parts.
const promptFramingTokens = 16

func render(system string, chunks []retriever.Result, history []chat.Message, current chat.Message) string {
	var b strings.Builder

	b.WriteString(system)
	b.WriteString("\n")

	if len(chunks) > 0 {
		b.WriteString("\nContext passages:\n")
		for _, c := range chunks {
			b.WriteString("\n")
			b.WriteString(renderPassage(c))
			b.WriteString("\n")
		}
	} else {
		b.WriteString("\nNo context passages were found for this question.\n")
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, msg := range history {
			b.WriteString(renderTurn(msg))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(renderTurn(current))
	b.WriteString("\nassistant:")

	return b.String()
}

// renderPassage tags a chunk with its provenance so the model can cite it.
func renderPassage(c retriever.Result) string {
	source := c.Record.DocTitle
	if c.Record.Section != "" {
		source += " — " + c.Record.Section
	}
	return fmt.Sprintf("[Source: %s]\n%s", source, strings.TrimSpace(c.Record.Text))
}

func renderTurn(msg chat.Message) string {
	return fmt.Sprintf("%s: %s", msg.Role, msg.Content)
}

func passagesTokens(chunks []retriever.Result) int {
	total := 0
	for _, c := range chunks {
		total += EstimateTokens(renderPassage(c)) + 2
	}
	return total
}

func historyTokens(history []chat.Message) int {
	total := 0
	for _, msg := range history {
		total += EstimateTokens(renderTurn(msg)) + 1
	}
	return total
}

// EstimateTokens approximates the token count of a string. One token is
// roughly four characters of English text; the estimate errs high by
// rounding up so budgets are not overshot.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}
