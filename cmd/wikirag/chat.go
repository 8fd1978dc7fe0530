package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/wiki-rag/internal/backend"
	"github.com/bull/wiki-rag/internal/index"
	"github.com/bull/wiki-rag/internal/prompt"
	"github.com/bull/wiki-rag/internal/retriever"
	"github.com/bull/wiki-rag/internal/session"
)

var chatFlags struct {
	index       string
	provider    string
	model       string
	timeout     time.Duration
	maxTokens   int
	topK        int
	minScore    float64
	keepPartial bool
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat grounded in the indexed corpus",
	Long: `Starts a conversation over a previously built index snapshot.

Each turn retrieves the most relevant passages, assembles a bounded
prompt with the conversation so far, and streams the answer as it is
generated. Type /quit to exit.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatFlags.index, "index", "index.json", "index snapshot path")
	chatCmd.Flags().StringVar(&chatFlags.provider, "backend", "ollama", "generation backend: ollama, openai, llamacpp or stub")
	chatCmd.Flags().StringVar(&chatFlags.model, "model", "", "generation model override")
	chatCmd.Flags().DurationVar(&chatFlags.timeout, "timeout", 60*time.Second, "per-generation timeout")
	chatCmd.Flags().IntVar(&chatFlags.maxTokens, "max-context-tokens", session.DefaultMaxContextTokens, "prompt token budget")
	chatCmd.Flags().IntVar(&chatFlags.topK, "top-k", 0, "passages retrieved per turn (default 5)")
	chatCmd.Flags().Float64Var(&chatFlags.minScore, "min-score", 0, "similarity threshold (default 0.35)")
	chatCmd.Flags().BoolVar(&chatFlags.keepPartial, "keep-partial", false, "keep partial answers from cancelled turns")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	provider, err := newProvider()
	if err != nil {
		return err
	}

	ix, err := index.LoadFile(chatFlags.index, provider.Name(), provider.Dimension())
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	handle := index.NewHandle(ix)
	fmt.Printf("Loaded index: %d chunks, provider %s\n", ix.Len(), ix.Provider())

	r := retriever.New(provider, handle, retriever.Config{
		TopK:     chatFlags.topK,
		MinScore: float32(chatFlags.minScore),
	})

	gen, err := backend.New(backendConfig(chatFlags.provider, chatFlags.model, chatFlags.timeout, chatFlags.maxTokens))
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	sess := session.New(r, prompt.New(""), gen, session.Options{
		KeepPartialOnCancel: chatFlags.keepPartial,
		MaxContextTokens:    chatFlags.maxTokens,
	}, slog.Default())
	defer sess.Close()

	turnDone := make(chan struct{}, 1)
	unsubscribe := sess.Subscribe(func(ev session.Event) {
		switch ev.State {
		case session.StateStreaming:
			fmt.Print(ev.Increment)
		case session.StateCancelled:
			fmt.Println("\n[cancelled]")
		case session.StateFailed:
			fmt.Printf("\n[error: %v]\n", ev.Err)
		case session.StateIdle:
			if ev.Message != nil {
				fmt.Println()
			}
			select {
			case turnDone <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	fmt.Printf("Backend: %s. Ask away (/quit to exit).\n\n", gen.Name())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "/quit" || line == "/exit" {
			break
		}
		if line == "" {
			continue
		}

		if err := sess.Submit(ctx, line); err != nil {
			fmt.Printf("[error: %v]\n", err)
			continue
		}
		<-turnDone
		fmt.Println()
	}
	return scanner.Err()
}
