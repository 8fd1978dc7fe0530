// Package session coordinates retrieval, prompt assembly and streaming
// generation for one conversation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bull/wiki-rag/internal/backend"
	"github.com/bull/wiki-rag/internal/chat"
	"github.com/bull/wiki-rag/internal/prompt"
	"github.com/bull/wiki-rag/internal/retriever"
)

// State is the session's position in a turn's lifecycle.
type State int

const (
	StateIdle State = iota
	StateRetrieving
	StateAssembling
	StateGenerating
	StateStreaming
	StateCancelled
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRetrieving:
		return "retrieving"
	case StateAssembling:
		return "assembling"
	case StateGenerating:
		return "generating"
	case StateStreaming:
		return "streaming"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers on every state transition and on
// every streamed text increment.
type Event struct {
	State     State
	Increment string        // Set while streaming
	Err       error         // Set when State is StateFailed
	Message   *chat.Message // Completed assistant message, on success
}

// Listener receives session events. Listeners are called from the turn
// goroutine and should return quickly.
type Listener func(Event)

// Options tunes session behavior.
type Options struct {
	// KeepPartialOnCancel records a cancelled turn's partial output in
	// the conversation instead of discarding it.
	KeepPartialOnCancel bool

	// MaxContextTokens is the prompt budget for assembly.
	MaxContextTokens int
}

// DefaultMaxContextTokens bounds the prompt when no budget is
// configured.
const DefaultMaxContextTokens = 4096

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("session closed")

// Session owns one conversation and drives the
// retrieve → assemble → generate → stream cycle for each user turn. At
// most one generation is in flight; submitting during a turn cancels
// it first. The session is reusable across turns until Close.
type Session struct {
	retriever *retriever.Retriever
	assembler *prompt.Assembler
	backend   backend.Backend
	opts      Options
	logger    *slog.Logger

	// submitMu serializes Submit and Close end-to-end, so cancelling the
	// previous turn, waiting for it and registering the next one is one
	// atomic step even under concurrent callers.
	submitMu sync.Mutex

	mu         sync.Mutex
	state      State
	conv       chat.Conversation
	listeners  map[int]Listener
	nextListen int
	turnCancel context.CancelFunc
	turnDone   chan struct{}
	closed     bool
}

// New creates an idle session. The backend is wrapped so overloaded
// calls are retried with backoff before failing the turn.
func New(r *retriever.Retriever, a *prompt.Assembler, b backend.Backend, opts Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxContextTokens <= 0 {
		opts.MaxContextTokens = DefaultMaxContextTokens
	}
	return &Session{
		retriever: r,
		assembler: a,
		backend:   backend.WithRetry(b),
		opts:      opts,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListen
	s.nextListen++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// History returns a read-only snapshot of the conversation.
func (s *Session) History() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Messages()
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit starts a new turn for the given user text. If a turn is in
// flight it is cancelled first and Submit waits for it to wind down, so
// no two generations for this session ever run concurrently. The new
// turn itself runs asynchronously; progress is reported to subscribers.
func (s *Session) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty user input")
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	cancel, done := s.turnCancel, s.turnDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	turnCtx, turnCancel := context.WithCancel(ctx)
	turnDone := make(chan struct{})
	s.turnCancel, s.turnDone = turnCancel, turnDone
	s.mu.Unlock()

	go s.runTurn(turnCtx, text, turnDone)
	return nil
}

// Cancel aborts the in-flight turn, if any. Cancelling an idle session
// is a no-op, so callers never need to track whether a turn is active.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.turnCancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close cancels any in-flight turn and releases the backend.
func (s *Session) Close() error {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, done := s.turnCancel, s.turnDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return s.backend.Close()
}

// runTurn drives one user turn through the state machine.
func (s *Session) runTurn(ctx context.Context, text string, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		cancel := s.turnCancel
		s.turnCancel, s.turnDone = nil, nil
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		close(done)
	}()

	current := chat.NewMessage(chat.RoleUser, text)

	s.setState(StateRetrieving, Event{State: StateRetrieving})
	results, err := s.retriever.Retrieve(ctx, text)
	if err != nil {
		s.finishTurn(ctx, err, current, nil, "")
		return
	}
	if len(results) == 0 {
		s.logger.Debug("no context cleared the score threshold", "query", text)
	}

	s.setState(StateAssembling, Event{State: StateAssembling})
	history := s.History()
	promptText, err := s.assembler.Assemble(history, current, results, s.opts.MaxContextTokens)
	if err != nil {
		s.finishTurn(ctx, err, current, nil, "")
		return
	}

	s.setState(StateGenerating, Event{State: StateGenerating})
	stream, err := s.backend.Generate(ctx, promptText)
	if err != nil {
		s.finishTurn(ctx, err, current, results, "")
		return
	}

	var partial strings.Builder
	streaming := false
	for inc := range stream.Increments() {
		if !streaming {
			streaming = true
			s.setState(StateStreaming, Event{State: StateStreaming})
		}
		partial.WriteString(inc)
		s.notify(Event{State: StateStreaming, Increment: inc})
	}

	s.finishTurn(ctx, stream.Err(), current, results, partial.String())
}

// finishTurn routes a turn's outcome: success appends both messages,
// cancellation optionally keeps the partial answer, failure leaves the
// conversation untouched.
func (s *Session) finishTurn(ctx context.Context, err error, current chat.Message, results []retriever.Result, partial string) {
	// A clean end of stream is a success even if a cancel landed just
	// after; the answer is already complete. Only a failed turn consults
	// the context to tell cancellation from a genuine error.
	cancelled := err != nil &&
		(errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled))

	switch {
	case err == nil:
		assistant := chat.NewMessage(chat.RoleAssistant, partial)
		assistant.ContextIDs = contextIDs(results)

		s.mu.Lock()
		s.conv.Append(current, assistant)
		s.state = StateIdle
		s.mu.Unlock()
		s.notify(Event{State: StateIdle, Message: &assistant})

	case cancelled:
		s.setState(StateCancelled, Event{State: StateCancelled})
		if s.opts.KeepPartialOnCancel && partial != "" {
			assistant := chat.NewMessage(chat.RoleAssistant, partial)
			assistant.ContextIDs = contextIDs(results)
			s.mu.Lock()
			s.conv.Append(current, assistant)
			s.mu.Unlock()
		}
		s.setState(StateIdle, Event{State: StateIdle})

	default:
		s.logger.Warn("turn failed", "error", err)
		s.setState(StateFailed, Event{State: StateFailed, Err: err})
		s.setState(StateIdle, Event{State: StateIdle})
	}
}

// contextIDs extracts the cited chunk IDs; always non-nil so an
// ungrounded answer is recorded as explicitly citing nothing.
func contextIDs(results []retriever.Result) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Record.ChunkID)
	}
	return ids
}

func (s *Session) setState(state State, ev Event) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.notify(ev)
}

// notify fans an event out to subscribers outside the lock, so a
// listener may call History or Cancel without deadlocking.
func (s *Session) notify(ev Event) {
	s.mu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
