package backend

import "context"

// Stream delivers text increments from an in-flight generation call.
// The producer goroutine closes the channel at end-of-stream; Err is
// valid once the channel is closed. After the consumer's context is
// cancelled no further increments are delivered.
type Stream struct {
	increments chan string
	err        error
}

func newStream() *Stream {
	return &Stream{increments: make(chan string, 16)}
}

// Increments returns the channel of text increments. The channel is
// closed on end-of-stream, error or cancellation.
func (s *Stream) Increments() <-chan string { return s.increments }

// Err reports how the stream ended. It must only be called after the
// increments channel is closed: nil means a clean end-of-stream.
func (s *Stream) Err() error { return s.err }

// emit sends one increment unless the context is already cancelled.
// Returns false when the producer should stop.
func (s *Stream) emit(ctx context.Context, inc string) bool {
	select {
	case s.increments <- inc:
		return true
	case <-ctx.Done():
		return false
	}
}

// finish records the terminal error (nil for success) and closes the
// channel. The error write happens before the close, so consumers that
// observe the close may read Err without synchronization.
func (s *Stream) finish(err error) {
	s.err = err
	close(s.increments)
}
