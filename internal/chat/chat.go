// Package chat holds the conversation model shared by the prompt
// assembler and the session state machine.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn. Messages are immutable after
// creation. ContextIDs lists the chunk IDs an assistant answer was
// grounded in; an empty list on an assistant message means retrieval
// found nothing and the answer is ungrounded.
type Message struct {
	ID         string
	Role       Role
	Content    string
	ContextIDs []string
	Pinned     bool // Pinned messages survive history truncation
	CreatedAt  time.Time
}

// NewMessage creates a message with a fresh ID and timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Conversation is an append-only ordered sequence of messages, owned
// exclusively by one session. The owner serializes access; Conversation
// itself does no locking.
type Conversation struct {
	messages []Message
}

// Append adds messages to the end of the conversation.
func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the conversation, oldest first.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }
