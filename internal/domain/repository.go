package domain

import (
	"context"
	"time"
)

// ConversationRepository defines persistence operations for conversations.
// Lookups return (nil, nil) when no document matches.
type ConversationRepository interface {
	// Create persists a new conversation and assigns its ID and timestamps.
	// Returns ErrConflict when a direct conversation with the same
	// ParticipantsKey already exists.
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id string) (*Conversation, error)
	FindDirectByKey(ctx context.Context, participantsKey string) (*Conversation, error)
	// TouchLastMessage sets the conversation's last-message reference and
	// bumps UpdatedAt.
	TouchLastMessage(ctx context.Context, conversationID, messageID string) error
	// ListForUser returns conversations the user participates in, sorted by
	// UpdatedAt descending, paginated by offset/limit.
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]*Conversation, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Create persists a new message and assigns its ID and CreatedAt.
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	// ListForConversation returns up to limit messages created before the
	// given time (all messages when before is zero), newest first.
	ListForConversation(ctx context.Context, conversationID string, limit int, before time.Time) ([]*Message, error)
	// MarkSeen adds viewerID to the seen-by set of every message in the
	// conversation not sent by viewerID. Re-marking is a no-op.
	MarkSeen(ctx context.Context, conversationID, viewerID string) error
	// NewestInConversation returns the most recent message, or (nil, nil)
	// when the conversation has none.
	NewestInConversation(ctx context.Context, conversationID string) (*Message, error)
	// CountUnread counts messages sent by counterpartID that viewerID has
	// not seen.
	CountUnread(ctx context.Context, conversationID, viewerID, counterpartID string) (int64, error)
}
