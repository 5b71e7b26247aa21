package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"chatcore/internal/domain"
)

// ChatService owns conversation identity and the message log: find-or-create
// of direct conversations, sends, history, and seen-state.
type ChatService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository

	DefaultPageSize int
}

func NewChatService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	defaultPageSize int,
) *ChatService {
	if defaultPageSize <= 0 {
		defaultPageSize = 50
	}
	return &ChatService{
		conversations:   conversations,
		messages:        messages,
		DefaultPageSize: defaultPageSize,
	}
}

// ParticipantsKey builds the deterministic direct-conversation key: the two
// user ids sorted lexicographically and joined with ":".
func ParticipantsKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// ResolveDirect returns the single direct conversation between the two users,
// creating it when absent. Safe under concurrent calls for the same pair:
// the store's unique constraint on the key lets exactly one create win, and
// the loser retries the lookup.
func (s *ChatService) ResolveDirect(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, fmt.Errorf("%w: both participants required", domain.ErrInvalidArgument)
	}
	key := ParticipantsKey(userA, userB)

	conv, err := s.conversations.FindDirectByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if conv != nil {
		return conv, nil
	}

	conv = &domain.Conversation{
		Participants:    []string{userA, userB},
		ParticipantsKey: key,
	}
	err = s.conversations.Create(ctx, conv)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	// Lost the create race; the winner's document must be there now.
	conv, err = s.conversations.FindDirectByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("find conversation after conflict: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation vanished after duplicate-key conflict for %q", key)
	}
	return conv, nil
}

// CreateGroup creates a group conversation. Groups carry no participants key
// and are exempt from the direct-pair uniqueness constraint.
func (s *ChatService) CreateGroup(ctx context.Context, creatorID, name, avatar string, memberIDs []string) (*domain.Conversation, error) {
	if creatorID == "" {
		return nil, fmt.Errorf("%w: creator required", domain.ErrInvalidArgument)
	}
	participants := []string{creatorID}
	seen := map[string]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: empty member id", domain.ErrInvalidArgument)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, id)
	}
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: a group needs at least two members", domain.ErrInvalidArgument)
	}

	conv := &domain.Conversation{
		Participants: participants,
		IsGroup:      true,
		GroupName:    name,
		GroupAvatar:  avatar,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return conv, nil
}

type SendInput struct {
	SenderID   string
	ReceiverID string
	Text       string
	Media      []domain.Media
	ReplyTo    string
}

// Send resolves the direct conversation for the pair, appends the message
// (seen by its sender from birth), and updates the conversation's
// last-message reference. The append and the touch are two separate writes;
// a crash in between leaves the message durable and the summary stale until
// the next send on the conversation.
func (s *ChatService) Send(ctx context.Context, in SendInput) (*domain.Conversation, *domain.Message, error) {
	if in.SenderID == "" || in.ReceiverID == "" {
		return nil, nil, fmt.Errorf("%w: senderId and receiverId are required", domain.ErrInvalidArgument)
	}
	for _, m := range in.Media {
		switch m.Type {
		case domain.MediaImage, domain.MediaVideo, domain.MediaAudio, domain.MediaFile:
		default:
			return nil, nil, fmt.Errorf("%w: unknown media type %q", domain.ErrInvalidArgument, m.Type)
		}
	}

	conv, err := s.ResolveDirect(ctx, in.SenderID, in.ReceiverID)
	if err != nil {
		return nil, nil, err
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		ReceiverID:     in.ReceiverID,
		Text:           in.Text,
		Media:          in.Media,
		ReplyTo:        in.ReplyTo,
		SeenBy:         []string{in.SenderID},
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, nil, fmt.Errorf("append message: %w", err)
	}

	if err := s.conversations.TouchLastMessage(ctx, conv.ID, msg.ID); err != nil {
		return nil, nil, fmt.Errorf("touch last message: %w", err)
	}
	conv.LastMessageID = msg.ID

	return conv, msg, nil
}

// ListMessages returns conversation history in chronological order. The
// store query runs newest-first so the limit keeps the most recent page; the
// reversal to ascending order is part of the contract, since clients render
// history top to bottom.
func (s *ChatService) ListMessages(ctx context.Context, conversationID string, limit int, before time.Time) ([]*domain.Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversationId required", domain.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = s.DefaultPageSize
	}

	msgs, err := s.messages.ListForConversation(ctx, conversationID, limit, before)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MarkSeen adds the viewer to the seen-by set of every message in the
// conversation they did not send, and returns the id of the newest message
// ("" when the conversation has none).
func (s *ChatService) MarkSeen(ctx context.Context, conversationID, viewerID string) (string, error) {
	if conversationID == "" || viewerID == "" {
		return "", fmt.Errorf("%w: conversationId and userId required", domain.ErrInvalidArgument)
	}
	if err := s.messages.MarkSeen(ctx, conversationID, viewerID); err != nil {
		return "", fmt.Errorf("mark seen: %w", err)
	}
	newest, err := s.messages.NewestInConversation(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("newest message: %w", err)
	}
	if newest == nil {
		return "", nil
	}
	return newest.ID, nil
}
