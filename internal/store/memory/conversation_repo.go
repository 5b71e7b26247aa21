package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatcore/internal/domain"
)

// ConversationRepo is the in-memory conversation backend used for
// development and tests. The byKey map plays the role of the production
// store's unique index on participantsKey.
type ConversationRepo struct {
	mu    sync.Mutex
	byID  map[string]*domain.Conversation
	byKey map[string]string
}

func NewConversationRepo() *ConversationRepo {
	return &ConversationRepo{
		byID:  make(map[string]*domain.Conversation),
		byKey: make(map[string]string),
	}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !c.IsGroup && c.ParticipantsKey != "" {
		if _, exists := r.byKey[c.ParticipantsKey]; exists {
			return domain.ErrConflict
		}
	}

	now := time.Now().UTC()
	c.ID = nextID()
	c.CreatedAt = now
	c.UpdatedAt = now

	stored := cloneConversation(c)
	r.byID[c.ID] = stored
	if !c.IsGroup && c.ParticipantsKey != "" {
		r.byKey[c.ParticipantsKey] = c.ID
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneConversation(c), nil
}

func (r *ConversationRepo) FindDirectByKey(ctx context.Context, participantsKey string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byKey[participantsKey]
	if !ok {
		return nil, nil
	}
	return cloneConversation(r.byID[id]), nil
}

func (r *ConversationRepo) TouchLastMessage(ctx context.Context, conversationID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[conversationID]
	if !ok {
		return domain.ErrNotFound
	}
	c.LastMessageID = messageID
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []*domain.Conversation
	for _, c := range r.byID {
		for _, p := range c.Participants {
			if p == userID {
				res = append(res, cloneConversation(c))
				break
			}
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].UpdatedAt.Equal(res[j].UpdatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].UpdatedAt.After(res[j].UpdatedAt)
	})

	if offset >= len(res) {
		return nil, nil
	}
	res = res[offset:]
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func cloneConversation(c *domain.Conversation) *domain.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	return &cp
}
