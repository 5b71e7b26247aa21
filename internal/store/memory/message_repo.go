package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatcore/internal/domain"
)

// MessageRepo is the in-memory message backend.
type MessageRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.Message
	byConv map[string][]*domain.Message
	lastTS time.Time
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{
		byID:   make(map[string]*domain.Message),
		byConv: make(map[string][]*domain.Message),
	}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Timestamps must strictly increase so that createdAt ordering agrees
	// with id allocation order even within one clock tick.
	now := time.Now().UTC()
	if !now.After(r.lastTS) {
		now = r.lastTS.Add(time.Nanosecond)
	}
	r.lastTS = now

	m.ID = nextID()
	m.CreatedAt = now

	stored := cloneMessage(m)
	r.byID[m.ID] = stored
	r.byConv[m.ConversationID] = append(r.byConv[m.ConversationID], stored)
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneMessage(m), nil
}

func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string, limit int, before time.Time) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []*domain.Message
	for _, m := range r.byConv[conversationID] {
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		res = append(res, cloneMessage(m))
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (r *MessageRepo) MarkSeen(ctx context.Context, conversationID, viewerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.byConv[conversationID] {
		if m.SenderID == viewerID {
			continue
		}
		if !contains(m.SeenBy, viewerID) {
			m.SeenBy = append(m.SeenBy, viewerID)
		}
	}
	return nil
}

func (r *MessageRepo) NewestInConversation(ctx context.Context, conversationID string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.byConv[conversationID]
	if len(msgs) == 0 {
		return nil, nil
	}
	newest := msgs[0]
	for _, m := range msgs[1:] {
		if m.CreatedAt.After(newest.CreatedAt) {
			newest = m
		}
	}
	return cloneMessage(newest), nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, conversationID, viewerID, counterpartID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, m := range r.byConv[conversationID] {
		if m.SenderID == counterpartID && !contains(m.SeenBy, viewerID) {
			n++
		}
	}
	return n, nil
}

func cloneMessage(m *domain.Message) *domain.Message {
	cp := *m
	cp.Media = append([]domain.Media(nil), m.Media...)
	cp.SeenBy = append([]string(nil), m.SeenBy...)
	return &cp
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
