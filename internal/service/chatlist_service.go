package service

import (
	"context"
	"fmt"
	"sort"

	"chatcore/internal/domain"
)

// ProfileDirectory is the narrow view of the remote user service this core
// needs: one batched display-metadata lookup per chat-list page.
type ProfileDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]domain.Profile, error)
}

// ChatListService assembles per-user conversation summaries from the
// conversation and message stores plus the remote profile directory.
type ChatListService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	profiles      ProfileDirectory

	DefaultPageSize int
}

func NewChatListService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	profiles ProfileDirectory,
	defaultPageSize int,
) *ChatListService {
	if defaultPageSize <= 0 {
		defaultPageSize = 50
	}
	return &ChatListService{
		conversations:   conversations,
		messages:        messages,
		profiles:        profiles,
		DefaultPageSize: defaultPageSize,
	}
}

// ListForUser returns the user's conversations, most recently updated first,
// each with counterpart, unread count, and last message. Display metadata
// for the whole page comes from a single batched profile lookup; if that
// lookup fails the call fails, summaries are never returned unenriched.
func (s *ChatListService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*domain.ChatSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId required", domain.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = s.DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	convs, err := s.conversations.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	summaries := make([]*domain.ChatSummary, 0, len(convs))
	idSet := map[string]struct{}{}
	for _, c := range convs {
		sum := &domain.ChatSummary{
			ConversationID: c.ID,
			Participants:   c.Participants,
			IsGroup:        c.IsGroup,
			GroupName:      c.GroupName,
			GroupAvatar:    c.GroupAvatar,
			UpdatedAt:      c.UpdatedAt,
		}

		// Counterpart resolution is a direct-chat concept; group rows are
		// identified by their name/avatar instead.
		if !c.IsGroup {
			for _, p := range c.Participants {
				if p != userID {
					sum.CounterpartID = p
					break
				}
			}
			if sum.CounterpartID != "" {
				n, err := s.messages.CountUnread(ctx, c.ID, userID, sum.CounterpartID)
				if err != nil {
					return nil, fmt.Errorf("count unread: %w", err)
				}
				sum.UnreadCount = n
			}
		}

		if c.LastMessageID != "" {
			last, err := s.messages.GetByID(ctx, c.LastMessageID)
			if err != nil {
				return nil, fmt.Errorf("get last message: %w", err)
			}
			sum.LastMessage = last
		}

		for _, p := range c.Participants {
			idSet[p] = struct{}{}
		}
		summaries = append(summaries, sum)
	}

	if len(summaries) == 0 {
		return summaries, nil
	}

	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	profiles, err := s.profiles.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	byID := make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	for _, sum := range summaries {
		if p, ok := byID[sum.CounterpartID]; ok {
			cp := p
			sum.Counterpart = &cp
		}
	}
	return summaries, nil
}
