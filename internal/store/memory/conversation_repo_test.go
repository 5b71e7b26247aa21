package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcore/internal/domain"
)

func TestConversationCreateEnforcesUniqueKey(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepo()

	first := &domain.Conversation{
		Participants:    []string{"alice", "bob"},
		ParticipantsKey: "alice:bob",
	}
	require.NoError(t, repo.Create(ctx, first))
	require.NotEmpty(t, first.ID)

	dup := &domain.Conversation{
		Participants:    []string{"alice", "bob"},
		ParticipantsKey: "alice:bob",
	}
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrConflict)

	found, err := repo.FindDirectByKey(ctx, "alice:bob")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
}

func TestConversationGroupsExemptFromKey(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepo()

	g1 := &domain.Conversation{Participants: []string{"alice", "bob", "carol"}, IsGroup: true}
	g2 := &domain.Conversation{Participants: []string{"alice", "bob", "carol"}, IsGroup: true}
	require.NoError(t, repo.Create(ctx, g1))
	require.NoError(t, repo.Create(ctx, g2))
	assert.NotEqual(t, g1.ID, g2.ID)
}

func TestConversationLookupsReturnNilWhenAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepo()

	c, err := repo.GetByID(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = repo.FindDirectByKey(ctx, "x:y")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestConversationTouchLastMessage(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepo()

	c := &domain.Conversation{Participants: []string{"alice", "bob"}, ParticipantsKey: "alice:bob"}
	require.NoError(t, repo.Create(ctx, c))

	require.NoError(t, repo.TouchLastMessage(ctx, c.ID, "m-1"))
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.LastMessageID)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	assert.ErrorIs(t, repo.TouchLastMessage(ctx, "missing", "m-1"), domain.ErrNotFound)
}

func TestConversationCloneIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepo()

	c := &domain.Conversation{Participants: []string{"alice", "bob"}, ParticipantsKey: "alice:bob"}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	got.Participants[0] = "mallory"

	again, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, again.Participants)
}
