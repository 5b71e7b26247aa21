package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcore/internal/domain"
	"chatcore/internal/profile"
	"chatcore/internal/service"
	"chatcore/internal/store/memory"
)

// fakeUserService answers batched profile lookups and records what it was
// asked for.
type fakeUserService struct {
	mu       sync.Mutex
	requests int
	lastIDs  []string
	fail     bool
}

func (f *fakeUserService) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests++

		if f.fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}

		var req struct {
			UserIDs []string `json:"userIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.lastIDs = req.UserIDs

		users := make([]domain.Profile, 0, len(req.UserIDs))
		for _, id := range req.UserIDs {
			users = append(users, domain.Profile{ID: id, Username: "user-" + id})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"users": users})
	}
}

func newChatListFixture(t *testing.T) (*service.ChatService, *service.ChatListService, *fakeUserService, func()) {
	t.Helper()

	convs := memory.NewConversationRepo()
	msgs := memory.NewMessageRepo()
	chatSvc := service.NewChatService(convs, msgs, 50)

	fake := &fakeUserService{}
	srv := httptest.NewServer(fake.handler())
	listSvc := service.NewChatListService(convs, msgs, profile.NewClient(srv.URL), 50)

	return chatSvc, listSvc, fake, srv.Close
}

func TestChatListForUser(t *testing.T) {
	ctx := context.Background()
	chatSvc, listSvc, fake, closeSrv := newChatListFixture(t)
	defer closeSrv()

	_, msg, err := chatSvc.Send(ctx, service.SendInput{SenderID: "alice", ReceiverID: "bob", Text: "hi bob"})
	require.NoError(t, err)

	summaries, err := listSvc.ListForUser(ctx, "bob", 0, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	sum := summaries[0]
	assert.Equal(t, msg.ConversationID, sum.ConversationID)
	assert.Equal(t, "alice", sum.CounterpartID)
	require.NotNil(t, sum.Counterpart)
	assert.Equal(t, "user-alice", sum.Counterpart.Username)
	require.NotNil(t, sum.LastMessage)
	assert.Equal(t, "hi bob", sum.LastMessage.Text)
	assert.EqualValues(t, 1, sum.UnreadCount)

	_, err = chatSvc.MarkSeen(ctx, msg.ConversationID, "bob")
	require.NoError(t, err)

	summaries, err = listSvc.ListForUser(ctx, "bob", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, summaries[0].UnreadCount)

	assert.Equal(t, 2, fake.requests, "one profile lookup per page")
}

func TestChatListBatchedProfileLookup(t *testing.T) {
	ctx := context.Background()
	chatSvc, listSvc, fake, closeSrv := newChatListFixture(t)
	defer closeSrv()

	_, _, err := chatSvc.Send(ctx, service.SendInput{SenderID: "alice", ReceiverID: "bob", Text: "x"})
	require.NoError(t, err)
	_, _, err = chatSvc.Send(ctx, service.SendInput{SenderID: "carol", ReceiverID: "bob", Text: "y"})
	require.NoError(t, err)

	summaries, err := listSvc.ListForUser(ctx, "bob", 0, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Most recently updated conversation first.
	assert.Equal(t, "carol", summaries[0].CounterpartID)
	assert.Equal(t, "alice", summaries[1].CounterpartID)

	assert.Equal(t, 1, fake.requests, "profiles for the whole page come from one call")
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, fake.lastIDs)
}

func TestChatListUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	chatSvc, listSvc, fake, closeSrv := newChatListFixture(t)
	defer closeSrv()

	_, _, err := chatSvc.Send(ctx, service.SendInput{SenderID: "alice", ReceiverID: "bob", Text: "x"})
	require.NoError(t, err)

	fake.fail = true
	summaries, err := listSvc.ListForUser(ctx, "bob", 0, 0)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Nil(t, summaries, "summaries are never returned without profile enrichment")
}

func TestChatListPaginationAndValidation(t *testing.T) {
	ctx := context.Background()
	chatSvc, listSvc, _, closeSrv := newChatListFixture(t)
	defer closeSrv()

	for _, peer := range []string{"bob", "carol", "dave"} {
		_, _, err := chatSvc.Send(ctx, service.SendInput{SenderID: "alice", ReceiverID: peer, Text: "hey"})
		require.NoError(t, err)
	}

	page, err := listSvc.ListForUser(ctx, "alice", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = listSvc.ListForUser(ctx, "alice", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	_, err = listSvc.ListForUser(ctx, "", 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	empty, err := listSvc.ListForUser(ctx, "nobody", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
