package websocket

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"teamline/server/internal/broadcast"
	"teamline/server/internal/chat"
)

type fakeTransport struct {
	mu           sync.Mutex
	subscribed   []string
	unsubscribed []string
}

func (f *fakeTransport) Subscribe(_ context.Context, channels ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, channels...)
	return nil
}

func (f *fakeTransport) Unsubscribe(_ context.Context, channels ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, channels...)
	return nil
}

type fakeMembership struct {
	members map[string][]string
}

func (f *fakeMembership) IsMember(_ context.Context, groupID, memberID string) (bool, error) {
	for _, m := range f.members[groupID] {
		if m == memberID {
			return true, nil
		}
	}
	return false, nil
}

func newTestHub(membership Membership) (*Hub, *fakeTransport) {
	transport := &fakeTransport{}
	hub := &Hub{
		membership: membership,
		logger:     zap.NewNop(),
		upstream:   transport,
		topics:     make(map[string]map[*Client]struct{}),
		clients:    make(map[*Client]map[string]struct{}),
	}
	return hub, transport
}

func newTestClient(identity string) *Client {
	return &Client{
		Identity: identity,
		logger:   zap.NewNop(),
		send:     make(chan []byte, 8),
	}
}

func TestRegister_AutoSubscribesNotifyTargets(t *testing.T) {
	hub, transport := newTestHub(&fakeMembership{})
	ctx := context.Background()

	client := newTestClient("a@x.com")
	hub.Register(ctx, client)

	require.ElementsMatch(t, broadcast.NotifyTargets("a@x.com"), transport.subscribed)
	require.Equal(t, 1, hub.ConnectedCount())
}

func TestSubscribe_GroupRequiresMembership(t *testing.T) {
	hub, _ := newTestHub(&fakeMembership{
		members: map[string][]string{"g-1": {"member@x.com"}},
	})
	ctx := context.Background()

	member := newTestClient("member@x.com")
	outsider := newTestClient("outsider@x.com")
	hub.Register(ctx, member)
	hub.Register(ctx, outsider)

	require.NoError(t, hub.Subscribe(ctx, member, "group.g-1"))
	require.ErrorIs(t, hub.Subscribe(ctx, outsider, "group.g-1"), chat.ErrNotMember)
}

func TestSubscribe_RoomRequiresParticipation(t *testing.T) {
	hub, _ := newTestHub(&fakeMembership{})
	ctx := context.Background()

	client := newTestClient("a@x.com")
	hub.Register(ctx, client)

	require.NoError(t, hub.Subscribe(ctx, client, "room.a@x.com|b@x.com"))
	require.ErrorIs(t, hub.Subscribe(ctx, client, "room.c@x.com|d@x.com"), ErrNotSubscribable)
}

func TestSubscribe_NotifyChannelOwnership(t *testing.T) {
	hub, _ := newTestHub(&fakeMembership{})
	ctx := context.Background()

	client := newTestClient("a@x.com")
	hub.Register(ctx, client)

	require.ErrorIs(t, hub.Subscribe(ctx, client, "user.b@x.com.notify"), ErrNotSubscribable)

	// The fallback path and the shared group feed stay open.
	require.NoError(t, hub.Subscribe(ctx, client, "notify.b@x.com"))
	require.NoError(t, hub.Subscribe(ctx, client, broadcast.TopicGroupNotifications))

	require.ErrorIs(t, hub.Subscribe(ctx, client, "bogus-topic"), ErrNotSubscribable)
}

func TestTransportMirrorsUnionOfSubscriptions(t *testing.T) {
	hub, transport := newTestHub(&fakeMembership{
		members: map[string][]string{"g-1": {"a@x.com", "b@x.com"}},
	})
	ctx := context.Background()

	a := newTestClient("a@x.com")
	b := newTestClient("b@x.com")
	hub.Register(ctx, a)
	hub.Register(ctx, b)

	require.NoError(t, hub.Subscribe(ctx, a, "group.g-1"))
	require.NoError(t, hub.Subscribe(ctx, b, "group.g-1"))

	// Only the first local subscriber reaches the transport.
	count := 0
	for _, topic := range transport.subscribed {
		if topic == "group.g-1" {
			count++
		}
	}
	require.Equal(t, 1, count)

	// The transport subscription survives until the last local listener leaves.
	hub.Unsubscribe(ctx, a, "group.g-1")
	require.NotContains(t, transport.unsubscribed, "group.g-1")

	hub.Unsubscribe(ctx, b, "group.g-1")
	require.Contains(t, transport.unsubscribed, "group.g-1")
}

func TestDeliver_FansOutToSubscribersOnly(t *testing.T) {
	hub, _ := newTestHub(&fakeMembership{
		members: map[string][]string{"g-1": {"a@x.com"}},
	})
	ctx := context.Background()

	subscriber := newTestClient("a@x.com")
	bystander := newTestClient("b@x.com")
	hub.Register(ctx, subscriber)
	hub.Register(ctx, bystander)
	require.NoError(t, hub.Subscribe(ctx, subscriber, "group.g-1"))

	hub.deliver("group.g-1", []byte(`{"type":"GROUP_MESSAGE"}`))

	require.Len(t, subscriber.send, 1)
	require.Empty(t, bystander.send)
}

func TestUnregister_CleansUpTransport(t *testing.T) {
	hub, transport := newTestHub(&fakeMembership{
		members: map[string][]string{"g-1": {"a@x.com"}},
	})
	ctx := context.Background()

	client := newTestClient("a@x.com")
	hub.Register(ctx, client)
	require.NoError(t, hub.Subscribe(ctx, client, "group.g-1"))

	hub.Unregister(ctx, client)

	require.Equal(t, 0, hub.ConnectedCount())
	require.Contains(t, transport.unsubscribed, "group.g-1")
	for _, topic := range broadcast.NotifyTargets("a@x.com") {
		require.Contains(t, transport.unsubscribed, topic)
	}

	// The send channel is closed so the write pump exits.
	_, open := <-client.send
	require.False(t, open)
}
