package broadcast

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"teamline/server/internal/directory"
	"teamline/server/internal/models"
)

type publishedEvent struct {
	topic string
	event Envelope
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, event Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, event: event})
	return nil
}

func (p *fakePublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.topic)
	}
	return out
}

func (p *fakePublisher) byTopic(topic string) []Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []Envelope{}
	for _, e := range p.events {
		if e.topic == topic {
			out = append(out, e.event)
		}
	}
	return out
}

type fakeDirectory struct {
	names map[string]directory.DisplayName
}

func (d *fakeDirectory) Lookup(_ context.Context, identifier string) (directory.DisplayName, error) {
	if name, ok := d.names[identifier]; ok {
		return name, nil
	}
	return directory.DisplayName{}, errors.New("not found")
}

func newTestBroadcaster(pub Publisher, dir Directory) *Broadcaster {
	return New(pub, dir, zap.NewNop(), Config{Workers: 2, QueueSize: 64, TaskTimeout: time.Second})
}

func TestDirectMessage_DeliversRoomAndBothNotifyPaths(t *testing.T) {
	pub := &fakePublisher{}
	dir := &fakeDirectory{names: map[string]directory.DisplayName{
		"alice@x.com": {FirstName: "Alice", LastName: "Smith"},
	}}
	b := newTestBroadcaster(pub, dir)
	defer b.Close()

	msg := models.DirectMessage{
		ID:          7,
		RoomID:      "alice@x.com|bob@x.com",
		SenderID:    "alice@x.com",
		RecipientID: "bob@x.com",
		Content:     "hello",
		SentAt:      time.Now(),
	}
	b.DirectMessage(msg)
	b.Wait()

	room := pub.byTopic(RoomTopic(msg.RoomID))
	require.Len(t, room, 1)
	require.Equal(t, EventDirectMessage, room[0].Type)
	require.Equal(t, msg, room[0].Payload.(DirectMessagePayload).Message)

	for _, topic := range NotifyTargets("bob@x.com") {
		events := pub.byTopic(topic)
		require.Len(t, events, 1, "expected one notification on %s", topic)

		n := events[0].Payload.(Notification)
		require.Equal(t, EventNotifyDirect, n.Kind)
		require.Equal(t, int64(7), n.MessageID)
		require.Equal(t, "Alice", n.FirstName)
		require.Equal(t, "Smith", n.LastName)
		require.Equal(t, "hello", n.Preview)
	}

	// The sender gets nothing on their own notification paths.
	for _, topic := range NotifyTargets("alice@x.com") {
		require.Empty(t, pub.byTopic(topic))
	}
}

func TestGroupMessage_NotifiesEveryMemberExceptSender(t *testing.T) {
	pub := &fakePublisher{}
	b := newTestBroadcaster(pub, &fakeDirectory{})
	defer b.Close()

	msg := models.GroupMessage{
		ID:       3,
		GroupID:  "g-1",
		SenderID: "a@x.com",
		Content:  "standup in 5",
		SentAt:   time.Now(),
	}
	members := []models.GroupMember{
		{GroupID: "g-1", MemberID: "a@x.com"},
		{GroupID: "g-1", MemberID: "b@x.com"},
		{GroupID: "g-1", MemberID: "c@x.com"},
	}
	b.GroupMessage(msg, members)
	b.Wait()

	require.Len(t, pub.byTopic(GroupTopic("g-1")), 1)

	for _, member := range []string{"b@x.com", "c@x.com"} {
		for _, topic := range NotifyTargets(member) {
			require.Len(t, pub.byTopic(topic), 1, "member %s should be notified on %s", member, topic)
		}
	}
	for _, topic := range NotifyTargets("a@x.com") {
		require.Empty(t, pub.byTopic(topic), "sender must not be notified")
	}
}

func TestGroupMessage_SenderExclusionIsCaseInsensitive(t *testing.T) {
	pub := &fakePublisher{}
	b := newTestBroadcaster(pub, &fakeDirectory{})
	defer b.Close()

	msg := models.GroupMessage{ID: 1, GroupID: "g-2", SenderID: "a@x.com", SentAt: time.Now()}
	members := []models.GroupMember{
		{GroupID: "g-2", MemberID: "A@X.COM"},
		{GroupID: "g-2", MemberID: "b@x.com"},
	}
	b.GroupMessage(msg, members)
	b.Wait()

	for _, topic := range NotifyTargets("A@X.COM") {
		require.Empty(t, pub.byTopic(topic))
	}
	for _, topic := range NotifyTargets("b@x.com") {
		require.Len(t, pub.byTopic(topic), 1)
	}
}

func TestDirectMessage_LookupFailureStillDelivers(t *testing.T) {
	pub := &fakePublisher{}
	b := newTestBroadcaster(pub, &fakeDirectory{})
	defer b.Close()

	msg := models.DirectMessage{
		ID:          9,
		RoomID:      "a@x.com|b@x.com",
		SenderID:    "a@x.com",
		RecipientID: "b@x.com",
		Content:     "hi",
		SentAt:      time.Now(),
	}
	b.DirectMessage(msg)
	b.Wait()

	events := pub.byTopic(UserNotifyTopic("b@x.com"))
	require.Len(t, events, 1)

	n := events[0].Payload.(Notification)
	require.Empty(t, n.FirstName)
	require.Empty(t, n.LastName)
	require.Equal(t, "hi", n.Preview)
}

func TestPreview_TruncatesLongContent(t *testing.T) {
	long := strings.Repeat("x", 150)
	got := preview(long)
	require.Equal(t, strings.Repeat("x", 100)+"...", got)

	require.Equal(t, "short", preview("short"))
	require.Equal(t, strings.Repeat("y", 100), preview(strings.Repeat("y", 100)))
}

func TestGroupDeleted_NotifiesAllFormerMembers(t *testing.T) {
	pub := &fakePublisher{}
	b := newTestBroadcaster(pub, &fakeDirectory{})
	defer b.Close()

	group := models.Group{GroupID: "g-3", Name: "Ops", CreatedBy: "owner@co.com"}
	b.GroupDeleted(group, []string{"owner@co.com", "m@co.com"})
	b.Wait()

	for _, member := range []string{"owner@co.com", "m@co.com"} {
		events := pub.byTopic(UserNotifyTopic(member))
		require.Len(t, events, 1)
		require.Equal(t, EventGroupDeleted, events[0].Type)
	}

	groupEvents := pub.byTopic(GroupTopic("g-3"))
	require.Len(t, groupEvents, 1)
}

func TestPublishFailure_IsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("transport down")}
	b := newTestBroadcaster(pub, &fakeDirectory{})
	defer b.Close()

	b.DirectMessage(models.DirectMessage{
		ID: 1, RoomID: "a|b", SenderID: "a", RecipientID: "b", SentAt: time.Now(),
	})
	// Wait must return even though every publish failed.
	b.Wait()
	require.Empty(t, pub.topics())
}
