package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"teamline/server/internal/models"
	"teamline/server/internal/store"
	"teamline/server/internal/store/memory"
)

type recordingDirectBroadcaster struct {
	mu       sync.Mutex
	sent     []models.DirectMessage
	deleted  []models.DirectMessage
	deleters []string
}

func (r *recordingDirectBroadcaster) DirectMessage(msg models.DirectMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
}

func (r *recordingDirectBroadcaster) DirectMessageDeleted(msg models.DirectMessage, deletedBy string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, msg)
	r.deleters = append(r.deleters, deletedBy)
}

func newDirectFixture(t *testing.T) (*DirectService, *recordingDirectBroadcaster) {
	t.Helper()
	bcast := &recordingDirectBroadcaster{}
	svc := NewDirectService(memory.NewDirectMessageStore(), bcast, zap.NewNop())
	return svc, bcast
}

func TestDirectSend_SharedRoomRegardlessOfDirection(t *testing.T) {
	svc, bcast := newDirectFixture(t)
	ctx := context.Background()

	first, err := svc.Send(ctx, SendDirectInput{
		SenderID: "Alice@X.com", RecipientID: "bob@x.com", Content: "hi bob",
	})
	require.NoError(t, err)

	second, err := svc.Send(ctx, SendDirectInput{
		SenderID: "BOB@x.com", RecipientID: "alice@x.com", Content: "hi alice",
	})
	require.NoError(t, err)

	require.Equal(t, "alice@x.com|bob@x.com", first.RoomID)
	require.Equal(t, first.RoomID, second.RoomID)
	require.Equal(t, "alice@x.com", first.SenderID)

	// Both participants see the identical conversation, in either query order.
	fromAlice, err := svc.History(ctx, "alice@x.com", "Bob@X.com")
	require.NoError(t, err)
	fromBob, err := svc.History(ctx, "bob@x.com", "alice@x.com")
	require.NoError(t, err)

	require.Equal(t, fromAlice, fromBob)
	require.Len(t, fromAlice, 2)
	require.Equal(t, "hi bob", fromAlice[0].Content)
	require.Equal(t, "hi alice", fromAlice[1].Content)

	require.Len(t, bcast.sent, 2)
	require.Equal(t, *first, bcast.sent[0])
}

func TestDirectSend_ValidatesParticipants(t *testing.T) {
	svc, bcast := newDirectFixture(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, SendDirectInput{SenderID: "  ", RecipientID: "b@x.com"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Send(ctx, SendDirectInput{SenderID: "a@x.com", RecipientID: ""})
	require.ErrorIs(t, err, ErrValidation)

	require.Empty(t, bcast.sent)
}

func TestDirectSend_AttachmentDefaultsContent(t *testing.T) {
	svc, _ := newDirectFixture(t)

	msg, err := svc.Send(context.Background(), SendDirectInput{
		SenderID:    "a@x.com",
		RecipientID: "b@x.com",
		Attachment:  &models.Attachment{URL: "https://blob/x", Name: "report.pdf", ContentType: "application/pdf", Size: 1024},
	})
	require.NoError(t, err)
	require.Equal(t, "📎 report.pdf", msg.Content)
	require.NotNil(t, msg.Attachment)
}

type failingDirectStore struct {
	store.DirectMessages
	appendErr error
}

func (f *failingDirectStore) Append(ctx context.Context, msg *models.DirectMessage) (*models.DirectMessage, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	return f.DirectMessages.Append(ctx, msg)
}

func TestDirectSend_AppendFailureAbortsWithoutBroadcast(t *testing.T) {
	bcast := &recordingDirectBroadcaster{}
	messages := &failingDirectStore{
		DirectMessages: memory.NewDirectMessageStore(),
		appendErr:      errors.New("connection reset"),
	}
	svc := NewDirectService(messages, bcast, zap.NewNop())

	_, err := svc.Send(context.Background(), SendDirectInput{
		SenderID: "a@x.com", RecipientID: "b@x.com", Content: "lost",
	})
	require.Error(t, err)

	// Nothing was persisted, so nothing may be announced.
	require.Empty(t, bcast.sent)
}

func TestDirectHistory_AscendingUnderConcurrentSends(t *testing.T) {
	svc, _ := newDirectFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Send(ctx, SendDirectInput{
				SenderID: "a@x.com", RecipientID: "b@x.com", Content: "msg",
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := svc.History(ctx, "a@x.com", "b@x.com")
	require.NoError(t, err)
	require.Len(t, msgs, 20)
	for i := 1; i < len(msgs); i++ {
		require.False(t, msgs[i].SentAt.Before(msgs[i-1].SentAt),
			"history out of order at index %d", i)
	}
}

func TestDirectDelete_SoftDeletePreservesContent(t *testing.T) {
	svc, bcast := newDirectFixture(t)
	ctx := context.Background()

	sent, err := svc.Send(ctx, SendDirectInput{
		SenderID: "a@x.com", RecipientID: "b@x.com", Content: "oops",
	})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, sent.ID, "A@X.com")
	require.NoError(t, err)
	require.True(t, deleted.Deleted)
	require.Equal(t, "oops", deleted.Content)
	require.NotNil(t, deleted.DeletedAt)
	require.Equal(t, "a@x.com", *deleted.DeletedBy)

	// The record stays in history, flagged.
	msgs, err := svc.History(ctx, "a@x.com", "b@x.com")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].Deleted)
	require.Equal(t, "oops", msgs[0].Content)

	require.Len(t, bcast.deleted, 1)
	require.Equal(t, "a@x.com", bcast.deleters[0])
}

func TestDirectDelete_OnlySenderMay(t *testing.T) {
	svc, bcast := newDirectFixture(t)
	ctx := context.Background()

	sent, err := svc.Send(ctx, SendDirectInput{
		SenderID: "a@x.com", RecipientID: "b@x.com", Content: "mine",
	})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, sent.ID, "b@x.com")
	require.ErrorIs(t, err, ErrForbidden)
	require.Empty(t, bcast.deleted)

	msgs, err := svc.History(ctx, "a@x.com", "b@x.com")
	require.NoError(t, err)
	require.False(t, msgs[0].Deleted)
}

func TestDirectDelete_UnknownMessage(t *testing.T) {
	svc, _ := newDirectFixture(t)

	_, err := svc.Delete(context.Background(), 404, "a@x.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDirectHistory_EmptyRoom(t *testing.T) {
	svc, _ := newDirectFixture(t)

	msgs, err := svc.History(context.Background(), "a@x.com", "b@x.com")
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestDirectSend_MonotonicTimestampsWithinRoom(t *testing.T) {
	svc, _ := newDirectFixture(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	for i := 0; i < 3; i++ {
		_, err := svc.Send(ctx, SendDirectInput{
			SenderID: "a@x.com", RecipientID: "b@x.com", Content: "tick",
		})
		require.NoError(t, err)
	}

	msgs, err := svc.History(ctx, "a@x.com", "b@x.com")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.True(t, msgs[0].SentAt.Before(msgs[1].SentAt))
	require.True(t, msgs[1].SentAt.Before(msgs[2].SentAt))
}
