// Package broadcast fans persisted messages out to live conversation
// channels and per-recipient notification targets. Delivery is decoupled
// from persistence: a message is already durable before any broadcast is
// attempted, and a failed broadcast is logged, never surfaced to the
// sender.
package broadcast

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"teamline/server/internal/directory"
	"teamline/server/internal/models"
)

// previewLimit bounds the notification content preview, in runes.
const previewLimit = 100

// Directory resolves a sender identifier to display fields for
// notification enrichment. Lookup failures yield blank fields; they never
// fail the send.
type Directory interface {
	Lookup(ctx context.Context, identifier string) (directory.DisplayName, error)
}

// Config tunes the dispatch worker pool.
type Config struct {
	// Workers is the number of concurrent dispatch goroutines.
	Workers int
	// QueueSize bounds pending dispatch tasks. When the queue is full new
	// tasks are dropped and logged; notifications are best-effort, not a
	// durable inbox.
	QueueSize int
	// TaskTimeout bounds a single dispatch task end to end.
	TaskTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 3 * time.Second
	}
	return c
}

// Broadcaster dispatches events through a bounded worker pool so fan-out
// never blocks the request that triggered it.
type Broadcaster struct {
	pub     Publisher
	dir     Directory
	logger  *zap.Logger
	timeout time.Duration

	tasks   chan func(ctx context.Context)
	workers sync.WaitGroup
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func New(pub Publisher, dir Directory, logger *zap.Logger, cfg Config) *Broadcaster {
	cfg = cfg.withDefaults()
	b := &Broadcaster{
		pub:     pub,
		dir:     dir,
		logger:  logger,
		timeout: cfg.TaskTimeout,
		tasks:   make(chan func(ctx context.Context), cfg.QueueSize),
	}

	b.workers.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go b.worker()
	}
	return b
}

func (b *Broadcaster) worker() {
	defer b.workers.Done()
	for task := range b.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		task(ctx)
		cancel()
		b.pending.Done()
	}
}

// submit enqueues a dispatch task without blocking the caller.
func (b *Broadcaster) submit(name string, task func(ctx context.Context)) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Warn("broadcast after close dropped", zap.String("task", name))
		return
	}
	b.pending.Add(1)
	b.mu.Unlock()

	select {
	case b.tasks <- task:
	default:
		b.pending.Done()
		b.logger.Warn("broadcast queue full, task dropped", zap.String("task", name))
	}
}

// Wait blocks until every submitted task has finished. Test harnesses use
// it to observe fan-out deterministically.
func (b *Broadcaster) Wait() {
	b.pending.Wait()
}

// Close drains the pool. Pending tasks still run; new submissions are
// dropped.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.pending.Wait()
	close(b.tasks)
	b.workers.Wait()
}

// DirectMessage delivers a persisted 1:1 message to its room channel and
// notifies the recipient on both delivery paths.
func (b *Broadcaster) DirectMessage(msg models.DirectMessage) {
	b.submit("direct_message", func(ctx context.Context) {
		b.publish(ctx, RoomTopic(msg.RoomID), Envelope{
			Type:      EventDirectMessage,
			Payload:   DirectMessagePayload{Message: msg},
			Timestamp: time.Now(),
		})

		name := b.displayName(ctx, msg.SenderID)
		b.notify(ctx, msg.RecipientID, Notification{
			Kind:      EventNotifyDirect,
			MessageID: msg.ID,
			From:      msg.SenderID,
			FromEmail: msg.SenderID,
			FirstName: name.FirstName,
			LastName:  name.LastName,
			RoomID:    msg.RoomID,
			Preview:   preview(msg.Content),
			SentAt:    msg.SentAt,
		})
	})
}

// GroupMessage delivers a persisted group message to the group channel and
// notifies every member except the sender. Membership is the set read at
// send time; a concurrent add/remove may miss or still receive the
// notification, which is accepted for a best-effort channel.
func (b *Broadcaster) GroupMessage(msg models.GroupMessage, members []models.GroupMember) {
	recipients := lo.FilterMap(members, func(m models.GroupMember, _ int) (string, bool) {
		return m.MemberID, !strings.EqualFold(m.MemberID, msg.SenderID)
	})

	b.submit("group_message", func(ctx context.Context) {
		b.publish(ctx, GroupTopic(msg.GroupID), Envelope{
			Type:      EventGroupMessage,
			Payload:   GroupMessagePayload{Message: msg},
			Timestamp: time.Now(),
		})

		name := b.displayName(ctx, msg.SenderID)
		for _, recipient := range recipients {
			b.notify(ctx, recipient, Notification{
				Kind:      EventNotifyGroup,
				MessageID: msg.ID,
				From:      msg.SenderID,
				FromEmail: msg.SenderID,
				FirstName: name.FirstName,
				LastName:  name.LastName,
				GroupID:   msg.GroupID,
				Preview:   preview(msg.Content),
				SentAt:    msg.SentAt,
			})
		}
	})
}

// SystemMessage delivers a lifecycle-generated group message to the group
// channel only. Nobody is notified; system messages are visible context,
// not alerts.
func (b *Broadcaster) SystemMessage(msg models.GroupMessage) {
	b.submit("system_message", func(ctx context.Context) {
		b.publish(ctx, GroupTopic(msg.GroupID), Envelope{
			Type:      EventGroupMessage,
			Payload:   GroupMessagePayload{Message: msg},
			Timestamp: time.Now(),
		})
	})
}

// DirectMessageDeleted announces a soft delete to the room channel.
func (b *Broadcaster) DirectMessageDeleted(msg models.DirectMessage, deletedBy string) {
	b.submit("direct_message_deleted", func(ctx context.Context) {
		b.publish(ctx, RoomTopic(msg.RoomID), Envelope{
			Type:      EventMessageDeleted,
			Payload:   DeletionPayload{MessageID: msg.ID, DeletedBy: deletedBy, RoomID: msg.RoomID},
			Timestamp: time.Now(),
		})
	})
}

// GroupMessageDeleted announces a soft delete to the group channel.
func (b *Broadcaster) GroupMessageDeleted(msg models.GroupMessage, deletedBy string) {
	b.submit("group_message_deleted", func(ctx context.Context) {
		b.publish(ctx, GroupTopic(msg.GroupID), Envelope{
			Type:      EventMessageDeleted,
			Payload:   DeletionPayload{MessageID: msg.ID, DeletedBy: deletedBy, GroupID: msg.GroupID},
			Timestamp: time.Now(),
		})
	})
}

// GroupMessageRedacted announces a delete-for-everyone to the group channel.
func (b *Broadcaster) GroupMessageRedacted(msg models.GroupMessage, deletedBy string) {
	b.submit("group_message_redacted", func(ctx context.Context) {
		b.publish(ctx, GroupTopic(msg.GroupID), Envelope{
			Type:      EventMessageRedacted,
			Payload:   DeletionPayload{MessageID: msg.ID, DeletedBy: deletedBy, GroupID: msg.GroupID},
			Timestamp: time.Now(),
		})
	})
}

// GroupCreated notifies every initial member that they were added and
// announces the new group on the shared notifications topic.
func (b *Broadcaster) GroupCreated(group models.Group, memberIDs []string, creatorID string) {
	members := append([]string(nil), memberIDs...)

	b.submit("group_created", func(ctx context.Context) {
		notification := Notification{
			Kind:      EventGroupCreated,
			From:      creatorID,
			GroupID:   group.GroupID,
			GroupName: group.Name,
			Message:   fmt.Sprintf("%s created a new group", creatorID),
			SentAt:    group.CreatedAt,
		}
		for _, member := range members {
			b.notify(ctx, member, notification)
		}

		b.publish(ctx, TopicGroupNotifications, Envelope{
			Type: EventGroupCreated,
			Payload: GroupLifecyclePayload{
				GroupID:   group.GroupID,
				GroupName: group.Name,
				ActorID:   creatorID,
				Members:   members,
				CreatedAt: group.CreatedAt,
				Message:   fmt.Sprintf("%s created a new group", creatorID),
			},
			Timestamp: time.Now(),
		})
	})
}

// MemberAdded notifies the new member and announces the change on the
// group channel.
func (b *Broadcaster) MemberAdded(group models.Group, memberID, addedBy string) {
	b.submit("member_added", func(ctx context.Context) {
		b.notify(ctx, memberID, Notification{
			Kind:      EventAddedToGroup,
			From:      addedBy,
			GroupID:   group.GroupID,
			GroupName: group.Name,
			Message:   fmt.Sprintf("%s added you to %s", addedBy, group.Name),
		})

		b.publish(ctx, GroupTopic(group.GroupID), Envelope{
			Type: EventMemberAdded,
			Payload: GroupLifecyclePayload{
				GroupID:  group.GroupID,
				MemberID: memberID,
				ActorID:  addedBy,
				Message:  fmt.Sprintf("%s added %s to the group", addedBy, memberID),
			},
			Timestamp: time.Now(),
		})
	})
}

// MemberLeft announces a departure on the group channel and confirms it to
// the departed member.
func (b *Broadcaster) MemberLeft(groupID, memberID string) {
	b.submit("member_left", func(ctx context.Context) {
		b.publish(ctx, GroupTopic(groupID), Envelope{
			Type: EventMemberLeft,
			Payload: GroupLifecyclePayload{
				GroupID:  groupID,
				MemberID: memberID,
				Message:  fmt.Sprintf("%s left the group", memberID),
			},
			Timestamp: time.Now(),
		})

		b.notify(ctx, memberID, Notification{
			Kind:    EventGroupLeft,
			GroupID: groupID,
			Message: "You left the group",
		})
	})
}

// GroupDeleted notifies every former member and announces the deletion on
// the group channel. Called only after the deletion cascade has committed.
func (b *Broadcaster) GroupDeleted(group models.Group, memberIDs []string) {
	members := append([]string(nil), memberIDs...)

	b.submit("group_deleted", func(ctx context.Context) {
		for _, member := range members {
			b.notify(ctx, member, Notification{
				Kind:      EventGroupDeleted,
				GroupID:   group.GroupID,
				GroupName: group.Name,
				Message:   fmt.Sprintf("Group %s has been deleted", group.Name),
			})
		}

		b.publish(ctx, GroupTopic(group.GroupID), Envelope{
			Type: EventGroupDeleted,
			Payload: GroupLifecyclePayload{
				GroupID:   group.GroupID,
				GroupName: group.Name,
				Message:   "This group has been deleted",
			},
			Timestamp: time.Now(),
		})
	})
}

// notify publishes a notification on both delivery paths for a recipient.
func (b *Broadcaster) notify(ctx context.Context, recipientID string, n Notification) {
	envelope := Envelope{Type: n.Kind, Payload: n, Timestamp: time.Now()}
	for _, topic := range NotifyTargets(recipientID) {
		b.publish(ctx, topic, envelope)
	}
}

func (b *Broadcaster) publish(ctx context.Context, topic string, event Envelope) {
	if err := b.pub.Publish(ctx, topic, event); err != nil {
		b.logger.Warn("broadcast delivery failed",
			zap.String("topic", topic),
			zap.String("event", string(event.Type)),
			zap.Error(err),
		)
	}
}

func (b *Broadcaster) displayName(ctx context.Context, identifier string) directory.DisplayName {
	name, err := b.dir.Lookup(ctx, identifier)
	if err != nil {
		b.logger.Debug("sender lookup failed, sending blank display name",
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		return directory.DisplayName{}
	}
	return name
}

// preview truncates message content for notification payloads.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "..."
}
