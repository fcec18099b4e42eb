// Package websocket bridges live subscribers to the broadcast topics. Each
// connection subscribes to the topics it cares about; the hub mirrors the
// union of local subscriptions onto the shared pub/sub transport, so every
// server instance only receives traffic somebody connected to it wants.
package websocket

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"teamline/server/internal/broadcast"
	"teamline/server/internal/chat"
	"teamline/server/internal/roomkey"
)

// ErrNotSubscribable is returned when a client asks for a topic it is not
// allowed, or that does not exist.
var ErrNotSubscribable = errors.New("topic not subscribable")

// Membership gates subscriptions to group channels.
type Membership interface {
	IsMember(ctx context.Context, groupID, memberID string) (bool, error)
}

// transport is the slice of *redis.PubSub the hub drives. Tests substitute
// a recorder.
type transport interface {
	Subscribe(ctx context.Context, channels ...string) error
	Unsubscribe(ctx context.Context, channels ...string) error
}

// Hub maintains the set of active clients and their topic subscriptions.
type Hub struct {
	membership Membership
	logger     *zap.Logger

	pubsub   *redis.PubSub
	upstream transport

	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}
}

func NewHub(rdb *redis.Client, membership Membership, logger *zap.Logger) *Hub {
	pubsub := rdb.Subscribe(context.Background())
	return &Hub{
		membership: membership,
		logger:     logger,
		pubsub:     pubsub,
		upstream:   pubsub,
		topics:     make(map[string]map[*Client]struct{}),
		clients:    make(map[*Client]map[string]struct{}),
	}
}

// Run pumps transport messages to local subscribers until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer h.pubsub.Close()

	ch := h.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.deliver(msg.Channel, []byte(msg.Payload))
		}
	}
}

// Register adds a connection and subscribes it to the caller's own
// notification targets, so a client hears about new activity without
// asking.
func (h *Hub) Register(ctx context.Context, client *Client) {
	h.mu.Lock()
	h.clients[client] = make(map[string]struct{})
	h.mu.Unlock()

	for _, topic := range broadcast.NotifyTargets(client.Identity) {
		h.attach(ctx, client, topic)
	}

	h.logger.Info("websocket client connected",
		zap.String("identity", client.Identity),
	)
}

// Unregister removes a connection and drops any transport subscriptions it
// was the last local listener for.
func (h *Hub) Unregister(ctx context.Context, client *Client) {
	h.mu.Lock()
	topics, ok := h.clients[client]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)

	var orphaned []string
	for topic := range topics {
		subs := h.topics[topic]
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topics, topic)
			orphaned = append(orphaned, topic)
		}
	}
	h.mu.Unlock()

	close(client.send)

	if len(orphaned) > 0 {
		if err := h.upstream.Unsubscribe(ctx, orphaned...); err != nil {
			h.logger.Warn("transport unsubscribe failed", zap.Error(err))
		}
	}

	h.logger.Info("websocket client disconnected",
		zap.String("identity", client.Identity),
	)
}

// Subscribe attaches a client to a topic after authorization. Group
// channels require membership; personal notification channels belong to
// their owner; room channels require the caller to be a participant.
func (h *Hub) Subscribe(ctx context.Context, client *Client, topic string) error {
	if err := h.authorize(ctx, client.Identity, topic); err != nil {
		return err
	}
	h.attach(ctx, client, topic)
	return nil
}

// Unsubscribe detaches a client from a topic. Unknown topics are a no-op.
func (h *Hub) Unsubscribe(ctx context.Context, client *Client, topic string) {
	h.mu.Lock()
	topics, ok := h.clients[client]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(topics, topic)

	last := false
	if subs, ok := h.topics[topic]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topics, topic)
			last = true
		}
	}
	h.mu.Unlock()

	if last {
		if err := h.upstream.Unsubscribe(ctx, topic); err != nil {
			h.logger.Warn("transport unsubscribe failed",
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
	}
}

func (h *Hub) attach(ctx context.Context, client *Client, topic string) {
	h.mu.Lock()
	topics, ok := h.clients[client]
	if !ok {
		h.mu.Unlock()
		return
	}
	topics[topic] = struct{}{}

	subs, ok := h.topics[topic]
	first := !ok
	if first {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[client] = struct{}{}
	h.mu.Unlock()

	if first {
		if err := h.upstream.Subscribe(ctx, topic); err != nil {
			h.logger.Warn("transport subscribe failed",
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
	}
}

func (h *Hub) authorize(ctx context.Context, identity, topic string) error {
	switch {
	case strings.HasPrefix(topic, "group."):
		groupID := strings.TrimPrefix(topic, "group.")
		ok, err := h.membership.IsMember(ctx, groupID, identity)
		if err != nil {
			return err
		}
		if !ok {
			return chat.ErrNotMember
		}
		return nil

	case strings.HasPrefix(topic, "room."):
		room := strings.TrimPrefix(topic, "room.")
		for _, participant := range strings.Split(room, roomkey.Delimiter) {
			if strings.EqualFold(participant, identity) {
				return nil
			}
		}
		return ErrNotSubscribable

	case strings.HasPrefix(topic, "user."):
		if topic == broadcast.UserNotifyTopic(identity) {
			return nil
		}
		return ErrNotSubscribable

	case strings.HasPrefix(topic, "notify."):
		// Legacy fallback path, no ownership check.
		return nil

	case topic == broadcast.TopicGroupNotifications:
		return nil

	default:
		return ErrNotSubscribable
	}
}

// deliver fans a transport message out to every local subscriber of its
// topic. Slow consumers are skipped; the live channel is best-effort.
func (h *Hub) deliver(topic string, data []byte) {
	h.mu.RLock()
	subs := make([]*Client, 0, len(h.topics[topic]))
	for client := range h.topics[topic] {
		subs = append(subs, client)
	}
	h.mu.RUnlock()

	for _, client := range subs {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("dropping frame for slow consumer",
				zap.String("identity", client.Identity),
				zap.String("topic", topic),
			)
		}
	}
}

// ConnectedCount returns the number of live connections.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ConnectedIdentities returns the identities with a live connection.
func (h *Hub) ConnectedIdentities() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.clients))
	for client := range h.clients {
		out = append(out, client.Identity)
	}
	return out
}
