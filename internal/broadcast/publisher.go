package broadcast

import "context"

// Topic address scheme. Rooms and groups get a live conversation channel;
// every user gets two notification targets: an authenticated per-user
// address and an unauthenticated fallback topic keyed by the same
// identifier. Clients that have not finished user-scoped subscription
// setup still receive events on the fallback topic.
const (
	roomTopicPrefix     = "room."
	groupTopicPrefix    = "group."
	userNotifySuffix    = ".notify"
	userTopicPrefix     = "user."
	fallbackTopicPrefix = "notify."
)

// TopicGroupNotifications carries group-creation announcements for
// clients that render a cross-group activity feed.
const TopicGroupNotifications = "group-notifications"

// RoomTopic is the live channel for a direct conversation.
func RoomTopic(roomID string) string { return roomTopicPrefix + roomID }

// GroupTopic is the live channel for a group conversation.
func GroupTopic(groupID string) string { return groupTopicPrefix + groupID }

// UserNotifyTopic is the authenticated per-user notification address.
func UserNotifyTopic(userID string) string { return userTopicPrefix + userID + userNotifySuffix }

// FallbackNotifyTopic is the unauthenticated notification fallback.
func FallbackNotifyTopic(userID string) string { return fallbackTopicPrefix + userID }

// NotifyTargets returns both delivery paths for a recipient.
func NotifyTargets(userID string) []string {
	return []string{UserNotifyTopic(userID), FallbackNotifyTopic(userID)}
}

// Publisher is the pub/sub transport contract. Delivery is at-least-once
// and best-effort; a publish error is logged by the caller, never
// propagated to the request that triggered it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event Envelope) error
}
