package broadcast

import (
	"time"

	"teamline/server/internal/models"
)

// EventType represents different broadcast event types
type EventType string

const (
	// Message events
	EventDirectMessage EventType = "DIRECT_MESSAGE"
	EventGroupMessage  EventType = "GROUP_MESSAGE"

	// Deletion events
	EventMessageDeleted  EventType = "MESSAGE_DELETED"
	EventMessageRedacted EventType = "MESSAGE_DELETED_FOR_EVERYONE"

	// Group lifecycle events
	EventGroupCreated EventType = "NEW_GROUP"
	EventGroupDeleted EventType = "GROUP_DELETED"
	EventMemberAdded  EventType = "MEMBER_ADDED"
	EventMemberLeft   EventType = "MEMBER_LEFT"
	EventGroupLeft    EventType = "GROUP_LEFT"
	EventAddedToGroup EventType = "ADDED_TO_GROUP"

	// Notification kinds (per-recipient channel)
	EventNotifyDirect EventType = "dm"
	EventNotifyGroup  EventType = "group_message"
)

// Envelope is the wire frame for every broadcast event
type Envelope struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// DirectMessagePayload carries a persisted direct message to room subscribers
type DirectMessagePayload struct {
	Message models.DirectMessage `json:"message"`
}

// GroupMessagePayload carries a persisted group message to group subscribers
type GroupMessagePayload struct {
	Message models.GroupMessage `json:"message"`
}

// DeletionPayload announces a soft delete or redaction to a conversation
type DeletionPayload struct {
	MessageID int64  `json:"messageId"`
	DeletedBy string `json:"deletedBy"`
	RoomID    string `json:"roomId,omitempty"`
	GroupID   string `json:"groupId,omitempty"`
}

// GroupLifecyclePayload announces group creation/deletion and membership churn
type GroupLifecyclePayload struct {
	GroupID   string    `json:"groupId"`
	GroupName string    `json:"groupName,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	MemberID  string    `json:"memberId,omitempty"`
	Members   []string  `json:"members,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Notification is the enriched per-recipient summary. MessageID is a stable
// identifier so consumers receiving the same notification on both delivery
// paths can deduplicate renders.
type Notification struct {
	Kind      EventType `json:"type"`
	MessageID int64     `json:"messageId,omitempty"`
	From      string    `json:"from,omitempty"`
	FromEmail string    `json:"fromEmail,omitempty"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	RoomID    string    `json:"roomId,omitempty"`
	GroupID   string    `json:"groupId,omitempty"`
	GroupName string    `json:"groupName,omitempty"`
	Preview   string    `json:"preview,omitempty"`
	Message   string    `json:"message,omitempty"`
	SentAt    time.Time `json:"sentAt,omitempty"`
}
