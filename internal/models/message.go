package models

import "time"

// MessageType classifies a group message
type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeSystem MessageType = "SYSTEM"
	MessageTypeFile   MessageType = "FILE"
)

// Attachment carries blob-store metadata for a file message. The bytes
// themselves live in the external blob store; the core only records what
// the store returned.
type Attachment struct {
	URL         string `json:"url" db:"file_url"`
	Name        string `json:"name" db:"file_name"`
	ContentType string `json:"contentType" db:"file_type"`
	Size        int64  `json:"size" db:"file_size"`
}

// DirectMessage represents a 1:1 chat message
type DirectMessage struct {
	ID          int64       `json:"id" db:"id"`
	RoomID      string      `json:"roomId" db:"room_id"`
	SenderID    string      `json:"senderId" db:"sender_id"`
	RecipientID string      `json:"recipientId" db:"recipient_id"`
	Content     string      `json:"content" db:"content"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	SentAt      time.Time   `json:"sentAt" db:"sent_at"`
	Deleted     bool        `json:"deleted" db:"deleted"`
	DeletedAt   *time.Time  `json:"deletedAt,omitempty" db:"deleted_at"`
	DeletedBy   *string     `json:"deletedBy,omitempty" db:"deleted_by"`
}

// GroupMessage represents a message in a group conversation
type GroupMessage struct {
	ID             int64       `json:"id" db:"id"`
	GroupID        string      `json:"groupId" db:"group_id"`
	SenderID       string      `json:"senderId" db:"sender_id"`
	Content        string      `json:"content" db:"content"`
	Attachment     *Attachment `json:"attachment,omitempty"`
	MessageType    MessageType `json:"messageType" db:"message_type"`
	OrganizationID *int64      `json:"organizationId,omitempty" db:"organization_id"`
	SentAt         time.Time   `json:"sentAt" db:"sent_at"`
	Deleted        bool        `json:"deleted" db:"deleted"`
	DeletedAt      *time.Time  `json:"deletedAt,omitempty" db:"deleted_at"`
	DeletedBy      *string     `json:"deletedBy,omitempty" db:"deleted_by"`
}
