// Package chat implements the messaging core: direct and group send,
// history, soft-delete/redaction, and group membership lifecycle. It owns
// the business rules; persistence and fan-out are injected contracts.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"teamline/server/internal/models"
	"teamline/server/internal/roomkey"
	"teamline/server/internal/store"
)

// DirectBroadcaster is the slice of the fan-out surface the direct
// service needs. Satisfied by *broadcast.Broadcaster.
type DirectBroadcaster interface {
	DirectMessage(msg models.DirectMessage)
	DirectMessageDeleted(msg models.DirectMessage, deletedBy string)
}

// DirectService handles 1:1 messaging.
type DirectService struct {
	messages store.DirectMessages
	bcast    DirectBroadcaster
	logger   *zap.Logger
	rooms    *keyedMutex
	now      func() time.Time
}

func NewDirectService(messages store.DirectMessages, bcast DirectBroadcaster, logger *zap.Logger) *DirectService {
	return &DirectService{
		messages: messages,
		bcast:    bcast,
		logger:   logger,
		rooms:    newKeyedMutex(),
		now:      time.Now,
	}
}

// SendDirectInput is a validated-at-the-service send request. Attachment
// fields come from the external blob store; the core never touches bytes.
type SendDirectInput struct {
	SenderID    string
	RecipientID string
	Content     string
	Attachment  *models.Attachment
}

// Send persists a direct message in its canonical room and triggers
// fan-out. The timestamp-assign-and-append step is serialized per room so
// concurrent senders cannot interleave out of order.
func (s *DirectService) Send(ctx context.Context, in SendDirectInput) (*models.DirectMessage, error) {
	sender := roomkey.Normalize(in.SenderID)
	recipient := roomkey.Normalize(in.RecipientID)
	if sender == "" {
		return nil, requiredField("senderId")
	}
	if recipient == "" {
		return nil, requiredField("recipientId")
	}

	content := in.Content
	if content == "" && in.Attachment != nil {
		content = "📎 " + in.Attachment.Name
	}

	room := roomkey.Resolve(sender, recipient)
	msg := &models.DirectMessage{
		RoomID:      room,
		SenderID:    sender,
		RecipientID: recipient,
		Content:     content,
		Attachment:  in.Attachment,
	}

	unlock := s.rooms.Lock(room)
	msg.SentAt = s.now()
	saved, err := s.messages.Append(ctx, msg)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("append direct message: %w", err)
	}

	s.logger.Info("direct message sent",
		zap.Int64("messageId", saved.ID),
		zap.String("roomId", saved.RoomID),
	)

	// Persist-then-best-effort-notify: the message is durable before any
	// broadcast, and a broadcast failure never rolls it back.
	s.bcast.DirectMessage(*saved)
	return saved, nil
}

// History returns the canonical room history for two participants,
// ascending by sentAt. Soft-deleted messages stay in the sequence.
func (s *DirectService) History(ctx context.Context, userA, userB string) ([]models.DirectMessage, error) {
	if roomkey.Normalize(userA) == "" {
		return nil, requiredField("userA")
	}
	if roomkey.Normalize(userB) == "" {
		return nil, requiredField("userB")
	}

	room := roomkey.Resolve(userA, userB)
	msgs, err := s.messages.HistoryByRoom(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("load room history: %w", err)
	}
	return msgs, nil
}

// Delete soft-deletes a message. Only the sender may delete; the content
// is preserved and the record stays in history.
func (s *DirectService) Delete(ctx context.Context, messageID int64, requesterID string) (*models.DirectMessage, error) {
	requester := roomkey.Normalize(requesterID)
	if requester == "" {
		return nil, requiredField("userId")
	}

	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load message: %w", err)
	}

	if !strings.EqualFold(msg.SenderID, requester) {
		return nil, ErrForbidden
	}

	deletedAt := s.now()
	if err := s.messages.MarkDeleted(ctx, messageID, requester, deletedAt); err != nil {
		return nil, fmt.Errorf("mark message deleted: %w", err)
	}

	msg.Deleted = true
	msg.DeletedAt = &deletedAt
	msg.DeletedBy = &requester

	s.bcast.DirectMessageDeleted(*msg, requester)
	return msg, nil
}
