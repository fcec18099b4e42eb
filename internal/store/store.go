// Package store defines the persistence contracts consumed by the chat
// services. Implementations: postgres (production) and memory (tests, dev).
package store

import (
	"context"
	"errors"
	"time"

	"teamline/server/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateMember is returned when a (group, member) pair already exists.
	ErrDuplicateMember = errors.New("member already exists")
)

// DirectMessages persists 1:1 messages.
type DirectMessages interface {
	// Append persists a message and returns it with the generated id.
	// SentAt is assigned by the caller before Append; the caller serializes
	// appends per room so history stays in sent order.
	Append(ctx context.Context, msg *models.DirectMessage) (*models.DirectMessage, error)

	// HistoryByRoom returns all messages for a room, ascending by sentAt.
	HistoryByRoom(ctx context.Context, roomID string) ([]models.DirectMessage, error)

	// Get returns a single message or ErrNotFound.
	Get(ctx context.Context, id int64) (*models.DirectMessage, error)

	// MarkDeleted flips the deleted flag and records who/when. Content is
	// left untouched.
	MarkDeleted(ctx context.Context, id int64, deletedBy string, deletedAt time.Time) error
}

// GroupMessages persists group messages.
type GroupMessages interface {
	Append(ctx context.Context, msg *models.GroupMessage) (*models.GroupMessage, error)

	// HistoryByGroup returns all messages for a group, ascending by sentAt.
	HistoryByGroup(ctx context.Context, groupID string) ([]models.GroupMessage, error)

	// HistoryByGroupAndOrg is the organization-scoped variant. Both variants
	// exist because callers that predate tenancy tagging still query without
	// an organization filter.
	HistoryByGroupAndOrg(ctx context.Context, groupID string, organizationID int64) ([]models.GroupMessage, error)

	Get(ctx context.Context, id int64) (*models.GroupMessage, error)

	MarkDeleted(ctx context.Context, id int64, deletedBy string, deletedAt time.Time) error

	// Redact clears content and attachment in place and flags the message
	// deleted. The record shell stays in history.
	Redact(ctx context.Context, id int64, deletedBy string, deletedAt time.Time, placeholder string) error

	// DeleteByGroup removes every message of a group. Used only by the
	// group-deletion cascade.
	DeleteByGroup(ctx context.Context, groupID string) error
}

// Groups owns group metadata and the membership set.
type Groups interface {
	Create(ctx context.Context, group *models.Group) error

	// Get returns a group or ErrNotFound.
	Get(ctx context.Context, groupID string) (*models.Group, error)

	// Delete removes the group record only; callers cascade messages and
	// members first.
	Delete(ctx context.Context, groupID string) error

	// AddMember inserts a membership row, returning ErrDuplicateMember when
	// the pair already exists.
	AddMember(ctx context.Context, member *models.GroupMember) error

	// RemoveMember is idempotent: removing an absent member is a no-op.
	// Reports whether a membership row was actually removed.
	RemoveMember(ctx context.Context, groupID, memberID string) (bool, error)

	// RemoveMembersByGroup removes every membership row of a group.
	RemoveMembersByGroup(ctx context.Context, groupID string) error

	Members(ctx context.Context, groupID string) ([]models.GroupMember, error)

	// MembershipsOf returns every membership row for a member.
	MembershipsOf(ctx context.Context, memberID string) ([]models.GroupMember, error)
}
