package models

import "time"

// Group represents a chat group
type Group struct {
	GroupID        string    `json:"groupId" db:"group_id"`
	Name           string    `json:"name" db:"name"`
	CreatedBy      string    `json:"createdBy" db:"created_by"`
	OrganizationID *int64    `json:"organizationId,omitempty" db:"organization_id"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// GroupMember represents a user's membership in a group
type GroupMember struct {
	GroupID  string    `json:"groupId" db:"group_id"`
	MemberID string    `json:"memberId" db:"member_id"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"`
}

// GroupWithMembers includes member identifiers, used by detail and
// per-user group listings
type GroupWithMembers struct {
	GroupID        string    `json:"groupId"`
	Name           string    `json:"name"`
	CreatedBy      string    `json:"createdBy"`
	OrganizationID *int64    `json:"organizationId,omitempty"`
	Members        []string  `json:"members"`
	CreatedAt      time.Time `json:"createdAt"`
}
