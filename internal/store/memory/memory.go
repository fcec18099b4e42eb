// Package memory provides mutex-guarded in-memory store implementations.
// Used by tests and by local development without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"teamline/server/internal/models"
	"teamline/server/internal/store"
)

// DirectMessageStore is an in-memory store.DirectMessages.
type DirectMessageStore struct {
	mu     sync.RWMutex
	nextID int64
	msgs   []models.DirectMessage
}

func NewDirectMessageStore() *DirectMessageStore {
	return &DirectMessageStore{nextID: 1}
}

func (s *DirectMessageStore) Append(_ context.Context, msg *models.DirectMessage) (*models.DirectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *msg
	stored.ID = s.nextID
	s.nextID++
	s.msgs = append(s.msgs, stored)

	out := stored
	return &out, nil
}

func (s *DirectMessageStore) HistoryByRoom(_ context.Context, roomID string) ([]models.DirectMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.DirectMessage{}
	for _, m := range s.msgs {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	sortDirect(out)
	return out, nil
}

func (s *DirectMessageStore) Get(_ context.Context, id int64) (*models.DirectMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.msgs {
		if m.ID == id {
			out := m
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *DirectMessageStore) MarkDeleted(_ context.Context, id int64, deletedBy string, deletedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.msgs {
		if s.msgs[i].ID == id {
			s.msgs[i].Deleted = true
			s.msgs[i].DeletedAt = &deletedAt
			s.msgs[i].DeletedBy = &deletedBy
			return nil
		}
	}
	return store.ErrNotFound
}

func sortDirect(msgs []models.DirectMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].SentAt.Equal(msgs[j].SentAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
}

// GroupMessageStore is an in-memory store.GroupMessages.
type GroupMessageStore struct {
	mu     sync.RWMutex
	nextID int64
	msgs   []models.GroupMessage
}

func NewGroupMessageStore() *GroupMessageStore {
	return &GroupMessageStore{nextID: 1}
}

func (s *GroupMessageStore) Append(_ context.Context, msg *models.GroupMessage) (*models.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *msg
	stored.ID = s.nextID
	s.nextID++
	s.msgs = append(s.msgs, stored)

	out := stored
	return &out, nil
}

func (s *GroupMessageStore) HistoryByGroup(_ context.Context, groupID string) ([]models.GroupMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.GroupMessage{}
	for _, m := range s.msgs {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	sortGroup(out)
	return out, nil
}

func (s *GroupMessageStore) HistoryByGroupAndOrg(_ context.Context, groupID string, organizationID int64) ([]models.GroupMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.GroupMessage{}
	for _, m := range s.msgs {
		if m.GroupID == groupID && m.OrganizationID != nil && *m.OrganizationID == organizationID {
			out = append(out, m)
		}
	}
	sortGroup(out)
	return out, nil
}

func (s *GroupMessageStore) Get(_ context.Context, id int64) (*models.GroupMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.msgs {
		if m.ID == id {
			out := m
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *GroupMessageStore) MarkDeleted(_ context.Context, id int64, deletedBy string, deletedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.msgs {
		if s.msgs[i].ID == id {
			s.msgs[i].Deleted = true
			s.msgs[i].DeletedAt = &deletedAt
			s.msgs[i].DeletedBy = &deletedBy
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *GroupMessageStore) Redact(_ context.Context, id int64, deletedBy string, deletedAt time.Time, placeholder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.msgs {
		if s.msgs[i].ID == id {
			s.msgs[i].Deleted = true
			s.msgs[i].DeletedAt = &deletedAt
			s.msgs[i].DeletedBy = &deletedBy
			s.msgs[i].Content = placeholder
			s.msgs[i].Attachment = nil
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *GroupMessageStore) DeleteByGroup(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.msgs[:0]
	for _, m := range s.msgs {
		if m.GroupID != groupID {
			kept = append(kept, m)
		}
	}
	s.msgs = kept
	return nil
}

func sortGroup(msgs []models.GroupMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].SentAt.Equal(msgs[j].SentAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
}

// GroupStore is an in-memory store.Groups.
type GroupStore struct {
	mu      sync.RWMutex
	groups  map[string]models.Group
	members []models.GroupMember
}

func NewGroupStore() *GroupStore {
	return &GroupStore{groups: make(map[string]models.Group)}
}

func (s *GroupStore) Create(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[group.GroupID] = *group
	return nil
}

func (s *GroupStore) Get(_ context.Context, groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := g
	return &out, nil
}

func (s *GroupStore) Delete(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return store.ErrNotFound
	}
	delete(s.groups, groupID)
	return nil
}

func (s *GroupStore) AddMember(_ context.Context, member *models.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.members {
		if m.GroupID == member.GroupID && m.MemberID == member.MemberID {
			return store.ErrDuplicateMember
		}
	}
	s.members = append(s.members, *member)
	return nil
}

func (s *GroupStore) RemoveMember(_ context.Context, groupID, memberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	kept := s.members[:0]
	for _, m := range s.members {
		if m.GroupID == groupID && m.MemberID == memberID {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	s.members = kept
	return removed, nil
}

func (s *GroupStore) RemoveMembersByGroup(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.members[:0]
	for _, m := range s.members {
		if m.GroupID != groupID {
			kept = append(kept, m)
		}
	}
	s.members = kept
	return nil
}

func (s *GroupStore) Members(_ context.Context, groupID string) ([]models.GroupMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.GroupMember{}
	for _, m := range s.members {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *GroupStore) MembershipsOf(_ context.Context, memberID string) ([]models.GroupMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.GroupMember{}
	for _, m := range s.members {
		if m.MemberID == memberID {
			out = append(out, m)
		}
	}
	return out, nil
}
