package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"teamline/server/internal/models"
	"teamline/server/internal/store"
)

// uniqueViolation is the Postgres error code raised when the
// (group_id, member_id) unique constraint is hit.
const uniqueViolation = "23505"

// GroupStore implements store.Groups on Postgres.
type GroupStore struct {
	pool *pgxpool.Pool
}

func NewGroupStore(pool *pgxpool.Pool) *GroupStore {
	return &GroupStore{pool: pool}
}

func (s *GroupStore) Create(ctx context.Context, group *models.Group) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO groups (group_id, name, created_by, organization_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, group.GroupID, group.Name, group.CreatedBy, group.OrganizationID, group.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (s *GroupStore) Get(ctx context.Context, groupID string) (*models.Group, error) {
	var g models.Group
	err := s.pool.QueryRow(ctx, `
		SELECT group_id, name, created_by, organization_id, created_at
		FROM groups
		WHERE group_id = $1
	`, groupID).Scan(&g.GroupID, &g.Name, &g.CreatedBy, &g.OrganizationID, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query group: %w", err)
	}
	return &g, nil
}

func (s *GroupStore) Delete(ctx context.Context, groupID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM groups WHERE group_id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *GroupStore) AddMember(ctx context.Context, member *models.GroupMember) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO group_members (group_id, member_id, joined_at)
		VALUES ($1, $2, $3)
	`, member.GroupID, member.MemberID, member.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.ErrDuplicateMember
		}
		return fmt.Errorf("insert group member: %w", err)
	}
	return nil
}

func (s *GroupStore) RemoveMember(ctx context.Context, groupID, memberID string) (bool, error) {
	// Idempotent: zero rows affected is not an error.
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM group_members WHERE group_id = $1 AND member_id = $2
	`, groupID, memberID)
	if err != nil {
		return false, fmt.Errorf("remove group member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *GroupStore) RemoveMembersByGroup(ctx context.Context, groupID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM group_members WHERE group_id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("remove group members: %w", err)
	}
	return nil
}

func (s *GroupStore) Members(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT group_id, member_id, joined_at
		FROM group_members
		WHERE group_id = $1
		ORDER BY joined_at ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	return collectMembers(rows)
}

func (s *GroupStore) MembershipsOf(ctx context.Context, memberID string) ([]models.GroupMember, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT group_id, member_id, joined_at
		FROM group_members
		WHERE member_id = $1
		ORDER BY joined_at ASC
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	return collectMembers(rows)
}

func collectMembers(rows pgx.Rows) ([]models.GroupMember, error) {
	members := []models.GroupMember{}
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.GroupID, &m.MemberID, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
