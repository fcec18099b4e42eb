package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teamline/server/internal/models"
	"teamline/server/internal/store"
)

// GroupMessageStore implements store.GroupMessages on Postgres.
type GroupMessageStore struct {
	pool *pgxpool.Pool
}

func NewGroupMessageStore(pool *pgxpool.Pool) *GroupMessageStore {
	return &GroupMessageStore{pool: pool}
}

const groupMessageColumns = `id, group_id, sender_id, content,
	file_url, file_name, file_type, file_size,
	message_type, organization_id, sent_at, deleted, deleted_at, deleted_by`

func (s *GroupMessageStore) Append(ctx context.Context, msg *models.GroupMessage) (*models.GroupMessage, error) {
	var fileURL, fileName, fileType *string
	var fileSize *int64
	if msg.Attachment != nil {
		fileURL = &msg.Attachment.URL
		fileName = &msg.Attachment.Name
		fileType = &msg.Attachment.ContentType
		fileSize = &msg.Attachment.Size
	}

	stored := *msg
	err := s.pool.QueryRow(ctx, `
		INSERT INTO group_messages (group_id, sender_id, content,
			file_url, file_name, file_type, file_size,
			message_type, organization_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, msg.GroupID, msg.SenderID, msg.Content,
		fileURL, fileName, fileType, fileSize,
		msg.MessageType, msg.OrganizationID, msg.SentAt).Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("insert group message: %w", err)
	}

	return &stored, nil
}

func (s *GroupMessageStore) HistoryByGroup(ctx context.Context, groupID string) ([]models.GroupMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+groupMessageColumns+`
		FROM group_messages
		WHERE group_id = $1
		ORDER BY sent_at ASC, id ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group history: %w", err)
	}
	defer rows.Close()

	return collectGroupMessages(rows)
}

func (s *GroupMessageStore) HistoryByGroupAndOrg(ctx context.Context, groupID string, organizationID int64) ([]models.GroupMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+groupMessageColumns+`
		FROM group_messages
		WHERE group_id = $1 AND organization_id = $2
		ORDER BY sent_at ASC, id ASC
	`, groupID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("query org-scoped group history: %w", err)
	}
	defer rows.Close()

	return collectGroupMessages(rows)
}

func (s *GroupMessageStore) Get(ctx context.Context, id int64) (*models.GroupMessage, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+groupMessageColumns+`
		FROM group_messages
		WHERE id = $1
	`, id)

	m, err := scanGroupMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return m, err
}

func (s *GroupMessageStore) MarkDeleted(ctx context.Context, id int64, deletedBy string, deletedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE group_messages
		SET deleted = true, deleted_at = $1, deleted_by = $2
		WHERE id = $3
	`, deletedAt, deletedBy, id)
	if err != nil {
		return fmt.Errorf("mark group message deleted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *GroupMessageStore) Redact(ctx context.Context, id int64, deletedBy string, deletedAt time.Time, placeholder string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE group_messages
		SET deleted = true, deleted_at = $1, deleted_by = $2, content = $3,
			file_url = NULL, file_name = NULL, file_type = NULL, file_size = NULL
		WHERE id = $4
	`, deletedAt, deletedBy, placeholder, id)
	if err != nil {
		return fmt.Errorf("redact group message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *GroupMessageStore) DeleteByGroup(ctx context.Context, groupID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM group_messages WHERE group_id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("delete group messages: %w", err)
	}
	return nil
}

func collectGroupMessages(rows pgx.Rows) ([]models.GroupMessage, error) {
	msgs := []models.GroupMessage{}
	for rows.Next() {
		m, err := scanGroupMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func scanGroupMessage(row pgx.Row) (*models.GroupMessage, error) {
	var m models.GroupMessage
	var fileURL, fileName, fileType *string
	var fileSize *int64

	err := row.Scan(&m.ID, &m.GroupID, &m.SenderID, &m.Content,
		&fileURL, &fileName, &fileType, &fileSize,
		&m.MessageType, &m.OrganizationID, &m.SentAt, &m.Deleted, &m.DeletedAt, &m.DeletedBy)
	if err != nil {
		return nil, err
	}

	if fileURL != nil {
		m.Attachment = &models.Attachment{URL: *fileURL}
		if fileName != nil {
			m.Attachment.Name = *fileName
		}
		if fileType != nil {
			m.Attachment.ContentType = *fileType
		}
		if fileSize != nil {
			m.Attachment.Size = *fileSize
		}
	}
	return &m, nil
}
