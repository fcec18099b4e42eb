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

// DirectMessageStore implements store.DirectMessages on Postgres.
type DirectMessageStore struct {
	pool *pgxpool.Pool
}

func NewDirectMessageStore(pool *pgxpool.Pool) *DirectMessageStore {
	return &DirectMessageStore{pool: pool}
}

func (s *DirectMessageStore) Append(ctx context.Context, msg *models.DirectMessage) (*models.DirectMessage, error) {
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
		INSERT INTO direct_messages (room_id, sender_id, recipient_id, content,
			file_url, file_name, file_type, file_size, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, msg.RoomID, msg.SenderID, msg.RecipientID, msg.Content,
		fileURL, fileName, fileType, fileSize, msg.SentAt).Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("insert direct message: %w", err)
	}

	return &stored, nil
}

func (s *DirectMessageStore) HistoryByRoom(ctx context.Context, roomID string) ([]models.DirectMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, sender_id, recipient_id, content,
			file_url, file_name, file_type, file_size,
			sent_at, deleted, deleted_at, deleted_by
		FROM direct_messages
		WHERE room_id = $1
		ORDER BY sent_at ASC, id ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("query room history: %w", err)
	}
	defer rows.Close()

	msgs := []models.DirectMessage{}
	for rows.Next() {
		m, err := scanDirect(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func (s *DirectMessageStore) Get(ctx context.Context, id int64) (*models.DirectMessage, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, room_id, sender_id, recipient_id, content,
			file_url, file_name, file_type, file_size,
			sent_at, deleted, deleted_at, deleted_by
		FROM direct_messages
		WHERE id = $1
	`, id)

	m, err := scanDirect(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return m, err
}

func (s *DirectMessageStore) MarkDeleted(ctx context.Context, id int64, deletedBy string, deletedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE direct_messages
		SET deleted = true, deleted_at = $1, deleted_by = $2
		WHERE id = $3
	`, deletedAt, deletedBy, id)
	if err != nil {
		return fmt.Errorf("mark direct message deleted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanDirect(row pgx.Row) (*models.DirectMessage, error) {
	var m models.DirectMessage
	var fileURL, fileName, fileType *string
	var fileSize *int64

	err := row.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.RecipientID, &m.Content,
		&fileURL, &fileName, &fileType, &fileSize,
		&m.SentAt, &m.Deleted, &m.DeletedAt, &m.DeletedBy)
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
