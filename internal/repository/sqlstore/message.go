package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/google/uuid"
)

// InsertMessage increments the thread counter and appends the message inside
// one transaction. The counter UPDATE takes the row lock (MySQL) or the
// database write lock (SQLite), serializing inserts per thread.
func (s *Store) InsertMessage(ctx context.Context, threadID string, role domain.MessageRole, content string) (*domain.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewStorageError("insert message", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE threads SET message_count = message_count + 1, updated_at = ? WHERE id = ?
	`, toMicros(now), threadID)
	if err != nil {
		return nil, domain.NewStorageError("insert message", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, domain.NewStorageError("insert message", err)
	} else if n == 0 {
		return nil, domain.NewStorageError("insert message", domain.ErrThreadNotFound)
	}

	var position int
	if err := tx.QueryRowContext(ctx, `SELECT message_count FROM threads WHERE id = ?`, threadID).Scan(&position); err != nil {
		return nil, domain.NewStorageError("insert message", err)
	}

	msg := &domain.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		Position:  position,
		CreatedAt: fromMicros(toMicros(now)),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, role, message, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ThreadID, string(msg.Role), msg.Content, msg.Position, toMicros(now))
	if err != nil {
		return nil, domain.NewStorageError("insert message", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.NewStorageError("commit message", err)
	}
	return msg, nil
}

func (s *Store) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, role, message, position, created_at
		FROM messages
		WHERE thread_id = ?
		ORDER BY position ASC
	`, threadID)
	if err != nil {
		return nil, domain.NewStorageError("list messages", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var role string
		var created int64
		if err := rows.Scan(&m.ID, &m.ThreadID, &role, &m.Content, &m.Position, &created); err != nil {
			return nil, domain.NewStorageError("scan message", err)
		}
		m.Role = domain.MessageRole(role)
		m.CreatedAt = fromMicros(created)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list messages", err)
	}
	return messages, nil
}

func (s *Store) CountMessages(ctx context.Context, threadID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE thread_id = ?`, threadID).Scan(&count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NewStorageError("count messages", err)
	}
	return count, nil
}
