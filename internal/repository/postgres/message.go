package postgres

import (
	"context"
	"errors"

	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// InsertMessage bumps the thread counter and stores the message in one
// transaction. The UPDATE holds the thread row lock until commit, so
// concurrent inserts into one thread get distinct, gap-free positions.
func (r *MessageRepository) InsertMessage(ctx context.Context, threadID string, role domain.MessageRole, content string) (*domain.Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, domain.NewStorageError("insert message", err)
	}
	defer tx.Rollback(ctx)

	var position int
	err = tx.QueryRow(ctx, `
		UPDATE threads
		SET message_count = message_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING message_count
	`, threadID).Scan(&position)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewStorageError("insert message", domain.ErrThreadNotFound)
	}
	if err != nil {
		return nil, domain.NewStorageError("insert message", err)
	}

	msg := &domain.Message{
		ID:       uuid.NewString(),
		ThreadID: threadID,
		Role:     role,
		Content:  content,
		Position: position,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, thread_id, role, message, position, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`, msg.ID, msg.ThreadID, string(msg.Role), msg.Content, msg.Position).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, domain.NewStorageError("insert message", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.NewStorageError("commit message", err)
	}
	return msg, nil
}

// ListMessages returns a thread's messages oldest first
func (r *MessageRepository) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	query := `
		SELECT id, thread_id, role, message, position, created_at
		FROM messages
		WHERE thread_id = $1
		ORDER BY position ASC
	`
	rows, err := r.pool.Query(ctx, query, threadID)
	if err != nil {
		return nil, domain.NewStorageError("list messages", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var roleStr string
		if err := rows.Scan(
			&m.ID,
			&m.ThreadID,
			&roleStr,
			&m.Content,
			&m.Position,
			&m.CreatedAt,
		); err != nil {
			return nil, domain.NewStorageError("scan message", err)
		}
		m.Role = domain.MessageRole(roleStr)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list messages", err)
	}
	return messages, nil
}

func (r *MessageRepository) CountMessages(ctx context.Context, threadID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE thread_id = $1`, threadID).Scan(&count)
	if err != nil {
		return 0, domain.NewStorageError("count messages", err)
	}
	return count, nil
}
