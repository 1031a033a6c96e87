package postgres

import (
	"context"
	"errors"

	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ThreadRepository implements domain.ThreadRepository
type ThreadRepository struct {
	pool *pgxpool.Pool
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(pool *pgxpool.Pool) *ThreadRepository {
	return &ThreadRepository{pool: pool}
}

func (r *ThreadRepository) CreateThread(ctx context.Context, thread *domain.Thread) error {
	query := `
		INSERT INTO threads (id, user_id, name, topic_named, message_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		thread.ID,
		thread.UserID,
		thread.Name,
		thread.Named,
	).Scan(&thread.CreatedAt, &thread.UpdatedAt)
	if err != nil {
		return domain.NewStorageError("create thread", err)
	}
	thread.MessageCount = 0
	return nil
}

func (r *ThreadRepository) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	query := `
		SELECT id, user_id, name, topic_named, message_count, created_at, updated_at
		FROM threads
		WHERE id = $1
	`
	var t domain.Thread
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&t.Named,
		&t.MessageCount,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewStorageError("get thread", domain.ErrThreadNotFound)
	}
	if err != nil {
		return nil, domain.NewStorageError("get thread", err)
	}
	return &t, nil
}

func (r *ThreadRepository) RenameThread(ctx context.Context, id string, name string) error {
	query := `
		UPDATE threads
		SET name = $1, topic_named = TRUE, updated_at = NOW()
		WHERE id = $2
	`
	tag, err := r.pool.Exec(ctx, query, name, id)
	if err != nil {
		return domain.NewStorageError("rename thread", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewStorageError("rename thread", domain.ErrThreadNotFound)
	}
	return nil
}

func (r *ThreadRepository) ListThreads(ctx context.Context, userID string) ([]domain.Thread, error) {
	query := `
		SELECT id, user_id, name, topic_named, message_count, created_at, updated_at
		FROM threads
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, domain.NewStorageError("list threads", err)
	}
	defer rows.Close()

	threads := []domain.Thread{}
	for rows.Next() {
		var t domain.Thread
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Name,
			&t.Named,
			&t.MessageCount,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, domain.NewStorageError("scan thread", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list threads", err)
	}
	return threads, nil
}
