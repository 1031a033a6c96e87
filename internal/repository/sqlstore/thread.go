package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Rrens/voice-companion/internal/domain"
)

const threadColumns = `id, user_id, name, topic_named, message_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (*domain.Thread, error) {
	var t domain.Thread
	var created, updated int64
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Named, &t.MessageCount, &created, &updated); err != nil {
		return nil, err
	}
	t.CreatedAt = fromMicros(created)
	t.UpdatedAt = fromMicros(updated)
	return &t, nil
}

func (s *Store) CreateThread(ctx context.Context, thread *domain.Thread) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (`+threadColumns+`)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, thread.ID, thread.UserID, thread.Name, thread.Named, toMicros(now), toMicros(now))
	if err != nil {
		return domain.NewStorageError("create thread", err)
	}
	thread.MessageCount = 0
	thread.CreatedAt = fromMicros(toMicros(now))
	thread.UpdatedAt = thread.CreatedAt
	return nil
}

func (s *Store) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+threadColumns+` FROM threads WHERE id = ?`, id)
	t, err := scanThread(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewStorageError("get thread", domain.ErrThreadNotFound)
	}
	if err != nil {
		return nil, domain.NewStorageError("get thread", err)
	}
	return t, nil
}

func (s *Store) RenameThread(ctx context.Context, id string, name string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE threads SET name = ?, topic_named = ?, updated_at = ? WHERE id = ?
	`, name, true, toMicros(s.now()), id)
	if err != nil {
		return domain.NewStorageError("rename thread", err)
	}
	// MySQL reports zero affected rows when nothing changed, so confirm existence separately.
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM threads WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewStorageError("rename thread", domain.ErrThreadNotFound)
	}
	return domain.NewStorageError("rename thread", err)
}

func (s *Store) ListThreads(ctx context.Context, userID string) ([]domain.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+threadColumns+` FROM threads
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, domain.NewStorageError("list threads", err)
	}
	defer rows.Close()

	threads := []domain.Thread{}
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan thread", err)
		}
		threads = append(threads, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list threads", err)
	}
	return threads, nil
}
