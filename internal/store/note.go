package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/memotime/internal/database"
	"github.com/dukerupert/memotime/internal/model"
)

// RecentLimit is the number of notes returned by Recent.
const RecentLimit = 5

type NoteStore struct {
	db database.Provider
}

func NewNoteStore(db database.Provider) *NoteStore {
	return &NoteStore{db: db}
}

func scanNote(s scanner) (*model.Note, error) {
	var n model.Note
	var content sql.NullString

	if err := s.Scan(&n.ID, &n.Title, &content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if content.Valid {
		n.Content = &content.String
	}
	return &n, nil
}

const noteCols = `id, title, content, created_at, updated_at`

// Create inserts a note and returns its id. Both timestamps come from the
// same CURRENT_TIMESTAMP so they start out equal.
func (s *NoteStore) Create(ctx context.Context, title string, content *string) (int64, error) {
	var id int64
	err := withConn(ctx, s.db, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, s.db.Dialect().Rebind(
			`INSERT INTO notes (title, content, created_at, updated_at)
			 VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			 RETURNING id`),
			title, nullString(content),
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("insert note: %w", err)
	}
	return id, nil
}

// GetByID returns nil, nil when no note has the id.
func (s *NoteStore) GetByID(ctx context.Context, id int64) (*model.Note, error) {
	var n *model.Note
	err := withConn(ctx, s.db, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, s.db.Dialect().Rebind(`SELECT `+noteCols+` FROM notes WHERE id = ?`), id)
		var err error
		n, err = scanNote(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// List returns every note in storage order.
func (s *NoteStore) List(ctx context.Context) ([]model.Note, error) {
	notes, err := s.query(ctx, `SELECT `+noteCols+` FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// SearchByTitle matches substr anywhere in the title, ignoring case.
func (s *NoteStore) SearchByTitle(ctx context.Context, substr string) ([]model.Note, error) {
	notes, err := s.query(ctx,
		`SELECT `+noteCols+` FROM notes WHERE LOWER(title) LIKE LOWER(?)`,
		"%"+substr+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	return notes, nil
}

// Recent returns up to limit notes, most recently updated first.
func (s *NoteStore) Recent(ctx context.Context, limit int) ([]model.Note, error) {
	notes, err := s.query(ctx,
		`SELECT `+noteCols+` FROM notes ORDER BY updated_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent notes: %w", err)
	}
	return notes, nil
}

func (s *NoteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := withConn(ctx, s.db, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

// Update rewrites title and content and refreshes updated_at. The bool is
// false when no note has the id.
func (s *NoteStore) Update(ctx context.Context, id int64, title string, content *string) (bool, error) {
	n, err := execAffected(ctx, s.db,
		`UPDATE notes SET title = ?, content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, nullString(content), id,
	)
	if err != nil {
		return false, fmt.Errorf("update note: %w", err)
	}
	return n > 0, nil
}

// Delete removes one note. The bool is false when no note has the id.
func (s *NoteStore) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := execAffected(ctx, s.db, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	return n > 0, nil
}

// BulkDelete removes every note whose id is in ids with a single statement
// and returns the number removed.
func (s *NoteStore) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execAffected(ctx, s.db,
		`DELETE FROM notes WHERE id IN (`+database.Placeholders(len(ids))+`)`,
		idArgs(ids)...,
	)
	if err != nil {
		return 0, fmt.Errorf("bulk delete notes: %w", err)
	}
	return n, nil
}

func (s *NoteStore) query(ctx context.Context, query string, args ...any) ([]model.Note, error) {
	var notes []model.Note
	err := withConn(ctx, s.db, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, s.db.Dialect().Rebind(query), args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			n, err := scanNote(rows)
			if err != nil {
				return fmt.Errorf("scan note: %w", err)
			}
			notes = append(notes, *n)
		}
		return rows.Err()
	})
	return notes, err
}
