package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/memotime/internal/database"
	"github.com/dukerupert/memotime/internal/model"
)

type TimerStore struct {
	db database.Provider
}

func NewTimerStore(db database.Provider) *TimerStore {
	return &TimerStore{db: db}
}

func scanTimer(s scanner) (*model.Timer, error) {
	var t model.Timer
	var start, end sql.NullTime
	var duration sql.NullInt64

	if err := s.Scan(&t.ID, &t.TaskName, &start, &end, &duration); err != nil {
		return nil, err
	}
	if start.Valid {
		st := start.Time.UTC()
		t.StartTime = &st
	}
	if end.Valid {
		et := end.Time.UTC()
		t.EndTime = &et
	}
	if duration.Valid {
		t.Duration = &duration.Int64
	}
	return &t, nil
}

const timerCols = `id, task_name, start_time, end_time, duration`

// Create stores a timer with its duration computed from the input.
func (s *TimerStore) Create(ctx context.Context, in model.TimerInput) (int64, error) {
	in = in.Normalize()

	var id int64
	err := withConn(ctx, s.db, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, s.db.Dialect().Rebind(
			`INSERT INTO timers (task_name, start_time, end_time, duration)
			 VALUES (?, ?, ?, ?)
			 RETURNING id`),
			in.TaskName, in.StartTime, nullTime(in.EndTime), nullInt64(in.Duration()),
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("insert timer: %w", err)
	}
	return id, nil
}

// GetByID returns nil, nil when no timer has the id.
func (s *TimerStore) GetByID(ctx context.Context, id int64) (*model.Timer, error) {
	var t *model.Timer
	err := withConn(ctx, s.db, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, s.db.Dialect().Rebind(`SELECT `+timerCols+` FROM timers WHERE id = ?`), id)
		var err error
		t, err = scanTimer(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get timer: %w", err)
	}
	return t, nil
}

func (s *TimerStore) List(ctx context.Context) ([]model.Timer, error) {
	timers, err := s.query(ctx, `SELECT `+timerCols+` FROM timers`)
	if err != nil {
		return nil, fmt.Errorf("list timers: %w", err)
	}
	return timers, nil
}

// Active returns timers that have no end time.
func (s *TimerStore) Active(ctx context.Context) ([]model.Timer, error) {
	timers, err := s.query(ctx, `SELECT `+timerCols+` FROM timers WHERE end_time IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("active timers: %w", err)
	}
	return timers, nil
}

// Range returns timers whose start time lies in [start, end].
func (s *TimerStore) Range(ctx context.Context, start, end time.Time) ([]model.Timer, error) {
	timers, err := s.query(ctx,
		`SELECT `+timerCols+` FROM timers WHERE start_time BETWEEN ? AND ?`,
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("timers in range: %w", err)
	}
	return timers, nil
}

// Update replaces every client-supplied field and recomputes the duration.
// The bool is false when no timer has the id.
func (s *TimerStore) Update(ctx context.Context, id int64, in model.TimerInput) (bool, error) {
	in = in.Normalize()

	n, err := execAffected(ctx, s.db,
		`UPDATE timers SET task_name = ?, start_time = ?, end_time = ?, duration = ? WHERE id = ?`,
		in.TaskName, in.StartTime, nullTime(in.EndTime), nullInt64(in.Duration()), id,
	)
	if err != nil {
		return false, fmt.Errorf("update timer: %w", err)
	}
	return n > 0, nil
}

// Delete removes one timer. The bool is false when no timer has the id.
func (s *TimerStore) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := execAffected(ctx, s.db, `DELETE FROM timers WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete timer: %w", err)
	}
	return n > 0, nil
}

// TotalDuration sums the durations of every timer named taskName. It is
// nil when no timer matches.
func (s *TimerStore) TotalDuration(ctx context.Context, taskName string) (*int64, error) {
	var total sql.NullInt64
	err := withConn(ctx, s.db, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, s.db.Dialect().Rebind(
			`SELECT SUM(duration) FROM timers WHERE task_name = ?`), taskName,
		).Scan(&total)
	})
	if err != nil {
		return nil, fmt.Errorf("total duration: %w", err)
	}
	if !total.Valid {
		return nil, nil
	}
	return &total.Int64, nil
}

// AverageDuration averages duration across all timers. Active timers have
// no duration and are left out. It is nil when there is nothing to average.
func (s *TimerStore) AverageDuration(ctx context.Context) (*float64, error) {
	var avg sql.NullFloat64
	err := withConn(ctx, s.db, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT AVG(duration) FROM timers`).Scan(&avg)
	})
	if err != nil {
		return nil, fmt.Errorf("average duration: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

func (s *TimerStore) query(ctx context.Context, query string, args ...any) ([]model.Timer, error) {
	var timers []model.Timer
	err := withConn(ctx, s.db, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, s.db.Dialect().Rebind(query), args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTimer(rows)
			if err != nil {
				return fmt.Errorf("scan timer: %w", err)
			}
			timers = append(timers, *t)
		}
		return rows.Err()
	})
	return timers, err
}
