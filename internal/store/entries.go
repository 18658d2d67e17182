package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/moodtrack/internal/mood"
	"go.uber.org/zap"
)

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeDelete
)

type change struct {
	kind  changeKind
	entry mood.Entry
}

// Entries is the authoritative local store of mood entries.
//
// Add, Update and Delete only stage changes; nothing is durable until Save
// commits them in a single transaction. Reads always see committed rows.
type Entries struct {
	db     *DB
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger

	mu      sync.Mutex
	pending []change
}

// Option customizes an Entries store.
type Option func(*Entries)

// WithLocation sets the calendar used for day and month boundaries.
func WithLocation(loc *time.Location) Option {
	return func(e *Entries) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithClock overrides the clock used to resolve the current year.
func WithClock(now func() time.Time) Option {
	return func(e *Entries) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEntries creates an entry store on top of a migrated DB.
func NewEntries(db *DB, logger *zap.Logger, opts ...Option) *Entries {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Entries{
		db:     db,
		loc:    time.Local,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns the calendar location used for day boundaries.
func (s *Entries) Location() *time.Location {
	return s.loc
}

// Add stages a new entry for insertion.
func (s *Entries) Add(e *mood.Entry) {
	s.stage(changeInsert, e)
}

// Update stages the mutable fields of e (emoji, score, note) for writing.
func (s *Entries) Update(e *mood.Entry) {
	s.stage(changeUpdate, e)
}

// Delete stages removal of e. Deleting an entry that is not stored is a no-op.
func (s *Entries) Delete(e *mood.Entry) {
	s.stage(changeDelete, e)
}

func (s *Entries) stage(kind changeKind, e *mood.Entry) {
	if e == nil {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, change{kind: kind, entry: *e})
	s.mu.Unlock()
}

// HasChanges reports whether there are staged changes waiting for Save.
func (s *Entries) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// Discard drops every staged change.
func (s *Entries) Discard() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// Save durably applies all staged changes. It returns only after the
// transaction commits. On failure every staged change is dropped, so the
// store never exposes a half-applied mutation.
func (s *Entries) Save(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	if err := s.flush(ctx, pending); err != nil {
		s.logger.Error("failed to save mood entries", zap.Error(err), zap.Int("changes", len(pending)))
		return err
	}
	s.logger.Debug("mood entries saved", zap.Int("changes", len(pending)))
	return nil
}

func (s *Entries) flush(ctx context.Context, pending []change) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, c := range pending {
		e := c.entry
		switch c.kind {
		case changeInsert:
			start, end := mood.DayRange(e.Date.In(s.loc))
			var count int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM mood_entries WHERE date_ms >= ? AND date_ms < ?`,
				start.UnixMilli(), end.UnixMilli()).Scan(&count); err != nil {
				return fmt.Errorf("check day: %w", err)
			}
			if count > 0 {
				return mood.ErrDuplicateDay
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO mood_entries (id, date_ms, emoji, score, note, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				e.ID, e.Date.UnixMilli(), e.Emoji, e.Score, e.Note, now, now); err != nil {
				return fmt.Errorf("insert entry %s: %w", e.ID, err)
			}
		case changeUpdate:
			if _, err := tx.ExecContext(ctx, `
				UPDATE mood_entries SET emoji = ?, score = ?, note = ?, updated_at = ?
				WHERE id = ?`,
				e.Emoji, e.Score, e.Note, now, e.ID); err != nil {
				return fmt.Errorf("update entry %s: %w", e.ID, err)
			}
		case changeDelete:
			if _, err := tx.ExecContext(ctx, `DELETE FROM mood_entries WHERE id = ?`, e.ID); err != nil {
				return fmt.Errorf("delete entry %s: %w", e.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const selectEntry = `SELECT id, date_ms, emoji, score, note FROM mood_entries`

// All returns every entry ordered by date ascending.
func (s *Entries) All(ctx context.Context) []mood.Entry {
	entries, err := s.query(ctx, selectEntry+` ORDER BY date_ms ASC`)
	if err != nil {
		s.logger.Error("failed to fetch mood entries", zap.Error(err))
		return nil
	}
	return entries
}

// Get returns the entry with the given id, or nil.
func (s *Entries) Get(ctx context.Context, id string) *mood.Entry {
	row := s.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id)
	e, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.logger.Error("failed to fetch mood entry", zap.Error(err), zap.String("id", id))
		return nil
	}
	return &e
}

// ByMonth returns the entries dated within month of the current year.
func (s *Entries) ByMonth(ctx context.Context, month int) []mood.Entry {
	if month < 1 || month > 12 {
		return nil
	}
	start, end := mood.MonthRange(s.now().In(s.loc).Year(), time.Month(month), s.loc)
	entries, err := s.query(ctx, selectEntry+` WHERE date_ms >= ? AND date_ms < ? ORDER BY date_ms ASC`,
		start.UnixMilli(), end.UnixMilli())
	if err != nil {
		s.logger.Error("failed to fetch moods by month", zap.Error(err), zap.Int("month", month))
		return nil
	}
	return entries
}

// ExistsOnDay reports whether an entry is stored for date's calendar day.
func (s *Entries) ExistsOnDay(ctx context.Context, date time.Time) bool {
	start, end := mood.DayRange(date.In(s.loc))
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM mood_entries WHERE date_ms >= ? AND date_ms < ?)`,
		start.UnixMilli(), end.UnixMilli()).Scan(&exists)
	if err != nil {
		s.logger.Error("failed to check day", zap.Error(err), zap.Time("date", date))
		return false
	}
	return exists
}

// Count returns the number of stored entries.
func (s *Entries) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mood_entries`).Scan(&n); err != nil {
		s.logger.Error("failed to count mood entries", zap.Error(err))
		return 0
	}
	return n
}

func (s *Entries) query(ctx context.Context, query string, args ...any) ([]mood.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []mood.Entry
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Entries) scan(row scanner) (mood.Entry, error) {
	var (
		e      mood.Entry
		dateMs int64
	)
	if err := row.Scan(&e.ID, &dateMs, &e.Emoji, &e.Score, &e.Note); err != nil {
		return mood.Entry{}, err
	}
	e.Date = time.UnixMilli(dateMs).In(s.loc)
	return e, nil
}
