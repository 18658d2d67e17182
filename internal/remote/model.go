package remote

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/moodtrack/internal/mood"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidDeviceID indicates a missing or oversized device identifier.
	ErrInvalidDeviceID = errors.New("remote: invalid device id")
	// ErrInvalidEntryID indicates a missing or oversized entry identifier.
	ErrInvalidEntryID = errors.New("remote: invalid entry id")
	// ErrInvalidEntry indicates an entry payload outside the mood catalog.
	ErrInvalidEntry = errors.New("remote: invalid entry")
)

// Entry is the replicated copy of a journal entry, keyed by the device that
// mirrored it.
type Entry struct {
	DeviceID         string `gorm:"column:device_id;primaryKey;size:190;not null;index:idx_entries_device_date,priority:1"`
	EntryID          string `gorm:"column:entry_id;primaryKey;size:190;not null"`
	DateMs           int64  `gorm:"column:date_ms;not null;index:idx_entries_device_date,priority:2"`
	Emoji            string `gorm:"column:emoji;size:16;not null"`
	Score            int    `gorm:"column:score;not null"`
	Note             string `gorm:"column:note;type:text;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "mirrored_entries"
}

// Checkpoint records the last sync acknowledged for a device.
type Checkpoint struct {
	DeviceID        string `gorm:"column:device_id;primaryKey;size:190;not null"`
	SyncedAtSeconds int64  `gorm:"column:synced_at_s;not null"`
	Entries         int64  `gorm:"column:entries;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Checkpoint) TableName() string {
	return "sync_checkpoints"
}

// Record is an entry as accepted from or returned to a device.
type Record struct {
	ID    string
	Date  time.Time
	Emoji string
	Score int
	Note  string
}

func validateID(raw string, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", sentinel)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", sentinel, maxIdentifierLength)
	}
	return trimmed, nil
}

func (r Record) validate() error {
	m, ok := mood.Lookup(r.Emoji)
	if !ok {
		return fmt.Errorf("%w: unknown emoji %q", ErrInvalidEntry, r.Emoji)
	}
	if r.Score != m.Score {
		return fmt.Errorf("%w: score %d does not match %s", ErrInvalidEntry, r.Score, r.Emoji)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidEntry)
	}
	return nil
}

func (e Entry) record() Record {
	return Record{
		ID:    e.EntryID,
		Date:  time.UnixMilli(e.DateMs).UTC(),
		Emoji: e.Emoji,
		Score: e.Score,
		Note:  e.Note,
	}
}
