// Package mirror replicates local mood entries to a remote backing service
// on a best-effort basis. The mirror is never read in the normal flow and its
// failures never reach the user.
package mirror

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/moodtrack/internal/mood"
)

// Mirror is the write surface of the remote replica.
type Mirror interface {
	Add(ctx context.Context, e mood.Entry) error
	Update(ctx context.Context, e mood.Entry) error
	Delete(ctx context.Context, e mood.Entry) error
	Save(ctx context.Context) error
}

// Op names a mirrored mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Payload is the JSON representation of an entry on the wire.
type Payload struct {
	ID    string    `json:"id"`
	Date  time.Time `json:"date"`
	Emoji string    `json:"emoji"`
	Score int       `json:"score"`
	Note  string    `json:"note"`
}

// PayloadFromEntry converts an entry for transport.
func PayloadFromEntry(e mood.Entry) Payload {
	return Payload{
		ID:    e.ID,
		Date:  e.Date,
		Emoji: e.Emoji,
		Score: e.Score,
		Note:  e.Note,
	}
}

// ErrNotConfigured is reported by Nop probes.
var ErrNotConfigured = errors.New("mirror: no remote configured")

// Nop is a Mirror that accepts and drops every call. Its Ping always fails,
// so a connectivity monitor probing it never goes online.
type Nop struct{}

func (Nop) Add(context.Context, mood.Entry) error    { return nil }
func (Nop) Update(context.Context, mood.Entry) error { return nil }
func (Nop) Delete(context.Context, mood.Entry) error { return nil }
func (Nop) Save(context.Context) error               { return nil }
func (Nop) Ping(context.Context) error               { return ErrNotConfigured }
