// Package sync sequences a single journal mutation across the local store
// and the remote mirror: write locally, mirror if online, then wait for the
// local flush.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/moodtrack/internal/bus"
	"github.com/matheus3301/moodtrack/internal/mirror"
	"github.com/matheus3301/moodtrack/internal/mood"
	"go.uber.org/zap"
)

// ErrNotEditing is returned by update and delete outside an edit session.
var ErrNotEditing = errors.New("sync: no entry is being edited")

// ErrDateLocked is returned when changing the date of an existing entry.
var ErrDateLocked = errors.New("sync: the date of an existing entry cannot change")

// LocalStore is the subset of the local store the coordinator writes through.
type LocalStore interface {
	Add(e *mood.Entry)
	Update(e *mood.Entry)
	Delete(e *mood.Entry)
	Save(ctx context.Context) error
	ExistsOnDay(ctx context.Context, date time.Time) bool
}

// Dispatcher queues best-effort mirror work. It must not block.
type Dispatcher interface {
	Dispatch(op mirror.Op, e mood.Entry)
}

// Connectivity reports whether mirror work should be attempted.
type Connectivity interface {
	IsOnline() bool
}

// Deps are the services a Coordinator is built from.
type Deps struct {
	Store    LocalStore
	Mirror   Dispatcher
	Network  Connectivity
	Bus      *bus.Bus
	Logger   *zap.Logger
	Clock    func() time.Time
	Location *time.Location
}

// Mode distinguishes creating a new entry from editing an existing one.
type Mode int

const (
	Create Mode = iota
	Edit
)

func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "create"
}

// State is the coordinator's position in a submission.
type State string

const (
	Idle         State = "IDLE"
	Validating   State = "VALIDATING"
	Rejected     State = "REJECTED"
	WritingLocal State = "WRITING_LOCAL"
	LocalFailed  State = "LOCAL_FAILED"
	Saved        State = "SAVED"
)

// Coordinator holds one form session (create or edit) and performs its
// submissions. Callers read Succeeded and ErrorMessage after each submit.
type Coordinator struct {
	deps Deps

	mu        gosync.Mutex
	mode      Mode
	editing   *mood.Entry
	original  mood.Entry
	emoji     string
	note      string
	date      time.Time
	score     int
	state     State
	succeeded bool
	errMsg    string
}

// NewCoordinator starts a create session dated today.
func NewCoordinator(deps Deps) *Coordinator {
	deps = withDefaults(deps)
	return &Coordinator{
		deps:  deps,
		mode:  Create,
		date:  deps.Clock().In(deps.Location),
		state: Idle,
	}
}

// NewEditCoordinator starts an edit session for entry. The form is seeded
// from entry and the entry itself is mutated on a successful update.
func NewEditCoordinator(deps Deps, entry *mood.Entry) *Coordinator {
	c := NewCoordinator(deps)
	c.mode = Edit
	c.editing = entry
	c.original = *entry
	c.emoji = entry.Emoji
	c.note = entry.Note
	c.date = entry.Date
	c.score = entry.Score
	return c
}

func withDefaults(d Deps) Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Mirror == nil {
		d.Mirror = discard{}
	}
	if d.Network == nil {
		d.Network = offline{}
	}
	return d
}

type discard struct{}

func (discard) Dispatch(mirror.Op, mood.Entry) {}

type offline struct{}

func (offline) IsOnline() bool { return false }

// SelectEmoji picks a catalog mood and derives the score from it.
func (c *Coordinator) SelectEmoji(emoji string) error {
	m, ok := mood.Lookup(emoji)
	if !ok {
		return fmt.Errorf("%w: %q", mood.ErrUnknownMood, emoji)
	}
	c.mu.Lock()
	c.emoji = m.Emoji
	c.score = m.Score
	c.mu.Unlock()
	return nil
}

// SetNote replaces the note text.
func (c *Coordinator) SetNote(note string) {
	c.mu.Lock()
	c.note = note
	c.mu.Unlock()
}

// SetDate sets the day of a new entry. Dates after today are rejected and
// edit sessions cannot move an entry.
func (c *Coordinator) SetDate(date time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == Edit {
		return ErrDateLocked
	}
	if mood.IsAfterDay(date, c.deps.Clock().In(c.deps.Location)) {
		return mood.ErrFutureDate
	}
	c.date = date
	return nil
}

// Emoji returns the selected emoji.
func (c *Coordinator) Emoji() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emoji
}

// Note returns the current note text.
func (c *Coordinator) Note() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.note
}

// Date returns the target date.
func (c *Coordinator) Date() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

// Score returns the score derived from the selected emoji.
func (c *Coordinator) Score() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score
}

// Mode returns whether this session creates or edits.
func (c *Coordinator) Mode() Mode {
	return c.mode
}

// IsValid reports whether the form may be submitted.
func (c *Coordinator) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mood.IsValid(c.emoji, c.note)
}

// Succeeded reports whether the last submission completed.
func (c *Coordinator) Succeeded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.succeeded
}

// ErrorMessage returns the caller-visible error of the last submission.
func (c *Coordinator) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// State returns where the last submission ended.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Entry returns a copy of the entry being edited, or the zero Entry in
// create mode.
func (c *Coordinator) Entry() mood.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editing == nil {
		return mood.Entry{}
	}
	return *c.editing
}

// SubmitAdd creates a new entry for the selected day.
func (c *Coordinator) SubmitAdd(ctx context.Context) (mood.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validate(); err != nil {
		return mood.Entry{}, err
	}

	if c.deps.Store.ExistsOnDay(ctx, c.date) {
		c.reject(mood.ErrDuplicateDay.Error())
		return mood.Entry{}, mood.ErrDuplicateDay
	}

	entry := mood.Entry{
		ID:    uuid.NewString(),
		Date:  c.date,
		Emoji: c.emoji,
		Score: c.score,
		Note:  strings.TrimSpace(c.note),
	}

	c.state = WritingLocal
	c.deps.Store.Add(&entry)
	c.mirror(mirror.OpAdd, entry)

	if err := c.flush(ctx); err != nil {
		return mood.Entry{}, err
	}
	c.deps.Logger.Info("mood entry added", zap.String("id", entry.ID), zap.Time("date", entry.Date))
	c.deps.Bus.Emit(bus.EntryAdded, entry)
	return entry, nil
}

// SubmitUpdate writes the form's emoji, note and score into the entry being
// edited. An unchanged form succeeds without touching the store. The entry
// date never changes.
func (c *Coordinator) SubmitUpdate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != Edit {
		return ErrNotEditing
	}
	if err := c.validate(); err != nil {
		return err
	}

	next := c.original
	next.Emoji = c.emoji
	next.Note = strings.TrimSpace(c.note)
	next.Score = c.score
	if next.SameContent(c.original) {
		c.succeed()
		return nil
	}

	c.editing.Emoji = next.Emoji
	c.editing.Note = next.Note
	c.editing.Score = next.Score

	c.state = WritingLocal
	c.deps.Store.Update(c.editing)
	c.mirror(mirror.OpUpdate, *c.editing)

	if err := c.flush(ctx); err != nil {
		c.editing.Emoji = c.original.Emoji
		c.editing.Note = c.original.Note
		c.editing.Score = c.original.Score
		return err
	}
	c.original = *c.editing
	c.deps.Logger.Info("mood entry updated", zap.String("id", c.editing.ID))
	c.deps.Bus.Emit(bus.EntryUpdated, *c.editing)
	return nil
}

// SubmitDelete removes the entry being edited.
func (c *Coordinator) SubmitDelete(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != Edit {
		return ErrNotEditing
	}
	c.begin()

	c.state = WritingLocal
	c.deps.Store.Delete(c.editing)
	c.mirror(mirror.OpDelete, *c.editing)

	if err := c.flush(ctx); err != nil {
		return err
	}
	c.deps.Logger.Info("mood entry deleted", zap.String("id", c.editing.ID))
	c.deps.Bus.Emit(bus.EntryDeleted, *c.editing)
	return nil
}

// begin resets the outputs of the previous submission. Caller holds mu.
func (c *Coordinator) begin() {
	c.state = Validating
	c.succeeded = false
	c.errMsg = ""
}

// validate gates a submission on a complete form. Validation failures leave
// the error message empty. Caller holds mu.
func (c *Coordinator) validate() error {
	c.begin()
	if !mood.IsValid(c.emoji, c.note) {
		c.state = Rejected
		return mood.ErrInvalidForm
	}
	return nil
}

func (c *Coordinator) reject(msg string) {
	c.state = Rejected
	c.errMsg = msg
}

func (c *Coordinator) succeed() {
	c.state = Saved
	c.succeeded = true
	c.errMsg = ""
}

// mirror hands e to the dispatcher when online. Caller holds mu.
func (c *Coordinator) mirror(op mirror.Op, e mood.Entry) {
	if !c.deps.Network.IsOnline() {
		c.deps.Logger.Debug("offline, skipping mirror", zap.String("op", string(op)), zap.String("id", e.ID))
		return
	}
	c.deps.Mirror.Dispatch(op, e)
}

// flush waits for the local store to commit. Caller holds mu.
func (c *Coordinator) flush(ctx context.Context) error {
	if err := c.deps.Store.Save(ctx); err != nil {
		c.state = LocalFailed
		c.errMsg = err.Error()
		c.deps.Logger.Error("failed to save mood entry", zap.Error(err))
		return fmt.Errorf("save: %w", err)
	}
	c.succeed()
	return nil
}
