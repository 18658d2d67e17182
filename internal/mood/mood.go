package mood

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidForm is returned when a submission lacks an emoji or a note.
	ErrInvalidForm = errors.New("mood: emoji and note are required")
	// ErrDuplicateDay is returned when an entry already exists for the requested day.
	ErrDuplicateDay = errors.New("a mood entry already exists for this date")
	// ErrUnknownMood is returned for emoji tokens outside the catalog.
	ErrUnknownMood = errors.New("mood: unknown mood emoji")
	// ErrFutureDate is returned when an entry is dated after today.
	ErrFutureDate = errors.New("mood: date is in the future")
)

// Mood is one selectable catalog item.
type Mood struct {
	Emoji string
	Label string
	Score int
}

// Catalog lists the selectable moods, best first.
var Catalog = []Mood{
	{Emoji: "🥳", Label: "Very Happy", Score: 5},
	{Emoji: "😄", Label: "Happy", Score: 4},
	{Emoji: "😐", Label: "Neutral", Score: 3},
	{Emoji: "😢", Label: "Sad", Score: 2},
	{Emoji: "😭", Label: "Very Sad", Score: 1},
}

// MaxScore is the highest score in the catalog.
const MaxScore = 5

const neutralEmoji = "😐"

// Lookup returns the catalog item for emoji.
func Lookup(emoji string) (Mood, bool) {
	for _, m := range Catalog {
		if m.Emoji == emoji {
			return m, true
		}
	}
	return Mood{}, false
}

// EmojiForScore returns the catalog emoji for score, or the neutral emoji.
func EmojiForScore(score int) string {
	for _, m := range Catalog {
		if m.Score == score {
			return m.Emoji
		}
	}
	return neutralEmoji
}

// IsValid reports whether a form with the given emoji and note may be submitted.
func IsValid(emoji, note string) bool {
	return emoji != "" && strings.TrimSpace(note) != ""
}

// Entry is a single persisted mood record.
type Entry struct {
	ID    string
	Date  time.Time
	Emoji string
	Score int
	Note  string
}

// SameContent reports whether emoji, note and score match.
func (e Entry) SameContent(other Entry) bool {
	return e.Emoji == other.Emoji && e.Note == other.Note && e.Score == other.Score
}
