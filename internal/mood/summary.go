package mood

import (
	"sort"
	"time"
)

// Summary aggregates the entries of one month for charting.
type Summary struct {
	Month          time.Month
	Entries        []Entry
	Average        float64
	AveragePercent float64
	Emoji          string
}

// HasData reports whether the summary covers at least one entry.
func (s Summary) HasData() bool {
	return len(s.Entries) > 0
}

// Summarize sorts entries by date and computes the average score.
// An empty month yields a zero average and no emoji.
func Summarize(month time.Month, entries []Entry) Summary {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	s := Summary{Month: month, Entries: sorted}
	if len(sorted) == 0 {
		return s
	}

	total := 0
	for _, e := range sorted {
		total += e.Score
	}
	s.Average = float64(total) / float64(len(sorted))
	s.AveragePercent = s.Average / MaxScore * 100
	s.Emoji = EmojiForScore(int(s.Average))
	return s
}
