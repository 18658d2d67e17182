package api

import (
	"fmt"
	"time"

	"github.com/matheus3301/moodtrack/internal/mood"
	"google.golang.org/protobuf/types/known/structpb"
)

// DayLayout is the wire format of a calendar day.
const DayLayout = "2006-01-02"

func entryFields(e mood.Entry) map[string]any {
	return map[string]any{
		"id":        e.ID,
		"day":       e.Date.Format(DayLayout),
		"timestamp": e.Date.Format(time.RFC3339),
		"emoji":     e.Emoji,
		"score":     e.Score,
		"note":      e.Note,
	}
}

func entryList(entries []mood.Entry) []any {
	list := make([]any, 0, len(entries))
	for _, e := range entries {
		list = append(list, entryFields(e))
	}
	return list
}

func summaryFields(s mood.Summary) map[string]any {
	return map[string]any{
		"month":           int(s.Month),
		"month_name":      s.Month.String(),
		"entries":         entryList(s.Entries),
		"average":         s.Average,
		"average_percent": s.AveragePercent,
		"emoji":           s.Emoji,
		"has_data":        s.HasData(),
	}
}

func decodeEntry(s *structpb.Struct) (mood.Entry, error) {
	if s == nil {
		return mood.Entry{}, fmt.Errorf("missing entry")
	}
	ts, _ := stringField(s, "timestamp")
	date, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return mood.Entry{}, fmt.Errorf("entry timestamp: %w", err)
	}
	id, _ := stringField(s, "id")
	emoji, _ := stringField(s, "emoji")
	note, _ := stringField(s, "note")
	score, _ := intField(s, "score")
	return mood.Entry{ID: id, Date: date, Emoji: emoji, Score: score, Note: note}, nil
}

func decodeEntries(s *structpb.Struct, key string) ([]mood.Entry, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}
	values := v.GetListValue().GetValues()
	entries := make([]mood.Entry, 0, len(values))
	for _, item := range values {
		e, err := decodeEntry(item.GetStructValue())
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeSummary(s *structpb.Struct) (mood.Summary, error) {
	month, _ := intField(s, "month")
	entries, err := decodeEntries(s, "entries")
	if err != nil {
		return mood.Summary{}, err
	}
	emoji, _ := stringField(s, "emoji")
	return mood.Summary{
		Month:          time.Month(month),
		Entries:        entries,
		Average:        s.GetFields()["average"].GetNumberValue(),
		AveragePercent: s.GetFields()["average_percent"].GetNumberValue(),
		Emoji:          emoji,
	}, nil
}

func stringField(s *structpb.Struct, key string) (string, bool) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", false
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return str.StringValue, true
}

func intField(s *structpb.Struct, key string) (int, bool) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, false
	}
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	return int(num.NumberValue), true
}
