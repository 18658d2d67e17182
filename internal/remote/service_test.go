package remote

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

func testDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "mirror.db"), nil)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func testService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{
		Database: testDatabase(t),
		Clock:    func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func record(id string, day int, emoji string, score int, note string) Record {
	return Record{
		ID:    id,
		Date:  time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC),
		Emoji: emoji,
		Score: score,
		Note:  note,
	}
}

func TestNewServiceRequiresDatabase(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error = %v, want ServiceError", err)
	}
	if serviceErr.Code() != "remote.service.new.missing_database" {
		t.Errorf("code = %q", serviceErr.Code())
	}
}

func TestUpsertReplacesPreviousCopy(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if err := svc.Upsert(ctx, "laptop", record("e1", 10, "😄", 4, "Good day")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := svc.Upsert(ctx, "laptop", record("e1", 10, "🥳", 5, "Great day")); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	records, err := svc.ListEntries(ctx, "laptop")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Note != "Great day" || records[0].Score != 5 {
		t.Errorf("record = %+v", records[0])
	}
	if !records[0].Date.Equal(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", records[0].Date)
	}
}

func TestDevicesArePartitioned(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	if err := svc.Upsert(ctx, "laptop", record("e1", 10, "😄", 4, "a")); err != nil {
		t.Fatal(err)
	}
	if err := svc.Upsert(ctx, "phone", record("e1", 11, "😢", 2, "b")); err != nil {
		t.Fatal(err)
	}

	laptop, _ := svc.ListEntries(ctx, "laptop")
	phone, _ := svc.ListEntries(ctx, "phone")
	if len(laptop) != 1 || laptop[0].Note != "a" {
		t.Errorf("laptop = %+v", laptop)
	}
	if len(phone) != 1 || phone[0].Note != "b" {
		t.Errorf("phone = %+v", phone)
	}
}

func TestUpsertValidation(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		device string
		rec    Record
		want   error
	}{
		{"no device", " ", record("e1", 10, "😄", 4, "n"), ErrInvalidDeviceID},
		{"no id", "laptop", record("", 10, "😄", 4, "n"), ErrInvalidEntryID},
		{"unknown emoji", "laptop", record("e1", 10, "🤖", 4, "n"), ErrInvalidEntry},
		{"score mismatch", "laptop", record("e1", 10, "😄", 1, "n"), ErrInvalidEntry},
		{"no date", "laptop", Record{ID: "e1", Emoji: "😄", Score: 4}, ErrInvalidEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Upsert(ctx, tt.device, tt.rec)
			if !errors.Is(err, tt.want) {
				t.Errorf("Upsert() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	if err := svc.Upsert(ctx, "laptop", record("e1", 10, "😄", 4, "n")); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.Delete(ctx, "laptop", "e1"); err != nil {
			t.Fatalf("Delete() #%d error = %v", i+1, err)
		}
	}
	records, _ := svc.ListEntries(ctx, "laptop")
	if len(records) != 0 {
		t.Errorf("got %d records after delete", len(records))
	}
}

func TestCheckpoint(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if cp, err := svc.LastCheckpoint(ctx, "laptop"); err != nil || cp != nil {
		t.Fatalf("LastCheckpoint() before sync = %+v, %v", cp, err)
	}

	_ = svc.Upsert(ctx, "laptop", record("e1", 10, "😄", 4, "n"))
	_ = svc.Upsert(ctx, "laptop", record("e2", 11, "😐", 3, "n"))

	result, err := svc.Checkpoint(ctx, "laptop")
	if err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if result.Entries != 2 || !result.SyncedAt.Equal(fixedNow) {
		t.Errorf("result = %+v", result)
	}

	_ = svc.Delete(ctx, "laptop", "e1")
	if _, err := svc.Checkpoint(ctx, "laptop"); err != nil {
		t.Fatal(err)
	}
	cp, err := svc.LastCheckpoint(ctx, "laptop")
	if err != nil || cp == nil {
		t.Fatalf("LastCheckpoint() = %+v, %v", cp, err)
	}
	if cp.Entries != 1 || cp.SyncedAtSeconds != fixedNow.Unix() {
		t.Errorf("checkpoint = %+v", cp)
	}
}
