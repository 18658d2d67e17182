package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries a stable machine-readable code for the HTTP layer.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew  = "remote.service.new"
	opUpsert      = "remote.upsert"
	opDelete      = "remote.delete"
	opCheckpoint  = "remote.checkpoint"
	opListEntries = "remote.list_entries"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: operation + "." + reason, err: cause}
}

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service stores the entries mirrored by each device.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// SyncResult acknowledges a device checkpoint.
type SyncResult struct {
	Entries  int64
	SyncedAt time.Time
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Upsert stores rec for device, replacing any previous copy.
func (s *Service) Upsert(ctx context.Context, deviceID string, rec Record) error {
	device, err := validateID(deviceID, ErrInvalidDeviceID)
	if err != nil {
		return newServiceError(opUpsert, "invalid_device", err)
	}
	id, err := validateID(rec.ID, ErrInvalidEntryID)
	if err != nil {
		return newServiceError(opUpsert, "invalid_entry_id", err)
	}
	if err := rec.validate(); err != nil {
		return newServiceError(opUpsert, "invalid_entry", err)
	}

	row := Entry{
		DeviceID:         device,
		EntryID:          id,
		DateMs:           rec.Date.UnixMilli(),
		Emoji:            rec.Emoji,
		Score:            rec.Score,
		Note:             rec.Note,
		UpdatedAtSeconds: s.clock().UTC().Unix(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}, {Name: "entry_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"date_ms", "emoji", "score", "note", "updated_at_s"}),
	}).Create(&row).Error
	if err != nil {
		s.logError(opUpsert, "write_failed", err, zap.String("device_id", device), zap.String("entry_id", id))
		return newServiceError(opUpsert, "write_failed", err)
	}
	return nil
}

// Delete removes an entry. Unknown entries are ignored.
func (s *Service) Delete(ctx context.Context, deviceID, entryID string) error {
	device, err := validateID(deviceID, ErrInvalidDeviceID)
	if err != nil {
		return newServiceError(opDelete, "invalid_device", err)
	}
	id, err := validateID(entryID, ErrInvalidEntryID)
	if err != nil {
		return newServiceError(opDelete, "invalid_entry_id", err)
	}
	err = s.db.WithContext(ctx).
		Where("device_id = ? AND entry_id = ?", device, id).
		Delete(&Entry{}).Error
	if err != nil {
		s.logError(opDelete, "write_failed", err, zap.String("device_id", device), zap.String("entry_id", id))
		return newServiceError(opDelete, "write_failed", err)
	}
	return nil
}

// Checkpoint records that device has finished a batch of writes.
func (s *Service) Checkpoint(ctx context.Context, deviceID string) (SyncResult, error) {
	device, err := validateID(deviceID, ErrInvalidDeviceID)
	if err != nil {
		return SyncResult{}, newServiceError(opCheckpoint, "invalid_device", err)
	}

	var result SyncResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Entry{}).Where("device_id = ?", device).Count(&result.Entries).Error; err != nil {
			return err
		}
		result.SyncedAt = s.clock().UTC().Truncate(time.Second)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"synced_at_s", "entries"}),
		}).Create(&Checkpoint{
			DeviceID:        device,
			SyncedAtSeconds: result.SyncedAt.Unix(),
			Entries:         result.Entries,
		}).Error
	})
	if txErr != nil {
		s.logError(opCheckpoint, "write_failed", txErr, zap.String("device_id", device))
		return SyncResult{}, newServiceError(opCheckpoint, "write_failed", txErr)
	}
	return result, nil
}

// LastCheckpoint returns the latest checkpoint of device, if any.
func (s *Service) LastCheckpoint(ctx context.Context, deviceID string) (*Checkpoint, error) {
	var cp Checkpoint
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).Take(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, newServiceError(opCheckpoint, "read_failed", err)
	}
	return &cp, nil
}

// ListEntries returns the entries mirrored by device ordered by date.
func (s *Service) ListEntries(ctx context.Context, deviceID string) ([]Record, error) {
	device, err := validateID(deviceID, ErrInvalidDeviceID)
	if err != nil {
		return nil, newServiceError(opListEntries, "invalid_device", err)
	}
	var rows []Entry
	err = s.db.WithContext(ctx).
		Where("device_id = ?", device).
		Order("date_ms ASC").
		Find(&rows).Error
	if err != nil {
		s.logError(opListEntries, "query_failed", err, zap.String("device_id", device))
		return nil, newServiceError(opListEntries, "query_failed", err)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	s.logger.Error(operation+"."+reason, append(fields, zap.Error(err))...)
}
