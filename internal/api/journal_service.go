package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matheus3301/moodtrack/internal/bus"
	"github.com/matheus3301/moodtrack/internal/connectivity"
	"github.com/matheus3301/moodtrack/internal/mood"
	intsync "github.com/matheus3301/moodtrack/internal/sync"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// EntryStore is the local store as seen by the journal service.
type EntryStore interface {
	intsync.LocalStore
	Get(ctx context.Context, id string) *mood.Entry
	All(ctx context.Context) []mood.Entry
	ByMonth(ctx context.Context, month int) []mood.Entry
	Count(ctx context.Context) int
}

// MirrorQueue is the mirror dispatcher as seen by the journal service.
type MirrorQueue interface {
	intsync.Dispatcher
	Pending() int
}

// Network reports mirror reachability.
type Network interface {
	IsOnline() bool
	Current() connectivity.State
	Since() time.Time
}

// ServiceConfig holds the collaborators of a JournalService.
type ServiceConfig struct {
	Profile  string
	Store    EntryStore
	Mirror   MirrorQueue
	Network  Network
	Bus      *bus.Bus
	Logger   *zap.Logger
	Clock    func() time.Time
	Location *time.Location
}

// JournalService implements the moodtrack.v1.Journal gRPC service. Every
// mutation runs a fresh coordinator under a single write lock, so staged
// store changes from two requests never mix.
type JournalService struct {
	cfg       ServiceConfig
	startedAt time.Time

	writeMu sync.Mutex
}

// NewJournalService creates a new journal service.
func NewJournalService(cfg ServiceConfig) *JournalService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &JournalService{cfg: cfg, startedAt: cfg.Clock()}
}

func (s *JournalService) deps() intsync.Deps {
	d := intsync.Deps{
		Store:    s.cfg.Store,
		Bus:      s.cfg.Bus,
		Logger:   s.cfg.Logger,
		Clock:    s.cfg.Clock,
		Location: s.cfg.Location,
	}
	if s.cfg.Mirror != nil {
		d.Mirror = s.cfg.Mirror
	}
	if s.cfg.Network != nil {
		d.Network = s.cfg.Network
	}
	return d
}

func (s *JournalService) AddEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c := intsync.NewCoordinator(s.deps())

	if emoji, ok := stringField(req, "emoji"); ok && emoji != "" {
		if err := c.SelectEmoji(emoji); err != nil {
			return nil, toStatus(err)
		}
	}
	note, _ := stringField(req, "note")
	c.SetNote(note)
	if raw, ok := stringField(req, "date"); ok && raw != "" {
		date, err := parseDay(raw, s.cfg.Location)
		if err != nil {
			return nil, grpcstatus.Errorf(codes.InvalidArgument, "invalid date %q: use YYYY-MM-DD", raw)
		}
		if err := c.SetDate(date); err != nil {
			return nil, toStatus(err)
		}
	}

	s.writeMu.Lock()
	entry, err := c.SubmitAdd(ctx)
	s.writeMu.Unlock()
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(entryFields(entry))
}

func (s *JournalService) UpdateEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entry, err := s.lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	c := intsync.NewEditCoordinator(s.deps(), entry)
	if emoji, ok := stringField(req, "emoji"); ok {
		if err := c.SelectEmoji(emoji); err != nil {
			return nil, toStatus(err)
		}
	}
	if note, ok := stringField(req, "note"); ok {
		c.SetNote(note)
	}
	if err := c.SubmitUpdate(ctx); err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(entryFields(c.Entry()))
}

func (s *JournalService) DeleteEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entry, err := s.lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	c := intsync.NewEditCoordinator(s.deps(), entry)
	if err := c.SubmitDelete(ctx); err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"id": entry.ID, "deleted": true})
}

func (s *JournalService) GetEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	entry, err := s.lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(entryFields(*entry))
}

func (s *JournalService) ListEntries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var entries []mood.Entry
	if month, ok := intField(req, "month"); ok && month != 0 {
		if month < 1 || month > 12 {
			return nil, grpcstatus.Errorf(codes.InvalidArgument, "month must be between 1 and 12, got %d", month)
		}
		entries = s.cfg.Store.ByMonth(ctx, month)
	} else {
		entries = s.cfg.Store.All(ctx)
	}
	return structpb.NewStruct(map[string]any{"entries": entryList(entries)})
}

func (s *JournalService) MonthSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	month, ok := intField(req, "month")
	if !ok || month < 1 || month > 12 {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "month must be between 1 and 12")
	}
	summary := mood.Summarize(time.Month(month), s.cfg.Store.ByMonth(ctx, month))
	return structpb.NewStruct(summaryFields(summary))
}

func (s *JournalService) Status(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	fields := map[string]any{
		"profile":        s.cfg.Profile,
		"connectivity":   string(connectivity.Unknown),
		"pending_mirror": 0,
		"entries":        s.cfg.Store.Count(ctx),
		"uptime_ms":      s.cfg.Clock().Sub(s.startedAt).Milliseconds(),
	}
	if s.cfg.Network != nil {
		fields["connectivity"] = string(s.cfg.Network.Current())
		if since := s.cfg.Network.Since(); !since.IsZero() {
			fields["connectivity_since"] = since.Format(time.RFC3339)
		}
	}
	if s.cfg.Mirror != nil {
		fields["pending_mirror"] = s.cfg.Mirror.Pending()
	}
	return structpb.NewStruct(fields)
}

func (s *JournalService) lookup(ctx context.Context, req *structpb.Struct) (*mood.Entry, error) {
	id, _ := stringField(req, "id")
	if id == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "id is required")
	}
	entry := s.cfg.Store.Get(ctx, id)
	if entry == nil {
		return nil, grpcstatus.Errorf(codes.NotFound, "entry %s not found", id)
	}
	return entry, nil
}

func parseDay(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(DayLayout, raw, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, mood.ErrInvalidForm),
		errors.Is(err, mood.ErrUnknownMood),
		errors.Is(err, mood.ErrFutureDate),
		errors.Is(err, intsync.ErrDateLocked):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, mood.ErrDuplicateDay):
		return grpcstatus.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.FromContextError(err).Err()
	default:
		return grpcstatus.Errorf(codes.Internal, "%v", err)
	}
}
