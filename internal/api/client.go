package api

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/moodtrack/internal/mood"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client talks to a moodd daemon over its Unix socket.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon listening on socketPath. The connection is
// established lazily on the first call.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// AddRequest describes a new entry. A zero Date means today.
type AddRequest struct {
	Emoji string
	Note  string
	Date  time.Time
}

// UpdateRequest changes the emoji and/or note of an entry. Nil fields are
// left untouched.
type UpdateRequest struct {
	ID    string
	Emoji *string
	Note  *string
}

// DaemonStatus is the Status RPC response.
type DaemonStatus struct {
	Profile           string
	Connectivity      string
	ConnectivitySince time.Time
	PendingMirror     int
	Entries           int
	Uptime            time.Duration
}

func (c *Client) AddEntry(ctx context.Context, req AddRequest) (mood.Entry, error) {
	fields := map[string]any{"emoji": req.Emoji, "note": req.Note}
	if !req.Date.IsZero() {
		fields["date"] = req.Date.Format(DayLayout)
	}
	resp, err := c.invoke(ctx, MethodAddEntry, fields)
	if err != nil {
		return mood.Entry{}, err
	}
	return decodeEntry(resp)
}

func (c *Client) UpdateEntry(ctx context.Context, req UpdateRequest) (mood.Entry, error) {
	fields := map[string]any{"id": req.ID}
	if req.Emoji != nil {
		fields["emoji"] = *req.Emoji
	}
	if req.Note != nil {
		fields["note"] = *req.Note
	}
	resp, err := c.invoke(ctx, MethodUpdateEntry, fields)
	if err != nil {
		return mood.Entry{}, err
	}
	return decodeEntry(resp)
}

func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	_, err := c.invoke(ctx, MethodDeleteEntry, map[string]any{"id": id})
	return err
}

func (c *Client) GetEntry(ctx context.Context, id string) (mood.Entry, error) {
	resp, err := c.invoke(ctx, MethodGetEntry, map[string]any{"id": id})
	if err != nil {
		return mood.Entry{}, err
	}
	return decodeEntry(resp)
}

// ListEntries returns the entries of month in the current year, or every
// entry when month is 0.
func (c *Client) ListEntries(ctx context.Context, month int) ([]mood.Entry, error) {
	fields := map[string]any{}
	if month != 0 {
		fields["month"] = month
	}
	resp, err := c.invoke(ctx, MethodListEntries, fields)
	if err != nil {
		return nil, err
	}
	return decodeEntries(resp, "entries")
}

func (c *Client) MonthSummary(ctx context.Context, month int) (mood.Summary, error) {
	resp, err := c.invoke(ctx, MethodMonthSummary, map[string]any{"month": month})
	if err != nil {
		return mood.Summary{}, err
	}
	return decodeSummary(resp)
}

func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	resp, err := c.invoke(ctx, MethodStatus, nil)
	if err != nil {
		return DaemonStatus{}, err
	}
	st := DaemonStatus{}
	st.Profile, _ = stringField(resp, "profile")
	st.Connectivity, _ = stringField(resp, "connectivity")
	st.PendingMirror, _ = intField(resp, "pending_mirror")
	st.Entries, _ = intField(resp, "entries")
	uptime, _ := intField(resp, "uptime_ms")
	st.Uptime = time.Duration(uptime) * time.Millisecond
	if since, ok := stringField(resp, "connectivity_since"); ok {
		st.ConnectivitySince, _ = time.Parse(time.RFC3339, since)
	}
	return st, nil
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
