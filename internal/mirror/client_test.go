package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matheus3301/moodtrack/internal/mood"
)

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"127.0.0.1:7700", "http://127.0.0.1:7700", false},
		{"https://mirror.example.com/", "https://mirror.example.com", false},
		{"http://example.com:1234/base/?x=1#frag", "http://example.com:1234/base", false},
		{"", "", true},
		{"ftp://example.com", "", true},
		{"http://", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := parseBaseURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseBaseURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && u.String() != tt.want {
				t.Errorf("parseBaseURL(%q) = %q, want %q", tt.in, u.String(), tt.want)
			}
		})
	}
}

type recordedRequest struct {
	Method string
	Path   string
	Device string
	Agent  string
	Body   Payload
}

func newTestServer(t *testing.T, status int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var got []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Device: r.Header.Get(deviceHeader),
			Agent:  r.Header.Get("User-Agent"),
		}
		if r.Body != nil && r.Method == http.MethodPut {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		got = append(got, rec)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		switch r.URL.Path {
		case "/api/v1/sync":
			_ = json.NewEncoder(w).Encode(SyncResult{Entries: 3, SyncedAt: time.Unix(1700000000, 0).UTC()})
		default:
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestClientSendsEntryOperations(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK)
	c, err := NewClient(srv.URL, "device-1")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	e := mood.Entry{
		ID:    "e1",
		Date:  time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		Emoji: "😄",
		Score: 4,
		Note:  "Good day",
	}

	if err := c.Add(ctx, e); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := c.Update(ctx, e); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := c.Delete(ctx, e); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	res, err := c.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.Entries != 3 {
		t.Errorf("Sync entries = %d, want 3", res.Entries)
	}

	want := []struct{ method, path string }{
		{http.MethodPut, "/api/v1/entries/e1"},
		{http.MethodPut, "/api/v1/entries/e1"},
		{http.MethodDelete, "/api/v1/entries/e1"},
		{http.MethodGet, "/healthz"},
		{http.MethodPost, "/api/v1/sync"},
	}
	if len(*got) != len(want) {
		t.Fatalf("got %d requests, want %d", len(*got), len(want))
	}
	for i, w := range want {
		r := (*got)[i]
		if r.Method != w.method || r.Path != w.path {
			t.Errorf("request %d = %s %s, want %s %s", i, r.Method, r.Path, w.method, w.path)
		}
		if r.Device != "device-1" {
			t.Errorf("request %d device header = %q", i, r.Device)
		}
		if r.Agent != defaultUserAgent {
			t.Errorf("request %d user agent = %q", i, r.Agent)
		}
	}

	body := (*got)[0].Body
	if body.ID != "e1" || body.Emoji != "😄" || body.Score != 4 || body.Note != "Good day" {
		t.Errorf("PUT body = %+v", body)
	}
	if !body.Date.Equal(e.Date) {
		t.Errorf("PUT date = %v, want %v", body.Date, e.Date)
	}
}

func TestClientReportsStatusErrors(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError)
	c, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}

	err = c.Add(context.Background(), mood.Entry{ID: "e1"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Add() error = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", statusErr.Code)
	}
	if statusErr.Body != `{"error":"boom"}` {
		t.Errorf("body = %q", statusErr.Body)
	}
}

func TestClientPingFailsWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping() against closed server should fail")
	}
}
