package daemon

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matheus3301/moodtrack/internal/api"
	"github.com/matheus3301/moodtrack/internal/config"
	"github.com/matheus3301/moodtrack/internal/connectivity"
	"github.com/matheus3301/moodtrack/internal/remote"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// testHome points profile paths at a short temp dir and returns a socket
// path inside it. Short paths avoid the macOS 104-char Unix socket limit.
func testHome(t *testing.T) string {
	t.Helper()
	tmpDir, err := os.MkdirTemp("/tmp", "moodd-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })
	t.Setenv("MOODTRACK_HOME", tmpDir)
	return filepath.Join(tmpDir, "d.sock")
}

func testParams(socketPath, mirrorURL string) Params {
	return Params{
		Profile:       "test",
		SocketPath:    socketPath,
		MirrorURL:     mirrorURL,
		DeviceID:      "test-device",
		LogLevel:      zapcore.WarnLevel,
		Location:      time.Local,
		ProbeInterval: 200 * time.Millisecond,
		MirrorTimeout: time.Second,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func startMirror(t *testing.T) (*remote.Service, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := remote.OpenSQLite(filepath.Join(t.TempDir(), "mirror.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := remote.NewService(remote.ServiceConfig{Database: db})
	if err != nil {
		t.Fatal(err)
	}
	handler, err := remote.NewHTTPHandler(remote.Dependencies{Service: svc})
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return svc, server.URL
}

func dial(t *testing.T, socketPath string) *api.Client {
	t.Helper()
	c, err := api.Dial(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDaemonMirrorsEntries(t *testing.T) {
	socketPath := testHome(t)
	mirrorSvc, mirrorURL := startMirror(t)

	app := fxtest.New(t, Module(testParams(socketPath, mirrorURL)))
	app.RequireStart()
	defer app.RequireStop()

	c := dial(t, socketPath)
	ctx := context.Background()

	waitFor(t, "mirror to come online", func() bool {
		st, err := c.Status(ctx)
		return err == nil && st.Connectivity == string(connectivity.Online)
	})

	e, err := c.AddEntry(ctx, api.AddRequest{Emoji: "😄", Note: "Good day"})
	if err != nil {
		t.Fatalf("AddEntry error = %v", err)
	}

	waitFor(t, "entry on mirror", func() bool {
		records, err := mirrorSvc.ListEntries(ctx, "test-device")
		return err == nil && len(records) == 1 && records[0].ID == e.ID
	})

	note := "Great day"
	if _, err := c.UpdateEntry(ctx, api.UpdateRequest{ID: e.ID, Note: &note}); err != nil {
		t.Fatalf("UpdateEntry error = %v", err)
	}
	waitFor(t, "update on mirror", func() bool {
		records, _ := mirrorSvc.ListEntries(ctx, "test-device")
		return len(records) == 1 && records[0].Note == "Great day"
	})

	if err := c.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry error = %v", err)
	}
	waitFor(t, "delete on mirror", func() bool {
		records, _ := mirrorSvc.ListEntries(ctx, "test-device")
		return len(records) == 0
	})

	cp, err := mirrorSvc.LastCheckpoint(ctx, "test-device")
	if err != nil || cp == nil {
		t.Fatalf("LastCheckpoint() = %+v, %v", cp, err)
	}
}

func TestDaemonWithoutMirrorStaysLocal(t *testing.T) {
	socketPath := testHome(t)

	app := fxtest.New(t, Module(testParams(socketPath, "")))
	app.RequireStart()
	defer app.RequireStop()

	c := dial(t, socketPath)
	ctx := context.Background()

	if _, err := c.AddEntry(ctx, api.AddRequest{Emoji: "😐", Note: "quiet"}); err != nil {
		t.Fatalf("AddEntry error = %v", err)
	}
	waitFor(t, "offline status", func() bool {
		st, err := c.Status(ctx)
		return err == nil && st.Connectivity == string(connectivity.Offline)
	})

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Profile != "test" || st.Entries != 1 || st.PendingMirror != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestSecondDaemonIsRejected(t *testing.T) {
	socketPath := testHome(t)

	first := fxtest.New(t, Module(testParams(socketPath, "")))
	first.RequireStart()
	defer first.RequireStop()

	second := fx.New(Module(testParams(socketPath+"2", "")), fx.NopLogger)
	err := second.Err()
	if err == nil {
		_ = second.Stop(context.Background())
		t.Fatal("second daemon on the same profile should fail")
	}
	if !strings.Contains(err.Error(), "profile locked") {
		t.Errorf("error = %v, want lock error", err)
	}
}

func TestNewServerUsesSocketOverride(t *testing.T) {
	socketPath := testHome(t)

	srv, err := NewServer(testParams(socketPath, ""), zap.NewNop(), api.NewJournalService(api.ServiceConfig{}))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if _, statErr := os.Stat(socketPath); statErr != nil {
		t.Fatalf("socket not created at %s: %v", socketPath, statErr)
	}
	if srv.SocketPath() != socketPath {
		t.Errorf("SocketPath() = %q", srv.SocketPath())
	}
	srv.Stop(context.Background())
	if _, statErr := os.Stat(socketPath); !os.IsNotExist(statErr) {
		t.Errorf("socket not removed: %v", statErr)
	}
}

func TestParamsFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"defaults", config.Config{}, false},
		{"full", config.Config{MirrorURL: "http://m", DeviceID: "d", LogLevel: "debug", Timezone: "UTC", ProbeInterval: "5s", MirrorTimeout: "1s"}, false},
		{"bad level", config.Config{LogLevel: "shout"}, true},
		{"bad zone", config.Config{Timezone: "Nowhere/Land"}, true},
		{"bad interval", config.Config{ProbeInterval: "often"}, true},
		{"bad timeout", config.Config{MirrorTimeout: "0s"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParamsFromConfig("main", &tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if p.Profile != "main" || p.MirrorURL != tt.cfg.MirrorURL || p.Location == nil {
				t.Errorf("params = %+v", p)
			}
			if p.ProbeInterval <= 0 || p.MirrorTimeout <= 0 {
				t.Errorf("durations = %s/%s", p.ProbeInterval, p.MirrorTimeout)
			}
		})
	}
}
