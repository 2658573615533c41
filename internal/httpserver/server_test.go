package httpserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kk-boop/simu/internal/procsup"
	"github.com/kk-boop/simu/internal/simlog"
	"github.com/kk-boop/simu/protocol"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "helper.sh")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestServer(t *testing.T, scriptBody string, cfg Config) *Server {
	t.Helper()
	requireSh(t)
	cfg.TemplatesDir = "../../templates"
	driver := procsup.NewDriver(writeScript(t, scriptBody), simlog.NewDiscardLogger())
	s, err := NewServer(cfg, driver, simlog.NewDiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestServeHTTPNoPasswordIsUnauthorized(t *testing.T) {
	s := newTestServer(t, "exit 0", Config{})
	req := httptest.NewRequest(http.MethodGet, "/hello.txt", nil)
	req.SetBasicAuth("alice", "")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
}

func TestServeHTTPRootRefusedByDefault(t *testing.T) {
	s := newTestServer(t, "printf 'should never run'", Config{AllowRoot: false})
	req := httptest.NewRequest(http.MethodGet, "/etc/shadow", nil)
	req.SetBasicAuth("root", "pw")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rec.Code)
	}
}

func TestServeHTTPFileStreamsSuccessfully(t *testing.T) {
	s := newTestServer(t, "printf 'hi\\n'", Config{})
	req := httptest.NewRequest(http.MethodGet, "/hello.txt", nil)
	req.SetBasicAuth("alice", "pw")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Body.String() != "hi\n" {
		t.Fatalf("got %q", rec.Body.String())
	}
}

func TestServeHTTPFileNotFound(t *testing.T) {
	s := newTestServer(t, "exit 1", Config{})
	req := httptest.NewRequest(http.MethodGet, "/nope.txt", nil)
	req.SetBasicAuth("alice", "pw")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
}

func TestServeHTTPBadPasswordIsUnauthorized(t *testing.T) {
	s := newTestServer(t, "exit 2", Config{})
	req := httptest.NewRequest(http.MethodGet, "/hello.txt", nil)
	req.SetBasicAuth("alice", "wrong")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
}

func TestServeHTTPFileOnDirectoryRedirects(t *testing.T) {
	s := newTestServer(t, "exit 3", Config{})
	req := httptest.NewRequest(http.MethodGet, "/tmp", nil)
	req.SetBasicAuth("alice", "pw")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("got %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/tmp/" {
		t.Fatalf("got Location %q, want /tmp/", loc)
	}
}

func TestServeHTTPDirectoryListingRendersAndExcludes(t *testing.T) {
	fixture := filepath.Join(t.TempDir(), "listing.bin")
	listing := protocol.Listing{
		{Name: "a.txt", IsDir: false},
		{Name: ".hidden", IsDir: false},
		{Name: "sub/", IsDir: true},
	}
	if err := os.WriteFile(fixture, listing.Encode(), 0644); err != nil {
		t.Fatal(err)
	}
	s := newTestServer(t, "cat "+fixture, Config{Exclude: []string{".*"}})
	req := httptest.NewRequest(http.MethodGet, "/tmp/", nil)
	req.SetBasicAuth("alice", "pw")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "a.txt") || !strings.Contains(body, "sub/") {
		t.Fatalf("missing expected entries: %s", body)
	}
	if strings.Contains(body, ".hidden") {
		t.Fatalf("excluded entry leaked into output: %s", body)
	}
}

func TestServeHTTPRateLimitsAfterFailedLogins(t *testing.T) {
	s := newTestServer(t, "exit 2", Config{RateLimit: 1})
	for i := 0; i < s.limiter.burst; i++ {
		req := httptest.NewRequest(http.MethodGet, "/hello.txt", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		req.SetBasicAuth("alice", "wrong")
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: got %d, want 401", i, rec.Code)
		}
	}
	req := httptest.NewRequest(http.MethodGet, "/hello.txt", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	req.SetBasicAuth("alice", "wrong")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429 after exhausting burst", rec.Code)
	}
}
