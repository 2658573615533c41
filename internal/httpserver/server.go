// Package httpserver implements the supervisor's HTTP surface: request
// routing, basic-auth extraction, directory-index and error-page
// rendering, and the ambient additions layered over spec.md §6 (exclude
// filtering, per-IP failed-login rate limiting, template hot-reload).
// Everything in this package is an "external collaborator" per spec.md §1
// — it exists only to fix the interface internal/procsup's helper driver
// consumes.
package httpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kk-boop/simu/internal/procsup"
	"github.com/kk-boop/simu/internal/simlog"
	"github.com/kk-boop/simu/protocol"
)

// Server is the root http.Handler: one instance serves every request for
// the life of the process.
type Server struct {
	cfg     Config
	driver  *procsup.Driver
	tmpl    *templateSet
	exclude *excludeSet
	limiter *failureLimiter
	log     *simlog.Logger
}

// NewServer wires a Server from cfg. driver must already be configured
// with the helper binary's path; log may be nil, in which case logging is
// discarded.
func NewServer(cfg Config, driver *procsup.Driver, log *simlog.Logger) (*Server, error) {
	if log == nil {
		log = simlog.NewDiscardLogger()
	}
	tmpl, err := newTemplateSet(cfg.TemplatesDir, log)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	exclude, err := newExcludeSet(cfg.Exclude)
	if err != nil {
		tmpl.Close()
		return nil, fmt.Errorf("compile exclude patterns: %w", err)
	}
	return &Server{
		cfg:     cfg,
		driver:  driver,
		tmpl:    tmpl,
		exclude: exclude,
		limiter: newFailureLimiter(cfg.RateLimit),
		log:     log,
	}, nil
}

// Close releases the template watcher.
func (s *Server) Close() error {
	return s.tmpl.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	kv := simlog.NewLoggerWithKV(s.log, simlog.KV("request_id", reqID), simlog.KV("path", r.URL.Path))
	kv.Info("request received", simlog.KV("remote_addr", r.RemoteAddr))

	username, password, ok := r.BasicAuth()
	if !ok || password == "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="Restricted area"`)
		s.writeError(w, http.StatusUnauthorized)
		return
	}

	if !s.cfg.AllowRoot && username == "root" {
		kv.Warn("refused request for root before authenticating")
		s.writeError(w, http.StatusInternalServerError)
		return
	}

	remoteIP := remoteAddrIP(r.RemoteAddr)
	if s.limiter.blocked(remoteIP) {
		kv.Warn("rejecting request: too many recent failed logins", simlog.KV("remote_ip", remoteIP))
		s.writeError(w, http.StatusTooManyRequests)
		return
	}

	trimmed := strings.TrimPrefix(r.URL.Path, "/")
	var frame protocol.Frame
	frame.Username, frame.Password = username, password
	switch {
	case trimmed == "":
		frame.Kind, frame.Path = protocol.KindDir, "./"
	case strings.HasSuffix(trimmed, "/"):
		frame.Kind, frame.Path = protocol.KindDir, trimmed
	default:
		frame.Kind, frame.Path = protocol.KindFile, trimmed
	}

	data, err := s.driver.Run(r.Context(), frame)
	if err != nil {
		s.handleDriverError(w, r, kv, err, remoteIP, trimmed)
		return
	}

	if frame.Kind == protocol.KindDir {
		s.serveDir(w, kv, data, trimmed)
	} else {
		s.serveFile(w, kv, data)
	}
}

func (s *Server) handleDriverError(w http.ResponseWriter, r *http.Request, kv *simlog.KVLogger, err error, remoteIP, trimmed string) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kv.Warn("client disconnected before helper produced a verdict")
		return
	}
	var hf procsup.HelperFailure
	if !errors.As(err, &hf) {
		kv.Error("helper driver failed", simlog.KVErr(err))
		s.writeError(w, http.StatusInternalServerError)
		return
	}
	kv.Info("helper exited before payload", simlog.KV("code", hf.Code))
	if hf.Code == protocol.LoginFailed {
		s.limiter.recordFailure(remoteIP)
	}
	if hf.Code == protocol.UnexpectedType {
		http.Redirect(w, r, "/"+trimmed+"/", http.StatusFound)
		return
	}
	s.writeError(w, hf.Code.HTTPStatus())
}

func (s *Server) serveFile(w http.ResponseWriter, kv *simlog.KVLogger, data <-chan []byte) {
	flusher, _ := w.(http.Flusher)
	for chunk := range data {
		if _, err := w.Write(chunk); err != nil {
			kv.Warn("client disconnected mid-stream", simlog.KVErr(err))
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) serveDir(w http.ResponseWriter, kv *simlog.KVLogger, data <-chan []byte, dirpath string) {
	var buf bytes.Buffer
	for chunk := range data {
		buf.Write(chunk)
	}
	listing, err := protocol.DecodeListing(buf.Bytes())
	if err != nil {
		kv.Error("failed to decode directory listing", simlog.KVErr(err))
		s.writeError(w, http.StatusInternalServerError)
		return
	}
	listing = s.exclude.filter(listing)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.renderDirectory(w, directoryData{Path: dirpath, Entries: listing}); err != nil {
		kv.Error("failed to render directory template", simlog.KVErr(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.renderError(w, errorData{StatusCode: status, Error: http.StatusText(status)}); err != nil {
		fmt.Fprintln(w, http.StatusText(status))
	}
}

// remoteAddrIP strips the port from an http.Request.RemoteAddr, falling
// back to the raw value if it isn't a host:port pair.
func remoteAddrIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
