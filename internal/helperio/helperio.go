// Package helperio implements the suid helper's half of the wire
// protocol: reading the supervisor's request frame from stdin, and
// streaming either a file's bytes or an encoded directory listing to
// stdout. Every failure path here terminates the process with a
// protocol.ReturnCode exit status rather than returning an error, since
// the helper has no channel back to the supervisor other than its exit
// code and whatever bytes it already wrote to stdout.
package helperio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/kk-boop/simu/protocol"
)

// BufSize is the chunk size used for both reading stdin and copying file
// bytes to stdout, matching the original implementation's buffer size.
const BufSize = 4096

// ReadRequest reads stdin until it has seen at least three zero bytes
// (enough to delimit username, password, and path, with a fourth field
// optional), then parses the accumulated buffer as a protocol.Frame.
// Reading stops as soon as enough zero bytes have arrived rather than
// waiting for EOF.
func ReadRequest(r io.Reader) (protocol.Frame, error) {
	var buf bytes.Buffer
	chunk := make([]byte, BufSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if bytes.Count(buf.Bytes(), []byte{0}) > 2 {
				break
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return protocol.Frame{}, fmt.Errorf("read request: %w", err)
		}
	}
	f, _, err := protocol.ParseFrame(buf.Bytes())
	return f, err
}

// StreamFile opens path and copies its contents to w (ordinarily os.Stdout)
// in BufSize chunks. It never returns on a terminal condition; instead it
// exits the process with the matching protocol.ReturnCode, mirroring the
// original helper's panic-to-exit-code behavior so that partial output
// already flushed to the pipe is left exactly where it is.
func StreamFile(w io.Writer, path string) {
	f, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			exit(protocol.FileNotFound, "file not found")
		case errors.Is(err, os.ErrPermission):
			exit(protocol.PermissionDenied, "permission denied")
		default:
			exit(protocol.Unknown, err.Error())
		}
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.IsDir() {
		exit(protocol.UnexpectedType, "path is a directory")
	}

	buf := make([]byte, BufSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if werr := writeAllRetryingEINTR(w, buf[:n]); werr != nil {
				if errors.Is(werr, syscall.EPIPE) {
					// Supervisor closed its read side; the client went
					// away. There is no one left to report a return
					// code to, so just stop.
					os.Exit(int(protocol.Success))
				}
				exit(protocol.Unknown, werr.Error())
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return
			}
			if errors.Is(rerr, syscall.EINTR) {
				continue
			}
			exit(protocol.Unknown, rerr.Error())
		}
	}
}

// StreamDir reads path's directory entries and writes the encoded
// protocol.Listing to w. Any enumeration failure — missing path, no
// permission, or path not actually a directory — collapses to
// FileNotFound, matching the historical behavior recorded as an accepted
// quirk rather than a bug: the cause carried by os.ReadDir's error is not
// examined.
func StreamDir(w io.Writer, path string) {
	entries, err := os.ReadDir(path)
	if err != nil {
		exit(protocol.FileNotFound, "directory not found")
	}

	listing := make(protocol.Listing, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		isDir := e.IsDir()
		if isDir {
			name += "/"
		}
		listing = append(listing, protocol.Entry{Name: name, IsDir: isDir})
	}

	if err := writeAllRetryingEINTR(w, listing.Encode()); err != nil {
		exit(protocol.FileNotFound, err.Error())
	}
}

func writeAllRetryingEINTR(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		b = b[n:]
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return err
		}
	}
	return nil
}

func exit(rc protocol.ReturnCode, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(int(rc))
}
