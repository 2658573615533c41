// Package procsup drives the suid helper binary on behalf of a single
// request: it frames the request, spawns the helper, observes the
// two-phase handshake described in spec §4.2, and pumps the helper's
// stdout back to the caller over a bounded channel.
package procsup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/kk-boop/simu/internal/simlog"
	"github.com/kk-boop/simu/protocol"
)

// chunkSize is the size of each stdout read and each chunk placed on the
// data channel.
const chunkSize = 64 * 1024

// dataChanCapacity bounds how many chunks may be buffered ahead of a slow
// reader before the pump blocks, providing back-pressure all the way to
// the child's stdout pipe.
const dataChanCapacity = 16

// HelperFailure reports that the helper exited before emitting any
// payload; Code is the return code the caller should translate into an
// HTTP status.
type HelperFailure struct {
	Code protocol.ReturnCode
}

func (e HelperFailure) Error() string {
	return fmt.Sprintf("helper failed: %s", e.Code)
}

// Driver spawns the suid helper binary for each request.
type Driver struct {
	HelperPath string
	Log        *simlog.Logger
}

// NewDriver constructs a Driver; lg may be nil, in which case a discard
// logger is used.
func NewDriver(helperPath string, lg *simlog.Logger) *Driver {
	if lg == nil {
		lg = simlog.NewDiscardLogger()
	}
	return &Driver{HelperPath: helperPath, Log: lg}
}

// Run spawns the helper, writes frame to its stdin, and blocks until the
// handshake verdict arrives. On success it returns a channel of stdout
// chunks in read order; the channel is closed once the helper's stdout
// reaches EOF or ctx is canceled. On failure it returns a HelperFailure
// (HelperFailure{Code: protocol.Unknown} if the helper could not be
// started) and no channel; a failure to set up the helper's stdio pipes
// and a ctx canceled before the verdict are returned as plain errors. A
// failed write of the frame to the helper's stdin is only logged.
//
// If ctx is canceled after data has started flowing, the pump closes its
// end of the helper's stdout pipe, which drives the privileged child to
// a broken-pipe error on its next write — the only way to make an
// unkillable (by an unprivileged parent) suid child unwind promptly.
func (d *Driver) Run(ctx context.Context, frame protocol.Frame) (<-chan []byte, error) {
	return runWithCmd(ctx, d, exec.Command(d.HelperPath), frame.Encode())
}

// runWithCmd is Run's implementation, parameterized on the *exec.Cmd to
// spawn and the bytes to write to its stdin. Run always passes an
// argument-less command for the real suid binary; tests use this entry
// point directly to stand in a scripted fake helper.
func runWithCmd(ctx context.Context, d *Driver, cmd *exec.Cmd, stdinPayload []byte) (<-chan []byte, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open helper stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open helper stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("open helper stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		d.Log.Error("failed to start helper", simlog.KVErr(err))
		return nil, HelperFailure{Code: protocol.Unknown}
	}

	handshake := make(chan error, 1)
	data := make(chan []byte, dataChanCapacity)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer stdin.Close()
		if _, err := stdin.Write(stdinPayload); err != nil {
			d.Log.Warn("failed to write request frame to helper", simlog.KVErr(err))
		}
	}()

	go func() {
		defer wg.Done()
		defer close(data)
		d.pump(ctx, stdout, data, handshake)
	}()

	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, stderr)
		if buf.Len() > 0 {
			d.Log.Warn("helper stderr output", simlog.KV("component", "helper"), simlog.KV("output", buf.String()))
		}
	}()

	select {
	case verdict := <-handshake:
		if verdict == nil {
			// Payload has started arriving; any later exit status is
			// logged but no longer surfaced (spec §4.2 step 6).
			go func() {
				wg.Wait()
				err := cmd.Wait()
				d.Log.Info("helper exited", simlog.KV("code", protocol.FromExitError(err)))
			}()
			return data, nil
		}
		// No payload ever arrived: the real verdict is the child's exit
		// code, not errPending itself.
		wg.Wait()
		rc := protocol.FromExitError(cmd.Wait())
		return nil, HelperFailure{Code: rc}
	case <-ctx.Done():
		stdout.Close()
		wg.Wait()
		cmd.Wait()
		return nil, ctx.Err()
	}
}

// pump reads stdout in chunkSize pieces, forwarding each to data and
// signaling the handshake exactly once: success on the first non-empty
// read, or the exit-code-derived verdict if stdout reached EOF (or
// failed) before any payload arrived.
func (d *Driver) pump(ctx context.Context, stdout io.ReadCloser, data chan<- []byte, handshake chan<- error) {
	signaled := false
	signalSuccess := func() {
		if !signaled {
			signaled = true
			handshake <- nil
		}
	}

	// Closing stdout as soon as ctx is canceled unblocks a pending Read
	// instead of waiting for the helper's next write.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			stdout.Close()
		case <-done:
		}
	}()

	buf := make([]byte, chunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			signalSuccess()
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case data <- chunk:
			case <-ctx.Done():
				stdout.Close()
				return
			}
		}
		if err != nil {
			if !signaled {
				// No payload ever arrived; the caller will translate
				// the child's exit code into a verdict once Wait
				// returns, so just mark that a verdict is still owed.
				handshake <- errPending
			}
			return
		}
	}
}

// errPending is a sentinel telling Run's caller "wait for the exit code";
// it is intercepted before callers ever see it directly — see Run's
// handling via cmd.Wait() when signaled is never set.
var errPending = errors.New("procsup: awaiting helper exit code")
