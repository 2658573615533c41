//go:build linux
// +build linux

package simlog

import (
	"os"
	"syscall"
)

// NewStderrLogger creates a logger writing structured RFC5424 entries to
// stderr. If fileOverride is non-empty, the process's stderr fd itself is
// redirected to that file first (so panics and anything else that writes
// directly to fd 2 land there too), and the logger writes to the
// redirected fd.
func NewStderrLogger(fileOverride string) (*Logger, error) {
	if len(fileOverride) == 0 {
		return New(os.Stderr), nil
	}
	fout, err := os.Create(fileOverride)
	if err != nil {
		return nil, err
	}
	if err = syscall.Dup3(int(fout.Fd()), int(os.Stderr.Fd()), 0); err != nil {
		fout.Close()
		return nil, err
	}
	return New(os.Stderr), nil
}
