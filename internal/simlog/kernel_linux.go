//go:build linux
// +build linux

package simlog

import (
	"bytes"
	"os"
)

var kernelVersion string

func init() {
	if val, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
		kernelVersion = string(bytes.Trim(val, " \n\r"))
	}
}
