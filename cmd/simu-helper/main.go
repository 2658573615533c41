// Command simu-helper is the set-user-ID root half of the
// privilege-separation pipeline. It reads a single request frame from
// stdin, authenticates via PAM, drops to the target user's full identity,
// and streams the requested file or directory listing to stdout before
// exiting with a protocol.ReturnCode. It never logs structured output of
// its own — everything it has to say goes to stderr as plain text lines:
// its own fatal errors and the PAM stack's messages carry a
// "[PAM INFO]"/"[PAM ERROR]" prefix, while internal/helperio's payload
// errors are written unprefixed. It has no log file handle before the
// privilege drop and must stay single-threaded and simple.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/kk-boop/simu/internal/authn"
	"github.com/kk-boop/simu/internal/caps"
	"github.com/kk-boop/simu/internal/credential"
	"github.com/kk-boop/simu/internal/helperio"
	"github.com/kk-boop/simu/protocol"
)

func main() {
	// A panic exits with protocol.Panic rather than Go's default status.
	defer func() {
		if r := recover(); r != nil {
			fatal(protocol.Panic, "[PAM ERROR] panic: %v", r)
		}
	}()

	frame, err := helperio.ReadRequest(os.Stdin)
	if err != nil {
		fatal(protocol.Unknown, "[PAM ERROR] %v", err)
	}

	if err := credential.BecomeRoot(); err != nil {
		fatal(protocol.Unknown, "[PAM ERROR] failed to elevate to root: %v", err)
	}

	if !caps.CanChangeIdentity() {
		fatal(protocol.Unknown, "[PAM ERROR] missing CAP_SETUID/CAP_SETGID after elevating to root")
	}

	if err := refuseRootIfEnabled(frame.Username); err != nil {
		fatal(protocol.Unknown, "[PAM ERROR] %v", err)
	}

	if err := authn.Authenticate(frame.Username, frame.Password); err != nil {
		var authErr authn.ErrAuthFailed
		if errors.As(err, &authErr) {
			fatal(protocol.LoginFailed, "[PAM INFO] %v", err)
		}
		fatal(protocol.Unknown, "[PAM ERROR] %v", err)
	}

	id, err := credential.Lookup(frame.Username)
	if err != nil {
		fatal(protocol.Unknown, "[PAM ERROR] %v", err)
	}

	if err := credential.Become(id); err != nil {
		fatal(protocol.Unknown, "[PAM ERROR] credential transition failed: %v", err)
	}

	if err := verifyDroppedIfEnabled(); err != nil {
		fatal(protocol.Unknown, "[PAM ERROR] %v", err)
	}

	switch frame.Kind {
	case protocol.KindDir:
		helperio.StreamDir(os.Stdout, frame.Path)
	default:
		helperio.StreamFile(os.Stdout, frame.Path)
	}
}

func fatal(rc protocol.ReturnCode, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(int(rc))
}
