// Package authn authenticates a username/password pair against the
// system's PAM stack, the same way a console login would.
package authn

import (
	"fmt"
	"io"
	"os"

	"github.com/msteinert/pam"
)

// Service is the PAM service name the helper authenticates under. "login"
// matches a normal interactive console session rather than, say, "sshd",
// since the helper is impersonating a local login, not a remote one.
const Service = "login"

// ErrAuthFailed means PAM completed the conversation but rejected the
// credentials; it is distinct from a failure to start the PAM
// transaction, which is returned as a plain error wrapping the PAM error.
type ErrAuthFailed struct{ Username string }

func (e ErrAuthFailed) Error() string {
	return fmt.Sprintf("authentication failed for %q", e.Username)
}

// authenticator is the subset of *pam.Transaction that Authenticate drives.
// Factoring it out lets tests substitute a fake PAM stack instead of
// linking against the real one, the same way procsup.runWithCmd takes an
// *exec.Cmd so tests can stand in a scripted fake helper.
type authenticator interface {
	Authenticate(int) error
	AcctMgmt(int) error
}

// starter opens a PAM authenticator; a package variable so tests can swap in
// a fake authenticator without a real PAM stack behind it.
var starter = func(service, username string, conv func(pam.Style, string) (string, error)) (authenticator, error) {
	return pam.StartFunc(service, username, conv)
}

// Authenticate runs username/password through PAM's "login" service using
// a conversation handler that answers every echo-on prompt with the
// username and every echo-off prompt with the password, without
// inspecting the prompt text. This mirrors a real login(1) session
// closely enough for PAM modules that check account validity
// (expiry, lockout) in addition to the password itself. Informational
// and error text the stack itself emits (failed-attempt warnings,
// account-expiry notices, and the like) is relayed to stderr with
// "[PAM INFO]"/"[PAM ERROR]" prefixes rather than swallowed.
func Authenticate(username, password string) error {
	return authenticate(username, password, os.Stderr)
}

// authenticate is Authenticate's implementation, parameterized on the
// writer PAM info/error text is relayed to so tests can capture it.
func authenticate(username, password string, errw io.Writer) error {
	t, err := starter(Service, username, conversation(username, password, errw))
	if err != nil {
		return fmt.Errorf("start PAM authenticator: %w", err)
	}
	if err := t.Authenticate(0); err != nil {
		return ErrAuthFailed{Username: username}
	}
	if err := t.AcctMgmt(0); err != nil {
		return ErrAuthFailed{Username: username}
	}
	return nil
}

// conversation builds the PAM conversation handler: echo-on prompts get
// username, echo-off prompts get password, and info/error text the stack
// emits is relayed to errw with "[PAM INFO]"/"[PAM ERROR]" prefixes.
func conversation(username, password string, errw io.Writer) func(pam.Style, string) (string, error) {
	return func(style pam.Style, msg string) (string, error) {
		switch style {
		case pam.PromptEchoOn:
			return username, nil
		case pam.PromptEchoOff:
			return password, nil
		case pam.ErrorMsg:
			fmt.Fprintf(errw, "[PAM ERROR] %s\n", msg)
			return "", nil
		case pam.TextInfo:
			fmt.Fprintf(errw, "[PAM INFO] %s\n", msg)
			return "", nil
		default:
			return "", fmt.Errorf("unsupported PAM conversation style %v", style)
		}
	}
}
