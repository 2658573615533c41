// Package credential implements the helper's one-way identity switch: once
// it resolves the target user's full uid/gid/supplementary-group set, it
// adopts that identity and never looks back. This is the security
// boundary of the whole program; the ordering of the four syscalls below
// is load-bearing and must not be reordered or skipped.
package credential

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Identity is a resolved target user: the primary uid/gid plus every
// group the user belongs to (including the primary gid), as read from the
// system's passwd/group databases.
type Identity struct {
	Username string
	UID      uint32
	GID      uint32
	Groups   []uint32
}

// ErrUnknownUser is returned when the username has no passwd entry.
type ErrUnknownUser string

func (e ErrUnknownUser) Error() string { return fmt.Sprintf("unknown user %q", string(e)) }

// PasswdPath and GroupPath locate the system user/group databases. They
// are package variables, not constants, so tests can point Lookup at
// fixture files instead of the real /etc/passwd and /etc/group.
var (
	PasswdPath = "/etc/passwd"
	GroupPath  = "/etc/group"
)

// Lookup resolves username's uid, primary gid, and full supplementary
// group list by parsing /etc/passwd and /etc/group directly. The stdlib's
// os/user package is deliberately avoided here: without cgo it cannot
// enumerate a user's full supplementary groups, only the primary one.
func Lookup(username string) (Identity, error) {
	uid, gid, err := lookupPasswd(username)
	if err != nil {
		return Identity{}, err
	}
	groups, err := lookupGroups(username, gid)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Username: username, UID: uid, GID: gid, Groups: groups}, nil
}

func lookupPasswd(username string) (uid, gid uint32, err error) {
	f, err := os.Open(PasswdPath)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 4 || fields[0] != username {
			continue
		}
		u, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("parse uid for %q: %w", username, err)
		}
		g, err := strconv.ParseUint(fields[3], 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("parse gid for %q: %w", username, err)
		}
		return uint32(u), uint32(g), nil
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, ErrUnknownUser(username)
}

// lookupGroups walks /etc/group and returns every gid username is a
// member of, either as its primary gid or listed in a group's member
// list, deduplicated. primaryGid is always included even if no group
// entry mentions the user by name, matching initgroups(3) semantics.
func lookupGroups(username string, primaryGid uint32) ([]uint32, error) {
	f, err := os.Open(GroupPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := map[uint32]bool{primaryGid: true}
	groups := []uint32{primaryGid}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 4 {
			continue
		}
		gid64, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			continue
		}
		gid := uint32(gid64)
		if seen[gid] {
			continue
		}
		for _, member := range strings.Split(fields[3], ",") {
			if member == username {
				seen[gid] = true
				groups = append(groups, gid)
				break
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// credentialSwitcher is the subset of golang.org/x/sys/unix that Become and
// VerifyCannotRegainRoot drive. Factoring it out lets tests exercise the
// transition's ordering and error handling against a fake instead of
// actually calling into the kernel, the same way procsup.runWithCmd takes
// an *exec.Cmd so tests can stand in a scripted fake helper.
type credentialSwitcher interface {
	Setgid(gid int) error
	Setgroups(gids []int) error
	Setuid(uid int) error
}

type unixSwitcher struct{}

func (unixSwitcher) Setgid(gid int) error       { return unix.Setgid(gid) }
func (unixSwitcher) Setgroups(gids []int) error { return unix.Setgroups(gids) }
func (unixSwitcher) Setuid(uid int) error       { return unix.Setuid(uid) }

// sw is a package variable so tests can swap in a fake credentialSwitcher.
var sw credentialSwitcher = unixSwitcher{}

// BecomeRoot raises the process's effective uid to 0. The helper's first
// step after reading its request is to call this, since PAM needs root to
// consult the shadow database regardless of whether privilege arrived via
// the setuid bit or a file capability.
func BecomeRoot() error {
	return sw.Setuid(0)
}

// Become performs the one-way transition into id's identity: set the
// primary gid, drop every inherited supplementary group, install id's
// real supplementary group list, then set the uid. Each step must
// succeed in this exact order — reversing the setgid/setgroups pair
// leaves the old primary group reinserted as a supplemental one, and
// setting the uid before the gid calls would strip the process of the
// privilege needed to make them.
func Become(id Identity) error {
	return become(sw, id)
}

func become(sw credentialSwitcher, id Identity) error {
	if err := sw.Setgid(int(id.GID)); err != nil {
		return fmt.Errorf("setgid: %w", err)
	}
	if err := sw.Setgroups(nil); err != nil {
		return fmt.Errorf("clear supplementary groups: %w", err)
	}
	if err := sw.Setgroups(toInts(id.Groups)); err != nil {
		return fmt.Errorf("restore supplementary groups: %w", err)
	}
	if err := sw.Setuid(int(id.UID)); err != nil {
		return fmt.Errorf("setuid: %w", err)
	}
	return nil
}

func toInts(groups []uint32) []int {
	gids := make([]int, len(groups))
	for i, g := range groups {
		gids[i] = int(g)
	}
	return gids
}

// VerifyCannotRegainRoot attempts to set euid back to 0 and returns an
// error if it succeeds — which would mean Become did not actually shed
// root privileges. Used as a post-transition safeguard, not a substitute
// for Become itself.
func VerifyCannotRegainRoot() error {
	if err := sw.Setuid(0); err == nil {
		return fmt.Errorf("setuid(0) unexpectedly succeeded after dropping privileges")
	}
	return nil
}
