//go:build rootsafeguard

package main

import (
	"fmt"

	"github.com/kk-boop/simu/internal/credential"
)

// refuseRootIfEnabled rejects username "root" before authentication is
// even attempted. This is a belt-and-braces check: the primary protection
// is that nothing in this program's deployment should ever hand out a
// root PAM credential over this path.
func refuseRootIfEnabled(username string) error {
	if username == "root" {
		return fmt.Errorf("refusing to authenticate root (rootsafeguard build)")
	}
	return nil
}

// verifyDroppedIfEnabled probes that the credential transition was total
// by attempting to regain uid 0; success here means the transition failed
// silently, which must abort the request.
func verifyDroppedIfEnabled() error {
	return credential.VerifyCannotRegainRoot()
}
