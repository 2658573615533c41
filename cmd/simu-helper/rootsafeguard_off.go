//go:build !rootsafeguard

package main

// refuseRootIfEnabled and verifyDroppedIfEnabled are no-ops in the default
// build; compile with -tags rootsafeguard to enable the belt-and-braces
// checks described in spec.md §4.1.
func refuseRootIfEnabled(username string) error { return nil }

func verifyDroppedIfEnabled() error { return nil }
