/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package runtimeutil

import (
	"os"
	"runtime"
)

// TuneGOMAXPROCS sets runtime.GOMAXPROCS to want, unless the GOMAXPROCS
// environment variable is already set — an operator's explicit override
// always wins over the supervisor's startup default. It returns the
// value GOMAXPROCS held before the call and whether it actually changed,
// so the caller can log a tuning decision instead of discarding it.
func TuneGOMAXPROCS(want int) (prev int, tuned bool) {
	if os.Getenv(`GOMAXPROCS`) != `` {
		return 0, false
	}
	prev = runtime.GOMAXPROCS(want)
	return prev, prev != want
}
