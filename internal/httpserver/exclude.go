package httpserver

import (
	"fmt"

	"github.com/gobwas/glob"
	"github.com/kk-boop/simu/protocol"
)

// excludeSet filters directory entries by name against a set of glob
// patterns (SIMU_EXCLUDE), applied after the helper's listing has already
// been decoded — it never changes what the helper enumerates or the
// permission check that produced it, only what the rendered page shows.
type excludeSet struct {
	patterns []glob.Glob
}

func newExcludeSet(patterns []string) (*excludeSet, error) {
	es := &excludeSet{}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", p, err)
		}
		es.patterns = append(es.patterns, g)
	}
	return es, nil
}

func (es *excludeSet) matches(name string) bool {
	for _, g := range es.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// filter returns a new listing with every entry whose base name matches an
// exclude pattern removed, preserving order.
func (es *excludeSet) filter(listing protocol.Listing) protocol.Listing {
	if es == nil || len(es.patterns) == 0 {
		return listing
	}
	out := make(protocol.Listing, 0, len(listing))
	for _, e := range listing {
		if es.matches(trimTrailingSlash(e.Name)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func trimTrailingSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}
