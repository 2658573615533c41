package httpserver

import (
	"testing"

	"github.com/kk-boop/simu/protocol"
)

func TestExcludeSetFiltersDotfilesAndSwap(t *testing.T) {
	es, err := newExcludeSet([]string{".*", "*.swp"})
	if err != nil {
		t.Fatal(err)
	}
	listing := protocol.Listing{
		{Name: "a.txt", IsDir: false},
		{Name: ".hidden", IsDir: false},
		{Name: "notes.swp", IsDir: false},
		{Name: "sub/", IsDir: true},
	}
	got := es.filter(listing)
	if len(got) != 2 {
		t.Fatalf("got %+v, want 2 entries", got)
	}
	if got[0].Name != "a.txt" || got[1].Name != "sub/" {
		t.Fatalf("got %+v", got)
	}
}

func TestExcludeSetNilIsIdentity(t *testing.T) {
	var es *excludeSet
	listing := protocol.Listing{{Name: "a", IsDir: false}}
	got := es.filter(listing)
	if len(got) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestExcludeSetEmptyPatternsIsIdentity(t *testing.T) {
	es, err := newExcludeSet(nil)
	if err != nil {
		t.Fatal(err)
	}
	listing := protocol.Listing{{Name: "a", IsDir: false}}
	got := es.filter(listing)
	if len(got) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestExcludeSetInvalidPattern(t *testing.T) {
	if _, err := newExcludeSet([]string{"[invalid"}); err == nil {
		t.Fatal("expected error for invalid glob")
	}
}
