package caps

import "testing"

func TestGetCapsDoesNotError(t *testing.T) {
	if _, err := GetCaps(); err != nil {
		t.Fatal(err)
	}
}

func TestCanChangeIdentityMatchesHasSetuidSetgid(t *testing.T) {
	want := Has(SETUID) && Has(SETGID)
	if got := CanChangeIdentity(); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestHasOnUnknownValueDoesNotPanic(t *testing.T) {
	_ = Has(Capabilities(63))
}
