package simlog

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testFile = `test.log`

func newLogger(t *testing.T) (*Logger, string) {
	t.Helper()
	p := filepath.Join(t.TempDir(), testFile)
	fout, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	return New(fout), p
}

func TestNew(t *testing.T) {
	lgr, _ := newLogger(t)
	if err := lgr.Critical("test", KV("n", 99)); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestAppend(t *testing.T) {
	p := filepath.Join(t.TempDir(), testFile)
	lgr, err := NewFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if err = lgr.Error("test", KV("n", 99)); err != nil {
		t.Fatal(err)
	}
	if err = lgr.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLevelFiltering(t *testing.T) {
	lgr, p := newLogger(t)
	if err := lgr.Warn("warn line", KV("n", 99)); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Info("info line", KV("n", 99)); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Debug("debug line", KV("n", 99)); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Error("tester", KV("id", 99)); err != nil {
		t.Fatal(err)
	}
	if err := lgr.SetLevel(OFF); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Critical("should not appear"); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Close(); err != nil {
		t.Fatal(err)
	}
	bts, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	s := string(bts)
	if !strings.Contains(s, "warn line") {
		t.Fatal("missing warn line:", s)
	}
	if !strings.Contains(s, "info line") {
		t.Fatal("missing info line:", s)
	}
	if strings.Contains(s, "debug line") {
		t.Fatal("debug line logged at INFO level:", s)
	}
	if !strings.Contains(s, "tester") || !strings.Contains(s, `id="99"`) {
		t.Fatal("missing structured field:", s)
	}
	if strings.Contains(s, "should not appear") {
		t.Fatal("logged after level set to OFF:", s)
	}
	if strings.Contains(s, "\n\n") {
		t.Fatalf("did not filter double newlines:\n%q\n", s)
	}
}

func TestMulti(t *testing.T) {
	lgr, _ := newLogger(t)
	dir := t.TempDir()
	var toCheck []string
	for i := 0; i < 4; i++ {
		fout, err := os.CreateTemp(dir, ``)
		if err != nil {
			t.Fatal(err)
		}
		if err = lgr.AddWriter(fout); err != nil {
			t.Fatal(err)
		}
		toCheck = append(toCheck, fout.Name())
	}
	if err := lgr.Critical("fanout line", KV("n", 0x1337)); err != nil {
		t.Fatal(err)
	}
	for _, n := range toCheck {
		bts, err := os.ReadFile(n)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(bts), "fanout line") {
			t.Fatal(n, "missing fanned-out log line")
		}
	}
	if err := lgr.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestAddRemoveWriter(t *testing.T) {
	lgr, p := newLogger(t)
	dir := t.TempDir()
	extra, err := os.CreateTemp(dir, ``)
	if err != nil {
		t.Fatal(err)
	}
	defer extra.Close()
	if err = lgr.AddWriter(extra); err != nil {
		t.Fatal(err)
	}
	if err = lgr.Critical("before removal"); err != nil {
		t.Fatal(err)
	}
	if err = lgr.DeleteWriter(extra); err != nil {
		t.Fatal(err)
	}
	if err = lgr.Error("after removal"); err != nil {
		t.Fatal(err)
	}
	if err = lgr.Close(); err != nil {
		t.Fatal(err)
	}

	extraBts, err := os.ReadFile(extra.Name())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(extraBts), "before removal") {
		t.Fatal("extra writer missing pre-removal line")
	}
	if strings.Contains(string(extraBts), "after removal") {
		t.Fatal("extra writer received line logged after removal")
	}

	origBts, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(origBts), "before removal") || !strings.Contains(string(origBts), "after removal") {
		t.Fatal("original writer missing lines")
	}
}

func TestKVLogger(t *testing.T) {
	lgr, p := newLogger(t)
	kvl := NewLoggerWithKV(lgr, KV("trace_id", "abc123"))
	if err := kvl.Info("request handled", KV("status", 200)); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Close(); err != nil {
		t.Fatal(err)
	}
	bts, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	s := string(bts)
	if !strings.Contains(s, `trace_id="abc123"`) || !strings.Contains(s, `status="200"`) {
		t.Fatal("missing structured fields:", s)
	}
}

func TestTrimLength(t *testing.T) {
	if got := trimLength(10, "twelve bytes"); got != "twelve byt" {
		t.Fatal("trimLength", got)
	}
}

func TestTrimPathLength(t *testing.T) {
	if got := trimPathLength(32, "helperio/frame.go:355"); got != "helperio/frame.go:355" {
		t.Fatal("trimPathLength", got)
	}
}

func TestTrimPathLengthBaseTooLong(t *testing.T) {
	input := "helperio/wayTooManyBytesInThisFilenameWhoDidThis.go:355"
	got := trimPathLength(32, input)
	want := trimLength(32, filepath.Base(input))
	if got != want {
		t.Fatal("trimPathLength", got)
	}
}

func TestLevelFromStringInvalid(t *testing.T) {
	if _, err := LevelFromString("bogus"); err != ErrInvalidLevel {
		t.Fatal("expected ErrInvalidLevel, got", err)
	}
}

var _ io.WriteCloser = (*Logger)(nil)
