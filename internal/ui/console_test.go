package ui

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestConsolePlainOutputWhenNotATerminal(t *testing.T) {
	buf := &bytes.Buffer{}
	console := NewConsole(buf)

	console.Errorf("solve failed for %s", "tr-1")
	console.Warnf("notification task_end failed: exit %d", 2)
	console.Infof("completed: %s\n", "tr-1")

	want := "error: solve failed for tr-1\nwarning: notification task_end failed: exit 2\ncompleted: tr-1\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestConsoleStyledOutputKeepsMessage(t *testing.T) {
	previous := isTerminal
	isTerminal = func(io.Writer) bool { return true }
	defer func() { isTerminal = previous }()

	buf := &bytes.Buffer{}
	console := NewConsole(buf)
	console.Errorf("boom")

	if !strings.Contains(buf.String(), "error") || !strings.HasSuffix(buf.String(), " boom\n") {
		t.Fatalf("unexpected styled output %q", buf.String())
	}
}

func TestNilConsoleIsSafe(t *testing.T) {
	var console *Console
	console.Errorf("ignored")
	if console.Writer() != io.Discard {
		t.Fatal("expected discard writer for nil console")
	}
}
