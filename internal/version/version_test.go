package version

import (
	"bytes"
	"testing"
)

func TestIsVersionRequest(t *testing.T) {
	cases := map[string]struct {
		args []string
		want bool
	}{
		"long":      {args: []string{"--version"}, want: true},
		"short":     {args: []string{"-version"}, want: true},
		"with more": {args: []string{"--version", "-v"}, want: false},
		"none":      {args: nil, want: false},
	}
	for name, tc := range cases {
		if got := IsVersionRequest(tc.args); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, got)
		}
	}
}

func TestPrintUsesLinkedVersion(t *testing.T) {
	original := Version
	Version = "v9.9.9"
	t.Cleanup(func() { Version = original })

	out := &bytes.Buffer{}
	Print(out)
	if out.String() != "trudger v9.9.9\n" {
		t.Fatalf("unexpected version output %q", out.String())
	}
}
