// Package version reports the build version. Release builds set it with
// -ldflags "-X github.com/lambdamechanic/trudger-sub000/internal/version.Version=v1.2.3".
package version

import (
	"fmt"
	"io"
)

const Name = "trudger"

var Version = "dev"

// IsVersionRequest reports whether args ask only for the version.
func IsVersionRequest(args []string) bool {
	return len(args) == 1 && (args[0] == "--version" || args[0] == "-version")
}

func String() string {
	return Name + " " + Version
}

func Print(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	fmt.Fprintln(w, String())
}
