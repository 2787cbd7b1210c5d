// Package ui writes operator-facing lines to stderr.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var isTerminal = func(writer io.Writer) bool {
	if file, ok := writer.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

type Console struct {
	mu     sync.Mutex
	out    io.Writer
	styled bool
	errorS lipgloss.Style
	warnS  lipgloss.Style
	infoS  lipgloss.Style
}

// NewConsole styles output only when out is a terminal.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = io.Discard
	}
	return &Console{
		out:    out,
		styled: isTerminal(out),
		errorS: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		warnS:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		infoS:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	}
}

func (c *Console) Errorf(format string, args ...interface{}) {
	c.line(c.errorS, "error: ", fmt.Sprintf(format, args...))
}

func (c *Console) Warnf(format string, args ...interface{}) {
	c.line(c.warnS, "warning: ", fmt.Sprintf(format, args...))
}

func (c *Console) Infof(format string, args ...interface{}) {
	c.line(c.infoS, "", fmt.Sprintf(format, args...))
}

// Writer exposes the underlying stream for command echo output.
func (c *Console) Writer() io.Writer {
	if c == nil {
		return io.Discard
	}
	return c.out
}

func (c *Console) line(style lipgloss.Style, prefix string, message string) {
	if c == nil {
		return
	}
	message = strings.TrimRight(message, "\n")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.styled {
		if prefix != "" {
			fmt.Fprintln(c.out, style.Render(strings.TrimSpace(prefix))+" "+message)
			return
		}
		fmt.Fprintln(c.out, style.Render(message))
		return
	}
	fmt.Fprintln(c.out, prefix+message)
}
