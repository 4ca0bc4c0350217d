package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// progressBar redraws a single status line. When stdout is not a terminal it
// prints nothing until the transfer finishes.
type progressBar struct {
	label string
	tty   bool
	width int
}

func newProgressBar(label string) *progressBar {
	fd := int(os.Stdout.Fd())
	bar := &progressBar{label: label, tty: term.IsTerminal(fd), width: 30}

	if cols, _, err := term.GetSize(fd); err == nil {
		bar.width = min(max(cols-len(label)-20, 10), 60)
	}
	return bar
}

func (b *progressBar) Update(percent float64) {
	if !b.tty {
		return
	}

	filled := int(percent / 100 * float64(b.width))
	fmt.Printf("\r%s [%s%s] %5.1f%%",
		b.label,
		color.GreenString(strings.Repeat("#", filled)),
		strings.Repeat(".", b.width-filled),
		percent)
}

// Done ends the status line so the next output starts on a fresh line.
func (b *progressBar) Done() {
	if b.tty {
		fmt.Println()
	}
}
