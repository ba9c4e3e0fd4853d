package ui

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"golang.org/x/term"
)

// ASCIILogo is printed above interactive commands
const ASCIILogo = `
  ┌──────────────────────────────────────────────────┐
  │ ▀█▀ █ █ █ █▀▀ █▀▀ ▀█▀   █▀█ █▀█ █ █ █▄ █ █▀▀ █▀█ │
  │  █  ▀▄▀▄▀ ██▄ ██▄  █    █▀▀ █▀▄ █▄█ █ ▀█ ██▄ █▀▄ │
  │        old posts out, the good ones stay         │
  └──────────────────────────────────────────────────┘
`

var (
	quiet   atomic.Bool
	noColor atomic.Bool
	out     io.Writer = os.Stdout
)

func init() {
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		noColor.Store(true)
	}
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(q bool) { quiet.Store(q) }

// IsQuietMode reports whether quiet mode is on
func IsQuietMode() bool { return quiet.Load() }

// SetColor forces colored output on or off
func SetColor(enabled bool) { noColor.Store(!enabled) }

// SetOutput redirects printed output, mainly for tests
func SetOutput(w io.Writer) { out = w }

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		if noColor.Load() {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	if IsQuietMode() {
		return
	}
	fmt.Fprint(out, Cyan(ASCIILogo))
}

// PrintError prints an error message in red, even in quiet mode
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out, Red(msg+": "+fmt.Sprint(args[0])))
	} else {
		fmt.Fprintln(out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintln(out, Green(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintf(out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if IsQuietMode() {
		return
	}
	if len(args) > 0 {
		fmt.Fprintln(out, Yellow(msg+": "+fmt.Sprint(args[0])))
	} else {
		fmt.Fprintln(out, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintln(out, Magenta(msg))
}
