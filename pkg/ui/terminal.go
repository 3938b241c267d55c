package ui

import (
	"fmt"
	"io"
	"os"
)

// Banner printed by the interactive commands
const Banner = `
   ┌─────────────────────────────────────────┐
   │  r/ REDDIT SCRAPER                       │
   │  browse · select · export · archive      │
   └─────────────────────────────────────────┘
`

// Output is where the print helpers write. Tests swap it.
var Output io.Writer = os.Stdout

var colorEnabled = true

// SetColor turns ANSI colors on or off for every helper below
func SetColor(on bool) {
	colorEnabled = on
}

var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Orange  = colorize("\033[38;5;202m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

func PrintBanner() {
	fmt.Fprint(Output, Orange(Banner))
}

// PrintError prints msg in red, followed by err when given
func PrintError(msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	fmt.Fprintln(Output, Red(msg))
}

func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

func PrintWarning(msg string) {
	fmt.Fprintln(Output, Yellow(msg))
}

func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}
