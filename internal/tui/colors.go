package tui

import (
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

func init() {
	if !colorEnabled() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// colorEnabled is false when NO_COLOR is set or stdout is not a terminal
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsTTY returns true if both stdin and stdout are terminals
func IsTTY() bool {
	in, out := os.Stdin.Fd(), os.Stdout.Fd()
	return (isatty.IsTerminal(in) || isatty.IsCygwinTerminal(in)) &&
		(isatty.IsTerminal(out) || isatty.IsCygwinTerminal(out))
}

var (
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	cyanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

// ColorRed colors text red
func ColorRed(text string) string {
	return redStyle.Render(text)
}

// ColorGreen colors text green
func ColorGreen(text string) string {
	return greenStyle.Render(text)
}

// ColorYellow colors text yellow
func ColorYellow(text string) string {
	return yellowStyle.Render(text)
}

// ColorBranchName colors a branch name cyan, bold when it is checked out
func ColorBranchName(name string, current bool) string {
	if current {
		return cyanStyle.Bold(true).Render(name)
	}
	return cyanStyle.Render(name)
}

// ColorDim renders text faint
func ColorDim(text string) string {
	return dimStyle.Render(text)
}

// Bold renders text bold
func Bold(text string) string {
	return boldStyle.Render(text)
}

var boldMarkup = regexp.MustCompile(`\*([^*]+)\*`)

// RenderStoryName renders *bold* markup in a work item name and drops
// ==escaped== sections
func RenderStoryName(name string) string {
	name = regexp.MustCompile(`==.*?==`).ReplaceAllString(name, "")
	return boldMarkup.ReplaceAllStringFunc(name, func(m string) string {
		return Bold(strings.Trim(m, "*"))
	})
}
