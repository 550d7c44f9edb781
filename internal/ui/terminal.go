package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor follows the NO_COLOR and CLICOLOR conventions. NO_COLOR
// wins over CLICOLOR_FORCE; otherwise color is used on terminals only.
func ShouldUseColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && v != "0" {
		return true
	}
	return IsTerminal()
}

// ShouldUseEmoji is false when TRELLIS_NO_EMOJI is set or stdout is not a
// terminal.
func ShouldUseEmoji() bool {
	if os.Getenv("TRELLIS_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}

// IsAgentMode reports whether output is consumed by a program, in which case
// markdown and styling are left raw.
func IsAgentMode() bool {
	return os.Getenv("TRELLIS_AGENT_MODE") == "1"
}

// ConfigureProfile sets the lipgloss color profile from the environment.
// It is called once by the CLI before any output.
func ConfigureProfile() {
	if !ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
}

// Width returns the terminal width, or fallback when unknown.
func Width(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}
