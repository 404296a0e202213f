package utils

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

// MessageType is a custom type used as a placeholder for various message types.
type MessageType int

// The message types used across the CLI application.
const (
	DefaultMessage MessageType = iota
	SuccessMessage
	ErrorMessage
	StatusMessage
)

// Colors used across the CLI application.
const (
	DefaultColor = "\x1b[0m"
	StatusColor  = "\x1b[36m"
	SuccessColor = "\x1b[32m"
	ErrorColor   = "\x1b[31m"
)

// Colorize turns the terminal escape codes on or off. It defaults to true only
// when stderr is attached to a terminal.
var Colorize = term.IsTerminal(int(os.Stderr.Fd()))

// DecorateText shows the message types in different colors.
func DecorateText(s string, msgType MessageType) string {
	if !Colorize {
		return s
	}

	var color string
	switch msgType {
	case DefaultMessage:
		color = DefaultColor
	case StatusMessage:
		color = StatusColor
	case SuccessMessage:
		color = SuccessColor
	case ErrorMessage:
		color = ErrorColor
	default:
		return s
	}
	return color + s + DefaultColor
}

// FormatTime formats time.Duration output to a human readable value.
func FormatTime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}

	secs := d.Seconds() - float64(int64(d.Minutes()))*60
	if d < time.Hour {
		return fmt.Sprintf("%dm %.2fs", int64(d.Minutes()), secs)
	}

	mins := int64(d.Minutes()) % 60
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm %.2fs", int64(d.Hours()), mins, secs)
	}

	hours := int64(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh %dm %.2fs", int64(d.Hours()/24), hours, mins, secs)
}
