// SPDX-License-Identifier: MIT
package termstyle

import (
	"github.com/liggitt/tabwriter"

	"github.com/skaphos/lockkeeper/internal/model"
)

const (
	Reset = "\x1b[0m"
	Green = "\x1b[32m"
	Brown = "\x1b[33m"
	Red   = "\x1b[31m"
	Blue  = "\x1b[34m"

	// Semantic aliases used by table/status output.
	Healthy = Green
	Warn    = Brown
	Error   = Red
	Info    = Blue
)

// Colorize wraps a value in ANSI escapes when color output is enabled.
func Colorize(enabled bool, value, color string) string {
	if !enabled || value == "" || color == "" {
		return value
	}
	// Hide ANSI sequences from tabwriter width calculations so columns align.
	esc := string([]byte{tabwriter.Escape})
	return esc + color + esc + value + esc + Reset + esc
}

// ForState returns the color used for a file's effective display state
// in table output. Good states are green, local work brown, anything
// that blocks an edit red.
func ForState(st model.DisplayState) string {
	switch st {
	case model.DisplayNotAtHead, model.DisplayCheckedOutOther, model.DisplayConflicted:
		return Error
	case model.DisplayNotLatest, model.DisplayOpenForAdd, model.DisplayMarkedForDelete,
		model.DisplayModified, model.DisplayMissing, model.DisplayNotControlled:
		return Warn
	case model.DisplayCheckedOut:
		return Healthy
	case model.DisplayCanCheckOut:
		return Info
	default:
		return ""
	}
}
