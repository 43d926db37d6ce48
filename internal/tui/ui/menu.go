package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// MenuHint describes a keyboard shortcut for display in the hint bar.
type MenuHint struct {
	Key         string
	Description string
}

// Menu displays keyboard shortcut hints on one line.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new hint bar.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints separated by spaces.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, RenderHints(hints, ColorName(m.theme.MenuKeyColor)))
}

// RenderHints formats hints as "<key> description" pairs.
func RenderHints(hints []MenuHint, keyColor string) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, fmt.Sprintf("[%s::b]<%s>[-:-:-] %s", keyColor, h.Key, h.Description))
	}
	return strings.Join(parts, "  ")
}
