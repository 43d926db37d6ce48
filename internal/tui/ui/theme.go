package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/duo/internal/status"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	TitleColor        tcell.Color
	MenuKeyColor      tcell.Color
	OwnColor          tcell.Color
	PartnerColor      tcell.Color
	PendingColor      tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
	StateColors       map[status.State]tcell.Color
}

// DefaultTheme returns a k9s-inspired dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorCadetBlue,
		BorderColor:       tcell.ColorDodgerBlue,
		TitleColor:        tcell.ColorFuchsia,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		OwnColor:          tcell.ColorAqua,
		PartnerColor:      tcell.ColorOrange,
		PendingColor:      tcell.ColorGray,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorDodgerBlue,
		StateColors: map[status.State]tcell.Color{
			status.Connecting: tcell.ColorYellow,
			status.Open:       tcell.ColorGreen,
			status.Closed:     tcell.ColorGray,
			status.Failed:     tcell.ColorRed,
		},
	}
}

// StateColor returns the tview color tag for a connection state.
func (t *Theme) StateColor(s status.State) string {
	c, ok := t.StateColors[s]
	if !ok {
		c = t.FgColor
	}
	return ColorName(c)
}

// ColorName returns a name usable inside tview color tags.
func ColorName(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
