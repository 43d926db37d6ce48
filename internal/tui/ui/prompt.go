package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Prompt asks for the identity of the conversation partner to open.
type Prompt struct {
	*tview.InputField
	theme    *Theme
	onSubmit func(partner string)
	onCancel func()
}

// NewPrompt creates a new partner prompt.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField().
		SetLabel("@").
		SetFieldWidth(0)
	input.SetBorder(true)
	input.SetTitle(" Open conversation ")
	input.SetTitleColor(theme.TitleColor)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	p := &Prompt{
		InputField: input,
		theme:      theme,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			partner := strings.TrimPrefix(strings.TrimSpace(p.GetText()), "@")
			p.SetText("")
			if p.onSubmit != nil && partner != "" {
				p.onSubmit(partner)
			}
		case tcell.KeyEscape:
			p.SetText("")
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})

	return p
}

// SetOnSubmit sets the callback when a partner is entered.
func (p *Prompt) SetOnSubmit(fn func(partner string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback when the prompt is dismissed.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}
