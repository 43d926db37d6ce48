package views

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/duo/internal/message"
	"github.com/matheus3301/duo/internal/tui/ui"
	"github.com/rivo/tview"
)

// Thread displays the open conversation and a composer below it.
type Thread struct {
	*tview.Flex
	theme    *ui.Theme
	owner    string
	messages *tview.TextView
	composer *tview.InputField
	onSend   func(text string)
}

// NewThread creates the conversation view for owner.
func NewThread(theme *ui.Theme, owner string) *Thread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" No conversation ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	th := &Thread{
		Flex:     flex,
		theme:    theme,
		owner:    owner,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || th.onSend == nil {
			return
		}
		if text := composer.GetText(); strings.TrimSpace(text) != "" {
			th.onSend(text)
			composer.SetText("")
		}
	})

	return th
}

// SetPartner updates the title for the open conversation.
func (th *Thread) SetPartner(partner string) {
	th.messages.SetTitle(fmt.Sprintf(" @%s ", tview.Escape(sanitizeForTerminal(partner))))
}

// SetOnSend sets the callback run when the composer submits text.
func (th *Thread) SetOnSend(fn func(text string)) {
	th.onSend = fn
}

// Update re-renders the timeline, oldest first.
func (th *Thread) Update(msgs iter.Seq[message.Message]) {
	th.messages.Clear()
	now := time.Now()
	var b strings.Builder
	for m := range msgs {
		b.WriteString(formatMessage(m, th.owner, th.theme, now))
	}
	_, _ = fmt.Fprint(th.messages, b.String())
	th.messages.ScrollToEnd()
}

// Messages returns the timeline text view (for focus management).
func (th *Thread) Messages() *tview.TextView {
	return th.messages
}

// Composer returns the composer input field (for focus management).
func (th *Thread) Composer() *tview.InputField {
	return th.composer
}
