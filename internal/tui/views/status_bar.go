package views

import (
	"fmt"

	"github.com/matheus3301/duo/internal/status"
	"github.com/matheus3301/duo/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar shows the identity, live connection state and open partner.
type StatusBar struct {
	*tview.TextView
	theme    *ui.Theme
	identity string
	state    status.State
	partner  string
	count    int
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme, identity string) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	sb := &StatusBar{TextView: tv, theme: theme, identity: identity, state: status.Connecting}
	sb.render()
	return sb
}

// SetState updates the connection indicator.
func (sb *StatusBar) SetState(s status.State) {
	sb.state = s
	sb.render()
}

// SetConversation updates the partner and message count.
func (sb *StatusBar) SetConversation(partner string, count int) {
	sb.partner = partner
	sb.count = count
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	_, _ = fmt.Fprint(sb, statusLine(sb.theme, sb.identity, sb.state, sb.partner, sb.count))
}

func statusLine(theme *ui.Theme, identity string, state status.State, partner string, count int) string {
	line := fmt.Sprintf(" [::b]%s[-:-:-] | [%s]● %s[-]",
		tview.Escape(sanitizeForTerminal(identity)), theme.StateColor(state), state)
	if partner != "" {
		line += fmt.Sprintf(" | @%s (%d)", tview.Escape(sanitizeForTerminal(partner)), count)
	}
	return line
}
