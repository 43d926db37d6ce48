package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/duo/internal/message"
	"github.com/matheus3301/duo/internal/tui/ui"
	"github.com/rivo/tview"
)

// formatTimestamp shows the time of day for today and the date otherwise.
func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02 15:04")
}

// statusMark is the suffix shown after local sends.
func statusMark(m message.Message) string {
	switch {
	case m.Status == message.StatusFailed:
		return " [red]✗ not sent[-]"
	case m.Optimistic() && m.Status == message.StatusSending:
		return " [::d]…[-:-:-]"
	case m.Optimistic():
		return " [::d]✓[-:-:-]"
	case m.Status == message.StatusSent:
		return " [::d]✓✓[-:-:-]"
	default:
		return ""
	}
}

// formatMessage renders one timeline entry as tview markup.
func formatMessage(m message.Message, owner string, theme *ui.Theme, now time.Time) string {
	sender, color := m.Sender, theme.PartnerColor
	if m.Sender == owner {
		sender, color = "You", theme.OwnColor
	}
	if m.Optimistic() {
		color = theme.PendingColor
	}
	return fmt.Sprintf("[%s::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
		ui.ColorName(color),
		tview.Escape(sanitizeForTerminal(sender)),
		formatTimestamp(m.SentAt, now),
		statusMark(m),
		tview.Escape(sanitizeForTerminal(m.Body)))
}
