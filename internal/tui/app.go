package tui

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/duo/internal/bus"
	"github.com/matheus3301/duo/internal/conversation"
	"github.com/matheus3301/duo/internal/history"
	"github.com/matheus3301/duo/internal/message"
	"github.com/matheus3301/duo/internal/outbox"
	"github.com/matheus3301/duo/internal/status"
	"github.com/matheus3301/duo/internal/tui/keys"
	"github.com/matheus3301/duo/internal/tui/ui"
	"github.com/matheus3301/duo/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	scopeThread = "thread"
	scopePrompt = "prompt"
)

// Conversation is what the TUI needs from the identity session.
type Conversation interface {
	Open(ctx context.Context, partner string) error
	Partner() string
	Messages() iter.Seq[message.Message]
	Len() int
	Send(ctx context.Context, body string) (message.Message, error)
	State() status.State
}

// App is the main TUI application shell. It only renders the conversation;
// every state change arrives through the bus.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	theme    *ui.Theme
	conv     Conversation
	bus      *bus.Bus
	registry *keys.Registry
	thread   *views.Thread
	prompt   *ui.Prompt
	status   *views.StatusBar
	menu     *ui.Menu
	flash    *ui.FlashModel
	flashBar *ui.FlashBar
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewApp creates the TUI for identity.
func NewApp(conv Conversation, b *bus.Bus, identity string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		pages:    tview.NewPages(),
		theme:    theme,
		conv:     conv,
		bus:      b,
		registry: keys.NewRegistry(),
		thread:   views.NewThread(theme, identity),
		prompt:   ui.NewPrompt(theme),
		status:   views.NewStatusBar(theme, identity),
		menu:     ui.NewMenu(theme),
		flash:    ui.NewFlashModel(),
		flashBar: ui.NewFlashBar(theme),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyCtrlC, Label: "ctrl-c", Description: "Quit",
		Handler: a.app.Stop,
	})
	a.registry.Add(scopeThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Label: "q", Description: "Quit",
		Handler: a.app.Stop,
	})
	a.registry.Add(scopeThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'o', Label: "o", Description: "Open",
		Handler: a.showPrompt,
	})
	a.registry.Add(scopeThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Label: "i", Description: "Compose",
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.Add(scopePrompt, &keys.Action{
		Key: tcell.KeyEscape, Label: "esc", Description: "Cancel",
		Handler: a.hidePrompt,
	})
}

func (a *App) setupCallbacks() {
	a.prompt.SetOnSubmit(func(partner string) {
		a.hidePrompt()
		a.open(partner)
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.thread.SetOnSend(func(text string) {
		go func() {
			if m, err := a.conv.Send(a.ctx, text); rejectedBeforeSend(m, err) {
				a.notify(err)
			}
		}()
	})
}

func (a *App) setupLayout() {
	promptLayer := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(a.prompt, 3, 0, true).
		AddItem(nil, 0, 1, false)

	a.pages.AddPage(scopeThread, a.thread, true, true)
	a.pages.AddPage(scopePrompt, promptLayer, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.status, 1, 0, false).
		AddItem(a.menu, 1, 0, false)

	a.app.SetRoot(root, true)
	a.updateMenu(scopeThread)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		page, _ := a.pages.GetFrontPage()

		// Leave the composer with Esc; everything else is typed text.
		if a.app.GetFocus() == a.thread.Composer() {
			if event.Key() == tcell.KeyEscape {
				a.app.SetFocus(a.thread.Messages())
				return nil
			}
			if event.Key() != tcell.KeyCtrlC {
				return event
			}
		}
		if page == scopePrompt && event.Key() != tcell.KeyEscape && event.Key() != tcell.KeyCtrlC {
			return event
		}
		if a.registry.HandleEvent(page, event) {
			return nil
		}
		return event
	})
}

func (a *App) updateMenu(scope string) {
	var hints []ui.MenuHint
	for _, b := range a.registry.Bindings(scope) {
		hints = append(hints, ui.MenuHint{Key: b.Label, Description: b.Description})
	}
	a.menu.Update(hints)
}

func (a *App) showPrompt() {
	a.pages.ShowPage(scopePrompt)
	a.pages.SendToFront(scopePrompt)
	a.app.SetFocus(a.prompt)
	a.updateMenu(scopePrompt)
}

func (a *App) hidePrompt() {
	a.pages.HidePage(scopePrompt)
	a.app.SetFocus(a.thread.Messages())
	a.updateMenu(scopeThread)
}

// open switches conversations off the UI goroutine; the redraw comes from the
// conversation events it publishes.
func (a *App) open(partner string) {
	a.thread.SetPartner(partner)
	go func() {
		err := a.conv.Open(a.ctx, partner)
		switch {
		case err == nil, errors.Is(err, conversation.ErrSuperseded):
		case errors.Is(err, history.ErrUnavailable):
			a.flash.Warn(fmt.Sprintf("history for @%s unavailable; showing live messages only", partner))
			a.app.QueueUpdateDraw(a.refreshFlash)
		default:
			a.notify(err)
		}
	}()
}

// rejectedBeforeSend reports whether err stopped a send before any entry was
// appended. Transmission failures carry the entry and are shown from the
// outbox.send_failed event instead.
func rejectedBeforeSend(m message.Message, err error) bool {
	return err != nil && m.ClientID == ""
}

func (a *App) notify(err error) {
	a.flash.Err(err)
	a.app.QueueUpdateDraw(a.refreshFlash)
}

func (a *App) refreshFlash() {
	a.flashBar.Update(a.flash.Current())
}

func (a *App) render() {
	a.thread.Update(a.conv.Messages())
	a.status.SetConversation(a.conv.Partner(), a.conv.Len())
	a.refreshFlash()
}

// watch redraws on every conversation, connection or outbox event.
func (a *App) watch() {
	conv, unsubConv := a.bus.Subscribe("conversation.", 256)
	live, unsubLive := a.bus.Subscribe(bus.KindLiveStateChanged, 16)
	out, unsubOut := a.bus.Subscribe(bus.KindOutboxSendFailed, 16)
	defer unsubConv()
	defer unsubLive()
	defer unsubOut()

	for {
		select {
		case <-conv:
			a.app.QueueUpdateDraw(a.render)
		case evt := <-live:
			if c, ok := evt.Payload.(status.Change); ok {
				a.app.QueueUpdateDraw(func() { a.status.SetState(c.To) })
			}
		case evt := <-out:
			if r, ok := evt.Payload.(outbox.Result); ok && r.Err != nil {
				a.flash.Err(r.Err)
				a.app.QueueUpdateDraw(a.refreshFlash)
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// Run starts the TUI and blocks until the user quits. If partner is not empty
// that conversation is opened first.
func (a *App) Run(partner string) error {
	go a.watch()
	a.status.SetState(a.conv.State())
	if partner != "" {
		a.open(partner)
	} else {
		a.showPrompt()
	}
	defer a.cancel()
	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
