package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"skydeck/internal/domain/conversation"
	"skydeck/internal/domain/payload"
)

// Messages emitted by the session into the UI event loop. Each one mirrors a
// Renderer method.
type (
	clearChatMsg    struct{}
	bubbleMsg       struct{ msg conversation.Message }
	transientErrMsg struct{ text string }
	flightsMsg      struct{ flights []payload.Flight }
	providersMsg    struct {
		ordinal int
		offers  []conversation.ProviderOffer
	}
	panelNoticeMsg struct {
		ordinal int
		text    string
	}
	currencyMsg struct{ code string }
	busyMsg     struct{ busy bool }

	// actionDoneMsg carries the outcome of a background orchestrated action.
	actionDoneMsg struct{ err error }
)

// SessionReadyMsg hands the wired controller to the model after the program
// has started, then triggers rehydration.
type SessionReadyMsg struct {
	Controller Controller
}

// Dispatcher implements the session's Renderer port by feeding messages into
// the running bubbletea program. Program.Send is safe from any goroutine, so
// orchestrated actions can paint from their own control flow.
type Dispatcher struct {
	program *tea.Program
}

// NewDispatcher wraps a program as a Renderer.
func NewDispatcher(program *tea.Program) *Dispatcher {
	return &Dispatcher{program: program}
}

func (d *Dispatcher) ClearChat() {
	d.program.Send(clearChatMsg{})
}

func (d *Dispatcher) AppendBubble(msg conversation.Message) {
	d.program.Send(bubbleMsg{msg: msg})
}

func (d *Dispatcher) ShowTransientError(text string) {
	d.program.Send(transientErrMsg{text: text})
}

func (d *Dispatcher) RenderFlights(flights []payload.Flight) {
	d.program.Send(flightsMsg{flights: flights})
}

func (d *Dispatcher) RenderProviders(ordinal int, offers []conversation.ProviderOffer) {
	d.program.Send(providersMsg{ordinal: ordinal, offers: offers})
}

func (d *Dispatcher) ShowPanelNotice(ordinal int, text string) {
	d.program.Send(panelNoticeMsg{ordinal: ordinal, text: text})
}

func (d *Dispatcher) SetCurrency(code string) {
	d.program.Send(currencyMsg{code: code})
}

func (d *Dispatcher) SetBusy(busy bool) {
	d.program.Send(busyMsg{busy: busy})
}
