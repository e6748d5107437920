// Package ui renders the conversation, flight cards and provider panels in
// the terminal and forwards user actions to the session.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"skydeck/internal/domain/conversation"
	"skydeck/internal/domain/payload"
)

// Controller is the slice of the session the UI drives. All methods may
// block; the model always calls them from commands, never from Update
// itself.
type Controller interface {
	SendMessage(ctx context.Context, text string) error
	SelectFlight(ctx context.Context, flight payload.Flight) error
	ChangeCurrency(ctx context.Context, code string) error
	ResetThread()
	ResetAll()
	Rehydrate()
}

// currencyOptions is the fixed radio set offered by the picker. The backend
// accepts any ISO code; this list only seeds the widget.
var currencyOptions = []string{"USD", "EUR", "GBP", "IDR", "SGD", "MYR", "JPY", "AUD"}

type focusArea int

const (
	focusComposer focusArea = iota
	focusFlights
)

// panel is the provider sub-panel state of one flight card.
type panel struct {
	offers []conversation.ProviderOffer
	notice string
}

// Model is the bubbletea model. The transcript is an explicit ordered list,
// oldest first; View paints it newest-first in a single reversed pass, so
// the final visual order never depends on insertion tricks.
type Model struct {
	ctrl Controller

	transcript   []conversation.Message
	transientErr string
	flights      []payload.Flight
	panels       map[int]*panel
	currency     string
	busy         bool

	input   textinput.Model
	spin    spinner.Model
	focus   focusArea
	cursor  int
	picking bool
	pick    int
	width   int
}

// NewModel creates the initial model. The controller arrives later through a
// SessionReadyMsg once the program is running.
func NewModel() Model {
	input := textinput.New()
	input.Placeholder = "Ask the travel agent..."
	input.Focus()
	input.CharLimit = 500

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		input:  input,
		spin:   spin,
		panels: make(map[int]*panel),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case SessionReadyMsg:
		m.ctrl = msg.Controller
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctrl.Rehydrate()
			return nil
		}

	case clearChatMsg:
		m.transcript = nil
		m.transientErr = ""
		return m, nil

	case bubbleMsg:
		m.transcript = append(m.transcript, msg.msg)
		return m, nil

	case transientErrMsg:
		m.transientErr = msg.text
		return m, nil

	case flightsMsg:
		m.flights = msg.flights
		m.panels = make(map[int]*panel)
		m.cursor = 0
		return m, nil

	case providersMsg:
		m.panelFor(msg.ordinal).offers = msg.offers
		m.panelFor(msg.ordinal).notice = ""
		return m, nil

	case panelNoticeMsg:
		m.panelFor(msg.ordinal).notice = msg.text
		return m, nil

	case currencyMsg:
		m.currency = msg.code
		return m, nil

	case busyMsg:
		m.busy = msg.busy
		if m.busy {
			return m, m.spin.Tick
		}
		return m, nil

	case actionDoneMsg:
		// Failures have already been painted by the session through the
		// renderer port; nothing extra to do here.
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picking {
		return m.handlePickerKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		if m.transientErr != "" {
			m.transientErr = ""
			return m, nil
		}
		return m, tea.Quit

	case "tab":
		if m.focus == focusComposer && len(m.flights) > 0 {
			m.focus = focusFlights
			m.input.Blur()
		} else {
			m.focus = focusComposer
			m.input.Focus()
		}
		return m, nil

	case "ctrl+y":
		m.picking = true
		m.pick = 0
		return m, nil

	case "ctrl+n":
		if m.ctrl == nil {
			return m, nil
		}
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctrl.ResetThread()
			return nil
		}

	case "ctrl+x":
		if m.ctrl == nil {
			return m, nil
		}
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctrl.ResetAll()
			return nil
		}
	}

	if m.focus == focusFlights {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "j":
			if m.cursor < len(m.flights)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			if m.ctrl == nil || m.busy || m.cursor >= len(m.flights) {
				return m, nil
			}
			ctrl, flight := m.ctrl, m.flights[m.cursor]
			return m, func() tea.Msg {
				return actionDoneMsg{err: ctrl.SelectFlight(context.Background(), flight)}
			}
		}
		return m, nil
	}

	if msg.String() == "enter" {
		if m.ctrl == nil || m.busy {
			return m, nil
		}
		text := m.input.Value()
		m.input.SetValue("")
		ctrl := m.ctrl
		return m, func() tea.Msg {
			return actionDoneMsg{err: ctrl.SendMessage(context.Background(), text)}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.picking = false
		return m, nil
	case "up", "k":
		if m.pick > 0 {
			m.pick--
		}
		return m, nil
	case "down", "j":
		if m.pick < len(currencyOptions)-1 {
			m.pick++
		}
		return m, nil
	case "enter":
		m.picking = false
		if m.ctrl == nil || m.busy {
			return m, nil
		}
		ctrl, code := m.ctrl, currencyOptions[m.pick]
		return m, func() tea.Msg {
			return actionDoneMsg{err: ctrl.ChangeCurrency(context.Background(), code)}
		}
	}
	return m, nil
}

func (m *Model) panelFor(ordinal int) *panel {
	if p, ok := m.panels[ordinal]; ok {
		return p
	}
	p := &panel{}
	m.panels[ordinal] = p
	return p
}

func (m Model) View() string {
	var sections []string

	indicator := "currency: —"
	if m.currency != "" {
		indicator = "currency: " + m.currency
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
		headerStyle.Render("skydeck · travel agent"),
		"  ",
		currencyStyle.Render(indicator),
	))

	if m.picking {
		sections = append(sections, m.pickerView())
	} else if m.busy {
		sections = append(sections, m.spin.View()+" contacting agent...")
	} else {
		sections = append(sections, m.input.View())
	}

	if m.transientErr != "" {
		sections = append(sections, errorBubbleStyle.Render(
			m.transientErr+"\n(ctrl+n starts a new thread, esc dismisses)"))
	}

	if view := m.transcriptView(); view != "" {
		sections = append(sections, view)
	}
	if view := m.flightsView(); view != "" {
		sections = append(sections, view)
	}

	sections = append(sections, helpStyle.Render(
		"enter send · tab flights · ctrl+y currency · ctrl+n new thread · ctrl+x reset all · ctrl+c quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// transcriptView paints the chat stack newest-first: one reversed pass over
// the append-ordered transcript.
func (m Model) transcriptView() string {
	if len(m.transcript) == 0 {
		return ""
	}
	bubbles := make([]string, 0, len(m.transcript))
	for i := len(m.transcript) - 1; i >= 0; i-- {
		msg := m.transcript[i]
		style := botBubbleStyle
		label := "agent"
		if msg.Role == conversation.RoleUser {
			style = userBubbleStyle
			label = "you"
		}
		bubbles = append(bubbles, style.Render(label+": "+msg.Text))
	}
	return lipgloss.JoinVertical(lipgloss.Left, bubbles...)
}

func (m Model) flightsView() string {
	if len(m.flights) == 0 {
		return ""
	}
	cards := make([]string, 0, len(m.flights))
	for i, f := range m.flights {
		style := cardStyle
		if m.focus == focusFlights && i == m.cursor {
			style = cardSelectedStyle
		}
		cards = append(cards, style.Render(m.cardView(f)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (m Model) cardView(f payload.Flight) string {
	var b strings.Builder

	title := f.Key
	if title == "" {
		title = fmt.Sprintf("Flight %d", f.Ordinal)
	}
	b.WriteString(title)
	if f.PriceDisplay != "" {
		b.WriteString("  " + priceStyle.Render(f.PriceDisplay))
	}
	b.WriteString("\n")

	route := f.DepartureAirport
	if f.ArrivalAirport != "" {
		route += " → " + f.ArrivalAirport
	}
	if route != "" {
		b.WriteString(route + "\n")
	}

	var details []string
	if f.DepartureTime != "" || f.ArrivalTime != "" {
		details = append(details, f.DepartureTime+" – "+f.ArrivalTime)
	}
	if f.DurationLabel != "" {
		details = append(details, f.DurationLabel)
	}
	details = append(details, stopsLabel(f.Stops))
	if len(f.Airlines) > 0 {
		details = append(details, strings.Join(f.Airlines, ", "))
	}
	b.WriteString(strings.Join(details, " · "))

	if p, ok := m.panels[f.Ordinal]; ok {
		if p.notice != "" {
			b.WriteString("\n" + noticeStyle.Render(p.notice))
		}
		for _, offer := range p.offers {
			b.WriteString("\n" + offerRow(offer))
		}
	}
	return b.String()
}

func offerRow(offer conversation.ProviderOffer) string {
	name := offer.ProviderName
	if name == "" {
		name = "Unknown provider"
	}
	parts := []string{name}
	if offer.PriceDisplay != "" {
		parts = append(parts, offer.PriceDisplay)
	}
	switch {
	case offer.BookingURL != "":
		parts = append(parts, offer.BookingURL)
	case offer.CallNumber != "":
		parts = append(parts, "call "+offer.CallNumber)
	}
	row := strings.Join(parts, "  ")
	if offer.Inert() {
		return inertStyle.Render(row)
	}
	return panelStyle.Render(row)
}

func stopsLabel(stops int) string {
	switch stops {
	case 0:
		return "non-stop"
	case 1:
		return "1 stop"
	default:
		return fmt.Sprintf("%d stops", stops)
	}
}

func (m Model) pickerView() string {
	var b strings.Builder
	b.WriteString("Convert prices to:\n")
	for i, code := range currencyOptions {
		marker := "( ) "
		if i == m.pick {
			marker = "(•) "
		}
		b.WriteString(marker + code + "\n")
	}
	b.WriteString(helpStyle.Render("enter confirm · esc cancel"))
	return cardStyle.Render(b.String())
}
