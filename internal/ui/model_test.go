package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skydeck/internal/domain/conversation"
	"skydeck/internal/domain/payload"
)

func apply(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func bubble(role conversation.Role, text string) tea.Msg {
	return bubbleMsg{msg: conversation.Message{Role: role, Text: text, Timestamp: time.Now()}}
}

func TestTranscriptRendersNewestFirst(t *testing.T) {
	m := apply(t, NewModel(),
		bubble(conversation.RoleUser, "first question"),
		bubble(conversation.RoleBot, "first answer"),
		bubble(conversation.RoleUser, "second question"),
	)

	view := m.View()
	first := strings.Index(view, "first question")
	second := strings.Index(view, "second question")
	answer := strings.Index(view, "first answer")
	require.True(t, first >= 0 && second >= 0 && answer >= 0, "all bubbles must render")

	// Newest at the top: second question above first answer above first
	// question.
	assert.Less(t, second, answer)
	assert.Less(t, answer, first)
}

func TestClearChatEmptiesTranscript(t *testing.T) {
	m := apply(t, NewModel(),
		bubble(conversation.RoleUser, "hello"),
		clearChatMsg{},
	)
	assert.NotContains(t, m.View(), "hello")
}

func TestFlightsAndProviderPanel(t *testing.T) {
	flights := []payload.Flight{
		{Ordinal: 1, Key: "Flight 1", PriceDisplay: "$90", Airlines: []string{"Garuda"}},
		{Ordinal: 2, Key: "Flight 2", PriceDisplay: "$120", Stops: 1},
	}
	m := apply(t, NewModel(),
		flightsMsg{flights: flights},
		providersMsg{ordinal: 2, offers: []conversation.ProviderOffer{
			{ProviderName: "Trip.com", PriceDisplay: "$122", BookingURL: "https://example.com/b"},
		}},
	)

	view := m.View()
	assert.Contains(t, view, "Flight 1")
	assert.Contains(t, view, "Flight 2")
	assert.Contains(t, view, "Trip.com")
	assert.Contains(t, view, "non-stop")
	assert.Contains(t, view, "1 stop")
}

func TestPanelNoticeRenders(t *testing.T) {
	m := apply(t, NewModel(),
		flightsMsg{flights: []payload.Flight{{Ordinal: 1, Key: "Flight 1"}}},
		panelNoticeMsg{ordinal: 1, text: "Search session not available."},
	)
	assert.Contains(t, m.View(), "Search session not available.")
}

func TestNewFlightsResetPanels(t *testing.T) {
	m := apply(t, NewModel(),
		flightsMsg{flights: []payload.Flight{{Ordinal: 1, Key: "Flight 1"}}},
		providersMsg{ordinal: 1, offers: []conversation.ProviderOffer{{ProviderName: "Trip.com"}}},
		flightsMsg{flights: []payload.Flight{{Ordinal: 1, Key: "Flight 1"}}},
	)
	assert.NotContains(t, m.View(), "Trip.com", "panels must not survive a new result set")
}

func TestCurrencyIndicator(t *testing.T) {
	m := NewModel()
	assert.Contains(t, m.View(), "currency: —")

	m = apply(t, m, currencyMsg{code: "EUR"})
	assert.Contains(t, m.View(), "currency: EUR")

	m = apply(t, m, currencyMsg{code: ""})
	assert.Contains(t, m.View(), "currency: —")
}

func TestTransientErrorDismissable(t *testing.T) {
	m := apply(t, NewModel(), transientErrMsg{text: "The agent could not be reached."})
	assert.Contains(t, m.View(), "could not be reached")

	m = apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, m.View(), "could not be reached")
}

type recordingCtrl struct {
	sent []string
}

func (r *recordingCtrl) SendMessage(_ context.Context, text string) error {
	r.sent = append(r.sent, text)
	return nil
}
func (r *recordingCtrl) SelectFlight(context.Context, payload.Flight) error { return nil }
func (r *recordingCtrl) ChangeCurrency(context.Context, string) error       { return nil }
func (r *recordingCtrl) ResetThread()                                       {}
func (r *recordingCtrl) ResetAll()                                          {}
func (r *recordingCtrl) Rehydrate()                                         {}

func TestEnterDispatchesComposerText(t *testing.T) {
	ctrl := &recordingCtrl{}
	m := apply(t, NewModel(), SessionReadyMsg{Controller: ctrl})
	m.input.SetValue("find me a flight")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	cmd() // runs the blocking action synchronously in tests

	require.Len(t, ctrl.sent, 1)
	assert.Equal(t, "find me a flight", ctrl.sent[0])
	assert.Empty(t, m.input.Value(), "composer clears on dispatch")
}

func TestEnterIgnoredWhileBusy(t *testing.T) {
	ctrl := &recordingCtrl{}
	m := apply(t, NewModel(), SessionReadyMsg{Controller: ctrl}, busyMsg{busy: true})
	m.input.SetValue("queued text")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "no action may dispatch while one is in flight")
	assert.Empty(t, ctrl.sent)
}
