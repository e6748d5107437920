// Package session orchestrates user-triggered actions against the agent
// backend and reconstructs the full visible state from the persisted blob on
// startup.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"skydeck/internal/domain/conversation"
	"skydeck/internal/domain/payload"
	"skydeck/internal/domain/thread"
	"skydeck/internal/infrastructure/backend"
)

// Options tunes backend calls made by orchestrated actions.
type Options struct {
	MaxProviders  int
	WaitTimeoutMs int
}

// Session owns the live conversation: the busy guard serializing actions,
// the active search session id derived from the latest artifacts, and the
// wiring between store, backend and renderer.
//
// All orchestrated actions run on a single logical control flow. The busy
// flag is the only concurrency control: a second action arriving while one
// is in flight is refused, so persistence read-modify-write cycles never
// overlap.
type Session struct {
	store   Store
	agent   Backend
	threads *thread.Manager
	render  Renderer
	opts    Options
	log     zerolog.Logger

	busy      atomic.Bool
	sessionID string
}

// New wires a session over its collaborators.
func New(store Store, agent Backend, threads *thread.Manager, render Renderer, opts Options, log zerolog.Logger) *Session {
	if opts.MaxProviders <= 0 {
		opts.MaxProviders = 5
	}
	if opts.WaitTimeoutMs <= 0 {
		opts.WaitTimeoutMs = 10000
	}
	return &Session{
		store:   store,
		agent:   agent,
		threads: threads,
		render:  render,
		opts:    opts,
		log:     log,
	}
}

// SessionID returns the active backend automation session id, or empty when
// the latest artifacts carried none.
func (s *Session) SessionID() string {
	return s.sessionID
}

// SendMessage runs the primary chat flow. Empty or whitespace-only input is
// rejected before the busy guard so the loading indicator never flashes for
// a no-op.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return flowErr(KindEmptyInput, "empty message", nil)
	}
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()
	return s.sendTurn(ctx, text)
}

// sendTurn is the guarded body of a chat turn, shared by SendMessage and the
// automatic post-selection follow-up.
func (s *Session) sendTurn(ctx context.Context, text string) error {
	// Optimistic: the user's message is painted and persisted before the
	// network call.
	var userMsg conversation.Message
	s.store.Update(func(st *conversation.State) {
		userMsg = st.AppendMessage(conversation.RoleUser, text)
	})
	s.render.AppendBubble(userMsg)

	threadID := s.threads.GetOrCreate()
	result, err := s.agent.SendChat(ctx, text, threadID)
	if err != nil {
		s.log.Error().Err(err).Msg("chat turn failed")
		s.render.ShowTransientError("The agent could not be reached. You can retry, or start a new thread.")
		return flowErr(KindNetwork, "chat turn failed", err)
	}

	// The backend may rotate the thread under us; adopt its id silently.
	if result.ThreadID != "" && result.ThreadID != threadID {
		s.log.Info().Str("thread_id", result.ThreadID).Msg("adopting rotated thread id")
		s.threads.Set(result.ThreadID)
	}

	var botMsg conversation.Message
	s.store.Update(func(st *conversation.State) {
		botMsg = st.AppendMessage(conversation.RoleBot, result.Reply)
	})
	s.render.AppendBubble(botMsg)

	s.commitArtifacts(result.Artifacts)
	return nil
}

// commitArtifacts normalizes a reply's artifact value, paints the results
// and persists artifacts, derived session id and currency in one write.
// Artifact values without flights or a session id (placeholder strings,
// empty tool output) are ignored.
func (s *Session) commitArtifacts(artifacts []byte) {
	if len(artifacts) == 0 {
		return
	}
	flights := payload.Flights(artifacts)
	sid := payload.SessionID(artifacts)
	currency := payload.Currency(artifacts)
	if len(flights) == 0 && sid == "" {
		// No results to adopt, so the last committed set stays untouched.
		// A bare currency confirmation is still honored.
		if currency != "" {
			s.render.SetCurrency(currency)
			s.store.Update(func(st *conversation.State) {
				st.Currency = currency
			})
		}
		return
	}

	if len(flights) > 0 {
		s.render.RenderFlights(flights)
	}
	// The active session is always derived from the latest artifacts, even
	// when that derivation yields no session at all.
	s.sessionID = sid

	if currency != "" {
		s.render.SetCurrency(currency)
	}
	s.store.Update(func(st *conversation.State) {
		st.Artifacts = artifacts
		st.SessionID = sid
		if currency != "" {
			st.Currency = currency
		}
	})
}

// SelectFlight fetches booking providers for one rendered flight card, then
// issues the automatic follow-up turn that keeps the agent on the current
// results instead of re-running the search tool.
func (s *Session) SelectFlight(ctx context.Context, flight payload.Flight) error {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	if s.sessionID == "" {
		s.render.ShowPanelNotice(flight.Ordinal, "Search session not available. Run a new search first.")
		return flowErr(KindNoActiveSession, "no active search session", nil)
	}

	offers, err := s.agent.GetProviderLinks(ctx, backend.ProviderLinksParams{
		SessionID:     s.sessionID,
		FlightOrdinal: flight.Ordinal,
		MaxProviders:  s.opts.MaxProviders,
		WaitTimeoutMs: s.opts.WaitTimeoutMs,
	})
	if err != nil {
		s.log.Error().Err(err).Int("ordinal", flight.Ordinal).Msg("provider fetch failed")
		s.render.ShowPanelNotice(flight.Ordinal, providerErrorText(err))
		return flowErr(KindNetwork, "provider fetch failed", err)
	}
	if len(offers) == 0 {
		s.render.ShowPanelNotice(flight.Ordinal, "No booking providers found for this flight.")
		return flowErr(KindNoResults, "no providers", nil)
	}

	s.render.RenderProviders(flight.Ordinal, offers)
	s.store.Update(func(st *conversation.State) {
		st.SetProviders(flight.Ordinal, offers)
	})

	followUp := fmt.Sprintf(
		"I selected %s (flight %d). Do not run the flight search tool again; continue from the results we already have.",
		flight.Key, flight.Ordinal,
	)
	return s.sendTurn(ctx, followUp)
}

// ChangeCurrency asks the agent to convert displayed results. The indicator
// updates optimistically; the currency is persisted only after a successful
// round trip.
func (s *Session) ChangeCurrency(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return flowErr(KindEmptyInput, "no currency selected", nil)
	}
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	s.render.SetCurrency(code)

	result, err := s.agent.SetCurrency(ctx, code, s.sessionID)
	if err != nil {
		s.log.Error().Err(err).Str("currency", code).Msg("currency change failed")
		s.render.ShowTransientError("Currency change failed. You can retry, or start a new thread.")
		return flowErr(KindNetwork, "currency change failed", err)
	}

	if result.Reply != "" {
		var botMsg conversation.Message
		s.store.Update(func(st *conversation.State) {
			botMsg = st.AppendMessage(conversation.RoleBot, result.Reply)
		})
		s.render.AppendBubble(botMsg)
	}

	s.commitArtifacts(result.Artifacts)
	// A confirmed currency is persisted even when no flights came back with
	// it; the stored value is the rehydration fallback when artifacts carry
	// no currency of their own.
	s.store.Update(func(st *conversation.State) {
		st.Currency = code
	})
	return nil
}

// ResetThread rotates the thread identity and replays the persisted state,
// the terminal equivalent of the browser shell reload after a reset.
func (s *Session) ResetThread() {
	id := s.threads.Rotate()
	s.log.Info().Str("thread_id", id).Msg("thread reset")
	s.Rehydrate()
}

// ResetAll clears the persisted blob and every visible surface.
func (s *Session) ResetAll() {
	s.store.Reset()
	s.sessionID = ""
	s.render.ClearChat()
	s.render.RenderFlights(nil)
	s.render.SetCurrency("")
}

// Close releases the live backend automation session, if any. Called by the
// surrounding application on shutdown, not by orchestrated flows.
func (s *Session) Close(ctx context.Context) {
	if s.sessionID == "" {
		return
	}
	if err := s.agent.CloseSession(ctx, s.sessionID); err != nil {
		s.log.Warn().Err(err).Str("session_id", s.sessionID).Msg("close backend session")
	}
}

// begin claims the single in-flight slot. At most one orchestrated action
// runs at a time; a refused action is a silent no-op for the caller.
func (s *Session) begin() bool {
	if !s.busy.CompareAndSwap(false, true) {
		return false
	}
	s.render.SetBusy(true)
	return true
}

func (s *Session) end() {
	s.render.SetBusy(false)
	s.busy.Store(false)
}

func providerErrorText(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Could not fetch booking providers. Please try again."
}
