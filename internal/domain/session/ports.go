package session

import (
	"context"

	"skydeck/internal/domain/conversation"
	"skydeck/internal/domain/payload"
	"skydeck/internal/infrastructure/backend"
)

// Store is the slice of the persistent state store the session drives.
// Load is total and Save-side failures are swallowed by the implementation.
type Store interface {
	Load() *conversation.State
	Save(*conversation.State)
	Update(func(*conversation.State)) *conversation.State
	Reset()
}

// Backend is the agent boundary consumed by orchestrated actions.
type Backend interface {
	SendChat(ctx context.Context, message, threadID string) (*backend.ChatResult, error)
	GetProviderLinks(ctx context.Context, params backend.ProviderLinksParams) ([]conversation.ProviderOffer, error)
	SetCurrency(ctx context.Context, currency, sessionID string) (*backend.ChatResult, error)
	CloseSession(ctx context.Context, sessionID string) error
}

// Renderer is the presentation port. The session emits state in final
// visual order; implementations keep an explicit ordered transcript and must
// not re-sort. Live rendering and rehydration drive the same methods in the
// same order, which is what makes reload output identical to live output.
type Renderer interface {
	// ClearChat empties the transcript surface.
	ClearChat()
	// AppendBubble adds one chat bubble; calls arrive in chronological
	// order, newest last.
	AppendBubble(msg conversation.Message)
	// ShowTransientError shows a page-level error bubble with a thread
	// reset affordance. Transient bubbles are never persisted.
	ShowTransientError(text string)
	// RenderFlights replaces the flight card list, already in final order.
	RenderFlights(flights []payload.Flight)
	// RenderProviders fills and reveals the provider panel of one card.
	RenderProviders(ordinal int, offers []conversation.ProviderOffer)
	// ShowPanelNotice puts an inline message on one card's provider panel.
	ShowPanelNotice(ordinal int, text string)
	// SetCurrency updates the currency indicator; empty means unset.
	SetCurrency(code string)
	// SetBusy toggles the send control's loading state.
	SetBusy(busy bool)
}
