// Package conversation defines the persisted conversation state and its
// constituent records.
package conversation

import (
	"encoding/json"
	"strconv"
	"time"
)

// Role indicates who authored a chat message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is a single chat bubble. Immutable once appended.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ProviderOffer is one booking row for a flight: a provider name, a display
// price and at most one usable link (web booking URL or phone number).
type ProviderOffer struct {
	ProviderName string `json:"provider,omitempty"`
	PriceDisplay string `json:"price,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
	BookingURL   string `json:"booking_url,omitempty"`
	CallNumber   string `json:"call_number,omitempty"`
}

// HasLink reports whether the offer carries a usable booking affordance.
func (o ProviderOffer) HasLink() bool {
	return o.BookingURL != "" || o.CallNumber != ""
}

// Inert reports whether the row renders with neither a price nor a link.
func (o ProviderOffer) Inert() bool {
	return o.PriceDisplay == "" && !o.HasLink()
}

// CurrentVersion is the layout version written into new state blobs.
const CurrentVersion = 1

// State is the single persisted conversation blob. Every field is optional
// on read: an absent field is treated as empty, never as a decode error.
//
// Artifacts holds the last-received raw artifact value opaquely; it may be a
// string-encoded object and is only interpreted by the payload normalizer.
// SessionID is always derived from the latest normalized artifacts at use
// time; the stored copy is a hint, not an authority.
type State struct {
	Version   int                        `json:"version,omitempty"`
	Chat      []Message                  `json:"chat,omitempty"`
	Artifacts json.RawMessage            `json:"artifacts,omitempty"`
	SessionID string                     `json:"sessionId,omitempty"`
	ThreadID  string                     `json:"threadId,omitempty"`
	Providers map[string][]ProviderOffer `json:"providers,omitempty"`
	Currency  string                     `json:"currency,omitempty"`
}

// NewState creates an empty conversation state at the current layout version.
func NewState() *State {
	return &State{Version: CurrentVersion}
}

// AppendMessage appends a chat message stamped with the current time. The
// chat log is append-only within a session and is never rewritten in place.
func (s *State) AppendMessage(role Role, text string) Message {
	msg := Message{Role: role, Text: text, Timestamp: time.Now()}
	s.Chat = append(s.Chat, msg)
	return msg
}

// SetProviders stores the offer list for a flight ordinal. Entries are
// additive across selections and are not pruned when a new search replaces
// the artifact set; rehydration skips entries without a matching card.
func (s *State) SetProviders(ordinal int, offers []ProviderOffer) {
	if s.Providers == nil {
		s.Providers = make(map[string][]ProviderOffer)
	}
	s.Providers[strconv.Itoa(ordinal)] = offers
}

// ProvidersFor returns the cached offers for a flight ordinal, or nil.
func (s *State) ProvidersFor(ordinal int) []ProviderOffer {
	return s.Providers[strconv.Itoa(ordinal)]
}

// HasArtifacts reports whether a non-empty artifact value is stored.
func (s *State) HasArtifacts() bool {
	return len(s.Artifacts) > 0 && string(s.Artifacts) != "null"
}
