package session_test

import (
	"context"
	"sync"

	"skydeck/internal/domain/conversation"
	"skydeck/internal/domain/payload"
	"skydeck/internal/infrastructure/backend"
)

// memStore is an in-memory Store for both the session and the thread
// manager.
type memStore struct {
	mu    sync.Mutex
	state *conversation.State
	saves int
}

func newMemStore() *memStore {
	return &memStore{state: conversation.NewState()}
}

func (m *memStore) Load() *conversation.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.state
	return &cp
}

func (m *memStore) Save(st *conversation.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
	m.saves++
}

func (m *memStore) Update(mutate func(*conversation.State)) *conversation.State {
	st := m.Load()
	mutate(st)
	m.Save(st)
	return st
}

func (m *memStore) Reset() {
	m.Save(conversation.NewState())
}

// mockBackend is a func-field mock for the agent boundary.
type mockBackend struct {
	SendChatFunc         func(ctx context.Context, message, threadID string) (*backend.ChatResult, error)
	GetProviderLinksFunc func(ctx context.Context, params backend.ProviderLinksParams) ([]conversation.ProviderOffer, error)
	SetCurrencyFunc      func(ctx context.Context, currency, sessionID string) (*backend.ChatResult, error)
	CloseSessionFunc     func(ctx context.Context, sessionID string) error

	mu            sync.Mutex
	chatCalls     []string
	providerCalls []backend.ProviderLinksParams
}

func (m *mockBackend) SendChat(ctx context.Context, message, threadID string) (*backend.ChatResult, error) {
	m.mu.Lock()
	m.chatCalls = append(m.chatCalls, message)
	m.mu.Unlock()
	if m.SendChatFunc != nil {
		return m.SendChatFunc(ctx, message, threadID)
	}
	return &backend.ChatResult{Reply: "ok"}, nil
}

func (m *mockBackend) GetProviderLinks(ctx context.Context, params backend.ProviderLinksParams) ([]conversation.ProviderOffer, error) {
	m.mu.Lock()
	m.providerCalls = append(m.providerCalls, params)
	m.mu.Unlock()
	if m.GetProviderLinksFunc != nil {
		return m.GetProviderLinksFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockBackend) SetCurrency(ctx context.Context, currency, sessionID string) (*backend.ChatResult, error) {
	if m.SetCurrencyFunc != nil {
		return m.SetCurrencyFunc(ctx, currency, sessionID)
	}
	return &backend.ChatResult{Reply: "converted"}, nil
}

func (m *mockBackend) CloseSession(ctx context.Context, sessionID string) error {
	if m.CloseSessionFunc != nil {
		return m.CloseSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *mockBackend) chatCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chatCalls)
}

// fakeRenderer records everything the session paints, in call order.
type fakeRenderer struct {
	mu          sync.Mutex
	transcript  []conversation.Message
	flights     []payload.Flight
	providers   map[int][]conversation.ProviderOffer
	notices     map[int]string
	errors      []string
	currency    string
	busyToggles int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		providers: make(map[int][]conversation.ProviderOffer),
		notices:   make(map[int]string),
	}
}

func (r *fakeRenderer) ClearChat() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript = nil
}

func (r *fakeRenderer) AppendBubble(msg conversation.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript = append(r.transcript, msg)
}

func (r *fakeRenderer) ShowTransientError(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, text)
}

func (r *fakeRenderer) RenderFlights(flights []payload.Flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flights = flights
}

func (r *fakeRenderer) RenderProviders(ordinal int, offers []conversation.ProviderOffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[ordinal] = offers
}

func (r *fakeRenderer) ShowPanelNotice(ordinal int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices[ordinal] = text
}

func (r *fakeRenderer) SetCurrency(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currency = code
}

func (r *fakeRenderer) SetBusy(busy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busyToggles++
}

func (r *fakeRenderer) bubbleTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.transcript))
	for i, m := range r.transcript {
		out[i] = string(m.Role) + ": " + m.Text
	}
	return out
}
