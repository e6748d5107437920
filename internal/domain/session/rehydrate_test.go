package session_test

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"skydeck/internal/domain/conversation"
	"skydeck/internal/infrastructure/backend"
)

func TestRehydrationMatchesLiveOrdering(t *testing.T) {
	store := newMemStore()
	replies := map[string]string{
		"find flights": "Found 2 flights",
		"thanks":       "You're welcome",
	}
	agent := &mockBackend{
		SendChatFunc: func(ctx context.Context, message, threadID string) (*backend.ChatResult, error) {
			res := &backend.ChatResult{Reply: replies[message]}
			if message == "find flights" {
				res.Artifacts = json.RawMessage(artifactWithFlights)
			}
			return res, nil
		},
	}
	liveRender := newFakeRenderer()
	live := newSession(store, agent, liveRender)

	for _, msg := range []string{"find flights", "thanks"} {
		if err := live.SendMessage(context.Background(), msg); err != nil {
			t.Fatalf("live turn %q failed: %v", msg, err)
		}
	}

	// A fresh session over the same store stands in for the reloaded page.
	reloadRender := newFakeRenderer()
	reloaded := newSession(store, agent, reloadRender)
	reloaded.Rehydrate()

	if !reflect.DeepEqual(liveRender.bubbleTexts(), reloadRender.bubbleTexts()) {
		t.Errorf("rehydrated transcript %v differs from live %v",
			reloadRender.bubbleTexts(), liveRender.bubbleTexts())
	}
	if len(reloadRender.flights) != len(liveRender.flights) {
		t.Errorf("rehydrated %d cards, live %d", len(reloadRender.flights), len(liveRender.flights))
	}
	if reloadRender.currency != liveRender.currency {
		t.Errorf("rehydrated currency %q, live %q", reloadRender.currency, liveRender.currency)
	}
	if reloaded.SessionID() != "sess-1" {
		t.Errorf("session id must be derived from stored artifacts, got %q", reloaded.SessionID())
	}
}

func TestRehydrationRefusedWhileActionInFlight(t *testing.T) {
	store := newMemStore()
	release := make(chan struct{})
	entered := make(chan struct{})
	agent := &mockBackend{
		SendChatFunc: func(ctx context.Context, message, threadID string) (*backend.ChatResult, error) {
			close(entered)
			<-release
			return &backend.ChatResult{Reply: "ok"}, nil
		},
	}
	render := newFakeRenderer()
	s := newSession(store, agent, render)

	done := make(chan error, 1)
	go func() { done <- s.SendMessage(context.Background(), "first") }()
	<-entered

	// Replay shares the in-flight slot with actions: refused, not interleaved.
	s.Rehydrate()
	if len(render.bubbleTexts()) != 1 {
		t.Errorf("replay during a live turn must not clear the transcript")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("in-flight turn failed: %v", err)
	}
}

func TestRehydrationSkipsStaleProviderEntries(t *testing.T) {
	store := newMemStore()
	st := store.Load()
	st.Artifacts = json.RawMessage(artifactWithFlights) // renders cards 1 and 2
	st.SetProviders(1, []conversation.ProviderOffer{{ProviderName: "Trip.com"}})
	st.SetProviders(3, []conversation.ProviderOffer{{ProviderName: "Stale Air"}})
	st.Providers["not-a-number"] = []conversation.ProviderOffer{{ProviderName: "Broken"}}
	store.Save(st)

	render := newFakeRenderer()
	s := newSession(store, &mockBackend{}, render)
	s.Rehydrate()

	if len(render.flights) != 2 {
		t.Fatalf("expected cards 1 and 2 rendered, got %d", len(render.flights))
	}
	if _, ok := render.providers[1]; !ok {
		t.Errorf("matching provider entry must be rendered")
	}
	if _, ok := render.providers[3]; ok {
		t.Errorf("stale provider entry without a card must be skipped")
	}
}

func TestRehydrationCurrencyFallsBackToStoredField(t *testing.T) {
	store := newMemStore()
	st := store.Load()
	st.Artifacts = json.RawMessage(`{"session_id": "sess-2", "flights": {"Flight 1": {"price": "$5"}}}`)
	st.Currency = "IDR"
	store.Save(st)

	render := newFakeRenderer()
	s := newSession(store, &mockBackend{}, render)
	s.Rehydrate()

	if render.currency != "IDR" {
		t.Errorf("currency = %q, want stored fallback IDR", render.currency)
	}
}

func TestRehydrationArtifactCurrencyWins(t *testing.T) {
	store := newMemStore()
	st := store.Load()
	st.Artifacts = json.RawMessage(`{"currency": "USD", "flights": {"Flight 1": {}}}`)
	st.Currency = "IDR"
	store.Save(st)

	render := newFakeRenderer()
	s := newSession(store, &mockBackend{}, render)
	s.Rehydrate()

	if render.currency != "USD" {
		t.Errorf("currency = %q, artifact value must win", render.currency)
	}
}

func TestRehydrationIgnoresStaleStoredSessionID(t *testing.T) {
	store := newMemStore()
	st := store.Load()
	st.SessionID = "sess-stale" // artifacts absent, so this must not revive
	st.AppendMessage(conversation.RoleUser, "hello")
	store.Save(st)

	render := newFakeRenderer()
	s := newSession(store, &mockBackend{}, render)
	s.Rehydrate()

	if s.SessionID() != "" {
		t.Errorf("session id = %q, must be absent without artifacts", s.SessionID())
	}
	if len(render.bubbleTexts()) != 1 {
		t.Errorf("chat must still rehydrate")
	}
}

func TestRehydrationToleratesStringArtifact(t *testing.T) {
	store := newMemStore()
	st := store.Load()
	st.Artifacts = json.RawMessage(`"No artifacts"`)
	st.AppendMessage(conversation.RoleUser, "hi")
	st.AppendMessage(conversation.RoleBot, "hello")
	store.Save(st)

	render := newFakeRenderer()
	s := newSession(store, &mockBackend{}, render)
	s.Rehydrate()

	if len(render.bubbleTexts()) != 2 {
		t.Errorf("chat must survive a non-object artifact value")
	}
	if len(render.flights) != 0 {
		t.Errorf("no cards may render from a placeholder artifact")
	}
	if s.SessionID() != "" {
		t.Errorf("no session may derive from a placeholder artifact")
	}
}
