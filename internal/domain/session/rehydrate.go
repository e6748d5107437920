package session

import (
	"sort"
	"strconv"

	"skydeck/internal/domain/payload"
)

// Rehydrate reconstructs every visible surface from the persisted blob
// alone: chat transcript, flight cards, cached provider panels and the
// currency indicator. No network calls are made. The replay claims the same
// in-flight slot as user actions, so it never interleaves with a live turn.
//
// The steps run sequentially; a failure in one is logged and contained
// so the remaining steps still attempt to run. The worst outcome of corrupt
// stored data is a partially empty surface, never a crash.
func (s *Session) Rehydrate() {
	if !s.begin() {
		return
	}
	defer s.end()

	state := s.store.Load()

	s.step("chat", func() {
		s.render.ClearChat()
		for _, msg := range state.Chat {
			s.render.AppendBubble(msg)
		}
	})

	var rendered map[int]bool
	s.step("artifacts", func() {
		// The active session id is derived from the artifacts, never taken
		// from the separately stored field: cleared artifacts mean no
		// session even when a stale sessionId value survives in the blob.
		s.sessionID = ""
		if !state.HasArtifacts() {
			return
		}
		flights := payload.Flights(state.Artifacts)
		if len(flights) > 0 {
			s.render.RenderFlights(flights)
			rendered = make(map[int]bool, len(flights))
			for _, f := range flights {
				rendered[f.Ordinal] = true
			}
		}
		s.sessionID = payload.SessionID(state.Artifacts)
	})

	s.step("providers", func() {
		for _, key := range sortedProviderKeys(state.Providers) {
			ordinal, err := strconv.Atoi(key)
			if err != nil {
				s.log.Debug().Str("key", key).Msg("skipping malformed provider key")
				continue
			}
			if !rendered[ordinal] {
				// Stale entry from a since-replaced result set.
				s.log.Debug().Int("ordinal", ordinal).Msg("skipping provider cache without matching card")
				continue
			}
			s.render.RenderProviders(ordinal, state.Providers[key])
		}
	})

	s.step("currency", func() {
		currency := payload.Currency(state.Artifacts)
		if currency == "" {
			currency = state.Currency
		}
		s.render.SetCurrency(currency)
	})
}

// step contains one rehydration phase: a panic inside the phase is logged
// and must not prevent later phases from running.
func (s *Session) step(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("step", name).Msg("rehydration step failed")
		}
	}()
	fn()
}

func sortedProviderKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aerr := strconv.Atoi(keys[i])
		b, berr := strconv.Atoi(keys[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}
