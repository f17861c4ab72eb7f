package testsupport

import (
	"context"
	"testing"

	"voicecollect/internal/config"
	"voicecollect/internal/phrases"
)

// MustOpenStore opens a phrases.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...phrases.Option) *phrases.Store {
	t.Helper()

	store, err := phrases.Open(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("phrases.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedPhrases inserts texts in order and returns the created phrases.
func SeedPhrases(t testing.TB, store *phrases.Store, texts ...string) []phrases.Phrase {
	t.Helper()

	out := make([]phrases.Phrase, 0, len(texts))
	for _, text := range texts {
		phrase, _, err := store.InsertPhrase(context.Background(), text)
		if err != nil {
			t.Fatalf("store.InsertPhrase(%q): %v", text, err)
		}
		out = append(out, phrase)
	}
	return out
}

// FixedRandom always picks index i, clamped to the eligible range.
func FixedRandom(i int64) phrases.RandomSource {
	return func(n int64) int64 {
		if i >= n {
			return n - 1
		}
		return i
	}
}
