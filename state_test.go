package mirrorlai

import (
	"sync"
	"testing"
)

func TestTranslationState_ClaimResolve(t *testing.T) {
	state := NewTranslationState(nil)

	if _, hit, claimed := state.claim("Hello"); hit || !claimed {
		t.Fatalf("first claim: hit=%v claimed=%v", hit, claimed)
	}
	if _, hit, claimed := state.claim("Hello"); hit || claimed {
		t.Fatalf("second claim of pending source: hit=%v claimed=%v", hit, claimed)
	}

	if got := state.Resolve("Hello", "Hola"); got != "Hola" {
		t.Errorf("Resolve() = %q, want Hola", got)
	}
	if state.IsPending("Hello") {
		t.Error("resolved source should not be pending")
	}

	cached, hit, claimed := state.claim("Hello")
	if !hit || claimed || cached != "Hola" {
		t.Errorf("claim after resolve = (%q, %v, %v)", cached, hit, claimed)
	}
}

func TestTranslationState_FirstWriteWins(t *testing.T) {
	state := NewTranslationState(nil)
	state.Resolve("Hello", "Hola")

	if got := state.Resolve("Hello", "Buenas"); got != "Hola" {
		t.Errorf("Resolve() = %q, want the first translation", got)
	}
	if v, _ := state.Lookup("Hello"); v != "Hola" {
		t.Errorf("cache overwritten: %q", v)
	}
}

func TestTranslationState_Release(t *testing.T) {
	state := NewTranslationState(nil)
	state.claim("a")
	state.claim("b")
	state.claim("c")

	state.Release("a", "b", "missing")

	if state.PendingLen() != 1 || !state.IsPending("c") {
		t.Errorf("PendingLen() = %d, want only c pending", state.PendingLen())
	}
	if _, ok := state.Lookup("a"); ok {
		t.Error("released source must not be cached")
	}
}

func TestTranslationState_ExternalCache(t *testing.T) {
	cache := newMapCache()
	cache.Set("Hello", "Hola")
	state := NewTranslationState(cache)

	if v, ok := state.Lookup("Hello"); !ok || v != "Hola" {
		t.Errorf("Lookup() = (%q, %v)", v, ok)
	}
	state.Resolve("World", "Mundo")
	if v, _ := cache.Get("World"); v != "Mundo" {
		t.Errorf("Resolve should write through to the cache, got %q", v)
	}
}

func TestTranslationState_ConcurrentClaims(t *testing.T) {
	state := NewTranslationState(nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, claimed := state.claim("shared"); claimed {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("%d goroutines claimed the same source, want 1", winners)
	}
}
