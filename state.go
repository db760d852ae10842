package mirrorlai

import "sync"

// TranslationCache stores source strings and their translations.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// TranslationState is the state that outlives a single pipeline pass: the
// translation cache and the set of strings currently in flight.
//
// One state is created per session (or per process for the proxy) and shared
// by reference with every pipeline that should see the same cache. It is safe
// for concurrent use.
type TranslationState struct {
	mu      sync.Mutex
	cache   TranslationCache
	pending map[string]struct{}
}

// NewTranslationState creates a state backed by the given cache.
// A nil cache gets a plain in-process map.
func NewTranslationState(cache TranslationCache) *TranslationState {
	if cache == nil {
		cache = newMapCache()
	}
	return &TranslationState{
		cache:   cache,
		pending: make(map[string]struct{}),
	}
}

// Lookup returns the cached translation for source.
func (s *TranslationState) Lookup(source string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Get(source)
}

// IsPending reports whether source is currently in flight.
func (s *TranslationState) IsPending(source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[source]
	return ok
}

// claim marks source as pending. It returns false when the source is already
// cached or already pending.
func (s *TranslationState) claim(source string) (cached string, hit bool, claimed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(source); ok {
		return v, true, false
	}
	if _, ok := s.pending[source]; ok {
		return "", false, false
	}
	s.pending[source] = struct{}{}
	return "", false, true
}

// Resolve records a translation and clears the pending mark. A key that is
// already cached keeps its first translation; the stored value is returned.
func (s *TranslationState) Resolve(source, translation string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, source)
	if existing, ok := s.cache.Get(source); ok {
		return existing
	}
	_ = s.cache.Set(source, translation) // Ignore cache set errors
	return translation
}

// Release clears the pending mark of sources whose request failed so that a
// later pass can retry them.
func (s *TranslationState) Release(sources ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range sources {
		delete(s.pending, src)
	}
}

// PendingLen returns the number of strings in flight.
func (s *TranslationState) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Cache returns the underlying cache.
func (s *TranslationState) Cache() TranslationCache {
	return s.cache
}

// mapCache is the zero-configuration cache used when none is supplied.
type mapCache map[string]string

func newMapCache() mapCache {
	return make(mapCache)
}

func (m mapCache) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapCache) Set(key, value string) error {
	m[key] = value
	return nil
}
