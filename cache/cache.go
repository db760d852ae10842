// Package cache provides the translation caches and the page snapshot store.
//
// Translation caches map a key to a translation and never replace a live
// entry: the first translation stored for a key is the one every later
// reader sees.
package cache

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	// Get retrieves a cached translation. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a translation unless the key already holds one.
	Set(key string, value string) error
}

// Snapshotter is implemented by caches whose contents can be exported.
type Snapshotter interface {
	Snapshot() (map[string]string, error)
}
