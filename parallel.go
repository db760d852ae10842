package mirrorlai

import "sync"

// LookupResult is the outcome of a parallel cache lookup.
type LookupResult struct {
	// Hits maps a source string to its cached translation.
	Hits map[string]string

	// Misses lists uncached sources once each, in first-seen order.
	Misses []string
}

// ParallelCacheLookup looks up every distinct source concurrently. It is
// meant for caches with network latency such as Redis; keys are built with
// CacheKey(HashText(source), targetLang).
func ParallelCacheLookup(cache TranslationCache, sources []string, targetLang string) LookupResult {
	result := LookupResult{Hits: make(map[string]string)}

	var unique []string
	seen := make(map[string]bool)
	for _, src := range sources {
		if !seen[src] {
			seen[src] = true
			unique = append(unique, src)
		}
	}
	if cache == nil {
		result.Misses = unique
		return result
	}

	values := make([]string, len(unique))
	found := make([]bool, len(unique))

	var wg sync.WaitGroup
	for i, src := range unique {
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			values[i], found[i] = cache.Get(CacheKey(HashText(src), targetLang))
		}(i, src)
	}
	wg.Wait()

	for i, src := range unique {
		if found[i] {
			result.Hits[src] = values[i]
		} else {
			result.Misses = append(result.Misses, src)
		}
	}
	return result
}

// StoreTranslations writes each source→translation pair under its shared
// cache key. Write errors are counted, not returned: a cache that cannot
// store only costs a future backend call.
func StoreTranslations(cache TranslationCache, pairs map[string]string, targetLang string) (failed int) {
	if cache == nil {
		return 0
	}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for src, tr := range pairs {
		wg.Add(1)
		go func(src, tr string) {
			defer wg.Done()
			if err := cache.Set(CacheKey(HashText(src), targetLang), tr); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(src, tr)
	}
	wg.Wait()
	return failed
}
