package analysis

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ianlancetaylor/demangle"
)

// symbolCache memoizes demangled names. Listings and match reports ask for
// the same names over and over.
type symbolCache struct {
	mu            sync.RWMutex
	demangleCache map[string]string
	hitCount      map[string]int
}

var cache = &symbolCache{
	demangleCache: make(map[string]string),
	hitCount:      make(map[string]int),
}

// CachedDemangle demangles C++ and Rust names, returning other names as is.
func CachedDemangle(mangled string) string {
	cache.mu.RLock()
	cached, ok := cache.demangleCache[mangled]
	cache.mu.RUnlock()
	if ok {
		cache.mu.Lock()
		cache.hitCount[mangled]++
		cache.mu.Unlock()
		return cached
	}

	demangled := demangle.Filter(mangled, demangle.NoClones)

	cache.mu.Lock()
	cache.demangleCache[mangled] = demangled
	cache.mu.Unlock()
	return demangled
}

// DemangleCacheStats reports the cache size, the number of hits and the
// most requested names.
func DemangleCacheStats() (symbols int, hits int, top []string) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	type symbolHit struct {
		symbol string
		count  int
	}
	var ranked []symbolHit
	for sym, count := range cache.hitCount {
		hits += count
		ranked = append(ranked, symbolHit{sym, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].symbol < ranked[j].symbol
	})
	for i := 0; i < 5 && i < len(ranked); i++ {
		top = append(top, fmt.Sprintf("%s (%d hits)", ranked[i].symbol, ranked[i].count))
	}
	return len(cache.demangleCache), hits, top
}
