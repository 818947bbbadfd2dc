package taxonomy

import (
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/catalog"
)

const (
	// DefaultCacheSize bounds the resolution cache.
	DefaultCacheSize = 512
	// DefaultCacheTTL expires cached resolutions.
	DefaultCacheTTL = time.Hour
	// DefaultMinScore is the confidence floor for token-scored matches.
	DefaultMinScore = 3.0
)

// field weights for the token-scored match: categoria tokens count more
// than familia tokens, extendedCategory sits between.
const (
	weightCategoria = 2.0
	weightExtended  = 1.5
	weightFamilia   = 1.0
)

// Resolver maps RMS (familia, categoria, extendedCategory) onto commerce
// taxonomy ids. Resolution order: exact table, token-scored match, family
// fallback, terminal fallback. Results are cached.
type Resolver struct {
	minScore float64
	cache    *expirable.LRU[string, Resolution]
}

// NewResolver creates a resolver with the given cache size and TTL.
// Zero values fall back to defaults.
func NewResolver(cacheSize int, cacheTTL time.Duration) *Resolver {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Resolver{
		minScore: DefaultMinScore,
		cache:    expirable.NewLRU[string, Resolution](cacheSize, nil, cacheTTL),
	}
}

// Resolve returns the taxonomy resolution for the given RMS classification.
// Vendor is always the familia as provided.
func (r *Resolver) Resolve(familia, categoria, extendedCategory string) Resolution {
	key := catalog.FoldAccents(familia) + "|" + catalog.FoldAccents(categoria) + "|" + catalog.FoldAccents(extendedCategory)
	if cached, ok := r.cache.Get(key); ok {
		return cached
	}

	res := r.resolve(familia, categoria, extendedCategory)
	res.Vendor = familia
	r.cache.Add(key, res)
	return res
}

func (r *Resolver) resolve(familia, categoria, extendedCategory string) Resolution {
	// 1. Exact pair lookup.
	pairKey := catalog.FoldAccents(strings.TrimSpace(familia)) + "|" + catalog.FoldAccents(strings.TrimSpace(categoria))
	if res, ok := exactTable[pairKey]; ok {
		return res
	}

	// 2. Token-scored match over all candidates.
	if res, ok := r.tokenMatch(familia, categoria, extendedCategory); ok {
		return res
	}

	// 3. Family-level fallback.
	if res, ok := familyFallback[catalog.FoldAccents(strings.TrimSpace(familia))]; ok {
		return res
	}

	// 4. Terminal fallback.
	return terminalFallback
}

// tokenMatch scores every candidate by weighted keyword overlap and returns
// the best when it clears the confidence floor. Ties are broken by the
// longest shared prefix with extendedCategory, then alphabetically by
// product type.
func (r *Resolver) tokenMatch(familia, categoria, extendedCategory string) (Resolution, bool) {
	tokens := map[string]float64{}
	addTokens(tokens, categoria, weightCategoria)
	addTokens(tokens, extendedCategory, weightExtended)
	addTokens(tokens, familia, weightFamilia)
	if len(tokens) == 0 {
		return Resolution{}, false
	}

	foldedExt := catalog.FoldAccents(extendedCategory)

	type scored struct {
		entry entry
		score float64
	}
	results := make([]scored, 0, len(candidates))
	for _, cand := range candidates {
		score := 0.0
		for token, fieldWeight := range tokens {
			if kw, ok := cand.Keywords[token]; ok {
				score += kw * fieldWeight
			}
		}
		if score > 0 {
			results = append(results, scored{entry: cand, score: score})
		}
	}
	if len(results) == 0 {
		return Resolution{}, false
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		pi := prefixLen(catalog.FoldAccents(results[i].entry.ProductType), foldedExt)
		pj := prefixLen(catalog.FoldAccents(results[j].entry.ProductType), foldedExt)
		if pi != pj {
			return pi > pj
		}
		return results[i].entry.ProductType < results[j].entry.ProductType
	})

	best := results[0]
	if best.score < r.minScore {
		return Resolution{}, false
	}
	return Resolution{TaxonomyID: best.entry.TaxonomyID, ProductType: best.entry.ProductType}, true
}

func addTokens(into map[string]float64, field string, weight float64) {
	for _, token := range strings.FieldsFunc(catalog.FoldAccents(field), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(token) < 2 {
			continue
		}
		// Keep the highest field weight per repeated token.
		if into[token] < weight {
			into[token] = weight
		}
	}
}

func prefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
