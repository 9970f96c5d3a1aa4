package usecase

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ResearcherCache amortizes pipeline construction across requests. It holds
// a single slot keyed by configuration: requesting a different
// configuration (e.g. toggling reasoning mode) evicts the previous
// pipeline, so there is never unbounded global mutable state.
type ResearcherCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, ResearchUsecase]
	build func(ResearchConfig) ResearchUsecase
}

// NewResearcherCache creates a cache that constructs pipelines with build
// on miss.
func NewResearcherCache(build func(ResearchConfig) ResearchUsecase) *ResearcherCache {
	cache, _ := lru.New[string, ResearchUsecase](1)
	return &ResearcherCache{cache: cache, build: build}
}

// Get returns the pipeline for cfg, constructing and caching it if the
// current slot holds a different configuration.
func (rc *ResearcherCache) Get(cfg ResearchConfig) ResearchUsecase {
	key := configKey(cfg.withDefaults())

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if uc, ok := rc.cache.Get(key); ok {
		return uc
	}
	uc := rc.build(cfg.withDefaults())
	rc.cache.Add(key, uc)
	return uc
}

// Purge tears down all cached pipelines.
func (rc *ResearcherCache) Purge() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.cache.Purge()
}

func configKey(cfg ResearchConfig) string {
	return fmt.Sprintf("reasoning=%t|k=%d|n=%d|variants=%d|tokens=%d|rerank_timeout=%s",
		cfg.ReasoningEnabled, cfg.TopKInitial, cfg.TopKFinal,
		cfg.NumQueryVariants, cfg.AnswerMaxTokens, cfg.RerankTimeout)
}
