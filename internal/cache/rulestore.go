package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opensource-gov/banyan/internal/domain"
)

// activeRulesKey holds the serialized active-rule snapshot.
const activeRulesKey = "rules:active"

// CachedRepository decorates a repository with an active-rule snapshot
// cache. Every evaluation run reads the active rules, so the snapshot is the
// hottest read path; writes to any rule invalidate it.
type CachedRepository struct {
	domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewCachedRepository wraps repo with a snapshot cache.
func NewCachedRepository(repo domain.Repository, c domain.Cache, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedRepository{
		Repository: repo,
		cache:      c,
		ttl:        ttl,
	}
}

// GetActiveRules serves from cache when possible. Cache failures fall
// through to the database; a stale cache must never block evaluation.
func (r *CachedRepository) GetActiveRules(ctx context.Context) ([]*domain.Rule, error) {
	if data, err := r.cache.Get(ctx, activeRulesKey); err == nil && data != nil {
		var rules []*domain.Rule
		if err := json.Unmarshal(data, &rules); err == nil {
			return rules, nil
		}
		// Corrupt snapshot: drop it and reload from the store.
		_ = r.cache.Delete(ctx, activeRulesKey)
	}

	rules, err := r.Repository.GetActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rules); err == nil {
		_ = r.cache.Set(ctx, activeRulesKey, data, r.ttl)
	}

	return rules, nil
}

// CreateRule invalidates the snapshot after a successful write.
func (r *CachedRepository) CreateRule(ctx context.Context, rule *domain.Rule) (*domain.Rule, error) {
	created, err := r.Repository.CreateRule(ctx, rule)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Delete(ctx, activeRulesKey)
	return created, nil
}

// UpdateRule invalidates the snapshot after a successful write.
func (r *CachedRepository) UpdateRule(ctx context.Context, id int64, patch domain.RuleUpdate) (*domain.Rule, error) {
	updated, err := r.Repository.UpdateRule(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Delete(ctx, activeRulesKey)
	return updated, nil
}

// DeleteRule invalidates the snapshot after a successful delete.
func (r *CachedRepository) DeleteRule(ctx context.Context, id int64) error {
	if err := r.Repository.DeleteRule(ctx, id); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, activeRulesKey)
	return nil
}
