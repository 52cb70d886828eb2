package cache

import (
	"context"
	"sort"
	"strings"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	basecache "github.com/mastermhp/Live-Baz-sub000/internal/platform/cache"
)

const matchKeyPrefix = "match:"

// MatchRepository caches local store reads for the store TTL. Writes go
// straight through and drop every cached status list.
type MatchRepository struct {
	next  match.Store
	cache *basecache.Store[[]match.LocalDocument]
}

func NewMatchRepository(next match.Store, cache *basecache.Store[[]match.LocalDocument]) *MatchRepository {
	return &MatchRepository{next: next, cache: cache}
}

func (r *MatchRepository) ListByStatus(ctx context.Context, statuses ...match.Status) ([]match.LocalDocument, error) {
	items, err := r.cache.GetOrLoad(ctx, statusListKey(statuses), func(ctx context.Context) ([]match.LocalDocument, error) {
		items, err := r.next.ListByStatus(ctx, statuses...)
		if err != nil {
			return nil, err
		}
		return cloneDocuments(items), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneDocuments(items), nil
}

func (r *MatchRepository) Upsert(ctx context.Context, doc match.LocalDocument) error {
	if err := r.next.Upsert(ctx, doc); err != nil {
		return err
	}
	r.cache.InvalidatePrefix(matchKeyPrefix)
	return nil
}

func (r *MatchRepository) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := r.next.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		r.cache.InvalidatePrefix(matchKeyPrefix)
	}
	return deleted, nil
}

func statusListKey(statuses []match.Status) string {
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, string(status))
	}
	sort.Strings(parts)
	return matchKeyPrefix + "status:" + strings.Join(parts, ",")
}

func cloneDocuments(items []match.LocalDocument) []match.LocalDocument {
	out := make([]match.LocalDocument, 0, len(items))
	for _, item := range items {
		out = append(out, item.Clone())
	}
	return out
}
