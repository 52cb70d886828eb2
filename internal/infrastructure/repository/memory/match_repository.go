package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
)

// MatchRepository keeps locally edited matches in process memory.
type MatchRepository struct {
	mu    sync.RWMutex
	items map[string]match.LocalDocument
	now   func() time.Time
}

func NewMatchRepository(seed []match.LocalDocument) *MatchRepository {
	items := make(map[string]match.LocalDocument, len(seed))
	for _, doc := range seed {
		id := strings.TrimSpace(doc.ID)
		if id == "" {
			continue
		}
		items[id] = doc.Clone()
	}
	return &MatchRepository{items: items, now: time.Now}
}

func (r *MatchRepository) ListByStatus(_ context.Context, statuses ...match.Status) ([]match.LocalDocument, error) {
	wanted := make(map[match.Status]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}

	r.mu.RLock()
	out := make([]match.LocalDocument, 0, len(r.items))
	for _, doc := range r.items {
		if len(wanted) > 0 {
			if _, ok := wanted[match.ParseLocalStatus(doc.Status)]; !ok {
				continue
			}
		}
		out = append(out, doc.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MatchRepository) Upsert(_ context.Context, doc match.LocalDocument) error {
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		return fmt.Errorf("local match id is required")
	}
	doc.ID = id
	doc.UpdatedAt = r.now().UTC()

	r.mu.Lock()
	r.items[id] = doc.Clone()
	r.mu.Unlock()
	return nil
}

func (r *MatchRepository) Delete(_ context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}
