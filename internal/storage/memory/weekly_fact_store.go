package memory

import (
	"context"
	"sort"
	"sync"

	"tv-attribution/internal/domain"
	"tv-attribution/internal/storage"
)

// WeeklyFactStore is an in-memory implementation of storage.WeeklyFactStore.
type WeeklyFactStore struct {
	mu   sync.RWMutex
	data map[factKey]*domain.WeeklyFact
}

type factKey struct {
	Client    string
	SourceTab string
	DimKey    string
	Week      string
}

func keyOf(f *domain.WeeklyFact) factKey {
	return factKey{f.Client, f.SourceTab, f.DimKey, f.Week}
}

// NewWeeklyFactStore creates a new in-memory weekly fact store.
func NewWeeklyFactStore() *WeeklyFactStore {
	return &WeeklyFactStore{
		data: make(map[factKey]*domain.WeeklyFact),
	}
}

// Compile-time interface check.
var _ storage.WeeklyFactStore = (*WeeklyFactStore)(nil)

// Load writes a batch of facts under the given mode.
func (s *WeeklyFactStore) Load(_ context.Context, facts []*domain.WeeklyFact, mode domain.LoadMode) error {
	if !mode.Valid() {
		return storage.ErrInvalidInput
	}
	if mode == domain.LoadSkip || len(facts) == 0 {
		return nil
	}
	for _, f := range facts {
		if f == nil || f.Client == "" || f.SourceTab == "" || f.Week == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch mode {
	case domain.LoadReplaceWeeks:
		drop := make(map[factKey]struct{}, len(facts))
		for _, f := range facts {
			drop[factKey{Client: f.Client, SourceTab: f.SourceTab, Week: f.Week}] = struct{}{}
		}
		for k := range s.data {
			if _, ok := drop[factKey{Client: k.Client, SourceTab: k.SourceTab, Week: k.Week}]; ok {
				delete(s.data, k)
			}
		}
	case domain.LoadReplaceAll:
		drop := make(map[factKey]struct{}, len(facts))
		for _, f := range facts {
			drop[factKey{Client: f.Client, SourceTab: f.SourceTab}] = struct{}{}
		}
		for k := range s.data {
			if _, ok := drop[factKey{Client: k.Client, SourceTab: k.SourceTab}]; ok {
				delete(s.data, k)
			}
		}
	case domain.LoadAppend:
		// Duplicate check before any write, batch stays atomic.
		batch := make(map[factKey]struct{}, len(facts))
		for _, f := range facts {
			k := keyOf(f)
			if _, exists := s.data[k]; exists {
				return storage.ErrDuplicateKey
			}
			if _, exists := batch[k]; exists {
				return storage.ErrDuplicateKey
			}
			batch[k] = struct{}{}
		}
	}

	for _, f := range facts {
		s.data[keyOf(f)] = copyFact(f)
	}
	return nil
}

// GetByClient retrieves all facts for a client.
func (s *WeeklyFactStore) GetByClient(_ context.Context, client string) ([]*domain.WeeklyFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.WeeklyFact
	for _, f := range s.data {
		if f.Client == client {
			out = append(out, copyFact(f))
		}
	}
	sortFacts(out)
	return out, nil
}

// GetByClientTab retrieves facts for one performance table of a client.
func (s *WeeklyFactStore) GetByClientTab(_ context.Context, client, sourceTab string) ([]*domain.WeeklyFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.WeeklyFact
	for _, f := range s.data {
		if f.Client == client && f.SourceTab == sourceTab {
			out = append(out, copyFact(f))
		}
	}
	sortFacts(out)
	return out, nil
}

// Weeks lists the distinct week labels stored for a client, ascending.
func (s *WeeklyFactStore) Weeks(_ context.Context, client string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]struct{})
	for k := range s.data {
		if k.Client == client {
			set[k.Week] = struct{}{}
		}
	}
	weeks := make([]string, 0, len(set))
	for w := range set {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)
	return weeks, nil
}

func copyFact(f *domain.WeeklyFact) *domain.WeeklyFact {
	c := *f
	if f.Actions != nil {
		c.Actions = make(map[string]float64, len(f.Actions))
		for k, v := range f.Actions {
			c.Actions[k] = v
		}
	}
	return &c
}

func sortFacts(facts []*domain.WeeklyFact) {
	sort.Slice(facts, func(i, j int) bool {
		a, b := facts[i], facts[j]
		if a.SourceTab != b.SourceTab {
			return a.SourceTab < b.SourceTab
		}
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		return a.DimKey < b.DimKey
	})
}
