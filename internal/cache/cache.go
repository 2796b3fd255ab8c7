// Package cache stores complete analysis results keyed by request parameters.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/metrics"
)

// ResultCache wraps the whole collect and extract result, not individual pages.
type ResultCache interface {
	Get(ctx context.Context, key string) (*domain.AnalysisResult, bool)
	Set(ctx context.Context, key string, v *domain.AnalysisResult)
}

// Key derives the cache key for a set of parameters.
func Key(p domain.JobParams) string {
	q := strings.ToLower(strings.Join(strings.Fields(p.Query), " "))
	return "app_" + string(p.Source) + "_" + q + "_" + string(p.Language) + "_" + p.Region
}

type entry struct {
	value    *domain.AnalysisResult
	storedAt time.Time
}

// Memory is an in-process TTL cache. Expired entries are evicted on lookup.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

var _ ResultCache = (*Memory)(nil)

// NewMemory creates an in-process cache with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// WithClock overrides the time source for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, key string) (*domain.AnalysisResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if m.now().Sub(e.storedAt) > m.ttl {
		delete(m.entries, key)
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return e.value.Clone(), true
}

func (m *Memory) Set(_ context.Context, key string, v *domain.AnalysisResult) {
	if v == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: v.Clone(), storedAt: m.now()}
}

// Purge drops every expired entry and returns how many were removed.
func (m *Memory) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.entries {
		if now.Sub(e.storedAt) > m.ttl {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*domain.AnalysisResult, bool) { return nil, false }
func (Nop) Set(context.Context, string, *domain.AnalysisResult)        {}
