// Package source defines the capability the collector consumes from review providers.
package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Harsh-BH/reviewlens/internal/domain"
)

// Client is one upstream review provider.
type Client interface {
	// Kind identifies the provider.
	Kind() domain.SourceKind

	// Search resolves a free-text query to a single subject or domain.ErrSubjectNotFound.
	Search(ctx context.Context, term string, lang domain.Language, region string) (*domain.SubjectInfo, error)

	// FetchPage returns one page of reviews, page numbering starts at 1.
	// An empty slice means there is no more data.
	FetchPage(ctx context.Context, subjectID, region string, page, pageSize int) ([]domain.Record, error)
}

// Registry maps source selectors to clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[domain.SourceKind]Client
}

func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[domain.SourceKind]Client)}
	for _, c := range clients {
		r.Register(c)
	}
	return r
}

func (r *Registry) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Kind()] = c
}

func (r *Registry) Get(kind domain.SourceKind) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSource, kind)
	}
	return c, nil
}

// Kinds returns the registered selectors in sorted order.
func (r *Registry) Kinds() []domain.SourceKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.SourceKind, 0, len(r.clients))
	for k := range r.clients {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
