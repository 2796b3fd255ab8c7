package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harsh-BH/reviewlens/internal/domain"
)

func TestKey(t *testing.T) {
	a := Key(domain.JobParams{Query: "  Spotify   Music ", Language: "en", Region: "us", Source: "appstore"})
	b := Key(domain.JobParams{Query: "spotify music", Language: "en", Region: "us", Source: "appstore"})
	assert.Equal(t, a, b)
	assert.Equal(t, "app_appstore_spotify music_en_us", a)

	c := Key(domain.JobParams{Query: "spotify music", Language: "zh", Region: "us", Source: "appstore"})
	assert.NotEqual(t, a, c)
}

func TestMemory_SetGetBeforeTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory(time.Hour).WithClock(func() time.Time { return now })
	ctx := context.Background()

	m.Set(ctx, "k", &domain.AnalysisResult{RecordCount: 7})
	now = now.Add(59 * time.Minute)

	v, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 7, v.RecordCount)
}

func TestMemory_MissAfterTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory(time.Hour).WithClock(func() time.Time { return now })
	ctx := context.Background()

	m.Set(ctx, "k", &domain.AnalysisResult{RecordCount: 7})
	now = now.Add(time.Hour + time.Second)

	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len(), "expired entry should be evicted on lookup")
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()
	orig := &domain.AnalysisResult{Liked: []domain.Feature{{Name: "Performance", VoteCount: 1}}}
	m.Set(ctx, "k", orig)
	orig.Liked[0].VoteCount = 50

	v, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 1, v.Liked[0].VoteCount)
}

func TestMemory_Purge(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory(time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	m.Set(ctx, "old", &domain.AnalysisResult{})
	now = now.Add(2 * time.Minute)
	m.Set(ctx, "fresh", &domain.AnalysisResult{})

	assert.Equal(t, 1, m.Purge())
	assert.Equal(t, 1, m.Len())
}

func TestNop(t *testing.T) {
	var c ResultCache = Nop{}
	c.Set(context.Background(), "k", &domain.AnalysisResult{})
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}
