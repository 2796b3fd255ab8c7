package source_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/source"
	"github.com/Harsh-BH/reviewlens/internal/source/mock"
)

func TestRegistry(t *testing.T) {
	r := source.NewRegistry(mock.NewClient())

	c, err := r.Get(domain.SourceMock)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceMock, c.Kind())

	_, err = r.Get("playstore")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Equal(t, []domain.SourceKind{domain.SourceMock}, r.Kinds())
}

func TestMockClientPaging(t *testing.T) {
	c := mock.NewClient()
	recs := make([]domain.Record, 5)
	for i := range recs {
		recs[i] = domain.Record{ID: string(rune('a' + i))}
	}
	c.AddSubject("Notes", domain.SubjectInfo{ID: "n1", Title: "Notes"}, recs)
	ctx := context.Background()

	info, err := c.Search(ctx, "notes", domain.LangEnglish, "us")
	require.NoError(t, err)
	assert.Equal(t, "n1", info.ID)

	p1, _ := c.FetchPage(ctx, "n1", "us", 1, 2)
	p3, _ := c.FetchPage(ctx, "n1", "us", 3, 2)
	p4, _ := c.FetchPage(ctx, "n1", "us", 4, 2)
	assert.Len(t, p1, 2)
	assert.Len(t, p3, 1)
	assert.Empty(t, p4)
	assert.Equal(t, 3, c.PageCalls())

	_, err = c.Search(ctx, "missing", domain.LangEnglish, "us")
	assert.ErrorIs(t, err, domain.ErrSubjectNotFound)
}

func TestDemoClientDeterministic(t *testing.T) {
	ctx := context.Background()
	a := mock.NewDemoClient(30)
	b := mock.NewDemoClient(30)

	sa, _ := a.Search(ctx, "My App", domain.LangChinese, "cn")
	sb, _ := b.Search(ctx, "My App", domain.LangChinese, "cn")
	assert.Equal(t, sa, sb)

	pa, _ := a.FetchPage(ctx, sa.ID, "cn", 2, 20)
	pb, _ := b.FetchPage(ctx, sb.ID, "cn", 2, 20)
	assert.Equal(t, pa, pb)
	assert.Len(t, pa, 10)
	assert.Equal(t, domain.LangChinese, pa[0].Language)
}
