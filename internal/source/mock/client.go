// Package mock provides a deterministic in-process review source used for demos and tests.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/source"
)

var _ source.Client = (*Client)(nil)

// Client serves reviews from memory. Hook functions override the default behaviour.
type Client struct {
	mu       sync.Mutex
	subjects map[string]*domain.SubjectInfo
	reviews  map[string][]domain.Record

	SearchFunc    func(ctx context.Context, term string, lang domain.Language, region string) (*domain.SubjectInfo, error)
	FetchPageFunc func(ctx context.Context, subjectID, region string, page, pageSize int) ([]domain.Record, error)

	searchCalls int
	pageCalls   int
}

// NewClient creates an empty mock source.
func NewClient() *Client {
	return &Client{
		subjects: make(map[string]*domain.SubjectInfo),
		reviews:  make(map[string][]domain.Record),
	}
}

func (c *Client) Kind() domain.SourceKind { return domain.SourceMock }

// AddSubject registers a subject under a query term with its reviews.
func (c *Client) AddSubject(term string, info domain.SubjectInfo, records []domain.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects[strings.ToLower(term)] = &info
	c.reviews[info.ID] = append([]domain.Record(nil), records...)
}

func (c *Client) Search(ctx context.Context, term string, lang domain.Language, region string) (*domain.SubjectInfo, error) {
	c.mu.Lock()
	c.searchCalls++
	c.mu.Unlock()
	if c.SearchFunc != nil {
		return c.SearchFunc(ctx, term, lang, region)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.subjects[strings.ToLower(term)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrSubjectNotFound, term)
	}
	cp := *info
	return &cp, nil
}

func (c *Client) FetchPage(ctx context.Context, subjectID, region string, page, pageSize int) ([]domain.Record, error) {
	c.mu.Lock()
	c.pageCalls++
	c.mu.Unlock()
	if c.FetchPageFunc != nil {
		return c.FetchPageFunc(ctx, subjectID, region, page, pageSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.reviews[subjectID]
	start := (page - 1) * pageSize
	if page < 1 || start >= len(all) {
		return nil, nil
	}
	end := min(start+pageSize, len(all))
	return append([]domain.Record(nil), all[start:end]...), nil
}

// SearchCalls returns how many times Search was invoked.
func (c *Client) SearchCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchCalls
}

// PageCalls returns how many times FetchPage was invoked.
func (c *Client) PageCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageCalls
}

var demoReviews = map[domain.Language][]struct {
	text  string
	score int
}{
	domain.LangEnglish: {
		{"Super fast and the interface is clean, love it", 5},
		{"Keeps crashing after the latest update, please fix", 1},
		{"Too many ads, the subscription price is too expensive", 2},
		{"Customer support answered quickly and solved my problem", 5},
		{"Battery drain is terrible since version 8", 1},
		{"The new design is beautiful and easy to use", 4},
		{"App freezes on launch and loading is slow", 2},
		{"Works fine, nothing special but does the job", 3},
		{"Offline mode is an innovative feature, very useful", 5},
		{"Crash every time I open the settings", 1},
	},
	domain.LangChinese: {
		{"速度很快，界面简洁，非常好用", 5},
		{"更新后经常闪退，希望尽快修复", 1},
		{"广告太多了，会员价格太贵", 2},
		{"客服回复很及时，解决了我的问题", 5},
		{"耗电严重，手机发热", 1},
		{"设计很漂亮，操作方便", 4},
		{"打开很慢，经常卡顿", 2},
		{"功能齐全，还可以吧", 3},
	},
}

// NewDemoClient creates a mock source that answers every query with a synthetic app
// and a fixed, repeating set of reviews.
func NewDemoClient(total int) *Client {
	c := NewClient()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.SearchFunc = func(_ context.Context, term string, lang domain.Language, region string) (*domain.SubjectInfo, error) {
		slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(term)), " ", "-")
		return &domain.SubjectInfo{
			ID:        "demo-" + string(lang) + "-" + slug,
			Title:     term,
			Developer: "Demo Studio",
			Rating:    4.1,
			Link:      "https://example.com/apps/" + slug,
		}, nil
	}
	c.FetchPageFunc = func(_ context.Context, subjectID, region string, page, pageSize int) ([]domain.Record, error) {
		lang := domain.LangEnglish
		if strings.HasPrefix(subjectID, "demo-zh-") {
			lang = domain.LangChinese
		}
		pool := demoReviews[lang]
		var out []domain.Record
		for i := (page - 1) * pageSize; i < page*pageSize && i < total; i++ {
			r := pool[i%len(pool)]
			out = append(out, domain.Record{
				ID:        fmt.Sprintf("%s-%04d", subjectID, i),
				Text:      r.text,
				Score:     r.score,
				Language:  lang,
				Timestamp: base.Add(-time.Duration(i) * time.Hour),
				Region:    region,
			})
		}
		return out, nil
	}
	return c
}
