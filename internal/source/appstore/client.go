// Package appstore reads app metadata and customer reviews from the public Apple
// iTunes endpoints.
package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/retry"
	"github.com/Harsh-BH/reviewlens/internal/source"
)

const (
	DefaultBaseURL = "https://itunes.apple.com"
	userAgent      = "reviewlens/1.0"
	maxBodyBytes   = 4 << 20
	// the RSS feed serves at most ten pages
	maxFeedPage = 10
)

var _ source.Client = (*Client)(nil)

// Client talks to the iTunes search API and the customer reviews RSS feed.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an App Store client. Every request is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Kind() domain.SourceKind { return domain.SourceAppStore }

// StatusError is returned for unexpected HTTP statuses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("appstore: unexpected status %d from %s", e.Code, e.URL)
}

type searchResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackID           int64   `json:"trackId"`
		TrackName         string  `json:"trackName"`
		ArtistName        string  `json:"artistName"`
		ArtistID          int64   `json:"artistId"`
		Description       string  `json:"description"`
		ArtworkURL512     string  `json:"artworkUrl512"`
		ArtworkURL100     string  `json:"artworkUrl100"`
		AverageUserRating float64 `json:"averageUserRating"`
		UserRatingCount   int     `json:"userRatingCount"`
		Version           string  `json:"version"`
		ReleaseDate       string  `json:"releaseDate"`
		TrackViewURL      string  `json:"trackViewUrl"`
	} `json:"results"`
}

// Search returns the best App Store match for term.
func (c *Client) Search(ctx context.Context, term string, lang domain.Language, region string) (*domain.SubjectInfo, error) {
	q := url.Values{}
	q.Set("term", term)
	q.Set("country", region)
	q.Set("entity", "software")
	q.Set("limit", "1")
	if lang == domain.LangChinese {
		q.Set("lang", "zh_cn")
	} else {
		q.Set("lang", "en_us")
	}

	var resp searchResponse
	if err := c.getJSON(ctx, c.baseURL+"/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrSubjectNotFound, term)
	}

	r := resp.Results[0]
	info := &domain.SubjectInfo{
		ID:          strconv.FormatInt(r.TrackID, 10),
		Title:       r.TrackName,
		Developer:   r.ArtistName,
		DeveloperID: strconv.FormatInt(r.ArtistID, 10),
		Summary:     truncate(r.Description, 500),
		Icon:        r.ArtworkURL512,
		Rating:      r.AverageUserRating,
		RatingCount: r.UserRatingCount,
		Version:     r.Version,
		Link:        r.TrackViewURL,
	}
	if info.Icon == "" {
		info.Icon = r.ArtworkURL100
	}
	if ts, err := time.Parse(time.RFC3339, r.ReleaseDate); err == nil {
		info.Released = ts
	}
	return info, nil
}

type label struct {
	Label string `json:"label"`
}

type feedEntry struct {
	ID      label `json:"id"`
	Title   label `json:"title"`
	Content label `json:"content"`
	Rating  label `json:"im:rating"`
	Updated label `json:"updated"`
	// present only on the app metadata entry some feeds prepend
	Name *label `json:"im:name"`
}

type feedResponse struct {
	Feed struct {
		Entry json.RawMessage `json:"entry"`
	} `json:"feed"`
}

// FetchPage reads one page of the most-recent reviews feed. The feed has a fixed page
// size of 50; pageSize is accepted for interface compatibility.
func (c *Client) FetchPage(ctx context.Context, subjectID, region string, page, pageSize int) ([]domain.Record, error) {
	if page < 1 || page > maxFeedPage {
		return nil, nil
	}
	u := fmt.Sprintf("%s/%s/rss/customerreviews/page=%d/id=%s/sortby=mostrecent/json",
		c.baseURL, url.PathEscape(region), page, url.PathEscape(subjectID))

	var resp feedResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	entries, err := decodeEntries(resp.Feed.Entry)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("appstore: decode feed: %w", err))
	}

	c.logger.Debug("Fetched review page",
		zap.String("subject_id", subjectID),
		zap.Int("page", page),
		zap.Int("entries", len(entries)),
	)

	records := make([]domain.Record, 0, len(entries))
	for _, e := range entries {
		if e.Name != nil || e.ID.Label == "" {
			continue
		}
		score, _ := strconv.Atoi(e.Rating.Label)
		ts, _ := time.Parse(time.RFC3339, e.Updated.Label)
		records = append(records, domain.Record{
			ID:        e.ID.Label,
			Text:      e.Content.Label,
			Score:     score,
			Timestamp: ts,
			Region:    region,
		})
	}
	return records, nil
}

// decodeEntries accepts the feed's entry field as an array, a single object or absent.
func decodeEntries(raw json.RawMessage) ([]feedEntry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '{' {
		var one feedEntry
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, err
		}
		return []feedEntry{one}, nil
	}
	var many []feedEntry
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("appstore: build request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("appstore: request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(fmt.Errorf("%w: %s", domain.ErrSubjectNotFound, u))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &StatusError{Code: resp.StatusCode, URL: u}
	case resp.StatusCode != http.StatusOK:
		return retry.Permanent(&StatusError{Code: resp.StatusCode, URL: u})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("appstore: read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(fmt.Errorf("appstore: decode: %w", err))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
