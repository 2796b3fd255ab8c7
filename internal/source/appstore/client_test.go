package appstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/retry"
)

const searchBody = `{"resultCount":1,"results":[{"trackId":324684580,"trackName":"Spotify",
"artistName":"Spotify AB","artistId":324684583,"description":"Music",
"artworkUrl512":"https://img/512.png","averageUserRating":4.8,"userRatingCount":1000,
"version":"8.9","releaseDate":"2011-07-14T07:00:00Z","trackViewUrl":"https://apps.apple.com/app/id324684580"}]}`

const feedBody = `{"feed":{"entry":[
{"im:name":{"label":"Spotify"},"id":{"label":"324684580"}},
{"id":{"label":"r1"},"title":{"label":"Great"},"content":{"label":"Fast and smooth"},
 "im:rating":{"label":"5"},"updated":{"label":"2024-03-01T10:00:00-07:00"}},
{"id":{"label":"r2"},"title":{"label":"Bad"},"content":{"label":"Crashes all the time"},
 "im:rating":{"label":"1"},"updated":{"label":"2024-03-02T10:00:00-07:00"}}
]}}`

const singleEntryBody = `{"feed":{"entry":{"id":{"label":"r9"},"content":{"label":"Only one"},
"im:rating":{"label":"3"},"updated":{"label":"2024-03-02T10:00:00Z"}}}}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, zap.NewNop())
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "spotify", r.URL.Query().Get("term"))
		assert.Equal(t, "gb", r.URL.Query().Get("country"))
		w.Write([]byte(searchBody))
	})

	info, err := c.Search(context.Background(), "spotify", domain.LangEnglish, "gb")
	require.NoError(t, err)
	assert.Equal(t, "324684580", info.ID)
	assert.Equal(t, "Spotify", info.Title)
	assert.Equal(t, "Spotify AB", info.Developer)
	assert.InDelta(t, 4.8, info.Rating, 0.001)
	assert.Equal(t, 2011, info.Released.Year())
}

func TestSearch_NoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultCount":0,"results":[]}`))
	})
	_, err := c.Search(context.Background(), "nothing", domain.LangEnglish, "us")
	assert.ErrorIs(t, err, domain.ErrSubjectNotFound)
}

func TestFetchPage_SkipsMetadataEntry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/us/rss/customerreviews/page=2/id=324684580/sortby=mostrecent/json"))
		w.Write([]byte(feedBody))
	})

	records, err := c.FetchPage(context.Background(), "324684580", "us", 2, 50)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, 5, records[0].Score)
	assert.Equal(t, "Fast and smooth", records[0].Text)
	assert.Equal(t, "us", records[0].Region)
	assert.False(t, records[1].Timestamp.IsZero())
}

func TestFetchPage_SingleEntryObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(singleEntryBody))
	})
	records, err := c.FetchPage(context.Background(), "1", "us", 1, 50)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r9", records[0].ID)
}

func TestFetchPage_EmptyFeed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"feed":{"author":{}}}`))
	})
	records, err := c.FetchPage(context.Background(), "1", "us", 1, 50)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchPage_BeyondFeedLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected past the last feed page")
	})
	records, err := c.FetchPage(context.Background(), "1", "us", 11, 50)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		code      int
		permanent bool
	}{
		{http.StatusServiceUnavailable, false},
		{http.StatusTooManyRequests, false},
		{http.StatusBadRequest, true},
		{http.StatusNotFound, true},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.code)
		})
		_, err := c.FetchPage(context.Background(), "1", "us", 1, 50)
		require.Error(t, err, "status %d", tc.code)
		assert.Equal(t, tc.permanent, retry.IsPermanent(err), "status %d", tc.code)
		if tc.code == http.StatusNotFound {
			assert.True(t, errors.Is(err, domain.ErrSubjectNotFound))
		}
	}
}
