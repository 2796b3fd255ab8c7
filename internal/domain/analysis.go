package domain

import (
	"slices"
	"time"
)

// Polarity is the sentiment bucket a review lands in.
type Polarity string

const (
	PolarityPositive Polarity = "liked"
	PolarityNegative Polarity = "disliked"
	PolarityNeutral  Polarity = "neutral"
)

// ExampleKey builds the key used in AnalysisResult.Examples.
func ExampleKey(p Polarity, feature string) string {
	return string(p) + "_" + feature
}

// Record is one raw review fetched from a source. Never mutated after fetch.
type Record struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Score     int       `json:"score"`
	Language  Language  `json:"language,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Region    string    `json:"region"`
}

// SubjectInfo describes the app being analysed.
type SubjectInfo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Developer   string    `json:"developer,omitempty"`
	DeveloperID string    `json:"developer_id,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	RatingCount int       `json:"rating_count,omitempty"`
	Version     string    `json:"version,omitempty"`
	Released    time.Time `json:"released,omitempty"`
	Link        string    `json:"link,omitempty"`
}

// Feature is a named product aspect with the number of reviews voting for it.
type Feature struct {
	Name      string `json:"name"`
	VoteCount int    `json:"vote_count"`
}

// FeatureSummary is the output of an extraction pass.
type FeatureSummary struct {
	Liked    []Feature           `json:"liked"`
	Disliked []Feature           `json:"disliked"`
	Examples map[string][]string `json:"examples"`
}

// DateRange spans the timestamps of the analysed reviews.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// AnalysisResult is the payload of a completed job.
type AnalysisResult struct {
	Subject       SubjectInfo         `json:"subject"`
	DateRange     DateRange           `json:"date_range"`
	Liked         []Feature           `json:"liked"`
	Disliked      []Feature           `json:"disliked"`
	Examples      map[string][]string `json:"examples"`
	RecordCount   int                 `json:"record_count"`
	AnalyzedCount int                 `json:"analyzed_count"`
	Engine        string              `json:"engine"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

// Clone returns a deep copy of the result.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Liked = slices.Clone(r.Liked)
	c.Disliked = slices.Clone(r.Disliked)
	if r.Examples != nil {
		c.Examples = make(map[string][]string, len(r.Examples))
		for k, v := range r.Examples {
			c.Examples[k] = slices.Clone(v)
		}
	}
	return &c
}

// RangeOf returns the span of record timestamps. Zero value for no records.
func RangeOf(records []Record) DateRange {
	var dr DateRange
	for i, r := range records {
		if i == 0 || r.Timestamp.Before(dr.From) {
			dr.From = r.Timestamp
		}
		if i == 0 || r.Timestamp.After(dr.To) {
			dr.To = r.Timestamp
		}
	}
	return dr
}
