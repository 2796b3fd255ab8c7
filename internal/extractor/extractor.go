// Package extractor turns cleaned reviews into ranked liked and disliked features
// using per-language keyword dictionaries. Output depends only on the input order.
package extractor

import (
	"sort"
	"strings"
	"unicode"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/textclean"
)

const (
	DefaultTopN        = 5
	DefaultMaxExamples = 3
)

// Review is a cleaned record with its classification.
type Review struct {
	ID       string
	Text     string
	Score    int
	Polarity domain.Polarity
	// indexes into Dictionary.Features, ascending
	Features []int
}

// Extractor is safe for concurrent use once constructed.
type Extractor struct {
	dicts       map[domain.Language]*Dictionary
	cleaner     *textclean.Cleaner
	topN        int
	maxExamples int
}

// New creates an Extractor over validated dictionaries.
func New(dicts map[domain.Language]*Dictionary, cleaner *textclean.Cleaner) *Extractor {
	return &Extractor{
		dicts:       dicts,
		cleaner:     cleaner,
		topN:        DefaultTopN,
		maxExamples: DefaultMaxExamples,
	}
}

// NewBuiltin creates an Extractor over the embedded dictionaries.
func NewBuiltin(cleaner *textclean.Cleaner) (*Extractor, error) {
	dicts, err := LoadBuiltin()
	if err != nil {
		return nil, err
	}
	return New(dicts, cleaner), nil
}

// Dictionary returns the table for lang, falling back to English.
func (e *Extractor) Dictionary(lang domain.Language) *Dictionary {
	if d, ok := e.dicts[lang]; ok {
		return d
	}
	return e.dicts[domain.LangEnglish]
}

// Languages lists the loaded dictionaries.
func (e *Extractor) Languages() []domain.LanguageInfo {
	names := map[domain.Language]string{
		domain.LangEnglish: "English",
		domain.LangChinese: "中文",
	}
	out := make([]domain.LanguageInfo, 0, len(e.dicts))
	for lang, d := range e.dicts {
		out = append(out, domain.LanguageInfo{Code: lang, Name: names[lang], Features: len(d.Features)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Extract runs the full local pipeline. An empty input yields empty lists.
func (e *Extractor) Extract(records []domain.Record, lang domain.Language) domain.FeatureSummary {
	return e.Summarize(e.Prepare(records, lang), lang)
}

// Prepare cleans, classifies and feature-tags every record, dropping rejects.
func (e *Extractor) Prepare(records []domain.Record, lang domain.Language) []Review {
	d := e.Dictionary(lang)
	out := make([]Review, 0, len(records))
	for _, r := range records {
		text, ok := e.cleaner.Clean(r.Text, lang)
		if !ok {
			continue
		}
		m := d.match(text)
		out = append(out, Review{
			ID:       r.ID,
			Text:     text,
			Score:    r.Score,
			Polarity: classify(r.Score, m.sentiment),
			Features: m.features,
		})
	}
	return out
}

// classify applies the star thresholds, falling back to the lexicon for 3 stars or
// unrated reviews.
func classify(score int, lexicon float64) domain.Polarity {
	switch {
	case score >= 4:
		return domain.PolarityPositive
	case score >= 1 && score <= 2:
		return domain.PolarityNegative
	case lexicon > 0:
		return domain.PolarityPositive
	case lexicon < 0:
		return domain.PolarityNegative
	}
	return domain.PolarityNeutral
}

type tally struct {
	feature  int
	count    int
	seen     int
	examples []string
}

// Summarize counts, ranks and illustrates features over prepared reviews.
func (e *Extractor) Summarize(reviews []Review, lang domain.Language) domain.FeatureSummary {
	d := e.Dictionary(lang)
	buckets := map[domain.Polarity]map[int]*tally{
		domain.PolarityPositive: {},
		domain.PolarityNegative: {},
	}
	seq := map[domain.Polarity]int{}

	for _, r := range reviews {
		bucket, ok := buckets[r.Polarity]
		if !ok {
			continue
		}
		for _, f := range r.Features {
			t := bucket[f]
			if t == nil {
				t = &tally{feature: f, seen: seq[r.Polarity]}
				seq[r.Polarity]++
				bucket[f] = t
			}
			t.count++
			if len(t.examples) < e.maxExamples {
				t.examples = append(t.examples, r.Text)
			}
		}
	}

	sum := domain.FeatureSummary{
		Liked:    []domain.Feature{},
		Disliked: []domain.Feature{},
		Examples: map[string][]string{},
	}
	sum.Liked = e.rank(d, buckets[domain.PolarityPositive], domain.PolarityPositive, sum.Examples)
	sum.Disliked = e.rank(d, buckets[domain.PolarityNegative], domain.PolarityNegative, sum.Examples)
	e.Backfill(&sum, reviews, lang)
	return sum
}

func (e *Extractor) rank(d *Dictionary, bucket map[int]*tally, p domain.Polarity, examples map[string][]string) []domain.Feature {
	ts := make([]*tally, 0, len(bucket))
	for _, t := range bucket {
		if t.count > 0 {
			ts = append(ts, t)
		}
	}
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].count != ts[j].count {
			return ts[i].count > ts[j].count
		}
		return ts[i].seen < ts[j].seen
	})
	if len(ts) > e.topN {
		ts = ts[:e.topN]
	}

	out := make([]domain.Feature, 0, len(ts))
	for _, t := range ts {
		name := d.Features[t.feature].Name
		out = append(out, domain.Feature{Name: name, VoteCount: t.count})
		if len(t.examples) > 0 {
			examples[domain.ExampleKey(p, name)] = append([]string(nil), t.examples...)
		}
	}
	return out
}

// Backfill gives every listed feature at least one example: matching reviews first,
// then any review of the same polarity, then a templated sentence.
func (e *Extractor) Backfill(sum *domain.FeatureSummary, reviews []Review, lang domain.Language) {
	d := e.Dictionary(lang)
	if sum.Examples == nil {
		sum.Examples = map[string][]string{}
	}
	fill := func(features []domain.Feature, p domain.Polarity) {
		for _, f := range features {
			key := domain.ExampleKey(p, f.Name)
			if len(sum.Examples[key]) > 0 {
				continue
			}
			var picked []string
			if idx, ok := d.FeatureIndex(f.Name); ok {
				picked = e.pick(reviews, p, func(r Review) bool { return hasFeature(r, idx) })
			}
			if len(picked) == 0 {
				picked = e.pick(reviews, p, func(Review) bool { return true })
			}
			if len(picked) == 0 {
				picked = []string{d.Template(p, f.Name)}
			}
			sum.Examples[key] = picked
		}
	}
	fill(sum.Liked, domain.PolarityPositive)
	fill(sum.Disliked, domain.PolarityNegative)
}

func (e *Extractor) pick(reviews []Review, p domain.Polarity, keep func(Review) bool) []string {
	var out []string
	for _, r := range reviews {
		if r.Polarity == p && keep(r) {
			out = append(out, r.Text)
			if len(out) == e.maxExamples {
				break
			}
		}
	}
	return out
}

func hasFeature(r Review, idx int) bool {
	for _, f := range r.Features {
		if f == idx {
			return true
		}
	}
	return false
}

type matchResult struct {
	features  []int
	sentiment float64
}

// match finds the features a text mentions and its normalised lexicon score.
func (d *Dictionary) match(text string) matchResult {
	lower := strings.ToLower(text)
	if d.Tokenizer == TokenizeRunes {
		return d.matchRunes(lower)
	}
	return d.matchWords(lower)
}

func (d *Dictionary) matchWords(lower string) matchResult {
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	for i, tok := range tokens {
		if canon, ok := d.Synonyms[tok]; ok {
			tokens[i] = canon
		}
	}
	padded := " " + strings.Join(tokens, " ") + " "

	var res matchResult
	for i, f := range d.Features {
		for _, kw := range f.Keywords {
			if strings.Contains(padded, " "+kw) {
				res.features = append(res.features, i)
				break
			}
		}
	}

	score := 0
	for _, tok := range tokens {
		score += prefixHit(tok, d.Positive) - prefixHit(tok, d.Negative)
	}
	if len(tokens) > 0 {
		res.sentiment = float64(score) / float64(len(tokens))
	}
	return res
}

func (d *Dictionary) matchRunes(lower string) matchResult {
	for _, variant := range d.synonymOrder {
		lower = strings.ReplaceAll(lower, variant, d.Synonyms[variant])
	}

	var res matchResult
	for i, f := range d.Features {
		for _, kw := range f.Keywords {
			if strings.Contains(lower, kw) {
				res.features = append(res.features, i)
				break
			}
		}
	}

	score := 0
	for _, w := range d.Positive {
		score += strings.Count(lower, w)
	}
	for _, w := range d.Negative {
		score -= strings.Count(lower, w)
	}
	if n := countTokens(lower); n > 0 {
		res.sentiment = float64(score) / float64(n)
	}
	return res
}

func prefixHit(tok string, words []string) int {
	for _, w := range words {
		if strings.HasPrefix(tok, w) {
			return 1
		}
	}
	return 0
}

// countTokens treats each Han character as a token and any other letter run as one.
func countTokens(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			n++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			if !inWord {
				n++
			}
			inWord = true
		default:
			inWord = false
		}
	}
	return n
}
