// Package summarizer delegates feature extraction to an external text-generation model
// and falls back to the local extractor whenever that path is unusable.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/extractor"
)

const (
	remoteTopN        = 5
	remoteMaxExamples = 2
)

const systemPrompt = `You analyse mobile app reviews. Reply with a single JSON object and nothing else.`

// Remote asks a Model for a liked/disliked breakdown.
type Remote struct {
	model      Model
	maxRecords int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewRemote wraps model. At most maxRecords reviews are embedded in a prompt and each
// call is bounded by timeout.
func NewRemote(model Model, maxRecords int, timeout time.Duration, logger *zap.Logger) *Remote {
	if maxRecords <= 0 {
		maxRecords = 200
	}
	return &Remote{model: model, maxRecords: maxRecords, timeout: timeout, logger: logger}
}

// Name identifies the engine in results.
func (r *Remote) Name() string { return "remote:" + r.model.Name() }

type payloadFeature struct {
	Feature  string   `json:"feature"`
	Votes    int      `json:"votes"`
	Examples []string `json:"examples"`
}

type payload struct {
	Liked    *[]payloadFeature `json:"liked"`
	Disliked *[]payloadFeature `json:"disliked"`
}

// Summarize streams the model response and decodes it. Every failure wraps
// domain.ErrExtractionFailure.
func (r *Remote) Summarize(ctx context.Context, reviews []extractor.Review, lang domain.Language) (domain.FeatureSummary, error) {
	if len(reviews) == 0 {
		return domain.FeatureSummary{}, fmt.Errorf("%w: no reviews to send", domain.ErrExtractionFailure)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	parser := NewStreamParser(0)
	err := r.model.Stream(ctx, systemPrompt, r.buildPrompt(reviews, lang), func(chunk string) bool {
		return parser.Feed(chunk) == NeedMore
	})
	if err != nil && parser.State() != Complete {
		return domain.FeatureSummary{}, fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
	}
	raw, err := parser.Finish()
	if err != nil {
		return domain.FeatureSummary{}, err
	}
	return decodePayload(raw)
}

func (r *Remote) buildPrompt(reviews []extractor.Review, lang domain.Language) string {
	language := "English"
	if lang == domain.LangChinese {
		language = "Simplified Chinese"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Below are %d user reviews, each prefixed with its star rating (1-5, 0 if unknown).\n", min(len(reviews), r.maxRecords))
	b.WriteString("Identify the product features users like and dislike. Group similar complaints or praise under one short feature name written in ")
	b.WriteString(language)
	b.WriteString(".\n")
	b.WriteString(`Return exactly this JSON shape:
{"liked":[{"feature":"name","votes":3,"examples":["verbatim review text"]}],"disliked":[...]}
Rules: at most 5 features per list, sorted by votes descending; votes counts reviews mentioning the feature;
at most 2 examples per feature, copied verbatim from the reviews below; omit features with zero votes.

Reviews:
`)
	for i, rv := range reviews {
		if i == r.maxRecords {
			break
		}
		fmt.Fprintf(&b, "[%d] %s\n", rv.Score, rv.Text)
	}
	return b.String()
}

func decodePayload(raw json.RawMessage) (domain.FeatureSummary, error) {
	var p payload
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&p); err != nil {
		return domain.FeatureSummary{}, fmt.Errorf("%w: decode: %w", domain.ErrExtractionFailure, err)
	}
	if p.Liked == nil || p.Disliked == nil {
		return domain.FeatureSummary{}, fmt.Errorf("%w: missing liked or disliked", domain.ErrExtractionFailure)
	}

	sum := domain.FeatureSummary{Examples: map[string][]string{}}
	sum.Liked = convert(*p.Liked, domain.PolarityPositive, sum.Examples)
	sum.Disliked = convert(*p.Disliked, domain.PolarityNegative, sum.Examples)
	if len(sum.Liked) == 0 && len(sum.Disliked) == 0 {
		return domain.FeatureSummary{}, fmt.Errorf("%w: no usable features", domain.ErrExtractionFailure)
	}
	return sum, nil
}

// convert drops unnamed, zero-vote and duplicate entries, then ranks like the local path.
func convert(in []payloadFeature, pol domain.Polarity, examples map[string][]string) []domain.Feature {
	seen := map[string]bool{}
	kept := make([]payloadFeature, 0, len(in))
	for _, f := range in {
		f.Feature = strings.TrimSpace(f.Feature)
		if f.Feature == "" || f.Votes <= 0 || seen[strings.ToLower(f.Feature)] {
			continue
		}
		seen[strings.ToLower(f.Feature)] = true
		kept = append(kept, f)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Votes > kept[j].Votes })
	if len(kept) > remoteTopN {
		kept = kept[:remoteTopN]
	}

	out := make([]domain.Feature, 0, len(kept))
	for _, f := range kept {
		out = append(out, domain.Feature{Name: f.Feature, VoteCount: f.Votes})
		var ex []string
		for _, e := range f.Examples {
			if e = strings.TrimSpace(e); e != "" {
				ex = append(ex, e)
			}
			if len(ex) == remoteMaxExamples {
				break
			}
		}
		if len(ex) > 0 {
			examples[domain.ExampleKey(pol, f.Feature)] = ex
		}
	}
	return out
}
