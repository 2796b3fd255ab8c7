package summarizer

import (
	"context"

	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/extractor"
	"github.com/Harsh-BH/reviewlens/internal/metrics"
)

// EngineLocal names the built-in keyword extractor in results.
const EngineLocal = "local"

// Analysis is the outcome of one analyzer pass.
type Analysis struct {
	Summary  domain.FeatureSummary
	Engine   string
	Analyzed int
}

// Analyzer tries the remote model first when configured and always has the local
// extractor as the authoritative fallback.
type Analyzer struct {
	local  *extractor.Extractor
	remote *Remote
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer. remote may be nil.
func NewAnalyzer(local *extractor.Extractor, remote *Remote, logger *zap.Logger) *Analyzer {
	return &Analyzer{local: local, remote: remote, logger: logger}
}

// Analyze never fails: remote errors are logged and recovered locally.
func (a *Analyzer) Analyze(ctx context.Context, records []domain.Record, lang domain.Language) Analysis {
	reviews := a.local.Prepare(records, lang)

	if a.remote != nil && len(reviews) > 0 {
		sum, err := a.remote.Summarize(ctx, reviews, lang)
		if err == nil {
			a.local.Backfill(&sum, reviews, lang)
			return Analysis{Summary: sum, Engine: a.remote.Name(), Analyzed: len(reviews)}
		}
		metrics.SummarizerFallbacks.WithLabelValues(a.remote.model.Name()).Inc()
		a.logger.Warn("Remote summarizer failed, using local extractor",
			zap.String("provider", a.remote.model.Name()),
			zap.Error(err),
		)
	}

	return Analysis{
		Summary:  a.local.Summarize(reviews, lang),
		Engine:   EngineLocal,
		Analyzed: len(reviews),
	}
}
