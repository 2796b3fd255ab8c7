// Package progress carries percentage updates from working components up to the job.
package progress

import "context"

// Reporter receives progress on a 0 to 100 scale.
type Reporter interface {
	Report(ctx context.Context, percent int, message string)
}

// Func adapts a function to Reporter.
type Func func(ctx context.Context, percent int, message string)

func (f Func) Report(ctx context.Context, percent int, message string) { f(ctx, percent, message) }

// Nop discards every report.
var Nop Reporter = Func(func(context.Context, int, string) {})

type scaled struct {
	parent Reporter
	lo, hi int
}

// Scale maps a child's 0 to 100 onto [lo, hi] of parent.
func Scale(parent Reporter, lo, hi int) Reporter {
	if parent == nil {
		parent = Nop
	}
	return &scaled{parent: parent, lo: lo, hi: hi}
}

func (s *scaled) Report(ctx context.Context, percent int, message string) {
	s.parent.Report(ctx, s.lo+Clamp(percent)*(s.hi-s.lo)/100, message)
}

// Clamp limits percent to [0, 100].
func Clamp(percent int) int {
	return max(0, min(100, percent))
}
