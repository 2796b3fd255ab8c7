package summarizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harsh-BH/reviewlens/internal/domain"
)

// ParseState is the state of a StreamParser after the last chunk.
type ParseState int

const (
	// NeedMore means no complete JSON object has arrived yet.
	NeedMore ParseState = iota
	// Complete means a complete JSON object is available from Result.
	Complete
	// Failed means the stream can no longer yield an object.
	Failed
)

func (s ParseState) String() string {
	switch s {
	case NeedMore:
		return "need_more"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	}
	return "unknown"
}

const defaultMaxStreamBytes = 1 << 20

// StreamParser reassembles the first complete JSON object from arbitrarily split chunks.
// Text before the object (prose, code fences) is skipped. Braces inside strings are
// ignored.
type StreamParser struct {
	buf      strings.Builder
	scanned  int
	start    int
	depth    int
	inString bool
	escaped  bool
	maxBytes int

	state  ParseState
	result json.RawMessage
	err    error
}

// NewStreamParser creates a parser that fails once more than maxBytes arrive without
// a complete object. Zero selects a 1MiB limit.
func NewStreamParser(maxBytes int) *StreamParser {
	if maxBytes <= 0 {
		maxBytes = defaultMaxStreamBytes
	}
	return &StreamParser{start: -1, maxBytes: maxBytes}
}

// State returns the current state.
func (p *StreamParser) State() ParseState { return p.state }

// Feed appends a chunk and advances the scan. Once Complete or Failed, further chunks
// are ignored.
func (p *StreamParser) Feed(chunk string) ParseState {
	if p.state != NeedMore {
		return p.state
	}
	p.buf.WriteString(chunk)
	if p.buf.Len() > p.maxBytes {
		p.fail(fmt.Errorf("response exceeded %d bytes without a complete object", p.maxBytes))
		return p.state
	}

	data := p.buf.String()
	for i := p.scanned; i < len(data); i++ {
		c := data[i]
		if p.start < 0 {
			if c == '{' {
				p.start = i
				p.depth = 1
			}
			continue
		}

		switch {
		case p.inString && p.escaped:
			p.escaped = false
		case p.inString && c == '\\':
			p.escaped = true
		case c == '"':
			p.inString = !p.inString
		case p.inString:
		case c == '{':
			p.depth++
		case c == '}':
			p.depth--
			if p.depth == 0 {
				candidate := data[p.start : i+1]
				if json.Valid([]byte(candidate)) {
					p.result = json.RawMessage(candidate)
					p.state = Complete
					p.scanned = i + 1
					return p.state
				}
				// balanced but not JSON, e.g. braces in prose; look for the next object
				p.start = -1
				p.inString = false
				p.escaped = false
			}
		}
	}
	p.scanned = len(data)
	return p.state
}

// Finish marks end of stream and returns the object or an extraction failure.
func (p *StreamParser) Finish() (json.RawMessage, error) {
	switch p.state {
	case Complete:
		return p.result, nil
	case NeedMore:
		p.fail(fmt.Errorf("stream ended without a complete object"))
	}
	return nil, p.err
}

func (p *StreamParser) fail(err error) {
	p.state = Failed
	p.err = fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
}
