package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobState represents the lifecycle state of an analysis job.
type JobState string

const (
	StatePending    JobState = "PENDING"
	StateProcessing JobState = "PROCESSING"
	StateCompleted  JobState = "COMPLETED"
	StateFailed     JobState = "FAILED"
)

// IsTerminal returns true if the state represents a final state.
func (s JobState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Language represents a supported review language.
type Language string

const (
	LangEnglish Language = "en"
	LangChinese Language = "zh"
)

// IsValid checks if the language is supported.
func (l Language) IsValid() bool {
	return l == LangEnglish || l == LangChinese
}

// IsLogographic reports whether the language is written without word separators.
func (l Language) IsLogographic() bool {
	return l == LangChinese
}

// SourceKind selects the upstream review source.
type SourceKind string

const (
	SourceAppStore SourceKind = "appstore"
	SourceMock     SourceKind = "mock"
)

const (
	DefaultLanguage = LangEnglish
	DefaultRegion   = "us"
	DefaultSource   = SourceAppStore
)

// JobParams is the immutable snapshot of a submission.
type JobParams struct {
	Query    string     `json:"query"`
	Language Language   `json:"language"`
	Region   string     `json:"region"`
	Source   SourceKind `json:"source"`
}

// Normalize fills defaults and canonicalises casing. It does not validate.
func (p JobParams) Normalize() JobParams {
	p.Query = strings.TrimSpace(p.Query)
	p.Language = Language(strings.ToLower(strings.TrimSpace(string(p.Language))))
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	p.Region = strings.ToLower(strings.TrimSpace(p.Region))
	if p.Region == "" {
		p.Region = DefaultRegion
	}
	p.Source = SourceKind(strings.ToLower(strings.TrimSpace(string(p.Source))))
	if p.Source == "" {
		p.Source = DefaultSource
	}
	return p
}

// Validate checks normalised parameters. The source selector is checked against the
// registered clients by the caller.
func (p JobParams) Validate() error {
	if p.Query == "" {
		return ErrEmptyQuery
	}
	if !p.Language.IsValid() {
		return ErrInvalidLanguage
	}
	if len(p.Region) != 2 || !isASCIILower(p.Region[0]) || !isASCIILower(p.Region[1]) {
		return ErrInvalidRegion
	}
	return nil
}

func isASCIILower(c byte) bool { return c >= 'a' && c <= 'z' }

// Job represents an analysis job throughout its lifecycle.
type Job struct {
	JobID     uuid.UUID       `json:"job_id"`
	State     JobState        `json:"state"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message"`
	Params    JobParams       `json:"params"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Clone returns a deep copy so that stores never hand out aliased state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Result != nil {
		c.Result = j.Result.Clone()
	}
	return &c
}

// Status builds the caller-facing snapshot of the job.
func (j *Job) Status() *JobStatus {
	s := &JobStatus{
		JobID:     j.JobID,
		State:     j.State,
		Progress:  j.Progress,
		Message:   j.Message,
		Params:    j.Params,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	switch j.State {
	case StateCompleted:
		s.Result = j.Result.Clone()
	case StateFailed:
		s.Error = j.Error
	}
	return s
}

// JobStatus is the read-only view returned by the status endpoint.
type JobStatus struct {
	JobID     uuid.UUID       `json:"job_id"`
	State     JobState        `json:"state"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message"`
	Params    JobParams       `json:"params"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SubmitRequest represents an incoming analysis request from the API.
type SubmitRequest struct {
	Query    string `json:"query" binding:"required"`
	Language string `json:"language"`
	Region   string `json:"region"`
	Source   string `json:"source"`
}

// Params converts the request into normalised job parameters.
func (r SubmitRequest) Params() JobParams {
	return JobParams{
		Query:    r.Query,
		Language: Language(r.Language),
		Region:   r.Region,
		Source:   SourceKind(r.Source),
	}.Normalize()
}

// SubmitResponse is returned after a successful submission.
type SubmitResponse struct {
	JobID uuid.UUID `json:"job_id"`
	State JobState  `json:"state"`
}

// LanguageInfo describes a supported review language.
type LanguageInfo struct {
	Code     Language `json:"code"`
	Name     string   `json:"name"`
	Features int      `json:"features"`
}
