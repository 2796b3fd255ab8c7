package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/reviewlens/internal/cache"
	"github.com/Harsh-BH/reviewlens/internal/collector"
	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/extractor"
	mockpub "github.com/Harsh-BH/reviewlens/internal/publisher/mock"
	"github.com/Harsh-BH/reviewlens/internal/ratelimit"
	mockrepo "github.com/Harsh-BH/reviewlens/internal/repository/mock"
	"github.com/Harsh-BH/reviewlens/internal/retry"
	"github.com/Harsh-BH/reviewlens/internal/source"
	srcmock "github.com/Harsh-BH/reviewlens/internal/source/mock"
	"github.com/Harsh-BH/reviewlens/internal/summarizer"
	"github.com/Harsh-BH/reviewlens/internal/textclean"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newSubmit(repo *mockrepo.JobRepository, pub *mockpub.MockPublisher) *SubmitJobUsecase {
	sources := source.NewRegistry(srcmock.NewDemoClient(10))
	return NewSubmitJobUsecase(repo, pub, sources, nil, zap.NewNop())
}

type executeFixture struct {
	repo  *mockrepo.JobRepository
	locks *mockrepo.IdempotencyStore
	src   *srcmock.Client
	cache *cache.Memory
	uc    *ExecuteJobUsecase
}

func newExecute(t *testing.T, src *srcmock.Client) *executeFixture {
	t.Helper()
	ext, err := extractor.NewBuiltin(textclean.New(textclean.DefaultConfig()))
	if err != nil {
		t.Fatalf("builtin extractor: %v", err)
	}
	logger := zap.NewNop()
	col := collector.New(
		collector.Config{MaxPages: 5, MaxRecords: 150, PageSize: 10},
		ratelimit.NewSlidingWindow(100, time.Second, 0),
		retry.Policy{MaxRetries: 1, BaseDelay: time.Millisecond, Sleep: noSleep},
		logger,
	).WithSleep(noSleep)

	f := &executeFixture{
		repo:  mockrepo.NewJobRepository(),
		locks: &mockrepo.IdempotencyStore{},
		src:   src,
		cache: cache.NewMemory(time.Hour),
	}
	f.uc = NewExecuteJobUsecase(f.repo, f.locks, source.NewRegistry(src), col,
		summarizer.NewAnalyzer(ext, nil, logger), f.cache, logger)
	return f
}

func (f *executeFixture) seed(t *testing.T, query string) *domain.Job {
	t.Helper()
	job := &domain.Job{
		JobID:  uuid.New(),
		State:  domain.StatePending,
		Params: domain.JobParams{Query: query, Source: domain.SourceMock}.Normalize(),
	}
	if err := f.repo.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func (f *executeFixture) load(t *testing.T, id uuid.UUID) *domain.Job {
	t.Helper()
	job, err := f.repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	return job
}

// ---- SubmitJob ----

func TestSubmitJob_Success(t *testing.T) {
	repo := mockrepo.NewJobRepository()
	pub := mockpub.NewMockPublisher()
	uc := newSubmit(repo, pub)

	resp, err := uc.Execute(context.Background(), &domain.SubmitRequest{Query: "  Notes App ", Source: "MOCK"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.State != domain.StatePending {
		t.Errorf("expected state PENDING, got %s", resp.State)
	}
	if resp.JobID.Version() != 7 {
		t.Errorf("expected UUIDv7, got version %d", resp.JobID.Version())
	}

	job, err := repo.GetByID(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job not stored: %v", err)
	}
	want := domain.JobParams{Query: "Notes App", Language: domain.LangEnglish, Region: "us", Source: domain.SourceMock}
	if job.Params != want {
		t.Errorf("expected params %+v, got %+v", want, job.Params)
	}
	if job.Progress != 0 || job.State != domain.StatePending {
		t.Errorf("expected fresh pending job, got %s at %d", job.State, job.Progress)
	}

	published := pub.PublishedJobs()
	if len(published) != 1 || published[0].JobID != resp.JobID {
		t.Fatalf("expected the job to be published once, got %d", len(published))
	}
}

func TestSubmitJob_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  domain.SubmitRequest
		want error
	}{
		{"empty query", domain.SubmitRequest{Query: "   ", Source: "mock"}, domain.ErrEmptyQuery},
		{"bad language", domain.SubmitRequest{Query: "x", Language: "fr", Source: "mock"}, domain.ErrInvalidLanguage},
		{"bad region", domain.SubmitRequest{Query: "x", Region: "usa", Source: "mock"}, domain.ErrInvalidRegion},
		{"unregistered source", domain.SubmitRequest{Query: "x", Source: "appstore"}, domain.ErrInvalidSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mockrepo.NewJobRepository()
			pub := mockpub.NewMockPublisher()
			_, err := newSubmit(repo, pub).Execute(context.Background(), &tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Error("expected validation errors to wrap ErrInvalidArgument")
			}
			if ids, _ := repo.ListIDs(context.Background()); len(ids) != 0 {
				t.Errorf("expected no job to be created, got %d", len(ids))
			}
			if len(pub.PublishedJobs()) != 0 {
				t.Error("expected nothing to be published")
			}
		})
	}
}

func TestSubmitJob_DispatchFailureMarksJobFailed(t *testing.T) {
	tests := []struct {
		name   string
		pubErr error
		want   error
	}{
		{"broker down", errors.New("connection refused"), domain.ErrPublishFailed},
		{"queue full", fmt.Errorf("local: %w", domain.ErrQueueFull), domain.ErrQueueFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mockrepo.NewJobRepository()
			pub := mockpub.NewMockPublisher()
			pub.PublishFn = func(context.Context, *domain.Job) error { return tt.pubErr }

			_, err := newSubmit(repo, pub).Execute(context.Background(), &domain.SubmitRequest{Query: "x", Source: "mock"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}

			ids, _ := repo.ListIDs(context.Background())
			if len(ids) != 1 {
				t.Fatalf("expected the job to be kept, got %d", len(ids))
			}
			job, _ := repo.GetByID(context.Background(), ids[0])
			if job.State != domain.StateFailed {
				t.Errorf("expected FAILED, got %s", job.State)
			}
			if job.Error != tt.want.Error() {
				t.Errorf("expected error %q, got %q", tt.want.Error(), job.Error)
			}
		})
	}
}

func TestSubmitJob_TriggersSweeper(t *testing.T) {
	repo := mockrepo.NewJobRepository()
	sweeper := NewSweeper(repo, time.Hour, time.Hour, zap.NewNop())
	uc := NewSubmitJobUsecase(repo, mockpub.NewMockPublisher(), source.NewRegistry(srcmock.NewDemoClient(1)), sweeper, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := uc.Execute(context.Background(), &domain.SubmitRequest{Query: "x", Source: "mock"}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	sweeper.Wait()

	if got := repo.SweepCount(); got != 1 {
		t.Errorf("expected a single throttled sweep, got %d", got)
	}
}

// ---- GetJob ----

func TestGetJob_NotFound(t *testing.T) {
	uc := NewGetJobUsecase(mockrepo.NewJobRepository(), zap.NewNop())
	_, err := uc.Execute(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestGetJob_HidesResultUntilCompleted(t *testing.T) {
	repo := mockrepo.NewJobRepository()
	job := &domain.Job{
		JobID:  uuid.New(),
		State:  domain.StateProcessing,
		Result: &domain.AnalysisResult{RecordCount: 3},
		Error:  "stale",
	}
	_ = repo.Create(context.Background(), job)

	status, err := NewGetJobUsecase(repo, zap.NewNop()).Execute(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Result != nil || status.Error != "" {
		t.Errorf("expected no result or error while processing, got %+v", status)
	}
}

// ---- ExecuteJob ----

func TestExecuteJob_CompletesWithMonotonicProgress(t *testing.T) {
	f := newExecute(t, srcmock.NewDemoClient(30))
	job := f.seed(t, "Notes App")

	dup, err := f.uc.Execute(context.Background(), job.JobID)
	if err != nil || dup {
		t.Fatalf("expected clean run, got dup=%v err=%v", dup, err)
	}

	got := f.load(t, job.JobID)
	if got.State != domain.StateCompleted || got.Progress != 100 {
		t.Fatalf("expected COMPLETED at 100, got %s at %d (%s)", got.State, got.Progress, got.Error)
	}
	if got.Result == nil || got.Result.RecordCount != 30 {
		t.Fatalf("expected 30 collected records, got %+v", got.Result)
	}
	if got.Result.Engine != summarizer.EngineLocal {
		t.Errorf("expected local engine, got %q", got.Result.Engine)
	}
	if got.Result.Subject.Title != "Notes App" {
		t.Errorf("expected subject title from search, got %q", got.Result.Subject.Title)
	}
	if len(got.Result.Liked) == 0 || len(got.Result.Disliked) == 0 {
		t.Errorf("expected both feature lists, got %+v", got.Result)
	}

	history := f.repo.UpdateHistory()
	if len(history) < 4 {
		t.Fatalf("expected several progress updates, got %d", len(history))
	}
	last := -1
	for i, h := range history {
		if h.Progress < last {
			t.Errorf("progress went backwards at update %d: %d -> %d", i, last, h.Progress)
		}
		last = h.Progress
	}
	if history[0].State != domain.StateProcessing {
		t.Errorf("expected first update to be PROCESSING, got %s", history[0].State)
	}
	if len(f.locks.ReleaseCalls) != 1 {
		t.Errorf("expected lock to be released once, got %d", len(f.locks.ReleaseCalls))
	}
}

func TestExecuteJob_SecondRunServedFromCache(t *testing.T) {
	f := newExecute(t, srcmock.NewDemoClient(5))
	first := f.seed(t, "Notes App")
	second := f.seed(t, "notes   app")

	for _, j := range []*domain.Job{first, second} {
		if _, err := f.uc.Execute(context.Background(), j.JobID); err != nil {
			t.Fatalf("execute: %v", err)
		}
	}

	if calls := f.src.SearchCalls(); calls != 1 {
		t.Errorf("expected one upstream search, got %d", calls)
	}
	a, b := f.load(t, first.JobID), f.load(t, second.JobID)
	if b.State != domain.StateCompleted || b.Result.RecordCount != a.Result.RecordCount {
		t.Errorf("expected cached result, got %s with %+v", b.State, b.Result)
	}
}

func TestExecuteJob_Failures(t *testing.T) {
	tests := []struct {
		name    string
		src     func() *srcmock.Client
		wantErr string
	}{
		{
			name:    "subject not found",
			src:     srcmock.NewClient,
			wantErr: domain.ErrSubjectNotFound.Error(),
		},
		{
			name:    "no reviews",
			src:     func() *srcmock.Client { return srcmock.NewDemoClient(0) },
			wantErr: domain.ErrNoRecords.Error(),
		},
		{
			name: "upstream down",
			src: func() *srcmock.Client {
				c := srcmock.NewDemoClient(10)
				c.FetchPageFunc = func(context.Context, string, string, int, int) ([]domain.Record, error) {
					return nil, errors.New("503 service unavailable")
				}
				return c
			},
			wantErr: domain.ErrUpstreamUnavailable.Error(),
		},
		{
			name: "panic",
			src: func() *srcmock.Client {
				c := srcmock.NewClient()
				c.SearchFunc = func(context.Context, string, domain.Language, string) (*domain.SubjectInfo, error) {
					panic("boom")
				}
				return c
			},
			wantErr: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newExecute(t, tt.src())
			job := f.seed(t, "Missing")

			dup, err := f.uc.Execute(context.Background(), job.JobID)
			if err != nil || dup {
				t.Fatalf("job failures must be recorded, not returned: dup=%v err=%v", dup, err)
			}

			got := f.load(t, job.JobID)
			if got.State != domain.StateFailed {
				t.Fatalf("expected FAILED, got %s", got.State)
			}
			if got.Progress != 0 {
				t.Errorf("expected progress reset to 0, got %d", got.Progress)
			}
			if got.Result != nil {
				t.Error("expected no result on failure")
			}
			if !strings.Contains(got.Error, tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, got.Error)
			}
		})
	}
}

func TestExecuteJob_DuplicateSkipped(t *testing.T) {
	f := newExecute(t, srcmock.NewDemoClient(5))
	job := f.seed(t, "Notes App")
	f.locks.AcquireLockFn = func(context.Context, uuid.UUID) (bool, error) { return false, nil }

	dup, err := f.uc.Execute(context.Background(), job.JobID)
	if err != nil || !dup {
		t.Fatalf("expected duplicate, got dup=%v err=%v", dup, err)
	}
	if n := len(f.repo.UpdateHistory()); n != 0 {
		t.Errorf("expected no updates for a duplicate, got %d", n)
	}
	if f.src.SearchCalls() != 0 {
		t.Error("expected no upstream calls for a duplicate")
	}
}

func TestExecuteJob_LockErrorIsReturned(t *testing.T) {
	f := newExecute(t, srcmock.NewDemoClient(5))
	job := f.seed(t, "Notes App")
	f.locks.AcquireLockFn = func(context.Context, uuid.UUID) (bool, error) {
		return false, errors.New("redis: connection refused")
	}

	if _, err := f.uc.Execute(context.Background(), job.JobID); err == nil {
		t.Fatal("expected lock failure to be returned")
	}
}

func TestExecuteJob_TerminalJobSkipped(t *testing.T) {
	f := newExecute(t, srcmock.NewDemoClient(5))
	job := f.seed(t, "Notes App")
	job.State = domain.StateCompleted
	_ = f.repo.Update(context.Background(), job)

	dup, err := f.uc.Execute(context.Background(), job.JobID)
	if err != nil || !dup {
		t.Fatalf("expected finished job to be skipped, got dup=%v err=%v", dup, err)
	}
	if f.src.SearchCalls() != 0 {
		t.Error("expected no upstream calls for a finished job")
	}
}

func TestExecuteJob_DeletedWhileRunning(t *testing.T) {
	var f *executeFixture
	src := srcmock.NewDemoClient(10)
	search := src.SearchFunc
	var jobID uuid.UUID
	src.SearchFunc = func(ctx context.Context, term string, lang domain.Language, region string) (*domain.SubjectInfo, error) {
		_ = f.repo.Delete(ctx, jobID)
		return search(ctx, term, lang, region)
	}
	f = newExecute(t, src)
	jobID = f.seed(t, "Notes App").JobID

	if _, err := f.uc.Execute(context.Background(), jobID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.repo.GetByID(context.Background(), jobID); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected deleted job to stay deleted, got %v", err)
	}
	for _, h := range f.repo.UpdateHistory() {
		if h.State == domain.StateCompleted {
			t.Error("expected no terminal write after deletion")
		}
	}
}

func TestExecuteJob_UnknownJob(t *testing.T) {
	f := newExecute(t, srcmock.NewDemoClient(5))
	dup, err := f.uc.Execute(context.Background(), uuid.New())
	if err != nil || dup {
		t.Fatalf("expected unknown job to be dropped quietly, got dup=%v err=%v", dup, err)
	}
}

// ---- Sweeper ----

func TestSweeper_RunDeletesExpired(t *testing.T) {
	repo := mockrepo.NewJobRepository()
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{48 * time.Hour, 25 * time.Hour, time.Hour} {
		_ = repo.Create(context.Background(), &domain.Job{JobID: uuid.New(), CreatedAt: now.Add(-age)})
	}

	s := NewSweeper(repo, DefaultRetention, time.Minute, zap.NewNop())
	s.now = func() time.Time { return now }

	n, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 expired jobs deleted, got %d", n)
	}
	if ids, _ := repo.ListIDs(context.Background()); len(ids) != 1 {
		t.Errorf("expected 1 job left, got %d", len(ids))
	}
}

func TestSweeper_TriggerIsThrottled(t *testing.T) {
	repo := mockrepo.NewJobRepository()
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	s := NewSweeper(repo, DefaultRetention, time.Minute, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Trigger()
	s.Wait()
	s.Trigger()
	s.Wait()
	if got := repo.SweepCount(); got != 1 {
		t.Fatalf("expected 1 sweep within the interval, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	s.Trigger()
	s.Wait()
	if got := repo.SweepCount(); got != 2 {
		t.Errorf("expected a second sweep after the interval, got %d", got)
	}
}
