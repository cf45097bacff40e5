package jobs

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewManager(WithClock(clock.Now)), clock
}

func mustCreate(t *testing.T, m *Manager, id string) {
	t.Helper()
	if _, err := m.Create(id, id+".pdf", "/uploads/"+id+".pdf"); err != nil {
		t.Fatalf("Create(%s) error = %v", id, err)
	}
}

// TestProgressPercentage verifies start(25) then update_progress(10) reports 40%.
func TestProgressPercentage(t *testing.T) {
	m, _ := newTestManager(t)
	mustCreate(t, m, "job-1")
	if err := m.Start("job-1", 25); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	m.UpdateProgress("job-1", 10)

	p, ok := m.Progress("job-1")
	if !ok {
		t.Fatalf("Progress() ok = false")
	}
	if p.Percent != 40.0 {
		t.Fatalf("Percent = %v, want 40.0", p.Percent)
	}
	if p.Message != "Processando página 10/25" {
		t.Fatalf("Message = %q", p.Message)
	}
}

// TestProgressRoundsToTwoDecimals verifies fractional percentages are rounded.
func TestProgressRoundsToTwoDecimals(t *testing.T) {
	m, _ := newTestManager(t)
	mustCreate(t, m, "job-1")
	_ = m.Start("job-1", 3)
	m.UpdateProgress("job-1", 1)
	p, _ := m.Progress("job-1")
	if p.Percent != 33.33 {
		t.Fatalf("Percent = %v, want 33.33", p.Percent)
	}
}

// TestUpdateProgressMonotonic verifies regressions are ignored and values clamp to the total.
func TestUpdateProgressMonotonic(t *testing.T) {
	m, _ := newTestManager(t)
	mustCreate(t, m, "job-1")
	_ = m.Start("job-1", 20)

	m.UpdateProgress("job-1", 10)
	m.UpdateProgress("job-1", 5)
	if j, _ := m.Get("job-1"); j.ProcessedPages != 10 {
		t.Fatalf("ProcessedPages = %d after regression, want 10", j.ProcessedPages)
	}
	m.UpdateProgress("job-1", 50)
	if j, _ := m.Get("job-1"); j.ProcessedPages != 20 {
		t.Fatalf("ProcessedPages = %d, want clamp to 20", j.ProcessedPages)
	}
	m.UpdateProgress("missing", 3) // no panic, no effect
}

// TestStartRequiresPending verifies start is rejected outside PENDING.
func TestStartRequiresPending(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Start("missing", 1); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("Start(missing) error = %v, want ErrNotFound", err)
	}
	mustCreate(t, m, "job-1")
	if err := m.Start("job-1", 5); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Start("job-1", 5); !errors.Is(err, common.ErrInvalidState) {
		t.Fatalf("second Start() error = %v, want ErrInvalidState", err)
	}
}

// TestStartRejectsNonPositiveTotal verifies a job cannot start without a page
// count, so processed pages never exceed the total.
func TestStartRejectsNonPositiveTotal(t *testing.T) {
	m, _ := newTestManager(t)
	mustCreate(t, m, "job-1")
	for _, total := range []int{0, -3} {
		if err := m.Start("job-1", total); !errors.Is(err, common.ErrInvalidInput) {
			t.Fatalf("Start(%d) error = %v, want ErrInvalidInput", total, err)
		}
	}
	if st, _ := m.Status("job-1"); st != constants.JobStatusPending {
		t.Fatalf("Status = %s after rejected start, want PENDING", st)
	}
	m.UpdateProgress("job-1", 5)
	if j, _ := m.Get("job-1"); j.ProcessedPages != 0 {
		t.Fatalf("ProcessedPages = %d on a pending job, want 0", j.ProcessedPages)
	}

	if err := m.Start("job-1", 2); err != nil {
		t.Fatalf("Start(2) error = %v", err)
	}
	m.UpdateProgress("job-1", 5)
	p, _ := m.Progress("job-1")
	if p.ProcessedPages != 2 || p.Message != "Processando página 2/2" {
		t.Fatalf("Progress() = %+v, want clamp to 2/2", p)
	}
}

func TestCreateDuplicate(t *testing.T) {
	m, _ := newTestManager(t)
	mustCreate(t, m, "job-1")
	if _, err := m.Create("job-1", "x.pdf", "/x"); !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("Create(dup) error = %v, want ErrAlreadyExists", err)
	}
}

// TestCancelOnDoneRejected verifies DONE jobs cannot be cancelled.
func TestCancelOnDoneRejected(t *testing.T) {
	m, _ := newTestManager(t)
	mustCreate(t, m, "job-1")
	_ = m.Start("job-1", 1)
	if err := m.Complete("job-1", entity.JobResult{JobID: "job-1"}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := m.Cancel("job-1"); !errors.Is(err, common.ErrInvalidState) {
		t.Fatalf("Cancel(done) error = %v, want ErrInvalidState", err)
	}
	if j, _ := m.Get("job-1"); j.Status != constants.JobStatusDone {
		t.Fatalf("Status = %s, want DONE", j.Status)
	}
}

// TestCancelPendingIdempotent verifies cancel succeeds on PENDING and repeats harmlessly.
func TestCancelPendingIdempotent(t *testing.T) {
	m, clock := newTestManager(t)
	mustCreate(t, m, "job-1")
	if err := m.Cancel("job-1"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	first, _ := m.Get("job-1")
	clock.Advance(time.Minute)
	if err := m.Cancel("job-1"); err != nil {
		t.Fatalf("second Cancel() error = %v", err)
	}
	second, _ := m.Get("job-1")
	if second.Status != constants.JobStatusCancelled {
		t.Fatalf("Status = %s, want CANCELLED", second.Status)
	}
	if !first.CompletedAt.Equal(*second.CompletedAt) {
		t.Fatalf("repeated cancel changed CompletedAt")
	}
	if p, _ := m.Progress("job-1"); p.Message != "Processamento cancelado" {
		t.Fatalf("Message = %q", p.Message)
	}
	if err := m.Cancel("missing"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("Cancel(missing) error = %v, want ErrNotFound", err)
	}
}

// TestCancelledWinsOverLateCompletion verifies a worker cannot overwrite a cancellation.
func TestCancelledWinsOverLateCompletion(t *testing.T) {
	m, _ := newTestManager(t)
	mustCreate(t, m, "job-1")
	_ = m.Start("job-1", 4)
	if err := m.Cancel("job-1"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	err := m.Complete("job-1", entity.JobResult{JobID: "job-1"})
	if !errors.Is(err, common.ErrCancelled) {
		t.Fatalf("Complete(cancelled) error = %v, want ErrCancelled", err)
	}
	if err := m.Fail("job-1", "late"); !errors.Is(err, common.ErrCancelled) {
		t.Fatalf("Fail(cancelled) error = %v, want ErrCancelled", err)
	}
	j, _ := m.Get("job-1")
	if j.Status != constants.JobStatusCancelled || j.ErrorMessage != "" {
		t.Fatalf("job = %+v, want untouched CANCELLED", j)
	}
	if _, ok := m.Result("job-1"); ok {
		t.Fatalf("Result() ok = true for cancelled job")
	}
}

// TestTerminalStatesAreFinal verifies no transition leaves DONE or ERROR.
func TestTerminalStatesAreFinal(t *testing.T) {
	m, _ := newTestManager(t)
	mustCreate(t, m, "done")
	_ = m.Start("done", 2)
	_ = m.Complete("done", entity.JobResult{JobID: "done"})
	mustCreate(t, m, "err")
	_ = m.Fail("err", "boom")

	for _, id := range []string{"done", "err"} {
		before, _ := m.Get(id)
		if err := m.Complete(id, entity.JobResult{}); !errors.Is(err, common.ErrInvalidState) {
			t.Fatalf("Complete(%s) error = %v", id, err)
		}
		if err := m.Fail(id, "again"); !errors.Is(err, common.ErrInvalidState) {
			t.Fatalf("Fail(%s) error = %v", id, err)
		}
		if err := m.Start(id, 9); !errors.Is(err, common.ErrInvalidState) {
			t.Fatalf("Start(%s) error = %v", id, err)
		}
		m.UpdateProgress(id, 1)
		after, _ := m.Get(id)
		if before.Status != after.Status || before.ProcessedPages != after.ProcessedPages || before.ErrorMessage != after.ErrorMessage {
			t.Fatalf("job %s mutated: %+v -> %+v", id, before, after)
		}
	}
	if p, _ := m.Progress("err"); p.Message != "Erro: boom" {
		t.Fatalf("Message = %q", p.Message)
	}
	if p, _ := m.Progress("done"); p.Percent != 100 {
		t.Fatalf("done Percent = %v, want 100", p.Percent)
	}
}

// TestSweepRemovesOnlyOldTerminalJobs verifies sweep never touches running or pending jobs.
func TestSweepRemovesOnlyOldTerminalJobs(t *testing.T) {
	m, clock := newTestManager(t)
	for _, id := range []string{"pending", "running", "done", "failed", "cancelled", "fresh"} {
		mustCreate(t, m, id)
	}
	_ = m.Start("running", 10)
	_ = m.Start("done", 1)
	_ = m.Complete("done", entity.JobResult{JobID: "done"})
	_ = m.Fail("failed", "x")
	_ = m.Cancel("cancelled")

	clock.Advance(2 * time.Hour)
	_ = m.Fail("fresh", "y")

	removed := m.Sweep(time.Hour)
	if len(removed) != 3 {
		t.Fatalf("Sweep() removed %d jobs, want 3: %+v", len(removed), removed)
	}
	for _, id := range []string{"pending", "running", "fresh"} {
		if _, ok := m.Get(id); !ok {
			t.Fatalf("job %s was swept", id)
		}
	}
	for _, id := range []string{"done", "failed", "cancelled"} {
		if _, ok := m.Get(id); ok {
			t.Fatalf("job %s survived sweep", id)
		}
	}
	if _, ok := m.Result("done"); ok {
		t.Fatalf("result of swept job still present")
	}

	clock.Advance(100 * time.Hour)
	removed = m.Sweep(time.Hour)
	if len(removed) != 1 || removed[0].ID != "fresh" {
		t.Fatalf("second Sweep() = %+v, want only fresh", removed)
	}
}

func TestListNewestFirst(t *testing.T) {
	m, clock := newTestManager(t)
	for i := 0; i < 3; i++ {
		mustCreate(t, m, fmt.Sprintf("job-%d", i))
		clock.Advance(time.Second)
	}
	_ = m.Cancel("job-1")

	all := m.List(nil)
	if len(all) != 3 || all[0].ID != "job-2" || all[2].ID != "job-0" {
		t.Fatalf("List() order = %v", ids(all))
	}
	st := constants.JobStatusCancelled
	if got := m.List(&st); len(got) != 1 || got[0].ID != "job-1" {
		t.Fatalf("List(CANCELLED) = %v", ids(got))
	}
}

func TestTerminalHook(t *testing.T) {
	var got []constants.JobStatus
	m := NewManager(WithTerminalHook(func(j entity.Job, _ *entity.JobResult) {
		got = append(got, j.Status)
	}))
	mustCreate(t, m, "a")
	mustCreate(t, m, "b")
	mustCreate(t, m, "c")
	_ = m.Start("a", 1)
	_ = m.Complete("a", entity.JobResult{})
	_ = m.Fail("b", "x")
	_ = m.Cancel("c")
	_ = m.Cancel("c")

	want := []constants.JobStatus{constants.JobStatusDone, constants.JobStatusError, constants.JobStatusCancelled}
	if len(got) != len(want) {
		t.Fatalf("hook calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hook calls = %v, want %v", got, want)
		}
	}
}

func TestApplyEvents(t *testing.T) {
	m, _ := newTestManager(t)
	mustCreate(t, m, "job-1")
	steps := []Event{
		{Kind: EventStarted, JobID: "job-1", TotalPages: 4},
		{Kind: EventProgress, JobID: "job-1", ProcessedPages: 2},
		{Kind: EventCompleted, JobID: "job-1", Result: &entity.JobResult{JobID: "job-1", RecordCount: 3}},
	}
	for _, ev := range steps {
		if err := m.Apply(ev); err != nil {
			t.Fatalf("Apply(%s) error = %v", ev.Kind, err)
		}
	}
	r, ok := m.Result("job-1")
	if !ok || r.RecordCount != 3 {
		t.Fatalf("Result() = %+v, %v", r, ok)
	}
	if err := m.Apply(Event{Kind: EventCompleted, JobID: "job-1"}); err == nil {
		t.Fatalf("Apply(completed without result) error = nil")
	}
	if err := m.Apply(Event{Kind: "bogus"}); err == nil {
		t.Fatalf("Apply(bogus) error = nil")
	}
}

// TestConcurrentReadersAndWriter exercises the lock under the race detector.
func TestConcurrentReadersAndWriter(t *testing.T) {
	m := NewManager()
	mustCreate(t, m, "job-1")
	_ = m.Start("job-1", 100)

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for i := 0; i < 200; i++ {
				p, _ := m.Progress("job-1")
				if p.ProcessedPages < last {
					t.Errorf("progress went backwards: %d < %d", p.ProcessedPages, last)
					return
				}
				last = p.ProcessedPages
			}
		}()
	}
	for i := 1; i <= 100; i++ {
		m.UpdateProgress("job-1", i)
	}
	wg.Wait()
}

func ids(js []entity.Job) []string {
	out := make([]string, len(js))
	for i, j := range js {
		out[i] = j.ID
	}
	return out
}
