package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/metrics"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
)

// DefaultLockTTL bounds how long a crashed run can block the next one.
const DefaultLockTTL = 30 * time.Minute

// Task is one named entry point. The result is reported back to the caller.
type Task func(ctx context.Context) (any, error)

// RunRecord describes the latest run of a job.
type RunRecord struct {
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Result     any        `json:"result,omitempty"`
}

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusSkipped   = "skipped"
)

// Runner executes named tasks under a lock and keeps the last outcome of
// each.
type Runner struct {
	locker  Locker
	lockTTL time.Duration
	now     func() time.Time

	mu   sync.RWMutex
	last map[string]RunRecord
}

func NewRunner(locker Locker) *Runner {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Runner{
		locker:  locker,
		lockTTL: DefaultLockTTL,
		now:     time.Now,
		last:    make(map[string]RunRecord),
	}
}

// Run executes task as name. It returns ErrLocked without running when
// another run of the same job holds the lock.
func (r *Runner) Run(ctx context.Context, name string, task Task) (any, error) {
	release, err := r.locker.Acquire(ctx, name, r.lockTTL)
	if err != nil {
		if err == ErrLocked {
			logger.Warn("job skipped, already running", "job", name)
			r.record(RunRecord{Name: name, Status: RunStatusSkipped, StartedAt: r.now(), Error: err.Error()})
		}
		return nil, err
	}
	defer release()

	start := r.now()
	r.record(RunRecord{Name: name, Status: RunStatusRunning, StartedAt: start})
	logger.Info("job started", "job", name)

	result, err := task(ctx)
	finished := r.now()
	metrics.ObserveJob(name, err, finished.Sub(start))

	rec := RunRecord{Name: name, Status: RunStatusSucceeded, StartedAt: start, FinishedAt: &finished, Result: result}
	if err != nil {
		rec.Status = RunStatusFailed
		rec.Error = err.Error()
		logger.Error("job failed", "job", name, "elapsed", finished.Sub(start), "error", err)
	} else {
		logger.Info("job finished", "job", name, "elapsed", finished.Sub(start))
	}
	r.record(rec)
	return result, err
}

func (r *Runner) record(rec RunRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[rec.Name] = rec
}

// History returns the latest run of every job, by name.
func (r *Runner) History() []RunRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RunRecord, 0, len(r.last))
	for _, rec := range r.last {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
