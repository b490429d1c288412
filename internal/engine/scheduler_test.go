package engine_test

import (
	"sync"
	"testing"
	"time"

	"quizlive/internal/domain"
	"quizlive/internal/engine"
)

type schedulerRecorder struct {
	mu      sync.Mutex
	expired []int
	elapsed []int
}

func (r *schedulerRecorder) onExpire(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, index)
}

func (r *schedulerRecorder) onElapsed(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elapsed = append(r.elapsed, index)
}

func (r *schedulerRecorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.expired), len(r.elapsed)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestSchedulerRunsFullCycle(t *testing.T) {
	rec := &schedulerRecorder{}
	sched := engine.NewScheduler(30*time.Millisecond, rec.onExpire, rec.onElapsed)
	defer sched.Stop()

	sched.ArmCountdown(0, 20*time.Millisecond)

	waitFor(t, time.Second, func() bool {
		expired, elapsed := rec.counts()
		return expired == 1 && elapsed == 1
	})
	if rec.expired[0] != 0 || rec.elapsed[0] != 0 {
		t.Fatalf("expected callbacks for index 0, got expired=%v elapsed=%v", rec.expired, rec.elapsed)
	}
}

func TestSchedulerArmIsIdempotent(t *testing.T) {
	rec := &schedulerRecorder{}
	sched := engine.NewScheduler(20*time.Millisecond, rec.onExpire, rec.onElapsed)
	defer sched.Stop()

	sched.ArmCountdown(0, 40*time.Millisecond)
	// Re-arming the same index must not reset or duplicate the timer.
	sched.ArmCountdown(0, 40*time.Millisecond)
	sched.ArmCountdown(0, 40*time.Millisecond)

	waitFor(t, time.Second, func() bool {
		expired, elapsed := rec.counts()
		return expired == 1 && elapsed == 1
	})
	time.Sleep(60 * time.Millisecond)
	if expired, elapsed := rec.counts(); expired != 1 || elapsed != 1 {
		t.Fatalf("expected a single cycle, got expired=%d elapsed=%d", expired, elapsed)
	}
}

func TestSchedulerPreemptSkipsCountdownOnce(t *testing.T) {
	rec := &schedulerRecorder{}
	sched := engine.NewScheduler(30*time.Millisecond, rec.onExpire, rec.onElapsed)
	defer sched.Stop()

	sched.ArmCountdown(0, 10*time.Second)
	if !sched.Preempt(0) {
		t.Fatalf("expected preempt to cancel the running countdown")
	}
	// A second manual advance during the window must do nothing.
	if sched.Preempt(0) {
		t.Fatalf("preempt during window must be a no-op")
	}

	waitFor(t, time.Second, func() bool {
		expired, elapsed := rec.counts()
		return expired == 1 && elapsed == 1
	})
	if expired, elapsed := rec.counts(); expired != 1 || elapsed != 1 {
		t.Fatalf("double-fired: expired=%d elapsed=%d", expired, elapsed)
	}
}

func TestSchedulerPreemptWrongIndex(t *testing.T) {
	rec := &schedulerRecorder{}
	sched := engine.NewScheduler(20*time.Millisecond, rec.onExpire, rec.onElapsed)
	defer sched.Stop()

	sched.ArmCountdown(2, 10*time.Second)
	if sched.Preempt(1) {
		t.Fatalf("preempt for a different index must be a no-op")
	}
	sched.Stop()
	if expired, elapsed := rec.counts(); expired != 0 || elapsed != 0 {
		t.Fatalf("no callbacks expected, got expired=%d elapsed=%d", expired, elapsed)
	}
}

func TestSchedulerStopCancelsOutstandingTimer(t *testing.T) {
	rec := &schedulerRecorder{}
	sched := engine.NewScheduler(10*time.Millisecond, rec.onExpire, rec.onElapsed)

	sched.ArmCountdown(0, 15*time.Millisecond)
	sched.Stop()

	time.Sleep(60 * time.Millisecond)
	if expired, elapsed := rec.counts(); expired != 0 || elapsed != 0 {
		t.Fatalf("stopped scheduler fired: expired=%d elapsed=%d", expired, elapsed)
	}
}

func TestRemainingCountdownRecomputation(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	timeLimit := 30 * time.Second
	window := 5 * time.Second

	tests := []struct {
		name string
		sess domain.Session
		now  time.Time
		want time.Duration
	}{
		{
			name: "question 0 halfway",
			sess: domain.Session{Status: domain.StatusStarted, StartTime: start, CurrentQuestionIndex: 0},
			now:  start.Add(12 * time.Second),
			want: 18 * time.Second,
		},
		{
			name: "question 1 just armed",
			sess: domain.Session{Status: domain.StatusStarted, StartTime: start, CurrentQuestionIndex: 1},
			now:  start.Add(35 * time.Second),
			want: 30 * time.Second,
		},
		{
			name: "question already over",
			sess: domain.Session{Status: domain.StatusStarted, StartTime: start, CurrentQuestionIndex: 0},
			now:  start.Add(31 * time.Second),
			want: -time.Second,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.RemainingCountdown(tt.sess, timeLimit, window, tt.now)
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
