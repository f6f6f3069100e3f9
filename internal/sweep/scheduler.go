// Package sweep contains the periodic passes that keep appointment state
// consistent with wall-clock time, and the scheduler that drives them.
package sweep

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"
)

// A Task is one named pass. Run is invoked with a bounded context; it must
// be safe to interrupt mid-scan, since an unprocessed row is simply picked
// up on the next interval.
type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Scheduler runs named periodic tasks plus run-once startup tasks. Each
// periodic task gets its own goroutine and ticker; a failing or panicking
// invocation is logged and contained so the timer itself never stops.
type Scheduler struct {
	startup  []Task
	periodic []Task
	timeout  time.Duration
}

func NewScheduler(taskTimeout time.Duration) *Scheduler {
	if taskTimeout <= 0 {
		taskTimeout = 30 * time.Second
	}
	return &Scheduler{timeout: taskTimeout}
}

// AddStartup registers a task run once, before any periodic task starts.
func (s *Scheduler) AddStartup(name string, fn func(ctx context.Context) error) {
	s.startup = append(s.startup, Task{Name: name, Run: fn})
}

func (s *Scheduler) Add(name string, every time.Duration, fn func(ctx context.Context) error) {
	s.periodic = append(s.periodic, Task{Name: name, Every: every, Run: fn})
}

// Run blocks until ctx is cancelled. Periodic tasks start with a small
// random delay so their ticks do not all align on the same instant.
func (s *Scheduler) Run(ctx context.Context) {
	for _, t := range s.startup {
		s.runOnce(ctx, t)
	}

	var wg sync.WaitGroup
	for _, t := range s.periodic {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			s.runPeriodic(ctx, t)
		}(t)
	}
	wg.Wait()
}

func (s *Scheduler) runPeriodic(ctx context.Context, t Task) {
	if d := int64(t.Every / 10); d > 0 {
		jitter := time.Duration(rand.Int63n(d))
		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter):
		}
	}

	ticker := time.NewTicker(t.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("task=%s stopping", t.Name)
			return
		case <-ticker.C:
			s.runOnce(ctx, t)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, t Task) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("task=%s panic: %v", t.Name, r)
		}
	}()

	start := time.Now()
	if err := t.Run(runCtx); err != nil {
		log.Printf("task=%s error: %v", t.Name, err)
		return
	}
	log.Printf("task=%s complete in %s", t.Name, time.Since(start))
}
