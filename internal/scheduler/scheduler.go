// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultJobTimeout = 30 * time.Minute

// Job is a named unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler manages scheduled jobs. Specs use six fields (with seconds).
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration

	mu      sync.Mutex
	jobs    map[string]Job
	running bool
}

// New creates a scheduler. Each run gets a context bounded by timeout; zero
// means 30 minutes.
func New(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	logger := cron.VerbosePrintfLogger(log.Default())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		timeout: timeout,
		jobs:    make(map[string]Job),
	}
}

// AddJob registers job under spec.
func (s *Scheduler) AddJob(spec string, job Job) error {
	name := job.Name()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	_, err := s.cron.AddFunc(spec, func() {
		if err := s.run(job); err != nil {
			log.Printf("scheduler: job %s: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	s.jobs[name] = job
	return nil
}

func (s *Scheduler) run(job Job) error {
	log.Printf("scheduler: starting %s", job.Name())
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := job.Run(ctx); err != nil {
		return err
	}
	log.Printf("scheduler: completed %s in %s", job.Name(), time.Since(start).Round(time.Millisecond))
	return nil
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	log.Println("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	log.Println("scheduler stopped")
}

// RunJobNow runs a registered job immediately, outside its schedule.
func (s *Scheduler) RunJobNow(name string) error {
	s.mu.Lock()
	job, exists := s.jobs[name]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("job %s not registered", name)
	}
	return s.run(job)
}
