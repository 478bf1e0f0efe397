// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Task is one periodic unit of work. Exactly one of Interval and Cron is set.
type Task struct {
	Name     string
	Interval time.Duration
	Cron     string
	Run      func(ctx context.Context) error
}

// Scheduler runs tasks one at a time: the bot processes a single comment or
// command at any moment.
type Scheduler struct {
	sched  gocron.Scheduler
	logger *log.Logger
}

func NewScheduler(logger *log.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLimitConcurrentJobs(1, gocron.LimitModeWait),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{sched: sched, logger: logger}, nil
}

// Add registers t. ctx is handed to every run and should be cancelled on shutdown.
func (s *Scheduler) Add(ctx context.Context, t Task) error {
	var def gocron.JobDefinition
	switch {
	case t.Cron != "":
		def = gocron.CronJob(t.Cron, false)
	case t.Interval > 0:
		def = gocron.DurationJob(t.Interval)
	default:
		return fmt.Errorf("task %s has no schedule", t.Name)
	}

	_, err := s.sched.NewJob(
		def,
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			start := time.Now()
			if err := t.Run(ctx); err != nil {
				s.logger.Printf("[Scheduler] ❌ %s failed: %v", t.Name, err)
				return
			}
			s.logger.Printf("[Scheduler] %s done in %s", t.Name, time.Since(start).Round(time.Millisecond))
		}),
		gocron.WithName(t.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", t.Name, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
