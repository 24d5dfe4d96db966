// Package sched fires the giveaway check at fixed daily times.
package sched

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"lootbot/internal/config"
	"lootbot/pkg/logx"
)

// Scheduler wraps a cron runner with daily HH:MM entries in a configured
// timezone. There is no catch-up for missed fires: if the process was down
// at 09:00, the next fire is simply 19:00.
type Scheduler struct {
	log logx.Logger
	job func(ctx context.Context)

	mu    sync.Mutex
	times []string
	tz    string
	c     *cron.Cron
	ctx   context.Context
}

func New(times []string, tz string, job func(ctx context.Context), log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{log: log, job: job, times: times, tz: tz}
}

// Start registers the daily entries and begins firing. ctx is forwarded
// to every job invocation.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.ctx = ctx
	return s.startLocked()
}

func (s *Scheduler) startLocked() error {
	loc := s.location()
	c := cron.New(cron.WithLocation(loc))

	for _, t := range s.times {
		h, m, err := config.ParseHHMM(t)
		if err != nil {
			return err
		}
		spec := fmt.Sprintf("%d %d * * *", m, h)
		if _, err := c.AddFunc(spec, func() { s.job(s.ctx) }); err != nil {
			return err
		}
	}

	c.Start()
	s.c = c
	s.log.Info("scheduler started",
		logx.String("times", strings.Join(s.times, ",")), logx.String("tz", loc.String()))
	return nil
}

// Apply swaps the fire times and timezone; a running scheduler restarts
// with the new entries. Invalid input keeps the old schedule.
func (s *Scheduler) Apply(times []string, tz string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldTimes, oldTZ := s.times, s.tz
	if equalTimes(oldTimes, times) && strings.TrimSpace(oldTZ) == strings.TrimSpace(tz) {
		return nil
	}
	s.times, s.tz = times, tz

	if s.c == nil {
		return nil
	}
	<-s.c.Stop().Done()
	s.c = nil
	if err := s.startLocked(); err != nil {
		s.times, s.tz = oldTimes, oldTZ
		if rerr := s.startLocked(); rerr != nil {
			return rerr
		}
		return err
	}
	return nil
}

// Stop halts firing and waits for a running job to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) location() *time.Location {
	tz := strings.TrimSpace(s.tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

func equalTimes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}
