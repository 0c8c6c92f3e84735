package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/paperdesk/paperdesk/internal/relations"
)

// Scheduler runs periodic full relation sweeps so edges converge even when
// write-time rebuilds are disabled or a background rebuild was lost.
type Scheduler struct {
	Builder *relations.Builder
	Cron    string
	Stop    chan struct{}
	Logger  *log.Logger

	lastSweep *time.Time
}

// Start begins the hourly due-check loop. The tick interval is the floor
// on sweep frequency: a cron spec denser than hourly still fires at most
// once per hour.
func (s *Scheduler) Start() {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	if !isDue(s.Cron, s.lastSweep) {
		return
	}
	now := time.Now()
	s.lastSweep = &now
	swept, err := s.Builder.RebuildAll(context.Background())
	if err != nil {
		s.Logger.Printf("scheduled relation sweep failed: %v", err)
		return
	}
	s.Logger.Printf("scheduled relation sweep done, %d memos", swept)
}

// isDue decides whether a sweep with cronSpec should run now given the last
// sweep time. Supports "@daily", "@hourly" and standard 5-field cron
// expressions; an invalid spec falls back to @daily. Evaluated once per
// tick, so specs denser than the tick interval are effectively clamped
// to it.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "":
		return false
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		return !expr.Next(*last).After(now)
	}
}
