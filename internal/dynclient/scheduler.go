package dynclient

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler drives repeated Client.RunOnce calls according to a
// cron-like spec, grounded in the robfig/cron/v3 dependency retrieved in
// the pack (sudo-Tiz-dns-tester-go manifest). Absent a schedule, the
// caller should just call RunOnce directly (spec.md §4.8, §6: "absent
// --schedule, the client runs one iteration and exits").
type Scheduler struct {
	client *Client
	sched  cron.Schedule
	log    *zap.SugaredLogger
}

// NewScheduler parses spec with the standard cron parser (minute-level
// resolution) and returns a Scheduler that computes the next fire time
// after each iteration completes, per the design note in spec.md §9.
func NewScheduler(client *Client, spec string, log *zap.SugaredLogger) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("dynclient: parse schedule %q: %w", spec, err)
	}
	return &Scheduler{client: client, sched: sched, log: log}, nil
}

// Run loops RunOnce against the computed fire times until ctx is
// canceled, which cancels both the in-flight iteration and the pending
// sleep, matching spec.md §9's scheduling design note.
func (s *Scheduler) Run(ctx context.Context) {
	now := time.Now()
	next := s.sched.Next(now)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			iterCtx, cancel := context.WithCancel(ctx)
			failed := s.client.RunOnce(iterCtx)
			cancel()
			if len(failed) > 0 {
				s.log.Warnw("dynclient: iteration completed with failures", "failed", failed)
			}
			next = s.sched.Next(time.Now())
		}
	}
}
