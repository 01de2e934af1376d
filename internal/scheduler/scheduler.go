// Package scheduler runs the periodic overdue sweep.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/goatkit/reqflow/internal/notifications"
	"github.com/goatkit/reqflow/internal/repository"
)

// Scheduler owns the cron runner and its jobs.
type Scheduler struct {
	cron     *cron.Cron
	requests *repository.RequestRepository
	notifier *notifications.Notifier
}

// New creates a scheduler with the overdue sweep registered under spec.
// An empty spec disables the sweep.
func New(spec string, requests *repository.RequestRepository, notifier *notifications.Notifier) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		requests: requests,
		notifier: notifier,
	}
	if spec != "" {
		if _, err := s.cron.AddFunc(spec, s.sweepOverdue); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the runner and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// sweepOverdue notifies assignees of pending requests past their due date.
// Each request is flagged after its notification so the sweep fires once per
// request, not once per run.
func (s *Scheduler) sweepOverdue() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	overdue, err := s.requests.ListOverdueUnnotified(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("scheduler: overdue sweep failed: %v", err)
		return
	}
	notified := 0
	for i := range overdue {
		req := &overdue[i]
		if req.AssignedTo == nil {
			// Nobody to tell yet. Leave the flag unset so the sweep picks the
			// request up again once it has an assignee.
			continue
		}
		s.notifier.RequestOverdue(ctx, req)
		if err := s.requests.MarkOverdueNotified(ctx, req.ID); err != nil {
			log.Printf("scheduler: flagging %s failed: %v", req.ID, err)
		}
		notified++
	}
	if notified > 0 {
		log.Printf("scheduler: notified %d overdue request(s)", notified)
	}
}
