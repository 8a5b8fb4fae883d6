package cronjob

import (
	"context"
	"errors"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/mapsketch/mapsketch-backend/internal/cleanup/domain"
)

// Runner is the job the scheduler fires.
type Runner interface {
	Execute(ctx context.Context) (*domain.CleanupResult, error)
}

// Scheduler fires the cleanup run on a cron expression.
type Scheduler struct {
	runner Runner
	spec   string
	cron   *cron.Cron
}

// NewScheduler builds a scheduler; spec uses the six-field seconds format,
// e.g. "0 0 3 * * *" for 03:00 nightly.
func NewScheduler(runner Runner, spec string) *Scheduler {
	return &Scheduler{runner: runner, spec: spec}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(s.spec, func() {
		res, err := s.runner.Execute(context.Background())
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			log.Println("cleanup run skipped: another run is active")
		case err != nil:
			log.Printf("cleanup run failed: %v", err)
		default:
			log.Printf("cleanup run done: record=%d canvases=%d errors=%d",
				res.DeletionRecordID, res.CanvasesProcessed, len(res.Errors))
		}
	})
	if err != nil {
		return err
	}

	log.Printf("cleanup scheduler started (cron %q)", s.spec)
	c.Start()
	s.cron = c
	return nil
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
