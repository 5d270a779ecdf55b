package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	reminderJobTimeout = 1 * time.Minute
	sweepJobTimeout    = 5 * time.Minute
)

// ReminderProcessor fires the bill reminders due at now.
type ReminderProcessor interface {
	ProcessDueReminders(ctx context.Context, now time.Time) (int, error)
}

// Sweeper moves next-cycle bills that came due back to the current cycle.
type Sweeper interface {
	SweepAll(ctx context.Context) (int, error)
}

type BillScheduler struct {
	cronEngine            *cron.Cron
	reminders             ReminderProcessor
	sweeper               Sweeper
	logger                *logrus.Entry
	loc                   *time.Location
	cronSpecReminderCheck string
	cronSpecSweep         string
	now                   func() time.Time
}

func NewBillScheduler(
	reminders ReminderProcessor,
	sweeper Sweeper,
	logger *logrus.Entry,
	loc *time.Location,
	cronSpecReminderCheck string, // e.g. "* * * * *" (every minute)
	cronSpecSweep string, // e.g. "*/15 * * * *"
) *BillScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &BillScheduler{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		reminders:             reminders,
		sweeper:               sweeper,
		logger:                logger,
		loc:                   loc,
		cronSpecReminderCheck: cronSpecReminderCheck,
		cronSpecSweep:         cronSpecSweep,
		now:                   time.Now,
	}
}

// Start registers both jobs and starts the cron engine.
func (s *BillScheduler) Start() error {
	s.logger.Info("Starting bill scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpecReminderCheck, func() {
		s.RunReminderCheck(context.Background())
	}); err != nil {
		return fmt.Errorf("could not add reminder cron job %q: %w", s.cronSpecReminderCheck, err)
	}

	if _, err := s.cronEngine.AddFunc(s.cronSpecSweep, func() {
		s.RunSweep(context.Background())
	}); err != nil {
		return fmt.Errorf("could not add sweep cron job %q: %w", s.cronSpecSweep, err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"reminder_spec": s.cronSpecReminderCheck,
		"sweep_spec":    s.cronSpecSweep,
		"location":      s.loc.String(),
	}).Info("Bill scheduler started with jobs.")
	return nil
}

// RunReminderCheck runs one reminder pass. It returns the number of reminders fired.
func (s *BillScheduler) RunReminderCheck(parent context.Context) int {
	ctx, cancel := context.WithTimeout(parent, reminderJobTimeout)
	defer cancel()

	// Truncate so a tick that starts a little late still covers its own minute.
	now := s.now().In(s.loc).Truncate(time.Minute)
	fired, err := s.reminders.ProcessDueReminders(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("Error during reminder processing")
	}
	if fired > 0 {
		s.logger.WithField("fired", fired).Info("Bill reminders sent")
	}
	return fired
}

// RunSweep runs one demotion sweep. It returns the number of bills moved.
func (s *BillScheduler) RunSweep(parent context.Context) int {
	ctx, cancel := context.WithTimeout(parent, sweepJobTimeout)
	defer cancel()

	moved, err := s.sweeper.SweepAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during bill sweep")
	}
	if moved > 0 {
		s.logger.WithField("moved", moved).Info("Bills moved back to the current cycle")
	}
	return moved
}

func (s *BillScheduler) Stop() {
	s.logger.Info("Stopping bill scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Bill scheduler gracefully stopped.")
}
