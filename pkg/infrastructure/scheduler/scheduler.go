package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
)

type PaymentReminder interface {
	RemindPendingPayments(ctx context.Context, olderThan time.Duration) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New(), timeout: time.Minute}
}

// AddPaymentReminder runs the reminder on schedule for card orders pending longer than after.
func (s *Scheduler) AddPaymentReminder(schedule string, reminder PaymentReminder, after time.Duration) error {
	err := s.cron.AddFunc(schedule, func() {
		s.remind(reminder, after)
	})
	return errors.Wrapf(err, "schedule payment reminder %q", schedule)
}

func (s *Scheduler) remind(reminder PaymentReminder, after time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	sent, err := reminder.RemindPendingPayments(ctx, after)
	if err != nil {
		log.WithError(err).Error("payment reminder job failed")
		return
	}
	log.WithFields(log.Fields{"reminded": sent, "duration": time.Since(start)}).Info("payment reminder job finished")
}

func (s *Scheduler) Start() { s.cron.Start() }

func (s *Scheduler) Stop() { s.cron.Stop() }
