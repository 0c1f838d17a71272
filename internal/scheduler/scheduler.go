// Package scheduler runs the periodic ledger jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"campus-coin-ledger/internal/core/ports"
	"campus-coin-ledger/pkg/apperror"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const jobTimeout = 5 * time.Minute

// Scheduler manages cron job scheduling.
type Scheduler struct {
	cron   *cron.Cron
	ledger ports.LedgerService
	amount decimal.Decimal
	log    zerolog.Logger
}

// New creates a scheduler that credits every instructor with amount on spec.
// spec uses six fields (seconds first), evaluated in UTC.
func New(ledger ports.LedgerService, spec string, amount decimal.Decimal, log zerolog.Logger) (*Scheduler, error) {
	log = log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &Scheduler{
		cron:   c,
		ledger: ledger,
		amount: amount,
		log:    log,
	}

	if _, err := s.cron.AddFunc(spec, s.RunSemesterBonus); err != nil {
		return nil, fmt.Errorf("register semester bonus job %q: %w", spec, err)
	}
	return s, nil
}

// RunSemesterBonus performs one bulk instructor top-up.
func (s *Scheduler) RunSemesterBonus() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result, err := s.ledger.TopUpAllInstructors(ctx, s.amount)
	if err != nil {
		evt := s.log.Error().Err(err)
		if apperror.Is(err, apperror.CodeInvalidAmount) {
			evt = evt.Str("amount", s.amount.String())
		}
		evt.Msg("semester bonus failed")
		return
	}
	s.log.Info().
		Int64("accounts_credited", result.AccountsCredited).
		Str("amount", result.Amount.StringFixed(2)).
		Msg("semester bonus applied")
}

// Next reports when the semester bonus runs next after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(t)
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Time("next_run", s.Next(time.Now())).Msg("cron scheduler started")
}

// Stop waits for a running job and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("cron scheduler stopped")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
