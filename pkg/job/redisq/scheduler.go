package redisq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/jobcore/pkg/event"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/schedule"
)

const fireTimeout = 10 * time.Second

func (p *Provider) newCron() (*cron.Cron, error) {
	log := cronLogger{l: p.opts.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log)),
	)
	if p.opts.schedules == nil {
		return c, nil
	}

	for _, s := range p.opts.schedules.Schedules {
		sched, err := s.Parse()
		if err != nil {
			return nil, errors.Join(ErrInvalidSchedule, err)
		}
		if err := p.opts.catalog.Check(s.Event); err != nil {
			return nil, errors.Join(ErrInvalidSchedule, fmt.Errorf("%s: %w", s.Name, err))
		}
		if _, err := event.ValidateTenantID(s.Event, s.Payload); err != nil {
			return nil, errors.Join(ErrInvalidSchedule, fmt.Errorf("%s: %w", s.Name, err))
		}
		c.Schedule(sched, p.fire(s))
	}
	return c, nil
}

// fire sends one job for s. Every process runs the same cron; the fire
// time in the idempotency key lets only the first send through.
func (p *Provider) fire(s schedule.Schedule) cron.Job {
	return cron.FuncJob(func() {
		at := p.now().Truncate(time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
		defer cancel()

		res, err := p.Send(ctx, s.Event, s.Payload,
			job.WithIdempotencyKey(fireKey(s.Name, at.Unix())),
			job.WithTags("schedule", s.Name),
		)
		if err != nil {
			p.opts.logger.Error("failed to send scheduled job",
				slog.String("schedule", s.Name),
				slog.String("event", s.Event),
				slog.Any("error", err),
			)
			return
		}
		if !res.Duplicate {
			p.opts.logger.Debug("scheduled job sent",
				slog.String("schedule", s.Name),
				slog.String("job_id", res.ID),
			)
		}
	})
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, slog.Any("error", err))...)
}
