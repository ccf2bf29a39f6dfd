// Package jobs runs the client's periodic background work.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"clinicdesk/internal/session"
)

// Revalidator re-checks the live session against its stored token.
type Revalidator interface {
	Revalidate(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	session Revalidator
	spec    string
	timeout time.Duration
	log     zerolog.Logger
}

func NewScheduler(sess Revalidator, spec string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		session: sess,
		spec:    spec,
		timeout: 10 * time.Second,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if s.session == nil || s.spec == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.revalidate); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) revalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.session.Revalidate(ctx)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSuperseded):
		s.log.Debug().Msg("revalidation overtaken by sign-in change")
	default:
		s.log.Warn().Err(err).Msg("session revalidation ended the session")
	}
}
