package jobs

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicdesk/internal/session"
)

type countingRevalidator struct {
	calls atomic.Int32
}

func (c *countingRevalidator) Revalidate(context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestScheduler_RunsRevalidation(t *testing.T) {
	rv := &countingRevalidator{}
	s := NewScheduler(rv, "* * * * * *", zerolog.Nop())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return rv.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(&countingRevalidator{}, "every now and then", zerolog.Nop())
	assert.Error(t, s.Start())
}

func TestScheduler_DisabledWithoutSpec(t *testing.T) {
	rv := &countingRevalidator{}
	s := NewScheduler(rv, "", zerolog.Nop())
	require.NoError(t, s.Start())
	<-s.Stop().Done()
	assert.Zero(t, rv.calls.Load())
}

type failingRevalidator struct {
	err error
}

func (f failingRevalidator) Revalidate(context.Context) error {
	return f.err
}

func TestScheduler_RevalidateLogLevels(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level string
	}{
		{name: "expired session", err: fmt.Errorf("%w: token is expired", session.ErrSessionExpired), level: `"level":"warn"`},
		{name: "invalid token", err: session.ErrInvalidToken, level: `"level":"warn"`},
		{name: "superseded", err: session.ErrSuperseded, level: `"level":"debug"`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := NewScheduler(failingRevalidator{err: tt.err}, "", zerolog.New(&buf).Level(zerolog.DebugLevel))

			s.revalidate()

			assert.Contains(t, buf.String(), tt.level)
		})
	}
}
