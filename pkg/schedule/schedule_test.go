package schedule_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobcore/pkg/event"
	"github.com/dmitrymomot/jobcore/pkg/schedule"
)

const catalogYAML = `
schedules:
  - name: nightly-payouts
    event: payout.requested
    cron: "0 2 * * *"
    timezone: America/New_York
    payload:
      tenantId: system
  - name: heartbeat
    event: system.heartbeat
    cron: "@every 1m"
    payload:
      tenantId: system
`

func TestLoadAndValidate(t *testing.T) {
	t.Parallel()

	c, err := schedule.Load(strings.NewReader(catalogYAML))
	require.NoError(t, err)
	require.Len(t, c.Schedules, 2)
	require.NoError(t, c.Validate(event.DefaultCatalog()))

	s, ok := c.Get("nightly-payouts")
	require.True(t, ok)
	assert.Equal(t, "CRON_TZ=America/New_York 0 2 * * *", s.Spec())

	sched, err := s.Parse()
	require.NoError(t, err)
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	from := time.Date(2024, 3, 1, 12, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 2, 2, 0, 0, 0, loc), sched.Next(from).In(loc))

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLoad_Empty(t *testing.T) {
	t.Parallel()

	c, err := schedule.Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, c.Schedules)
}

func TestLoad_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := schedule.Load(strings.NewReader("schedules:\n  - name: x\n    every: 5m\n"))
	require.Error(t, err)
}

func TestSchedule_Validate(t *testing.T) {
	t.Parallel()

	base := schedule.Schedule{
		Name:    "s",
		Event:   "email.send",
		Cron:    "*/5 * * * *",
		Payload: map[string]any{"tenantId": "t_1"},
	}

	tests := []struct {
		name   string
		mutate func(*schedule.Schedule)
		ok     bool
	}{
		{"valid", func(*schedule.Schedule) {}, true},
		{"missing name", func(s *schedule.Schedule) { s.Name = "" }, false},
		{"bad event", func(s *schedule.Schedule) { s.Event = "Email" }, false},
		{"bad cron", func(s *schedule.Schedule) { s.Cron = "61 * * * *" }, false},
		{"six fields", func(s *schedule.Schedule) { s.Cron = "0 0 * * * *" }, false},
		{"bad timezone", func(s *schedule.Schedule) { s.Timezone = "Mars/Olympus" }, false},
		{"inline tz prefix", func(s *schedule.Schedule) { s.Cron = "CRON_TZ=UTC 0 * * * *" }, false},
		{"missing tenant", func(s *schedule.Schedule) { s.Payload = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := base
			s.Payload = map[string]any{"tenantId": "t_1"}
			tt.mutate(&s)
			err := s.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, schedule.ErrInvalidSchedule)
		})
	}
}

func TestCatalog_Validate(t *testing.T) {
	t.Parallel()

	c := &schedule.Catalog{Schedules: []schedule.Schedule{
		{Name: "a", Event: "email.send", Cron: "0 * * * *", Payload: map[string]any{"tenantId": "t"}},
		{Name: "a", Event: "email.send", Cron: "0 * * * *", Payload: map[string]any{"tenantId": "t"}},
		{Name: "b", Event: "report.unknown", Cron: "0 * * * *", Payload: map[string]any{"tenantId": "t"}},
	}}

	err := c.Validate(event.DefaultCatalog())
	require.ErrorIs(t, err, schedule.ErrDuplicateSchedule)
	require.ErrorIs(t, err, event.ErrUnknownEvent)

	require.ErrorIs(t, c.Validate(nil), schedule.ErrDuplicateSchedule)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "schedules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	c, err := schedule.LoadFile(path, event.DefaultCatalog())
	require.NoError(t, err)
	assert.Len(t, c.Schedules, 2)

	_, err = schedule.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}
