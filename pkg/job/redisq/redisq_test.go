package redisq

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobcore/pkg/event"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/schedule"
)

// offlineClient never dials until a command runs.
func offlineClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	c := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestKeys(t *testing.T) {
	t.Parallel()

	k := keys{prefix: "jobs"}
	assert.Equal(t, "jobs:job:abc", k.job("abc"))
	assert.Equal(t, "jobs:queue:payments:0", k.queue("payments", 0))
	assert.Equal(t, "jobs:queue:payments:-5", k.queue("payments", -5))
	assert.Equal(t, "jobs:bands", k.bands())
	assert.Equal(t, "jobs:idem:t_1:order:o_1", k.idem("t_1:order:o_1"))
	assert.Equal(t, "schedule:nightly:1700000000", fireKey("nightly", 1700000000))
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires client", func(t *testing.T) {
		t.Parallel()
		_, err := New(nil)
		require.ErrorIs(t, err, ErrClientRequired)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		p, err := New(offlineClient(t))
		require.NoError(t, err)
		assert.Equal(t, ProviderName, p.Name())
		assert.True(t, p.IsConfigured())
		assert.Equal(t, "jobcore", p.keys.prefix)
		assert.Empty(t, p.cron.Entries())
	})

	t.Run("registers schedules", func(t *testing.T) {
		t.Parallel()
		cat := &schedule.Catalog{Schedules: []schedule.Schedule{
			{Name: "digest", Event: "email.send", Cron: "0 8 * * *", Timezone: "Europe/Berlin", Payload: map[string]any{"tenantId": "t_1"}},
			{Name: "beat", Event: "email.send", Cron: "@hourly", Payload: map[string]any{"tenantId": "t_1"}},
		}}
		p, err := New(offlineClient(t), WithSchedules(cat), WithPrefix("x"))
		require.NoError(t, err)
		assert.Len(t, p.cron.Entries(), 2)
		assert.Equal(t, "x", p.keys.prefix)
	})

	t.Run("rejects bad schedules", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			s    schedule.Schedule
		}{
			{name: "cron", s: schedule.Schedule{Name: "a", Event: "email.send", Cron: "nope", Payload: map[string]any{"tenantId": "t"}}},
			{name: "tenant", s: schedule.Schedule{Name: "b", Event: "email.send", Cron: "@daily", Payload: map[string]any{}}},
			{name: "event", s: schedule.Schedule{Name: "c", Event: "report.unknown", Cron: "@daily", Payload: map[string]any{"tenantId": "t"}}},
		}
		for _, tt := range tests {
			_, err := New(offlineClient(t),
				WithCatalog(event.DefaultCatalog()),
				WithSchedules(&schedule.Catalog{Schedules: []schedule.Schedule{tt.s}}),
			)
			require.ErrorIs(t, err, ErrInvalidSchedule, tt.name)
		}
	})
}

func TestSend_ValidatesBeforeTouchingRedis(t *testing.T) {
	t.Parallel()

	p, err := New(offlineClient(t), WithCatalog(event.DefaultCatalog()))
	require.NoError(t, err)

	_, err = p.Send(t.Context(), event.OrderCreated, map[string]any{"orderId": "o_1"})
	require.ErrorIs(t, err, event.ErrMissingTenant)

	_, err = p.Send(t.Context(), "order.teleported", map[string]any{"tenantId": "t_1"})
	require.ErrorIs(t, err, event.ErrUnknownEvent)
}

func TestLifecycleErrors(t *testing.T) {
	t.Parallel()

	p, err := New(offlineClient(t))
	require.NoError(t, err)
	require.ErrorIs(t, p.Stop(t.Context()), job.ErrNotStarted)
	assert.False(t, p.HealthCheck(t.Context()).Healthy)
}

func TestDecodeJob(t *testing.T) {
	t.Parallel()

	want := job.Job{ID: "j1", Name: "order.created", TenantID: "t_1", Status: job.StatusRetrying, Attempts: 2, MaxAttempts: 3}
	data, err := json.Marshal(want)
	require.NoError(t, err)

	got, err := decodeJob(data)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, 2, got.Attempts)

	_, err = decodeJob([]byte("{"))
	require.ErrorIs(t, err, ErrCorruptJob)
}

func TestCronLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := cronLogger{l: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	l.Info("schedule", "entry", 1)
	l.Error(errors.New("boom"), "panic", "entry", 2)

	out := buf.String()
	assert.Contains(t, out, `"msg":"cron: schedule"`)
	assert.Contains(t, out, `"msg":"cron: panic"`)
	assert.Contains(t, out, `"error":"boom"`)
}
