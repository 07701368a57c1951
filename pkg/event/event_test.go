package event_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/event"
)

func TestValidateTenantID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload any
		want    string
		wantErr bool
	}{
		{"map with tenant", map[string]any{"tenantId": "t_1", "orderId": "o_1"}, "t_1", false},
		{"map without tenant", map[string]any{"orderId": "o_1"}, "", true},
		{"map with empty tenant", map[string]any{"tenantId": "  "}, "", true},
		{"map with numeric tenant", map[string]any{"tenantId": 42}, "", true},
		{"typed payload", event.OrderPayload{Tenant: event.Tenant{ID: "t_2"}, OrderID: "o_1"}, "t_2", false},
		{"typed payload pointer", &event.PayoutPayload{Tenant: event.Tenant{ID: "t_3"}}, "t_3", false},
		{"typed payload empty tenant", event.OrderPayload{OrderID: "o_1"}, "", true},
		{"raw json", json.RawMessage(`{"tenantId":"t_4"}`), "t_4", false},
		{"bytes", []byte(`{"tenantId":"t_5"}`), "t_5", false},
		{"raw json array", json.RawMessage(`[1,2]`), "", true},
		{"anonymous struct", struct {
			TenantID string `json:"tenantId"`
		}{TenantID: "t_6"}, "t_6", false},
		{"nil payload", nil, "", true},
		{"string payload", "tenantId", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := event.ValidateTenantID(event.OrderCreated, tt.payload)
			if tt.wantErr {
				require.ErrorIs(t, err, event.ErrMissingTenant)
				var te *event.TenantError
				require.True(t, errors.As(err, &te))
				assert.Equal(t, event.OrderCreated, te.Event)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTenantError_ClassifiesPermanent(t *testing.T) {
	t.Parallel()

	_, err := event.ValidateTenantID("email.send", map[string]any{})
	ce := classify.Classify(err)
	assert.Equal(t, classify.CodeMissingTenant, ce.Code)
	assert.False(t, ce.Retryable)
	assert.Contains(t, err.Error(), "email.send")
}

func TestValidName(t *testing.T) {
	t.Parallel()

	assert.True(t, event.ValidName("order.created"))
	assert.True(t, event.ValidName("system.jobs.heartbeat"))
	assert.False(t, event.ValidName("order"))
	assert.False(t, event.ValidName("Order.Created"))
	assert.False(t, event.ValidName("order..created"))
	assert.False(t, event.ValidName(""))
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	cat := event.DefaultCatalog()
	def, ok := cat.Lookup(event.PayoutRequested)
	require.True(t, ok)
	assert.Equal(t, "payments", def.Queue)
	assert.Equal(t, 5, def.MaxAttempts)

	require.NoError(t, cat.Check(event.OrderCreated))
	require.ErrorIs(t, cat.Check("order.deleted"), event.ErrUnknownEvent)
	assert.Contains(t, cat.Names(), event.SMSSend)
	assert.IsNonDecreasing(t, cat.Names())

	var nilCat *event.Catalog
	require.NoError(t, nilCat.Check("anything.goes"))
	_, ok = nilCat.Lookup(event.OrderCreated)
	assert.False(t, ok)
}

func TestNewCatalog_Errors(t *testing.T) {
	t.Parallel()

	_, err := event.NewCatalog(event.Definition{Name: "bad"})
	require.ErrorIs(t, err, event.ErrInvalidName)

	_, err = event.NewCatalog(event.Definition{Name: "a.b"}, event.Definition{Name: "a.b"})
	require.Error(t, err)
}
