package job_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobcore/pkg/event"
	"github.com/dmitrymomot/jobcore/pkg/job"
)

// hiddenTenant reports a tenant but does not serialize it.
type hiddenTenant struct {
	Tenant  string `json:"-"`
	OrderID string `json:"orderId"`
}

func (h hiddenTenant) TenantID() string { return h.Tenant }

func TestEncodeTenantPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload any
		tenant  string
		wantErr bool
	}{
		{"typed payload", event.OrderPayload{Tenant: event.Tenant{ID: "t_1"}, OrderID: "o_1"}, "t_1", false},
		{"map payload", map[string]any{"tenantId": "t_2"}, "t_2", false},
		{"tenant only in method", hiddenTenant{Tenant: "t_3", OrderID: "o_3"}, "", true},
		{"missing tenant", map[string]any{"orderId": "o_4"}, "", true},
		{"nil payload", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tenantID, raw, err := job.EncodeTenantPayload(event.OrderCreated, tt.payload)
			if tt.wantErr {
				require.ErrorIs(t, err, event.ErrMissingTenant)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.tenant, tenantID)

			stored, err := event.ValidateTenantID(event.OrderCreated, raw)
			require.NoError(t, err)
			assert.Equal(t, tt.tenant, stored)
		})
	}
}
