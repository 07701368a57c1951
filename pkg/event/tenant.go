package event

import (
	"encoding/json"
	"strings"
)

// TenantField is the payload field that carries the tenant identifier.
const TenantField = "tenantId"

// TenantScoped is implemented by payloads that expose their tenant directly.
type TenantScoped interface {
	TenantID() string
}

// Tenant is embedded in typed payloads to carry the tenant identifier.
type Tenant struct {
	ID string `json:"tenantId"`
}

// TenantID returns the tenant identifier.
func (t Tenant) TenantID() string { return t.ID }

// ValidateTenantID checks that payload carries a non-empty string tenantId and
// returns it. Accepted payloads are TenantScoped values, map[string]any,
// json.RawMessage, []byte holding a JSON object, and any value that marshals
// to a JSON object.
func ValidateTenantID(eventName string, payload any) (string, error) {
	if payload == nil {
		return "", &TenantError{Event: eventName, Reason: "payload is nil"}
	}

	switch p := payload.(type) {
	case TenantScoped:
		return checkTenant(eventName, p.TenantID())
	case map[string]any:
		return tenantFromMap(eventName, p)
	case json.RawMessage:
		return tenantFromJSON(eventName, p)
	case []byte:
		return tenantFromJSON(eventName, p)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", &TenantError{Event: eventName, Reason: "payload is not serializable"}
	}
	return tenantFromJSON(eventName, raw)
}

func tenantFromJSON(eventName string, raw []byte) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return "", &TenantError{Event: eventName, Reason: "payload is not a JSON object"}
	}
	return tenantFromMap(eventName, m)
}

func tenantFromMap(eventName string, m map[string]any) (string, error) {
	v, ok := m[TenantField]
	if !ok {
		return "", &TenantError{Event: eventName, Reason: "field is absent"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &TenantError{Event: eventName, Reason: "field is not a string"}
	}
	return checkTenant(eventName, s)
}

func checkTenant(eventName, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", &TenantError{Event: eventName, Reason: "field is empty"}
	}
	return id, nil
}
