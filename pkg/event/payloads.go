package event

import "time"

// OrderPayload is sent with order.created, order.updated and order.refunded.
type OrderPayload struct {
	Tenant
	OrderID     string    `json:"orderId"`
	StoreID     string    `json:"storeId,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Status      string    `json:"status,omitempty"`
	AmountCents int64     `json:"amountCents"`
	PlacedAt    time.Time `json:"placedAt,omitzero"`
}

// PayoutPayload is sent with payout.requested and payout.completed.
type PayoutPayload struct {
	Tenant
	PayoutID    string `json:"payoutId"`
	AffiliateID string `json:"affiliateId"`
	Currency    string `json:"currency"`
	AmountCents int64  `json:"amountCents"`
}

// CommissionPayload is sent with commission.credited.
type CommissionPayload struct {
	Tenant
	CommissionID string `json:"commissionId"`
	AffiliateID  string `json:"affiliateId"`
	OrderID      string `json:"orderId"`
	AmountCents  int64  `json:"amountCents"`
}

// AttributionPayload is sent with attribution.computed.
type AttributionPayload struct {
	Tenant
	OrderID     string `json:"orderId"`
	AffiliateID string `json:"affiliateId"`
	Source      string `json:"source,omitempty"`
}

// TaxFormPayload is sent with taxform.generate.
type TaxFormPayload struct {
	Tenant
	AffiliateID string `json:"affiliateId"`
	Year        int    `json:"year"`
}

// MessagePayload is sent with email.send and sms.send.
type MessagePayload struct {
	Tenant
	Data     map[string]any `json:"data,omitempty"`
	To       string         `json:"to"`
	Template string         `json:"template"`
}

// HeartbeatPayload is sent with system.heartbeat.
type HeartbeatPayload struct {
	Tenant
}
