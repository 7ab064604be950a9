package domain

import (
	"math"
	"time"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentMethod represents the payment method type
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodWallet PaymentMethod = "wallet"
)

// PaymentProvider represents the payment initiator backend
type PaymentProvider string

const (
	PaymentProviderGateway PaymentProvider = "gateway"
	PaymentProviderStripe  PaymentProvider = "stripe"
)

// PaymentDetail is the authoritative bill fetched on demand from the
// gateway. TotalFee is canonical; BaseCost is the fallback when the server
// omits it. Once fetched it freezes DisplayedMetrics for the remainder of
// the payment flow.
type PaymentDetail struct {
	UserName         string    `json:"user_name"`
	StationName      string    `json:"station_name"`
	StationAddress   string    `json:"station_address"`
	SessionStartTime time.Time `json:"session_start_time"`
	SessionEndTime   time.Time `json:"session_end_time"`
	PowerConsumed    float64   `json:"power_consumed"` // kWh
	BaseCost         float64   `json:"base_cost"`
	TotalFee         float64   `json:"total_fee"`
	HasTotalFee      bool      `json:"has_total_fee"`
}

// Amount returns the canonical billable amount in currency units.
func (d PaymentDetail) Amount() float64 {
	if d.HasTotalFee {
		return d.TotalFee
	}
	return d.BaseCost
}

// AmountMinorUnits returns the billable amount in integer minor units
// (e.g. cents). Tolerance comparisons in the payment flow happen on minor
// units to avoid float drift.
func (d PaymentDetail) AmountMinorUnits() int64 {
	return ToMinorUnits(d.Amount())
}

// ToMinorUnits converts a currency-unit amount to minor units.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// PaymentRecord is the archived outcome of a payment initiation, persisted
// to the history store.
type PaymentRecord struct {
	ID         string        `json:"id" gorm:"primaryKey"`
	SessionID  string        `json:"session_id" gorm:"index"`
	UserID     string        `json:"user_id" gorm:"index"`
	Method     PaymentMethod `json:"method"`
	Status     PaymentStatus `json:"status"`
	Amount     int64         `json:"amount"` // minor units
	Currency   string        `json:"currency"`
	PaymentURL string        `json:"payment_url"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
