package domain

import (
	"time"
)

type SessionStatus string

const (
	SessionStatusCharging  SessionStatus = "charging"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusStopped   SessionStatus = "stopped"
	SessionStatusCompleted SessionStatus = "completed"
)

// Remote phase values as reported by the gateway's monitoring endpoint.
const (
	RemotePhaseCharging  = "CHARGING"
	RemotePhaseParking   = "PARKING"
	RemotePhaseCompleted = "COMPLETED"
)

// ChargingSession is the locally-held view of one charge-to-payment
// lifecycle. It is mutated only by the reconciliation controller and by
// explicit user actions (pause/resume/stop), and cleared from the persisted
// store once payment is initiated.
type ChargingSession struct {
	SessionID string `json:"session_id"`
	BookingID string `json:"booking_id"`
	StationID string `json:"station_id"`

	Status    SessionStatus `json:"status"`
	StartTime time.Time     `json:"start_time"`
	EndTime   *time.Time    `json:"end_time,omitempty"`

	// Battery percentages, 0-100. InitialBattery is seeded exactly once from
	// the first successful monitoring snapshot and never re-seeded.
	InitialBattery float64 `json:"initial_battery"`
	CurrentBattery float64 `json:"current_battery"`
	TargetBattery  float64 `json:"target_battery"`
	BatterySeeded  bool    `json:"battery_seeded"`

	EnergyConsumed float64 `json:"energy_consumed"` // kWh
	CostPerUnit    float64 `json:"cost_per_unit"`
	TotalCost      float64 `json:"total_cost"`

	ChargerType string  `json:"charger_type"`
	PowerKW     float64 `json:"power_kw"`

	EstimatedRemainingMinutes int `json:"estimated_remaining_minutes"`

	// Denormalized display fields.
	StationName    string `json:"station_name,omitempty"`
	StationAddress string `json:"station_address,omitempty"`
	UserName       string `json:"user_name,omitempty"`
	VehicleID      string `json:"vehicle_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// SimulationSample holds the most recent authoritative values and when they
// were captured. It anchors local extrapolation and is replaced wholesale on
// every successful poll.
type SimulationSample struct {
	Battery        float64   `json:"battery"`
	EnergyConsumed float64   `json:"energy_consumed"`
	Cost           float64   `json:"cost"`
	CapturedAt     time.Time `json:"captured_at"`
}

// DisplayedMetrics are the values actually rendered. The simulation clock
// owns them between authoritative samples; the controller seeds and corrects
// them whenever a fresh sample arrives.
type DisplayedMetrics struct {
	SmoothBattery float64 `json:"smooth_battery"`
	SmoothEnergy  float64 `json:"smooth_energy"`
	SmoothCost    float64 `json:"smooth_cost"`
}

// MonitoringSnapshot is the gateway's authoritative view of a running
// session. ElapsedSeconds is optional; not all gateway versions supply it.
type MonitoringSnapshot struct {
	Status                    string    `json:"status"`
	CurrentBattery            float64   `json:"current_battery"`
	TargetBattery             float64   `json:"target_battery"`
	PowerConsumed             float64   `json:"power_consumed"` // kWh
	Cost                      float64   `json:"cost"`
	ElapsedSeconds            *int64    `json:"elapsed_seconds,omitempty"`
	CurrentTime               time.Time `json:"current_time"`
	EstimatedRemainingMinutes int       `json:"estimated_remaining_minutes"`
}

// ParkingSnapshot is the gateway's view of the post-charge parking phase.
type ParkingSnapshot struct {
	ParkingStartTime     *time.Time `json:"parking_start_time,omitempty"`
	CurrentFee           float64    `json:"current_fee"`
	ChargingCost         float64    `json:"charging_cost"`
	ParkingRatePerMinute float64    `json:"parking_rate_per_minute"`
}

// ParkingSessionSummary is the immutable handoff payload produced exactly
// once at the charging→parking transition. The parking phase derives its own
// running fee from ParkingStartTime and the server-supplied per-minute rate.
type ParkingSessionSummary struct {
	SessionID        string    `json:"session_id"`
	BookingID        string    `json:"booking_id"`
	StationName      string    `json:"station_name"`
	StationAddress   string    `json:"station_address"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	EnergyConsumed   float64   `json:"energy_consumed"`
	TotalCost        float64   `json:"total_cost"`
	ParkingStartTime time.Time `json:"parking_start_time"`

	ParkingRatePerMinute float64 `json:"parking_rate_per_minute"`
	ChargerType          string  `json:"charger_type,omitempty"`
	UserName             string  `json:"user_name,omitempty"`
}
