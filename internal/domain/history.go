package domain

import "time"

// SessionArchive is the immutable history row written once a session
// finishes. It lives in Postgres, unlike the live session which lives in the
// KV store only until payment.
type SessionArchive struct {
	SessionID      string        `json:"session_id" gorm:"primaryKey"`
	BookingID      string        `json:"booking_id" gorm:"index"`
	StationID      string        `json:"station_id"`
	UserID         string        `json:"user_id" gorm:"index"`
	Status         SessionStatus `json:"status"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
	InitialBattery float64       `json:"initial_battery"`
	FinalBattery   float64       `json:"final_battery"`
	EnergyConsumed float64       `json:"energy_consumed"`
	TotalCost      float64       `json:"total_cost"`
	ChargerType    string        `json:"charger_type"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NewSessionArchive snapshots a finished session into its history row.
func NewSessionArchive(s *ChargingSession) *SessionArchive {
	return &SessionArchive{
		SessionID:      s.SessionID,
		BookingID:      s.BookingID,
		StationID:      s.StationID,
		UserID:         s.UserID,
		Status:         s.Status,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		InitialBattery: s.InitialBattery,
		FinalBattery:   s.CurrentBattery,
		EnergyConsumed: s.EnergyConsumed,
		TotalCost:      s.TotalCost,
		ChargerType:    s.ChargerType,
	}
}
