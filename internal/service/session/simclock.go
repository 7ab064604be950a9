package session

import (
	"time"

	"github.com/voltwise/chargewatch/internal/domain"
)

// simClock extrapolates displayed metrics between authoritative samples.
// It is a pure projection from the last anchor and constant charger power;
// the engine's mutex guards all access.
type simClock struct {
	anchor      domain.SimulationSample
	metrics     domain.DisplayedMetrics
	capacityKWh float64
	freshness   time.Duration
}

func newSimClock(capacityKWh float64, freshness time.Duration) *simClock {
	if capacityKWh <= 0 {
		capacityKWh = 50
	}
	return &simClock{
		capacityKWh: capacityKWh,
		freshness:   freshness,
	}
}

// seed replaces the anchor wholesale and snaps displayed metrics onto it.
func (c *simClock) seed(sample domain.SimulationSample) {
	c.anchor = sample
	c.metrics = domain.DisplayedMetrics{
		SmoothBattery: sample.Battery,
		SmoothEnergy:  sample.EnergyConsumed,
		SmoothCost:    sample.Cost,
	}
}

// fresh reports whether the anchor is recent enough that extrapolation
// should stay suppressed and the authoritative values shown as-is.
func (c *simClock) fresh(now time.Time) bool {
	return now.Sub(c.anchor.CapturedAt) <= c.freshness
}

// advance projects battery, energy and cost forward from the anchor at the
// given charger power and tariff. Battery is clamped to 100.
func (c *simClock) advance(now time.Time, powerKW, costPerUnit float64) domain.DisplayedMetrics {
	dt := now.Sub(c.anchor.CapturedAt)
	if dt < 0 {
		dt = 0
	}

	deltaEnergy := powerKW * dt.Hours()
	battery := c.anchor.Battery + deltaEnergy/c.capacityKWh*100
	if battery > 100 {
		battery = 100
	}

	c.metrics = domain.DisplayedMetrics{
		SmoothBattery: battery,
		SmoothEnergy:  c.anchor.EnergyConsumed + deltaEnergy,
		SmoothCost:    c.anchor.Cost + deltaEnergy*costPerUnit,
	}
	return c.metrics
}
