// Package anomaly implements a ring-buffer z-score/roc analyzer: bounded
// history per key, mean/variance recomputed over the window, mutex-guarded
// per-key state, the same streaming-statistics shape as a per-(user,symbol)
// risk map derived under a single RWMutex.
package anomaly

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultWindow is W
const defaultWindow = 60

// minSamples is the minimum ring depth before a detection is attempted.
const minSamples = 10

// minSigma floors σ to avoid a divide-by-near-zero blowing up z-scores.
const minSigma = 1e-3

// Metric identifies which sensor channel a reading belongs to.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricVibration   Metric = "vibration"
)

type key struct {
	equipmentID uuid.UUID
	metric      Metric
}

// ring is the bounded per-(equipment,metric) sample history.
type ring struct {
	values    []float64
	lastValue float64
	lastTime  time.Time
	hasLast   bool
}

func (r *ring) push(v float64, window int) {
	r.values = append(r.values, v)
	if len(r.values) > window {
		r.values = r.values[len(r.values)-window:]
	}
}

func (r *ring) meanStdDev() (float64, float64) {
	n := float64(len(r.values))
	var sum float64
	for _, v := range r.values {
		sum += v
	}
	mean := sum / n

	var variance float64
	for _, v := range r.values {
		d := v - mean
		variance += d * d
	}
	variance /= n
	sigma := math.Sqrt(variance)
	if sigma < minSigma {
		sigma = minSigma
	}
	return mean, sigma
}

// Detection is one classified anomaly surfaced from a sample.
type Detection struct {
	EquipmentID    uuid.UUID
	Metric         Metric
	Value          float64
	Severity       string
	Kind           string
	Action         string
	ZScore         float64
	RoCPerMinute   float64
	ThresholdValue float64
}

// Thresholds holds the per-metric warning/critical/emergency levels and
// rate-of-change limit.
type Thresholds struct {
	Warning   float64
	Critical  float64
	Emergency float64
	RoCLimit  float64 // only meaningful for temperature
}

// DefaultThresholds returns the default severity thresholds per metric.
func DefaultThresholds() map[Metric]Thresholds {
	return map[Metric]Thresholds{
		MetricTemperature: {Warning: 80, Critical: 95, Emergency: 105, RoCLimit: 5},
		MetricVibration:   {Warning: 0.02, Critical: 0.05, Emergency: 0.08},
	}
}

// Detector tracks ring-buffer state per (equipment, metric) and
// classifies each new sample.
type Detector struct {
	mu         sync.Mutex
	rings      map[key]*ring
	thresholds map[Metric]Thresholds
	window     int
}

func New(thresholds map[Metric]Thresholds) *Detector {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	return &Detector{
		rings:      make(map[key]*ring),
		thresholds: thresholds,
		window:     defaultWindow,
	}
}

// Analyze appends v at time t for (equipmentID, metric) and returns at
// most one Detection.
func (d *Detector) Analyze(equipmentID uuid.UUID, metric Metric, v float64, t time.Time) *Detection {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := key{equipmentID: equipmentID, metric: metric}
	r, ok := d.rings[k]
	if !ok {
		r = &ring{}
		d.rings[k] = r
	}

	r.push(v, d.window)

	if len(r.values) < minSamples {
		r.lastValue = v
		r.lastTime = t
		r.hasLast = true
		return nil
	}

	mean, sigma := r.meanStdDev()
	z := (v - mean) / sigma

	var roc float64
	if r.hasLast {
		dt := t.Sub(r.lastTime).Minutes()
		if dt > 0 {
			roc = (v - r.lastValue) / dt
		}
	}
	r.lastValue = v
	r.lastTime = t
	r.hasLast = true

	th, ok := d.thresholds[metric]
	if !ok {
		return nil
	}

	det := classify(equipmentID, metric, v, z, roc, th)
	return det
}

func classify(equipmentID uuid.UUID, metric Metric, v, z, roc float64, th Thresholds) *Detection {
	switch metric {
	case MetricTemperature:
		switch {
		case v > th.Emergency || z > 4:
			return &Detection{equipmentID, metric, v, "critical", "thermal_runaway", "emergency_stop", z, roc, th.Emergency}
		case v > th.Critical || (z > 3 && roc > th.RoCLimit):
			return &Detection{equipmentID, metric, v, "high", "thermal_runaway", "reduce_thermal_load", z, roc, th.Critical}
		case v > th.Warning || z > 2.5:
			return &Detection{equipmentID, metric, v, "medium", "elevated_temperature", "increase_coolant", z, roc, th.Warning}
		}
	case MetricVibration:
		switch {
		case v > th.Emergency:
			return &Detection{equipmentID, metric, v, "critical", "bearing_failure", "emergency_stop", z, roc, th.Emergency}
		case v > th.Critical || z > 3.5:
			return &Detection{equipmentID, metric, v, "high", "bearing_wear", "alert_maintenance", z, roc, th.Critical}
		case v > th.Warning || z > 2.5:
			return &Detection{equipmentID, metric, v, "medium", "increased_vibration", "schedule_inspection", z, roc, th.Warning}
		}
	}
	return nil
}
