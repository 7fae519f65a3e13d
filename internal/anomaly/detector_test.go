package anomaly

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func warmUp(d *Detector, eq uuid.UUID, metric Metric, base float64, start time.Time) {
	for i := 0; i < minSamples; i++ {
		d.Analyze(eq, metric, base, start.Add(time.Duration(i)*time.Minute))
	}
}

func TestAnalyzeReturnsNilBelowMinSamples(t *testing.T) {
	d := New(nil)
	eq := uuid.New()
	now := time.Now()

	for i := 0; i < minSamples-1; i++ {
		det := d.Analyze(eq, MetricTemperature, 200, now.Add(time.Duration(i)*time.Minute))
		assert.Nil(t, det)
	}
}

func TestAnalyzeClassifiesTemperatureTiers(t *testing.T) {
	eq := uuid.New()
	now := time.Now()

	t.Run("medium on warning breach", func(t *testing.T) {
		d := New(nil)
		warmUp(d, eq, MetricTemperature, 50, now)
		det := d.Analyze(eq, MetricTemperature, 85, now.Add((minSamples+9)*time.Minute))
		assert.NotNil(t, det)
		assert.Equal(t, "medium", det.Severity)
		assert.Equal(t, "increase_coolant", det.Action)
	})

	t.Run("high on critical breach", func(t *testing.T) {
		d := New(nil)
		warmUp(d, eq, MetricTemperature, 50, now)
		det := d.Analyze(eq, MetricTemperature, 96, now.Add(minSamples*time.Minute))
		assert.NotNil(t, det)
		assert.Equal(t, "high", det.Severity)
		assert.Equal(t, "reduce_thermal_load", det.Action)
	})

	t.Run("critical on emergency breach", func(t *testing.T) {
		d := New(nil)
		warmUp(d, eq, MetricTemperature, 50, now)
		det := d.Analyze(eq, MetricTemperature, 110, now.Add(minSamples*time.Minute))
		assert.NotNil(t, det)
		assert.Equal(t, "critical", det.Severity)
		assert.Equal(t, "emergency_stop", det.Action)
	})

	t.Run("no detection within normal range", func(t *testing.T) {
		d := New(nil)
		warmUp(d, eq, MetricTemperature, 50, now)
		det := d.Analyze(eq, MetricTemperature, 50, now.Add(minSamples*time.Minute))
		assert.Nil(t, det)
	})
}

func TestAnalyzeClassifiesVibrationTiers(t *testing.T) {
	eq := uuid.New()
	now := time.Now()

	d := New(nil)
	warmUp(d, eq, MetricVibration, 0.01, now)
	det := d.Analyze(eq, MetricVibration, 0.09, now.Add(minSamples*time.Minute))
	assert.NotNil(t, det)
	assert.Equal(t, "critical", det.Severity)
	assert.Equal(t, "bearing_failure", det.Kind)
}

func TestAnalyzeComputesRateOfChange(t *testing.T) {
	d := New(nil)
	eq := uuid.New()
	now := time.Now()
	warmUp(d, eq, MetricTemperature, 50, now)

	det := d.Analyze(eq, MetricTemperature, 96, now.Add(time.Duration(minSamples)*time.Minute))
	assert.NotNil(t, det)
	assert.InDelta(t, 46.0, det.RoCPerMinute, 0.01)
}

func TestRingWindowIsCapped(t *testing.T) {
	d := New(nil)
	eq := uuid.New()
	now := time.Now()

	for i := 0; i < defaultWindow+20; i++ {
		d.Analyze(eq, MetricTemperature, 50, now.Add(time.Duration(i)*time.Minute))
	}

	k := key{equipmentID: eq, metric: MetricTemperature}
	assert.LessOrEqual(t, len(d.rings[k].values), defaultWindow)
}

func TestUnknownMetricIsIgnored(t *testing.T) {
	d := New(map[Metric]Thresholds{MetricTemperature: {Warning: 80, Critical: 95, Emergency: 105, RoCLimit: 5}})
	eq := uuid.New()
	now := time.Now()
	warmUp(d, eq, MetricVibration, 0.01, now)

	det := d.Analyze(eq, MetricVibration, 0.5, now.Add(minSamples*time.Minute))
	assert.Nil(t, det)
}
