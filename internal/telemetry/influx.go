package telemetry

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/fabcore/mescontrol/internal/models"
)

// InfluxSink is the time-series write path for SensorReadings. The relational Repository keeps only the
// denormalized is_anomaly/anomaly_score projection; InfluxDB is the
// append-only store for the full recorded_at-ordered series.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClient(url, token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
	}
}

func (s *InfluxSink) Write(ctx context.Context, r *models.SensorReading) error {
	point := influxdb2.NewPoint(
		"sensor_reading",
		map[string]string{"equipment_id": r.EquipmentID.String()},
		map[string]interface{}{
			"temperature": r.Temperature,
			"vibration":   r.Vibration,
			"pressure":    r.Pressure,
			"power":       r.Power,
			"is_anomaly":  r.IsAnomaly,
		},
		r.RecordedAt,
	)
	return s.writeAPI.WritePoint(ctx, point)
}

func (s *InfluxSink) Close() {
	s.client.Close()
}
