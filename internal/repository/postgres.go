package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/fabcore/mescontrol/internal/apierr"
	"github.com/fabcore/mescontrol/internal/models"
)

// Postgres is the lib/pq backed Repository. Scheduler batches and
// lifecycle transitions run serializable so that two writers racing on
// the same lot or equipment row see each other's writes.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// sqlTx adapts *sql.Tx to the Tx interface.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) UpdateLot(ctx context.Context, lot *models.Lot) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE lots SET name=$1, wafer_count=$2, priority=$3, hot_lot=$4,
		 recipe_kind=$5, status=$6, assigned_equipment_id=$7, started_at=$8,
		 completed_at=$9, deadline=$10, estimated_duration_minutes=$11,
		 customer_tag=$12, updated_at=$13, version=version+1
		 WHERE id=$14 AND version=$15`,
		lot.Name, lot.WaferCount, lot.Priority, lot.HotLot,
		lot.RecipeKind, lot.Status, lot.AssignedEquipmentID, lot.StartedAt,
		lot.CompletedAt, lot.Deadline, lot.EstimatedDurationMinutes,
		lot.CustomerTag, time.Now(), lot.ID, lot.Version,
	)
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	if n == 0 {
		return apierr.ConflictMsg("lot %s was modified concurrently", lot.ID)
	}
	return nil
}

func (t *sqlTx) UpdateEquipment(ctx context.Context, eq *models.Equipment) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE equipment SET status=$1, current_lot_id=$2,
		 total_wafers_processed=$3, updated_at=$4 WHERE id=$5`,
		eq.Status, eq.CurrentLotID, eq.TotalWafersProcessed, time.Now(), eq.ID,
	)
	if err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}
	return nil
}

func (t *sqlTx) CreateDispatchRecord(ctx context.Context, rec *models.DispatchRecord) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO dispatch_records (id, lot_id, equipment_id, reason, score, dispatched_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.LotID, rec.EquipmentID, rec.Reason, rec.Score, rec.DispatchedAt,
	)
	if err != nil {
		return fmt.Errorf("create dispatch record: %w", err)
	}
	return nil
}

func (p *Postgres) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Equipment

func (p *Postgres) GetEquipment(ctx context.Context, id uuid.UUID) (*models.Equipment, error) {
	var eq models.Equipment
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name, kind, status, efficiency, zone, current_lot_id,
		 total_wafers_processed, created_at, updated_at FROM equipment WHERE id=$1`, id,
	).Scan(&eq.ID, &eq.Name, &eq.Kind, &eq.Status, &eq.Efficiency, &eq.Zone,
		&eq.CurrentLotID, &eq.TotalWafersProcessed, &eq.CreatedAt, &eq.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apierr.NotFound("equipment %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	return &eq, nil
}

func (p *Postgres) ListEquipment(ctx context.Context, filter EquipmentFilter) ([]*models.Equipment, error) {
	query := `SELECT id, name, kind, status, efficiency, zone, current_lot_id,
	 total_wafers_processed, created_at, updated_at FROM equipment WHERE 1=1`
	var args []interface{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if filter.Zone != nil {
		args = append(args, *filter.Zone)
		query += fmt.Sprintf(" AND zone=$%d", len(args))
	}
	query += " ORDER BY name"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var out []*models.Equipment
	for rows.Next() {
		var eq models.Equipment
		if err := rows.Scan(&eq.ID, &eq.Name, &eq.Kind, &eq.Status, &eq.Efficiency,
			&eq.Zone, &eq.CurrentLotID, &eq.TotalWafersProcessed, &eq.CreatedAt, &eq.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		out = append(out, &eq)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateEquipment(ctx context.Context, eq *models.Equipment) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO equipment (id, name, kind, status, efficiency, zone, current_lot_id,
		 total_wafers_processed, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		eq.ID, eq.Name, eq.Kind, eq.Status, eq.Efficiency, eq.Zone, eq.CurrentLotID,
		eq.TotalWafersProcessed, eq.CreatedAt, eq.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create equipment: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateEquipment(ctx context.Context, eq *models.Equipment) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE equipment SET name=$1, kind=$2, status=$3, efficiency=$4, zone=$5,
		 current_lot_id=$6, total_wafers_processed=$7, updated_at=$8 WHERE id=$9`,
		eq.Name, eq.Kind, eq.Status, eq.Efficiency, eq.Zone, eq.CurrentLotID,
		eq.TotalWafersProcessed, time.Now(), eq.ID,
	)
	if err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("equipment %s not found", eq.ID)
	}
	return nil
}

// Lots

func (p *Postgres) GetLot(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name, wafer_count, priority, hot_lot, recipe_kind, status,
		 assigned_equipment_id, created_at, started_at, completed_at, deadline,
		 estimated_duration_minutes, customer_tag, updated_at, version
		 FROM lots WHERE id=$1`, id,
	).Scan(&lot.ID, &lot.Name, &lot.WaferCount, &lot.Priority, &lot.HotLot,
		&lot.RecipeKind, &lot.Status, &lot.AssignedEquipmentID, &lot.CreatedAt,
		&lot.StartedAt, &lot.CompletedAt, &lot.Deadline, &lot.EstimatedDurationMinutes,
		&lot.CustomerTag, &lot.UpdatedAt, &lot.Version)
	if err == sql.ErrNoRows {
		return nil, apierr.NotFound("lot %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return &lot, nil
}

func (p *Postgres) ListLots(ctx context.Context, filter LotFilter) ([]*models.Lot, error) {
	query := `SELECT id, name, wafer_count, priority, hot_lot, recipe_kind, status,
	 assigned_equipment_id, created_at, started_at, completed_at, deadline,
	 estimated_duration_minutes, customer_tag, updated_at, version FROM lots WHERE 1=1`
	var args []interface{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		query += fmt.Sprintf(" AND priority=$%d", len(args))
	}
	if filter.HotOnly {
		query += " AND hot_lot=true"
	}
	query += " ORDER BY created_at"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	var out []*models.Lot
	for rows.Next() {
		var lot models.Lot
		if err := rows.Scan(&lot.ID, &lot.Name, &lot.WaferCount, &lot.Priority, &lot.HotLot,
			&lot.RecipeKind, &lot.Status, &lot.AssignedEquipmentID, &lot.CreatedAt,
			&lot.StartedAt, &lot.CompletedAt, &lot.Deadline, &lot.EstimatedDurationMinutes,
			&lot.CustomerTag, &lot.UpdatedAt, &lot.Version); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		out = append(out, &lot)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateLot(ctx context.Context, lot *models.Lot) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO lots (id, name, wafer_count, priority, hot_lot, recipe_kind, status,
		 assigned_equipment_id, created_at, started_at, completed_at, deadline,
		 estimated_duration_minutes, customer_tag, updated_at, version)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		lot.ID, lot.Name, lot.WaferCount, lot.Priority, lot.HotLot, lot.RecipeKind,
		lot.Status, lot.AssignedEquipmentID, lot.CreatedAt, lot.StartedAt, lot.CompletedAt,
		lot.Deadline, lot.EstimatedDurationMinutes, lot.CustomerTag, lot.UpdatedAt, lot.Version,
	)
	if err != nil {
		return fmt.Errorf("create lot: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateLot(ctx context.Context, lot *models.Lot) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE lots SET name=$1, wafer_count=$2, priority=$3, hot_lot=$4,
		 recipe_kind=$5, status=$6, assigned_equipment_id=$7, started_at=$8,
		 completed_at=$9, deadline=$10, estimated_duration_minutes=$11,
		 customer_tag=$12, updated_at=$13, version=version+1
		 WHERE id=$14 AND version=$15`,
		lot.Name, lot.WaferCount, lot.Priority, lot.HotLot, lot.RecipeKind, lot.Status,
		lot.AssignedEquipmentID, lot.StartedAt, lot.CompletedAt, lot.Deadline,
		lot.EstimatedDurationMinutes, lot.CustomerTag, time.Now(), lot.ID, lot.Version,
	)
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	if n == 0 {
		return apierr.ConflictMsg("lot %s was modified concurrently", lot.ID)
	}
	return nil
}

func (p *Postgres) CountLotsByStatus(ctx context.Context) (LotCounts, error) {
	var c LotCounts
	rows, err := p.db.QueryContext(ctx, `SELECT status, count(*) FROM lots GROUP BY status`)
	if err != nil {
		return c, fmt.Errorf("count lots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.LotStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return c, fmt.Errorf("scan lot count: %w", err)
		}
		switch status {
		case models.LotPending:
			c.Pending = n
		case models.LotQueued:
			c.Queued = n
		case models.LotRunning:
			c.Running = n
		}
	}
	return c, rows.Err()
}

func (p *Postgres) LotNamesWithPrefix(ctx context.Context, prefix string, since time.Time) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT name FROM lots WHERE name LIKE $1 AND created_at >= $2`,
		prefix+"%", since,
	)
	if err != nil {
		return nil, fmt.Errorf("lot names with prefix: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan lot name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (p *Postgres) QueueDepth(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT assigned_equipment_id, count(*) FROM lots
		 WHERE status IN ('QUEUED','RUNNING') AND assigned_equipment_id IS NOT NULL
		 GROUP BY assigned_equipment_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("queue depth: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan queue depth: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Dispatch records

func (p *Postgres) CreateDispatchRecord(ctx context.Context, rec *models.DispatchRecord) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO dispatch_records (id, lot_id, equipment_id, reason, score, dispatched_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.ID, rec.LotID, rec.EquipmentID, rec.Reason, rec.Score, rec.DispatchedAt,
	)
	if err != nil {
		return fmt.Errorf("create dispatch record: %w", err)
	}
	return nil
}

func (p *Postgres) ListDispatchRecords(ctx context.Context, filter DispatchFilter) ([]*models.DispatchRecord, error) {
	query := `SELECT id, lot_id, equipment_id, reason, score, dispatched_at
	 FROM dispatch_records ORDER BY dispatched_at DESC`
	var args []interface{}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dispatch records: %w", err)
	}
	defer rows.Close()

	var out []*models.DispatchRecord
	for rows.Next() {
		var rec models.DispatchRecord
		var score decimal.Decimal
		if err := rows.Scan(&rec.ID, &rec.LotID, &rec.EquipmentID, &rec.Reason, &score, &rec.DispatchedAt); err != nil {
			return nil, fmt.Errorf("scan dispatch record: %w", err)
		}
		rec.Score = score
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Sensor readings

func (p *Postgres) CreateSensorReading(ctx context.Context, r *models.SensorReading) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO sensor_readings (id, equipment_id, temperature, vibration, pressure,
		 power, recorded_at, is_anomaly, anomaly_score)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.EquipmentID, r.Temperature, r.Vibration, r.Pressure, r.Power,
		r.RecordedAt, r.IsAnomaly, r.AnomalyScore,
	)
	if err != nil {
		return fmt.Errorf("create sensor reading: %w", err)
	}
	return nil
}

func (p *Postgres) ListSensorReadings(ctx context.Context, filter SensorFilter) ([]*models.SensorReading, error) {
	query := `SELECT id, equipment_id, temperature, vibration, pressure, power,
	 recorded_at, is_anomaly, anomaly_score FROM sensor_readings WHERE equipment_id=$1`
	args := []interface{}{filter.EquipmentID}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		query += fmt.Sprintf(" AND recorded_at >= $%d", len(args))
	}
	if filter.AnomaliesOnly {
		query += " AND is_anomaly=true"
	}
	query += " ORDER BY recorded_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sensor readings: %w", err)
	}
	defer rows.Close()

	var out []*models.SensorReading
	for rows.Next() {
		var r models.SensorReading
		if err := rows.Scan(&r.ID, &r.EquipmentID, &r.Temperature, &r.Vibration, &r.Pressure,
			&r.Power, &r.RecordedAt, &r.IsAnomaly, &r.AnomalyScore); err != nil {
			return nil, fmt.Errorf("scan sensor reading: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Incidents

func (p *Postgres) CreateIncident(ctx context.Context, inc *models.Incident) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO incidents (id, equipment_id, severity, kind, message, detected_value,
		 threshold_value, action, action_status, zone, z_score, roc, resolved,
		 resolved_at, operator_notes, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		inc.ID, inc.EquipmentID, inc.Severity, inc.Kind, inc.Message, inc.DetectedValue,
		inc.ThresholdValue, inc.Action, inc.ActionStatus, inc.Zone, inc.ZScore, inc.RoC,
		inc.Resolved, inc.ResolvedAt, inc.OperatorNotes, inc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

func (p *Postgres) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	var inc models.Incident
	err := p.db.QueryRowContext(ctx,
		`SELECT id, equipment_id, severity, kind, message, detected_value, threshold_value,
		 action, action_status, zone, z_score, roc, resolved, resolved_at, operator_notes, created_at
		 FROM incidents WHERE id=$1`, id,
	).Scan(&inc.ID, &inc.EquipmentID, &inc.Severity, &inc.Kind, &inc.Message, &inc.DetectedValue,
		&inc.ThresholdValue, &inc.Action, &inc.ActionStatus, &inc.Zone, &inc.ZScore, &inc.RoC,
		&inc.Resolved, &inc.ResolvedAt, &inc.OperatorNotes, &inc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apierr.NotFound("incident %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return &inc, nil
}

func (p *Postgres) ListIncidents(ctx context.Context, filter IncidentFilter) ([]*models.Incident, error) {
	query := `SELECT id, equipment_id, severity, kind, message, detected_value, threshold_value,
	 action, action_status, zone, z_score, roc, resolved, resolved_at, operator_notes, created_at
	 FROM incidents WHERE 1=1`
	var args []interface{}
	if filter.Severity != nil {
		args = append(args, *filter.Severity)
		query += fmt.Sprintf(" AND severity=$%d", len(args))
	}
	if filter.EquipmentID != nil {
		args = append(args, *filter.EquipmentID)
		query += fmt.Sprintf(" AND equipment_id=$%d", len(args))
	}
	if filter.Resolved != nil {
		args = append(args, *filter.Resolved)
		query += fmt.Sprintf(" AND resolved=$%d", len(args))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []*models.Incident
	for rows.Next() {
		var inc models.Incident
		if err := rows.Scan(&inc.ID, &inc.EquipmentID, &inc.Severity, &inc.Kind, &inc.Message,
			&inc.DetectedValue, &inc.ThresholdValue, &inc.Action, &inc.ActionStatus, &inc.Zone,
			&inc.ZScore, &inc.RoC, &inc.Resolved, &inc.ResolvedAt, &inc.OperatorNotes, &inc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, &inc)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateIncident(ctx context.Context, inc *models.Incident) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE incidents SET action_status=$1, resolved=$2, resolved_at=$3, operator_notes=$4
		 WHERE id=$5`,
		inc.ActionStatus, inc.Resolved, inc.ResolvedAt, inc.OperatorNotes, inc.ID,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("incident %s not found", inc.ID)
	}
	return nil
}

// Agents

func (p *Postgres) CreateAgent(ctx context.Context, a *models.Agent) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO agents (id, kind, equipment_id, status, last_heartbeat, capabilities, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.Kind, a.EquipmentID, a.Status, a.LastHeartbeat, pq.Array(a.Capabilities), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

func (p *Postgres) GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var a models.Agent
	err := p.db.QueryRowContext(ctx,
		`SELECT id, kind, equipment_id, status, last_heartbeat, capabilities, created_at
		 FROM agents WHERE id=$1`, id,
	).Scan(&a.ID, &a.Kind, &a.EquipmentID, &a.Status, &a.LastHeartbeat, pq.Array(&a.Capabilities), &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apierr.NotFound("agent %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return &a, nil
}

func (p *Postgres) ListAgents(ctx context.Context) ([]*models.Agent, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, kind, equipment_id, status, last_heartbeat, capabilities, created_at
		 FROM agents ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []*models.Agent
	for rows.Next() {
		var a models.Agent
		if err := rows.Scan(&a.ID, &a.Kind, &a.EquipmentID, &a.Status, &a.LastHeartbeat,
			pq.Array(&a.Capabilities), &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateAgent(ctx context.Context, a *models.Agent) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE agents SET status=$1, last_heartbeat=$2 WHERE id=$3`,
		a.Status, a.LastHeartbeat, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("agent %s not found", a.ID)
	}
	return nil
}
