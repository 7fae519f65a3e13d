package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabcore/mescontrol/internal/anomaly"
	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/internal/repository"
	"github.com/fabcore/mescontrol/internal/telemetry"
)

// createIncident lets an agent report an anomaly it detected itself
// (e.g. a sentinel watching a metric the simulator doesn't model),
// running it through the same classify-then-record path as an internal
// detection.
type createIncidentRequest struct {
	EquipmentID uuid.UUID `json:"equipment_id" binding:"required"`
	Metric      string    `json:"metric" binding:"required"`
	Value       float64   `json:"value" binding:"required"`
}

func (g *Gateway) createIncident(c *gin.Context) {
	var req createIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	det := g.detector.Analyze(req.EquipmentID, anomaly.Metric(req.Metric), req.Value, g.clock.Now())
	if det == nil {
		c.JSON(http.StatusOK, gin.H{"incident": nil, "message": "reading within normal bounds"})
		return
	}
	inc, err := g.safety.Record(c.Request.Context(), det)
	if err != nil {
		respondErr(c, err)
		return
	}
	if g.feed != nil {
		g.feed.Broadcast(telemetry.Update{Type: "incident", Data: inc, Timestamp: inc.CreatedAt})
	}
	c.JSON(http.StatusCreated, inc)
}

func (g *Gateway) listIncidents(c *gin.Context) {
	filter := repository.IncidentFilter{}
	if s := c.Query("severity"); s != "" {
		sev := models.Severity(s)
		filter.Severity = &sev
	}
	if eq := c.Query("equipment_id"); eq != "" {
		if id, err := uuid.Parse(eq); err == nil {
			filter.EquipmentID = &id
		}
	}
	if r := c.Query("resolved"); r != "" {
		resolved := queryBool(c, "resolved")
		filter.Resolved = &resolved
	}
	incidents, err := g.repo.ListIncidents(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": incidents})
}

func (g *Gateway) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident id"})
		return
	}
	inc, err := g.repo.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, inc)
}

type approveIncidentRequest struct {
	Approve       bool   `json:"approve"`
	OperatorNotes string `json:"operator_notes"`
}

func (g *Gateway) approveIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident id"})
		return
	}
	var req approveIncidentRequest
	_ = c.ShouldBindJSON(&req)

	var inc *models.Incident
	if req.Approve || req.OperatorNotes == "" {
		inc, err = g.safety.Approve(c.Request.Context(), id, req.OperatorNotes)
	} else {
		inc, err = g.safety.Reject(c.Request.Context(), id, req.OperatorNotes)
	}
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, inc)
}

func (g *Gateway) resolveIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident id"})
		return
	}
	var body struct {
		OperatorNotes string `json:"operator_notes"`
	}
	_ = c.ShouldBindJSON(&body)

	inc, err := g.safety.Resolve(c.Request.Context(), id, body.OperatorNotes)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, inc)
}

type registerAgentRequest struct {
	Kind         models.AgentKind `json:"kind" binding:"required"`
	EquipmentID  *uuid.UUID       `json:"equipment_id"`
	Capabilities []string         `json:"capabilities"`
}

func (g *Gateway) registerAgent(c *gin.Context) {
	var req registerAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	agent, token, err := g.agents.Register(c.Request.Context(), req.Kind, req.EquipmentID, req.Capabilities)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"agent": agent, "token": token})
}

func (g *Gateway) listAgents(c *gin.Context) {
	agents, err := g.repo.ListAgents(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

func (g *Gateway) heartbeatAgent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agent id"})
		return
	}
	agent, err := g.agents.Heartbeat(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// safetyCircuitSummary reports the live zone census across every
// machine's unresolved incidents.
func (g *Gateway) safetyCircuitSummary(c *gin.Context) {
	resolved := false
	incidents, err := g.repo.ListIncidents(c.Request.Context(), repository.IncidentFilter{Resolved: &resolved})
	if err != nil {
		respondErr(c, err)
		return
	}
	zones := map[models.Zone]int{models.ZoneGreen: 0, models.ZoneYellow: 0, models.ZoneRed: 0}
	pendingApproval := 0
	for _, inc := range incidents {
		zones[inc.Zone]++
		if inc.ActionStatus == models.ActionPendingApproval {
			pendingApproval++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"zones":            zones,
		"unresolved":       len(incidents),
		"pending_approval": pendingApproval,
	})
}

// aegisSummary combines machine, incident, and agent counts into one
// dashboard payload.
func (g *Gateway) aegisSummary(c *gin.Context) {
	equipment, err := g.repo.ListEquipment(c.Request.Context(), repository.EquipmentFilter{})
	if err != nil {
		respondErr(c, err)
		return
	}
	resolved := false
	incidents, err := g.repo.ListIncidents(c.Request.Context(), repository.IncidentFilter{Resolved: &resolved})
	if err != nil {
		respondErr(c, err)
		return
	}
	agents, err := g.repo.ListAgents(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	active := 0
	for _, a := range agents {
		if a.Status == models.AgentActive {
			active++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"machines":        len(equipment),
		"unresolved":      len(incidents),
		"agents_total":    len(agents),
		"agents_active":   active,
		"generated_at":    g.clock.Now(),
	})
}

// analyzeTelemetry lets a caller push one reading through detection
// without it having to come from the simulator or an equipment driver.
type analyzeTelemetryRequest struct {
	EquipmentID uuid.UUID `json:"equipment_id" binding:"required"`
	Temperature float64   `json:"temperature"`
	Vibration   float64   `json:"vibration"`
	Pressure    float64   `json:"pressure"`
	Power       float64   `json:"power"`
}

func (g *Gateway) analyzeTelemetry(c *gin.Context) {
	var req analyzeTelemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reading := &models.SensorReading{
		ID:          uuid.New(),
		EquipmentID: req.EquipmentID,
		Temperature: req.Temperature,
		Vibration:   req.Vibration,
		Pressure:    req.Pressure,
		Power:       req.Power,
		RecordedAt:  g.clock.Now(),
	}
	if err := g.simulator.Ingest(c.Request.Context(), reading); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, reading)
}

// streamFeed upgrades to a WebSocket and pumps live sensor reading and
// incident updates to the caller. Dispatch decisions are not broadcast
// on the feed.
func (g *Gateway) streamFeed(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	sub := g.feed.Subscribe()
	go telemetry.ServeWS(conn, sub, g.feed)
}
