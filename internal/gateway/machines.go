package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/internal/repository"
)

func (g *Gateway) listEquipment(c *gin.Context) {
	filter := repository.EquipmentFilter{}
	if s := c.Query("status"); s != "" {
		status := models.EquipmentStatus(s)
		filter.Status = &status
	}
	if z := c.Query("zone"); z != "" {
		filter.Zone = &z
	}
	equipment, err := g.repo.ListEquipment(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"machines": equipment})
}

func (g *Gateway) getEquipment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}
	eq, err := g.repo.GetEquipment(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, eq)
}

type patchEquipmentRequest struct {
	Status *models.EquipmentStatus `json:"status"`
	Zone   *string                 `json:"zone"`
}

// patchEquipment lets an operator take a machine down for maintenance
// or bring it back idle.
func (g *Gateway) patchEquipment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}
	var req patchEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	eq, err := g.repo.GetEquipment(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if req.Status != nil {
		eq.Status = *req.Status
	}
	if req.Zone != nil {
		eq.Zone = *req.Zone
	}
	eq.UpdatedAt = g.clock.Now()
	if err := g.repo.UpdateEquipment(c.Request.Context(), eq); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, eq)
}

// equipmentStats summarizes the throughput and current load of one
// machine.
func (g *Gateway) equipmentStats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}
	eq, err := g.repo.GetEquipment(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	depth, err := g.repo.QueueDepth(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"equipment_id":            eq.ID,
		"status":                  eq.Status,
		"efficiency":              eq.Efficiency,
		"total_wafers_processed":  eq.TotalWafersProcessed,
		"queue_depth":             depth[eq.ID],
	})
}

func (g *Gateway) equipmentSensorReadings(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}
	filter := repository.SensorFilter{
		EquipmentID:   id,
		AnomaliesOnly: queryBool(c, "anomalies_only"),
		Limit:         queryInt(c, "limit", 100),
	}
	readings, err := g.repo.ListSensorReadings(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sensor_readings": readings})
}
