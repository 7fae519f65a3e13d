package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabcore/mescontrol/internal/models"
)

// sensorsSimulate runs one telemetry tick immediately, independent of
// the background loop's cadence.
func (g *Gateway) sensorsSimulate(c *gin.Context) {
	if g.simulator == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "telemetry simulator is not configured"})
		return
	}
	if err := g.simulator.Tick(c.Request.Context()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (g *Gateway) sensorsStart(c *gin.Context) {
	g.telemetryToggle.Start()
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (g *Gateway) sensorsStop(c *gin.Context) {
	g.telemetryToggle.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

func (g *Gateway) sensorsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": g.telemetryToggle.Running()})
}

// sensorsGenerateAnomaly forces one machine's next reading to an
// excursion value above both emergency thresholds, which classifies as
// "critical" severity once the detector's history for that machine holds
// at least ten samples (this reading included); with fewer, no detection
// is made. Useful for demoing the safety circuit without waiting on the
// simulator's 3% excursion probability.
func (g *Gateway) sensorsGenerateAnomaly(c *gin.Context) {
	if g.simulator == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "telemetry simulator is not configured"})
		return
	}
	id, err := uuid.Parse(c.Query("equipment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "equipment_id is required"})
		return
	}
	reading := &models.SensorReading{
		ID:          uuid.New(),
		EquipmentID: id,
		Temperature: 110,
		Vibration:   0.09,
		Pressure:    1.0,
		Power:       50,
		RecordedAt:  g.clock.Now(),
	}
	if err := g.simulator.Ingest(c.Request.Context(), reading); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, reading)
}
