package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabcore/mescontrol/internal/apierr"
	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/internal/repository"
)

// listLots implements GET /jobs with status, priority, and hot_lot_only
// filters.
func (g *Gateway) listLots(c *gin.Context) {
	filter := repository.LotFilter{}
	if s := c.Query("status"); s != "" {
		status := models.LotStatus(s)
		filter.Status = &status
	}
	if p := c.Query("priority"); p != "" {
		if n := queryInt(c, "priority", 0); n > 0 {
			filter.Priority = &n
		}
	}
	filter.HotOnly = queryBool(c, "hot_lot_only")

	lots, err := g.repo.ListLots(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": lots})
}

func (g *Gateway) getLot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	lot, err := g.repo.GetLot(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// createLotRequest is the manual lot-creation payload, distinct from the Generator's automated synthesis.
type createLotRequest struct {
	Name                     string     `json:"name" binding:"required"`
	WaferCount               int        `json:"wafer_count" binding:"required"`
	Priority                 int        `json:"priority" binding:"required,min=1,max=5"`
	HotLot                   bool       `json:"hot_lot"`
	RecipeKind               string     `json:"recipe_kind" binding:"required"`
	Deadline                 *time.Time `json:"deadline"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes" binding:"required"`
	CustomerTag              string     `json:"customer_tag"`
}

func (g *Gateway) createLot(c *gin.Context) {
	var req createLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := g.clock.Now()
	lot := &models.Lot{
		ID:                       uuid.New(),
		Name:                     req.Name,
		WaferCount:               req.WaferCount,
		Priority:                 req.Priority,
		HotLot:                   req.HotLot,
		RecipeKind:               req.RecipeKind,
		Status:                   models.LotPending,
		CreatedAt:                now,
		Deadline:                 req.Deadline,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		CustomerTag:              req.CustomerTag,
		UpdatedAt:                now,
		Version:                  1,
	}
	if err := g.repo.CreateLot(c.Request.Context(), lot); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// patchLot allows adjusting a still-PENDING lot's priority, hot_lot
// flag, and deadline.
type patchLotRequest struct {
	Priority *int       `json:"priority"`
	HotLot   *bool      `json:"hot_lot"`
	Deadline *time.Time `json:"deadline"`
}

func (g *Gateway) patchLot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	var req patchLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lot, err := g.repo.GetLot(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if lot.Status != models.LotPending {
		respondErr(c, apierr.ConflictMsg("job %s is no longer pending", id))
		return
	}
	if req.Priority != nil {
		lot.Priority = *req.Priority
	}
	if req.HotLot != nil {
		lot.HotLot = *req.HotLot
	}
	if req.Deadline != nil {
		lot.Deadline = req.Deadline
	}
	lot.UpdatedAt = g.clock.Now()
	if err := g.repo.UpdateLot(c.Request.Context(), lot); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (g *Gateway) cancelLot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	lot, err := g.lifecycle.Cancel(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// startLot and completeLot let an agent (e.g. the chaos façade, or a
// sentinel reporting a manual override) force a transition outside the
// regular tick.
func (g *Gateway) startLot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	lot, err := g.lifecycle.ManualStart(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (g *Gateway) completeLot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	lot, err := g.lifecycle.ManualComplete(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// Lifecycle admin

func (g *Gateway) lifecycleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": g.lifecycleToggle.Running()})
}

func (g *Gateway) lifecycleStart(c *gin.Context) {
	g.lifecycleToggle.Start()
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (g *Gateway) lifecycleStop(c *gin.Context) {
	g.lifecycleToggle.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}
