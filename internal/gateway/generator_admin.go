package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fabcore/mescontrol/internal/config"
)

func (g *Gateway) generatorGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, g.generator.Config())
}

func (g *Gateway) generatorSetConfig(c *gin.Context) {
	var cfg config.GeneratorConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g.generator.SetConfig(cfg)
	c.JSON(http.StatusOK, cfg)
}

func (g *Gateway) generatorStatus(c *gin.Context) {
	cfg := g.generator.Config()
	c.JSON(http.StatusOK, gin.H{"enabled": cfg.Enabled, "config": cfg})
}

func (g *Gateway) generatorStart(c *gin.Context) {
	cfg := g.generator.Config()
	cfg.Enabled = true
	g.generator.SetConfig(cfg)
	c.JSON(http.StatusOK, gin.H{"enabled": true})
}

func (g *Gateway) generatorStop(c *gin.Context) {
	cfg := g.generator.Config()
	cfg.Enabled = false
	g.generator.SetConfig(cfg)
	c.JSON(http.StatusOK, gin.H{"enabled": false})
}

func (g *Gateway) generatorEnable(c *gin.Context) {
	g.generatorStart(c)
}

func (g *Gateway) generatorDisable(c *gin.Context) {
	g.generatorStop(c)
}

func (g *Gateway) generatorGenerate(c *gin.Context) {
	lots, err := g.generator.GenerateManual(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": lots})
}

// generatorGenerateBatch forces a synthesis run of a caller-specified
// size, ignoring the backlog check that gates the regular tick.
func (g *Gateway) generatorGenerateBatch(c *gin.Context) {
	batchSize := queryInt(c, "batch_size", 0)
	cfg := g.generator.Config()
	if batchSize > 0 {
		saved := cfg
		cfg.BatchSize = batchSize
		cfg.MinLots = 1 << 30 // force the backlog check (total >= min_lots) to fail, so it always tops up
		g.generator.SetConfig(cfg)
		defer g.generator.SetConfig(saved)
	}
	lots, err := g.generator.GenerateManual(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": lots})
}

func (g *Gateway) generatorCounts(c *gin.Context) {
	counts, err := g.repo.CountLotsByStatus(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pending": counts.Pending,
		"queued":  counts.Queued,
		"running": counts.Running,
		"total":   counts.Total(),
	})
}

// generatorLog exposes the in-memory provenance log, optionally
// filtered by trigger reason.
func (g *Gateway) generatorLog(c *gin.Context) {
	entries := g.generator.Provenance()
	reason := c.Query("reason")
	limit := queryInt(c, "limit", 100)

	filtered := make([]interface{}, 0, len(entries))
	for i := len(entries) - 1; i >= 0 && len(filtered) < limit; i-- {
		if reason != "" && entries[i].Trigger != reason {
			continue
		}
		filtered = append(filtered, entries[i])
	}
	c.JSON(http.StatusOK, gin.H{"generation_log": filtered})
}
