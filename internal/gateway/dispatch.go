package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fabcore/mescontrol/internal/repository"
	"github.com/fabcore/mescontrol/pkg/circuit"
)

// runDispatch triggers one scheduler batch.
func (g *Gateway) runDispatch(c *gin.Context) {
	var result interface{}
	err := g.breakers.Execute(c.Request.Context(), "dispatch", func() error {
		r, err := g.scheduler.RunBatch(c.Request.Context())
		result = r
		return err
	})
	if err != nil {
		if err == circuit.ErrCircuitOpen {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dispatch temporarily unavailable"})
			return
		}
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// dispatchQueue returns the top n prioritized pending lots without
// mutating anything.
func (g *Gateway) dispatchQueue(c *gin.Context) {
	n := queryInt(c, "limit", 5)
	items, err := g.scheduler.NextQueue(c.Request.Context(), n)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue": items})
}

// dispatchHistory returns the most recent dispatch decisions.
func (g *Gateway) dispatchHistory(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	records, err := g.repo.ListDispatchRecords(c.Request.Context(), repository.DispatchFilter{Limit: limit})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
