package gateway

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabcore/mescontrol/internal/apierr"
)

// authMiddleware requires a valid agent bearer token and makes the
// agent id and kind available to handlers.
func (g *Gateway) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		claims, err := g.agents.Verify(header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("agent_id", claims.AgentID)
		c.Set("agent_kind", claims.Kind)
		c.Next()
	}
}

// tracingMiddleware propagates or mints a correlation id used by
// apierr.Internal to tag opaque failures.
func (g *Gateway) tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		c.Set("correlation_id", correlationID)
		c.Header("X-Correlation-ID", correlationID)
		c.Next()
	}
}

// corsMiddleware allows configured origins, by exact match or regex,
// for operator consoles served from a different origin than the API.
func (g *Gateway) corsMiddleware() gin.HandlerFunc {
	var originRegex *regexp.Regexp
	if g.cfg.CORSAllowRegex != "" {
		originRegex = regexp.MustCompile(g.cfg.CORSAllowRegex)
	}
	allowed := make(map[string]bool, len(g.cfg.CORSAllowOrigins))
	for _, o := range g.cfg.CORSAllowOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed["*"] || allowed[origin] || (originRegex != nil && originRegex.MatchString(origin))) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Correlation-ID")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// respondErr maps an apierr.Error (or any other error) to the HTTP
// status and JSON body its Kind implies.
func respondErr(c *gin.Context, err error) {
	if apiErr, ok := apierr.As(err); ok {
		body := gin.H{"error": apiErr.Message}
		if apiErr.CorrelationID != "" {
			body["correlation_id"] = apiErr.CorrelationID
		}
		c.JSON(apiErr.Status(), body)
		return
	}
	correlationID, _ := c.Get("correlation_id")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "correlation_id": correlationID})
}
