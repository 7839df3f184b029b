package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SUNET/go-federation/pkg/logging"
)

// HealthResponse represents the response from health check endpoints.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse represents the response from the readiness endpoint.
type ReadinessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	EntityID  string    `json:"entity_id,omitempty"`
	Ready     bool      `json:"ready"`
	Message   string    `json:"message,omitempty"`
}

// RegisterHealthEndpoints registers health check endpoints on the
// given Gin router.
//
//	GET /health       - Liveness probe: returns 200 if the process is running
//	GET /healthz      - Alias for /health
//	GET /ready        - Readiness probe: returns 200 once the entity's key pair is initialized
//	GET /readiness    - Alias for /ready
func RegisterHealthEndpoints(r *gin.Engine, serverCtx *ServerContext) {
	r.GET("/health", HealthHandler(serverCtx))
	r.GET("/healthz", HealthHandler(serverCtx))
	r.GET("/ready", ReadinessHandler(serverCtx))
	r.GET("/readiness", ReadinessHandler(serverCtx))

	serverCtx.Logger.Info("health check endpoints registered",
		logging.F("endpoints", []string{"/health", "/healthz", "/ready", "/readiness"}))
}

// HealthHandler godoc
// @Summary Liveness check
// @Description Returns OK if the server is running and able to handle requests
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
// @Router /healthz [get]
func HealthHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		serverCtx.Logger.Debug("health check requested",
			logging.F("remote_ip", c.ClientIP()),
			logging.F("endpoint", c.Request.URL.Path))

		c.JSON(200, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
		})
	}
}

// ReadinessHandler godoc
// @Summary Readiness check
// @Description Returns ready once the entity's signing key pair has been provisioned
// @Tags Health
// @Produce json
// @Success 200 {object} ReadinessResponse "Service is ready"
// @Failure 503 {object} ReadinessResponse "Service is not ready"
// @Router /ready [get]
// @Router /readiness [get]
func ReadinessHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		kid := serverCtx.KeyManager.KeyID()
		ready := kid != ""

		response := ReadinessResponse{
			Timestamp: time.Now(),
			EntityID:  serverCtx.State.EntityID(),
			Ready:     ready,
		}

		if ready {
			response.Status = "ready"
			response.Message = "entity key pair initialized"
			c.JSON(200, response)
			return
		}

		response.Status = "not_ready"
		response.Message = "entity key pair not yet initialized"
		serverCtx.Logger.Warn("readiness check failed",
			logging.F("remote_ip", c.ClientIP()),
			logging.F("reason", response.Message))
		c.JSON(503, response)
	}
}
