package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SUNET/go-federation/pkg/authzen"
	"github.com/SUNET/go-federation/pkg/logging"
	"github.com/SUNET/go-federation/pkg/registry"
)

// RegisterAuthZENEndpoints mounts the AuthZEN Trust Registry Profile
// bridge endpoint, per SPEC_FULL.md §3.6: an inbound AuthZEN trust
// evaluation request is answered by resolving the named entity's trust
// chain through this process's own Trust Chain Resolver.
func RegisterAuthZENEndpoints(r *gin.Engine, serverCtx *ServerContext, reg registry.TrustRegistry) {
	r.POST("/authzen/decision", AuthZENDecisionHandler(serverCtx, reg))
}

// AuthZENDecisionHandler godoc
// @Summary AuthZEN trust evaluation
// @Description Evaluates a name-to-key binding against this entity's configured trust anchors
// @Tags AuthZEN
// @Accept json
// @Produce json
// @Param body body authzen.EvaluationRequest true "trust evaluation request"
// @Success 200 {object} authzen.EvaluationResponse
// @Failure 400 {object} map[string]string
// @Router /authzen/decision [post]
func AuthZENDecisionHandler(serverCtx *ServerContext, reg registry.TrustRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reg == nil {
			errorJSON(c, http.StatusServiceUnavailable, "no trust registry configured")
			return
		}

		var req authzen.EvaluationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := req.Validate(); err != nil {
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}

		resp, err := reg.Evaluate(c.Request.Context(), &req)
		if err != nil {
			serverCtx.Logger.WithError(err).Error("authzen evaluation failed")
			if serverCtx.Metrics != nil {
				serverCtx.Metrics.RecordError("evaluation_failure", "authzen_decision")
			}
			errorJSON(c, http.StatusInternalServerError, "evaluation failed")
			return
		}

		serverCtx.Logger.Debug("authzen decision evaluated",
			logging.F("subject", req.Subject.ID), logging.F("decision", resp.Decision))
		if serverCtx.Metrics != nil {
			serverCtx.Metrics.RecordTrustMarkValidation(resp.Decision)
		}
		c.JSON(http.StatusOK, resp)
	}
}
