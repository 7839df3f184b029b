package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SUNET/go-federation/pkg/entity"
	"github.com/SUNET/go-federation/pkg/logging"
	"github.com/SUNET/go-federation/pkg/statement"
	"github.com/SUNET/go-federation/pkg/trustmark"
)

// StatementTTL is how long freshly minted Entity Configurations and
// Subordinate Statements remain valid, per spec.md §4.4/§4.5. The
// spec leaves the concrete duration unspecified; 24h matches the
// lifetime OpenID Federation implementations commonly use for
// frequently-refetched statements.
const StatementTTL = 24 * time.Hour

func errorJSON(c *gin.Context, status int, reason string) {
	c.JSON(status, gin.H{"error": reason})
}

// entityErrorJSON maps an entity package sentinel to the HTTP status
// spec.md §7's error taxonomy assigns it. The External Interface Layer
// is the only place that translates these to wire responses.
func entityErrorJSON(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entity.ErrNotFound), errors.Is(err, entity.ErrUnknownSubordinate):
		errorJSON(c, http.StatusNotFound, err.Error())
	case errors.Is(err, entity.ErrBadRequest), errors.Is(err, entity.ErrSubjectMismatch):
		errorJSON(c, http.StatusBadRequest, err.Error())
	default:
		errorJSON(c, http.StatusInternalServerError, err.Error())
	}
}

// RegisterFederationEndpoints mounts the federation-facing endpoints
// spec.md §6.1 specifies: the well-known Entity Configuration document
// and the Subordinate Statement fetch endpoint.
func RegisterFederationEndpoints(r *gin.Engine, serverCtx *ServerContext) {
	r.GET("/.well-known/openid-federation", EntityConfigurationHandler(serverCtx))
	r.GET("/fetch", FetchSubordinateHandler(serverCtx))
}

// EntityConfigurationHandler godoc
// @Summary Entity Configuration
// @Description Returns this entity's self-signed Entity Configuration
// @Tags Federation
// @Produce application/entity-statement+jwt
// @Success 200 {string} string "signed JWT"
// @Failure 500 {object} map[string]string
// @Router /.well-known/openid-federation [get]
func EntityConfigurationHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		serverCtx.RLock()
		jwtStr, err := statement.BuildEntityConfiguration(serverCtx.State, serverCtx.KeyManager, StatementTTL, time.Now())
		serverCtx.RUnlock()
		if err != nil {
			serverCtx.Logger.WithError(err).Error("failed to build entity configuration")
			if serverCtx.Metrics != nil {
				serverCtx.Metrics.RecordError("sign_failure", "entity_configuration")
			}
			errorJSON(c, http.StatusInternalServerError, "failed to sign entity configuration")
			return
		}
		c.Data(http.StatusOK, "application/entity-statement+jwt", []byte(jwtStr))
	}
}

// FetchSubordinateHandler godoc
// @Summary Subordinate Statement
// @Description Returns a signed Subordinate Statement about the subordinate named by ?sub=
// @Tags Federation
// @Produce application/entity-statement+jwt
// @Param sub query string true "Subordinate entity identifier"
// @Success 200 {string} string "signed JWT"
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /fetch [get]
func FetchSubordinateHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := c.Query("sub")
		if sub == "" {
			entityErrorJSON(c, fmt.Errorf("%w: missing required query parameter: sub", entity.ErrBadRequest))
			return
		}

		serverCtx.RLock()
		rec, ok := serverCtx.State.Subordinate(sub)
		serverCtx.RUnlock()
		if !ok {
			entityErrorJSON(c, fmt.Errorf("%w: %s", entity.ErrUnknownSubordinate, sub))
			return
		}

		jwtStr, err := statement.BuildSubordinateStatement(serverCtx.State, rec, serverCtx.KeyManager, StatementTTL, time.Now())
		if err != nil {
			serverCtx.Logger.WithError(err).WithFields(logging.F("sub", sub)).Error("failed to build subordinate statement")
			if serverCtx.Metrics != nil {
				serverCtx.Metrics.RecordError("sign_failure", "subordinate_statement")
			}
			errorJSON(c, http.StatusInternalServerError, "failed to sign subordinate statement")
			return
		}
		c.Data(http.StatusOK, "application/entity-statement+jwt", []byte(jwtStr))
	}
}

// RegisterManagementEndpoints mounts the operator-facing /manage/*
// endpoints spec.md §6.1 specifies.
func RegisterManagementEndpoints(r *gin.Engine, serverCtx *ServerContext) {
	g := r.Group("/manage")

	g.GET("/entity", EntitySummaryHandler(serverCtx))
	g.POST("/entity/authority-hints", SetAuthorityHintsHandler(serverCtx))

	g.GET("/subordinates", ListSubordinatesHandler(serverCtx))
	g.POST("/subordinates", UpsertSubordinateHandler(serverCtx))
	g.GET("/subordinates/*id", GetSubordinateHandler(serverCtx))
	g.PUT("/subordinates/*id", UpdateSubordinateHandler(serverCtx))
	g.DELETE("/subordinates/*id", DeleteSubordinateHandler(serverCtx))

	g.GET("/trust-marks", ListIssuedTrustMarksHandler(serverCtx))
	g.POST("/trust-marks", IssueTrustMarkHandler(serverCtx))
	g.GET("/trust-marks/*id", GetIssuedTrustMarkHandler(serverCtx))
	g.DELETE("/trust-marks/*id", RevokeTrustMarkHandler(serverCtx))

	g.GET("/entity/trust-marks", ListReceivedTrustMarksHandler(serverCtx))
	g.POST("/entity/trust-marks", AddReceivedTrustMarkHandler(serverCtx))
}

// trimWildcard strips the leading "/" gin's match-all (*id) route
// parameter carries, so "{id}" can contain its own slashes per
// spec.md §6.1.
func trimWildcard(raw string) string {
	return strings.TrimPrefix(raw, "/")
}

// entitySummary is the JSON shape GET /manage/entity returns.
type entitySummary struct {
	EntityID       string   `json:"entity_id"`
	AuthorityHints []string `json:"authority_hints"`
	KeyID          string   `json:"kid"`
	Subordinates   int      `json:"subordinate_count"`
	IssuedMarks    int      `json:"issued_trust_mark_count"`
	ReceivedMarks  int      `json:"received_trust_mark_count"`
}

// EntitySummaryHandler godoc
// @Summary Read Entity State summary
// @Tags Management
// @Produce json
// @Success 200 {object} entitySummary
// @Router /manage/entity [get]
func EntitySummaryHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		serverCtx.RLock()
		defer serverCtx.RUnlock()

		c.JSON(http.StatusOK, entitySummary{
			EntityID:       serverCtx.State.EntityID(),
			AuthorityHints: serverCtx.State.AuthorityHints(),
			KeyID:          serverCtx.KeyManager.KeyID(),
			Subordinates:   len(serverCtx.State.Subordinates()),
			IssuedMarks:    len(serverCtx.State.IssuedTrustMarks()),
			ReceivedMarks:  len(serverCtx.State.ReceivedTrustMarks()),
		})
	}
}

type setAuthorityHintsRequest struct {
	AuthorityHints []string `json:"authority_hints"`
}

// SetAuthorityHintsHandler godoc
// @Summary Set this entity's authority hints
// @Tags Management
// @Accept json
// @Produce json
// @Param body body setAuthorityHintsRequest true "authority hints"
// @Success 200 {object} entitySummary
// @Failure 400 {object} map[string]string
// @Router /manage/entity/authority-hints [post]
func SetAuthorityHintsHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setAuthorityHintsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			entityErrorJSON(c, fmt.Errorf("%w: invalid request body: %v", entity.ErrBadRequest, err))
			return
		}

		serverCtx.Lock()
		serverCtx.State.SetAuthorityHints(req.AuthorityHints)
		serverCtx.Unlock()

		serverCtx.Logger.Info("authority hints updated", logging.F("count", len(req.AuthorityHints)))
		EntitySummaryHandler(serverCtx)(c)
	}
}

// subordinateRequest is the JSON body for POST/PUT /manage/subordinates.
type subordinateRequest struct {
	EntityID               string         `json:"entity_id" binding:"required"`
	JWKS                   map[string]any `json:"jwks" binding:"required"`
	Metadata               map[string]any `json:"metadata"`
	DeclaredAuthorityHints []string       `json:"authority_hints"`
	SourceEndpoint         string         `json:"source_endpoint"`
}

func subordinateToJSON(rec entity.SubordinateRecord) gin.H {
	return gin.H{
		"entity_id":       rec.EntityID,
		"jwks":            rec.JWKS,
		"metadata":        rec.Metadata,
		"authority_hints": rec.DeclaredAuthorityHints,
		"source_endpoint": rec.SourceEndpoint,
		"created_at":      rec.CreatedAt,
	}
}

// ListSubordinatesHandler godoc
// @Summary List registered subordinates
// @Tags Management
// @Produce json
// @Success 200 {array} map[string]interface{}
// @Router /manage/subordinates [get]
func ListSubordinatesHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		serverCtx.RLock()
		recs := serverCtx.State.Subordinates()
		serverCtx.RUnlock()

		out := make([]gin.H, 0, len(recs))
		for _, rec := range recs {
			out = append(out, subordinateToJSON(rec))
		}
		c.JSON(http.StatusOK, out)
	}
}

// UpsertSubordinateHandler godoc
// @Summary Register or update a subordinate
// @Tags Management
// @Accept json
// @Produce json
// @Param body body subordinateRequest true "subordinate record"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /manage/subordinates [post]
func UpsertSubordinateHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subordinateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			entityErrorJSON(c, fmt.Errorf("%w: invalid request body: %v", entity.ErrBadRequest, err))
			return
		}

		rec := entity.SubordinateRecord{
			EntityID:               req.EntityID,
			JWKS:                   req.JWKS,
			Metadata:               req.Metadata,
			DeclaredAuthorityHints: req.DeclaredAuthorityHints,
			SourceEndpoint:         req.SourceEndpoint,
			CreatedAt:              time.Now().Unix(),
		}

		serverCtx.Lock()
		serverCtx.State.AddSubordinate(rec)
		stored, _ := serverCtx.State.Subordinate(req.EntityID)
		serverCtx.Unlock()

		serverCtx.Logger.Info("subordinate registered", logging.F("entity_id", req.EntityID))
		c.JSON(http.StatusOK, subordinateToJSON(stored))
	}
}

// GetSubordinateHandler godoc
// @Summary Read one subordinate
// @Tags Management
// @Produce json
// @Param id path string true "subordinate entity identifier (may contain slashes)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /manage/subordinates/{id} [get]
func GetSubordinateHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := trimWildcard(c.Param("id"))
		serverCtx.RLock()
		rec, ok := serverCtx.State.Subordinate(id)
		serverCtx.RUnlock()
		if !ok {
			entityErrorJSON(c, fmt.Errorf("%w: %s", entity.ErrNotFound, id))
			return
		}
		c.JSON(http.StatusOK, subordinateToJSON(rec))
	}
}

// UpdateSubordinateHandler godoc
// @Summary Update one subordinate
// @Tags Management
// @Accept json
// @Produce json
// @Param id path string true "subordinate entity identifier"
// @Param body body subordinateRequest true "subordinate record"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /manage/subordinates/{id} [put]
func UpdateSubordinateHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := trimWildcard(c.Param("id"))

		serverCtx.RLock()
		_, exists := serverCtx.State.Subordinate(id)
		serverCtx.RUnlock()
		if !exists {
			entityErrorJSON(c, fmt.Errorf("%w: %s", entity.ErrNotFound, id))
			return
		}

		var req subordinateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			entityErrorJSON(c, fmt.Errorf("%w: invalid request body: %v", entity.ErrBadRequest, err))
			return
		}
		req.EntityID = id

		rec := entity.SubordinateRecord{
			EntityID:               id,
			JWKS:                   req.JWKS,
			Metadata:               req.Metadata,
			DeclaredAuthorityHints: req.DeclaredAuthorityHints,
			SourceEndpoint:         req.SourceEndpoint,
			CreatedAt:              time.Now().Unix(),
		}

		serverCtx.Lock()
		serverCtx.State.AddSubordinate(rec)
		stored, _ := serverCtx.State.Subordinate(id)
		serverCtx.Unlock()

		serverCtx.Logger.Info("subordinate updated", logging.F("entity_id", id))
		c.JSON(http.StatusOK, subordinateToJSON(stored))
	}
}

// DeleteSubordinateHandler godoc
// @Summary Delete one subordinate
// @Tags Management
// @Produce json
// @Param id path string true "subordinate entity identifier"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /manage/subordinates/{id} [delete]
func DeleteSubordinateHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := trimWildcard(c.Param("id"))

		serverCtx.Lock()
		removed := serverCtx.State.RemoveSubordinate(id)
		serverCtx.Unlock()

		if !removed {
			entityErrorJSON(c, fmt.Errorf("%w: %s", entity.ErrNotFound, id))
			return
		}
		serverCtx.Logger.Info("subordinate removed", logging.F("entity_id", id))
		c.JSON(http.StatusOK, gin.H{"entity_id": id, "removed": true})
	}
}

func issuedTrustMarkToJSON(rec entity.TrustMarkRecord) gin.H {
	out := gin.H{
		"id":         rec.ID,
		"issuer":     rec.Issuer,
		"subject":    rec.Subject,
		"issued_at":  rec.IssuedAt,
		"signed_jwt": rec.SignedJWT,
	}
	if rec.ExpiresAt != nil {
		out["expires_at"] = *rec.ExpiresAt
	}
	return out
}

// issueTrustMarkRequest is the JSON body for POST /manage/trust-marks.
type issueTrustMarkRequest struct {
	TrustMarkID string `json:"trust_mark_id" binding:"required"`
	Subject     string `json:"subject" binding:"required"`
	ExpiresIn   *int64 `json:"expires_in"`
}

// IssueTrustMarkHandler godoc
// @Summary Issue a Trust Mark
// @Tags Management
// @Accept json
// @Produce json
// @Param body body issueTrustMarkRequest true "trust mark request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /manage/trust-marks [post]
func IssueTrustMarkHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req issueTrustMarkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			entityErrorJSON(c, fmt.Errorf("%w: invalid request body: %v", entity.ErrBadRequest, err))
			return
		}

		now := time.Now()
		var expiresAt *time.Time
		if req.ExpiresIn != nil {
			t := now.Add(time.Duration(*req.ExpiresIn) * time.Second)
			expiresAt = &t
		}

		issuer := trustmark.NewIssuer(serverCtx.State, serverCtx.KeyManager)
		jwtStr, err := issuer.Issue(req.TrustMarkID, req.Subject, expiresAt, now)
		if err != nil {
			serverCtx.Logger.WithError(err).Error("failed to issue trust mark")
			if serverCtx.Metrics != nil {
				serverCtx.Metrics.RecordError("sign_failure", "trust_mark_issue")
			}
			errorJSON(c, http.StatusInternalServerError, "failed to issue trust mark")
			return
		}

		rec, _ := serverCtx.State.IssuedTrustMark(req.TrustMarkID)
		resp := issuedTrustMarkToJSON(rec)
		resp["signed_jwt"] = jwtStr
		c.JSON(http.StatusOK, resp)
	}
}

// ListIssuedTrustMarksHandler godoc
// @Summary List issued Trust Marks
// @Tags Management
// @Produce json
// @Success 200 {array} map[string]interface{}
// @Router /manage/trust-marks [get]
func ListIssuedTrustMarksHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		serverCtx.RLock()
		recs := serverCtx.State.IssuedTrustMarks()
		serverCtx.RUnlock()

		out := make([]gin.H, 0, len(recs))
		for _, rec := range recs {
			out = append(out, issuedTrustMarkToJSON(rec))
		}
		c.JSON(http.StatusOK, out)
	}
}

// GetIssuedTrustMarkHandler godoc
// @Summary Read one issued Trust Mark
// @Tags Management
// @Produce json
// @Param id path string true "trust mark identifier"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /manage/trust-marks/{id} [get]
func GetIssuedTrustMarkHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := trimWildcard(c.Param("id"))
		serverCtx.RLock()
		rec, ok := serverCtx.State.IssuedTrustMark(id)
		serverCtx.RUnlock()
		if !ok {
			entityErrorJSON(c, fmt.Errorf("%w: trust mark %s", entity.ErrNotFound, id))
			return
		}
		c.JSON(http.StatusOK, issuedTrustMarkToJSON(rec))
	}
}

// RevokeTrustMarkHandler godoc
// @Summary Revoke (withdraw) an issued Trust Mark
// @Tags Management
// @Produce json
// @Param id path string true "trust mark identifier"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /manage/trust-marks/{id} [delete]
func RevokeTrustMarkHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := trimWildcard(c.Param("id"))

		serverCtx.Lock()
		issuer := trustmark.NewIssuer(serverCtx.State, serverCtx.KeyManager)
		removed := issuer.Revoke(id)
		serverCtx.Unlock()

		if !removed {
			entityErrorJSON(c, fmt.Errorf("%w: trust mark %s", entity.ErrNotFound, id))
			return
		}
		serverCtx.Logger.Info("trust mark revoked", logging.F("id", id))
		c.JSON(http.StatusOK, gin.H{"id": id, "revoked": true})
	}
}

func receivedTrustMarkToJSON(rec entity.TrustMarkRecord) gin.H {
	out := gin.H{
		"id":         rec.ID,
		"issuer":     rec.Issuer,
		"subject":    rec.Subject,
		"issued_at":  rec.IssuedAt,
		"signed_jwt": rec.SignedJWT,
	}
	if rec.ExpiresAt != nil {
		out["expires_at"] = *rec.ExpiresAt
	}
	return out
}

// addReceivedTrustMarkRequest is the JSON body for
// POST /manage/entity/trust-marks.
type addReceivedTrustMarkRequest struct {
	SignedJWT string `json:"signed_jwt" binding:"required"`
}

// AddReceivedTrustMarkHandler godoc
// @Summary Record a Trust Mark received from another entity
// @Tags Management
// @Accept json
// @Produce json
// @Param body body addReceivedTrustMarkRequest true "received trust mark"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /manage/entity/trust-marks [post]
func AddReceivedTrustMarkHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addReceivedTrustMarkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			entityErrorJSON(c, fmt.Errorf("%w: invalid request body: %v", entity.ErrBadRequest, err))
			return
		}

		claims, err := statement.UnverifiedClaims(req.SignedJWT)
		if err != nil {
			entityErrorJSON(c, fmt.Errorf("%w: malformed trust mark jwt: %v", entity.ErrBadRequest, err))
			return
		}

		sub := statement.StringClaim(claims, "sub")
		if sub != serverCtx.State.EntityID() {
			entityErrorJSON(c, fmt.Errorf("%w: trust mark subject does not match this entity", entity.ErrSubjectMismatch))
			return
		}

		rec := entity.TrustMarkRecord{
			ID:      statement.StringClaim(claims, "id"),
			Issuer:  statement.StringClaim(claims, "iss"),
			Subject: sub,
		}
		if iat, ok := statement.Int64Claim(claims, "iat"); ok {
			rec.IssuedAt = iat
		}
		if exp, ok := statement.Int64Claim(claims, "exp"); ok {
			rec.ExpiresAt = &exp
		}
		rec.SignedJWT = req.SignedJWT

		issuer := trustmark.NewIssuer(serverCtx.State, serverCtx.KeyManager)
		issuer.AddReceived(rec)

		serverCtx.Logger.Info("received trust mark recorded",
			logging.F("id", rec.ID), logging.F("issuer", rec.Issuer))
		c.JSON(http.StatusOK, receivedTrustMarkToJSON(rec))
	}
}

// ListReceivedTrustMarksHandler godoc
// @Summary List Trust Marks received by this entity
// @Tags Management
// @Produce json
// @Success 200 {array} map[string]interface{}
// @Router /manage/entity/trust-marks [get]
func ListReceivedTrustMarksHandler(serverCtx *ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		serverCtx.RLock()
		recs := serverCtx.State.ReceivedTrustMarks()
		serverCtx.RUnlock()

		out := make([]gin.H, 0, len(recs))
		for _, rec := range recs {
			out = append(out, receivedTrustMarkToJSON(rec))
		}
		c.JSON(http.StatusOK, out)
	}
}
