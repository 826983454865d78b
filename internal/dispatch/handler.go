package dispatch

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/richxcame/ride-pooling/pkg/common"
)

// Handler exposes the dispatch HTTP surface.
type Handler struct {
	service *Service
}

// NewHandler creates a dispatch handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the ride and pool endpoints onto a router group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	rides := api.Group("/rides")
	{
		rides.POST("/request", h.RequestRide)
		rides.GET("/estimate", h.Estimate)
		rides.GET("/user/:userId", h.ListByUser)
		rides.GET("/:id", h.GetRide)
		rides.POST("/:id/cancel", h.CancelRide)
		rides.POST("/match", h.RunMatching)
	}
	pools := api.Group("/pools")
	{
		pools.GET("", h.ListPools)
		pools.GET("/analytics/surge", h.SurgeAnalytics)
		pools.GET("/analytics/stats", h.StatsAnalytics)
		pools.GET("/:id", h.GetPool)
		pools.POST("/:id/start", h.StartPool)
		pools.POST("/:id/complete", h.CompletePool)
	}
}

// RequestRide handles creating a new ride request.
func (h *Handler) RequestRide(c *gin.Context) {
	var req RideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	passenger, err := h.service.CreateRequest(c.Request.Context(), &req)
	if common.HandleServiceError(c, err, "failed to create ride request") {
		return
	}

	estimated := passenger.BaseFare * passenger.SurgeMultiplier
	common.CreatedResponse(c, RideResponse{
		PassengerID:    passenger.ID,
		EstimatedPrice: estimated,
		Status:         string(passenger.State),
	})
}

// GetRide returns a passenger and its pool waypoints.
func (h *Handler) GetRide(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	passenger, waypoints, err := h.service.GetRide(c.Request.Context(), id)
	if common.HandleServiceError(c, err, "failed to get ride") {
		return
	}

	common.SuccessResponse(c, gin.H{
		"passenger": passenger,
		"waypoints": waypoints,
	})
}

// CancelRide handles cancelling a ride request.
func (h *Handler) CancelRide(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	// The body is optional.
	_ = c.ShouldBindJSON(&body)

	err = h.service.CancelRequest(c.Request.Context(), id, body.Reason)
	if common.HandleServiceError(c, err, "failed to cancel ride") {
		return
	}

	common.SuccessResponse(c, CancelResponse{
		PassengerID:  id,
		Status:       string(PassengerCancelled),
		RefundAmount: 0,
	})
}

// ListByUser returns a user's ride requests, optionally filtered by state.
func (h *Handler) ListByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user ID")
		return
	}

	var state *PassengerState
	if raw := c.Query("state"); raw != "" {
		s := PassengerState(raw)
		state = &s
	}

	passengers, err := h.service.ListByUser(c.Request.Context(), userID, state)
	if common.HandleServiceError(c, err, "failed to list rides") {
		return
	}
	common.SuccessResponse(c, passengers)
}

// Estimate prices a route without creating a request.
func (h *Handler) Estimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	quote, zone, err := h.service.Estimate(c.Request.Context(), &req)
	if common.HandleServiceError(c, err, "failed to estimate") {
		return
	}

	payload := gin.H{"pricing": quote}
	if zone != nil {
		payload["surge_zone"] = zone
	}
	common.SuccessResponse(c, payload)
}

// RunMatching triggers one matching cycle.
func (h *Handler) RunMatching(c *gin.Context) {
	result, err := h.service.RunMatchingCycle(c.Request.Context())
	if common.HandleServiceError(c, err, "matching cycle failed") {
		return
	}
	common.SuccessResponse(c, result)
}

// GetPool returns one pool with its waypoints.
func (h *Handler) GetPool(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid pool ID")
		return
	}

	pool, waypoints, err := h.service.GetPool(c.Request.Context(), id)
	if common.HandleServiceError(c, err, "failed to get pool") {
		return
	}
	common.SuccessResponse(c, gin.H{
		"pool":      pool,
		"waypoints": waypoints,
	})
}

// ListPools returns pools, optionally filtered by state.
func (h *Handler) ListPools(c *gin.Context) {
	var state *PoolState
	if raw := c.Query("state"); raw != "" {
		s := PoolState(raw)
		state = &s
	}

	pools, err := h.service.ListPools(c.Request.Context(), state)
	if common.HandleServiceError(c, err, "failed to list pools") {
		return
	}
	common.SuccessResponse(c, pools)
}

// StartPool moves a pool into transit.
func (h *Handler) StartPool(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid pool ID")
		return
	}
	if common.HandleServiceError(c, h.service.StartPool(c.Request.Context(), id), "failed to start pool") {
		return
	}
	common.SuccessResponse(c, gin.H{"pool_id": id, "state": PoolInTransit})
}

// CompletePool finishes a pool in transit.
func (h *Handler) CompletePool(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid pool ID")
		return
	}
	if common.HandleServiceError(c, h.service.CompletePool(c.Request.Context(), id), "failed to complete pool") {
		return
	}
	common.SuccessResponse(c, gin.H{"pool_id": id, "state": PoolCompleted})
}

// SurgeAnalytics returns the current surge zones.
func (h *Handler) SurgeAnalytics(c *gin.Context) {
	zones, err := h.service.SurgeSnapshot(c.Request.Context())
	if common.HandleServiceError(c, err, "failed to read surge zones") {
		return
	}
	common.SuccessResponse(c, zones)
}

// StatsAnalytics returns aggregate pool statistics.
func (h *Handler) StatsAnalytics(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if common.HandleServiceError(c, err, "failed to read pool stats") {
		return
	}
	common.SuccessResponse(c, stats)
}
