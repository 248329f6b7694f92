package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"vinatravel/internal/models/request_models"
	"vinatravel/internal/services"
	"vinatravel/pkg/logger"
	"vinatravel/pkg/utils"
)

type HybridSearchController struct {
	searchService services.HybridSearchServiceInterface
	logger        logger.ILogger
}

func NewHybridSearchController(searchService services.HybridSearchServiceInterface, log logger.ILogger) *HybridSearchController {
	return &HybridSearchController{
		searchService: searchService,
		logger:        log,
	}
}

// Search godoc
// @Summary Hybrid place search
// @Description Semantic search over partner places, enriched with Google Maps data and supplemented with Google results.
// @Tags HybridSearch
// @Accept json
// @Produce json
// @Param request body request_models.HybridSearchRequest true "Search request"
// @Success 200 {object} services.SearchEnvelope
// @Failure 400 {object} utils.APIResponse
// @Failure 503 {object} utils.APIResponse
// @Router /hybrid-search/search [post]
func (h *HybridSearchController) Search(c *gin.Context) {
	var req request_models.HybridSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Query is required")
		return
	}

	opts := services.SearchOptions{
		Limit:    req.Limit,
		Category: req.Category,
		RadiusKm: req.Radius,
	}
	if req.Location != nil {
		if req.Location.Lat == nil || req.Location.Lng == nil {
			utils.RespondError(c, http.StatusBadRequest, "Location needs both lat and lng")
			return
		}
		opts.Location = &utils.LatLng{Lat: *req.Location.Lat, Lng: *req.Location.Lng}
	}

	env, err := h.searchService.HybridSearch(c.Request.Context(), req.Query, opts)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, env, env.Message)
}

// SearchNear godoc
// @Summary Hybrid search around a location
// @Tags HybridSearch
// @Accept json
// @Produce json
// @Param request body request_models.SearchNearRequest true "Search request"
// @Success 200 {object} services.SearchEnvelope
// @Failure 400 {object} utils.APIResponse
// @Failure 503 {object} utils.APIResponse
// @Router /hybrid-search/search-near [post]
func (h *HybridSearchController) SearchNear(c *gin.Context) {
	var req request_models.SearchNearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Query and location are required")
		return
	}
	if req.Location.Lat == nil || req.Location.Lng == nil {
		utils.RespondError(c, http.StatusBadRequest, "Location needs both lat and lng")
		return
	}

	loc := &utils.LatLng{Lat: *req.Location.Lat, Lng: *req.Location.Lng}
	env, err := h.searchService.SearchNear(c.Request.Context(), req.Query, loc, req.Radius, req.Limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, env, env.Message)
}

// Stats godoc
// @Summary Search metrics
// @Tags HybridSearch
// @Produce json
// @Success 200 {object} services.SearchStats
// @Router /hybrid-search/stats [get]
func (h *HybridSearchController) Stats(c *gin.Context) {
	utils.RespondSuccess(c, h.searchService.Stats(c.Request.Context()), "Search stats fetched successfully")
}

// Health godoc
// @Summary Search health
// @Description 200 when the vector index and Google Maps are both reachable, 503 otherwise.
// @Tags HybridSearch
// @Produce json
// @Success 200 {object} services.HealthReport
// @Failure 503 {object} services.HealthReport
// @Router /hybrid-search/health [get]
func (h *HybridSearchController) Health(c *gin.Context) {
	report := h.searchService.Health(c.Request.Context())
	if !report.Healthy() {
		utils.RespondWithStatus(c, http.StatusServiceUnavailable, report, "Search is "+report.Status)
		return
	}
	utils.RespondSuccess(c, report, "Search is healthy")
}

// ClearCache godoc
// @Summary Clear the search result cache
// @Tags HybridSearch
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /hybrid-search/cache [delete]
func (h *HybridSearchController) ClearCache(c *gin.Context) {
	if err := h.searchService.InvalidateCache(c.Request.Context()); err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, nil, "Search cache cleared")
}

// CacheStats godoc
// @Summary Search cache statistics
// @Tags HybridSearch
// @Produce json
// @Success 200 {object} cache.Stats
// @Router /hybrid-search/cache/stats [get]
func (h *HybridSearchController) CacheStats(c *gin.Context) {
	stats, err := h.searchService.CacheStats(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, stats, "Cache stats fetched successfully")
}

// Logs godoc
// @Summary Recent search log entries
// @Tags HybridSearch
// @Produce json
// @Param level query string false "DEBUG, INFO, WARN or ERROR"
// @Param module query string false "Logger module, e.g. hybrid_search or sync"
// @Param limit query int false "Entries to return" default(50) maximum(500)
// @Param offset query int false "Entries to skip" default(0)
// @Success 200 {array} logger.LogEntry
// @Security BearerAuth
// @Router /hybrid-search/logs [get]
func (h *HybridSearchController) Logs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		utils.RespondError(c, http.StatusBadRequest, "Invalid limit (must be 1-500)")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		utils.RespondError(c, http.StatusBadRequest, "Invalid offset")
		return
	}

	entries, err := h.logger.GetLogs(c.Query("level"), c.Query("module"), limit, offset)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, entries, "Logs fetched successfully")
}
