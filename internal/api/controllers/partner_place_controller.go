package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"vinatravel/internal/models/request_models"
	"vinatravel/internal/services"
	"vinatravel/pkg/middleware"
	"vinatravel/pkg/utils"
)

type PartnerPlaceController struct {
	placeService services.PartnerPlaceServiceInterface
	syncService  services.SyncServiceInterface
}

func NewPartnerPlaceController(placeService services.PartnerPlaceServiceInterface, syncService services.SyncServiceInterface) *PartnerPlaceController {
	return &PartnerPlaceController{
		placeService: placeService,
		syncService:  syncService,
	}
}

// CreatePartnerPlace godoc
// @Summary Create a partner place
// @Description Stores the place and pushes it to the vector index. A failed push leaves the place pending for the sync worker.
// @Tags PartnerPlaces
// @Accept json
// @Produce json
// @Param request body request_models.CreatePartnerPlaceRequest true "Partner place"
// @Success 201 {object} response_models.PartnerPlace
// @Failure 400 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/partner-places [post]
func (p *PartnerPlaceController) CreatePartnerPlace(c *gin.Context) {
	var req request_models.CreatePartnerPlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	place, err := p.placeService.CreatePartnerPlace(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondCreated(c, place, "Partner place created successfully")
}

// ListPartnerPlaces godoc
// @Summary List partner places
// @Tags PartnerPlaces
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20) minimum(1) maximum(100)
// @Param category query string false "Category"
// @Param status query string false "active, inactive or pending"
// @Param minRating query number false "Minimum rating"
// @Param search query string false "Name, description or address contains"
// @Success 200 {object} response_models.PartnerPlacePage
// @Router /admin/partner-places [get]
func (p *PartnerPlaceController) ListPartnerPlaces(c *gin.Context) {
	var q request_models.ListPartnerPlacesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	page, err := p.placeService.ListPartnerPlaces(c.Request.Context(), q)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, page, "Partner places fetched successfully")
}

// GetPartnerPlace godoc
// @Summary Get a partner place
// @Tags PartnerPlaces
// @Produce json
// @Param id path string true "Partner place ID"
// @Success 200 {object} response_models.PartnerPlace
// @Failure 404 {object} utils.APIResponse
// @Router /admin/partner-places/{id} [get]
func (p *PartnerPlaceController) GetPartnerPlace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	place, err := p.placeService.GetPartnerPlace(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, place, "Partner place fetched successfully")
}

// UpdatePartnerPlace godoc
// @Summary Update a partner place
// @Description Partial update. The place is re-queued and re-synced.
// @Tags PartnerPlaces
// @Accept json
// @Produce json
// @Param id path string true "Partner place ID"
// @Param request body request_models.UpdatePartnerPlaceRequest true "Fields to change"
// @Success 200 {object} response_models.PartnerPlace
// @Failure 400 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/partner-places/{id} [put]
func (p *PartnerPlaceController) UpdatePartnerPlace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req request_models.UpdatePartnerPlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	place, err := p.placeService.UpdatePartnerPlace(c.Request.Context(), id, req, middleware.Actor(c))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, place, "Partner place updated successfully")
}

// DeactivatePartnerPlace godoc
// @Summary Deactivate a partner place
// @Tags PartnerPlaces
// @Produce json
// @Param id path string true "Partner place ID"
// @Success 200 {object} response_models.PartnerPlace
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/partner-places/{id}/deactivate [patch]
func (p *PartnerPlaceController) DeactivatePartnerPlace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	place, err := p.placeService.DeactivatePartnerPlace(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, place, "Partner place deactivated successfully")
}

// DeletePartnerPlace godoc
// @Summary Delete a partner place
// @Description Removes the index entry, then the record.
// @Tags PartnerPlaces
// @Produce json
// @Param id path string true "Partner place ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/partner-places/{id} [delete]
func (p *PartnerPlaceController) DeletePartnerPlace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := p.placeService.DeletePartnerPlace(c.Request.Context(), id); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Partner place deleted successfully")
}

// GetSyncStatus godoc
// @Summary Sync statistics
// @Tags PartnerPlaces
// @Produce json
// @Success 200 {object} services.SyncStats
// @Router /admin/partner-places/sync-status [get]
func (p *PartnerPlaceController) GetSyncStatus(c *gin.Context) {
	stats, err := p.syncService.GetSyncStats(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, stats, "Sync status fetched successfully")
}

// RetrySync godoc
// @Summary Run one sync batch now
// @Description Syncs pending places and failed places below the retry ceiling.
// @Tags PartnerPlaces
// @Produce json
// @Success 200 {object} services.SyncSummary
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/partner-places/retry-sync [post]
func (p *PartnerPlaceController) RetrySync(c *gin.Context) {
	summary, err := p.syncService.RetryFailed(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, summary, "Sync batch completed")
}

// SyncOne godoc
// @Summary Sync a single place now
// @Description Ignores the retry ceiling.
// @Tags PartnerPlaces
// @Accept json
// @Produce json
// @Param request body request_models.SyncOneRequest true "Place to sync"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 503 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/partner-places/sync-one [post]
func (p *PartnerPlaceController) SyncOne(c *gin.Context) {
	var req request_models.SyncOneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "A valid place id is required")
		return
	}

	if err := p.syncService.SyncByID(c.Request.Context(), uuid.MustParse(req.ID)); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Partner place synced successfully")
}

// Reconcile godoc
// @Summary Reconcile the vector index with the store
// @Tags PartnerPlaces
// @Produce json
// @Success 200 {object} services.ReconcileSummary
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/partner-places/reconcile [post]
func (p *PartnerPlaceController) Reconcile(c *gin.Context) {
	summary, err := p.syncService.Reconcile(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, summary, "Reconciliation completed")
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid partner place ID")
		return uuid.Nil, false
	}
	return id, true
}
