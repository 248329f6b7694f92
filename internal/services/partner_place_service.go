package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"vinatravel/internal/models/db_models"
	"vinatravel/internal/models/request_models"
	"vinatravel/internal/models/response_models"
	"vinatravel/internal/repositories"
	"vinatravel/pkg/logger"
	"vinatravel/pkg/utils"
)

const partnerModule = "partner_places"

type PartnerPlaceServiceInterface interface {
	CreatePartnerPlace(ctx context.Context, req request_models.CreatePartnerPlaceRequest, actor *uuid.UUID) (response_models.PartnerPlace, error)
	UpdatePartnerPlace(ctx context.Context, id uuid.UUID, req request_models.UpdatePartnerPlaceRequest, actor *uuid.UUID) (response_models.PartnerPlace, error)
	GetPartnerPlace(ctx context.Context, id uuid.UUID) (response_models.PartnerPlace, error)
	ListPartnerPlaces(ctx context.Context, q request_models.ListPartnerPlacesQuery) (response_models.PartnerPlacePage, error)
	DeactivatePartnerPlace(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (response_models.PartnerPlace, error)
	DeletePartnerPlace(ctx context.Context, id uuid.UUID) error
}

type PartnerPlaceService struct {
	places    repositories.PartnerPlaceRepository
	sync      SyncServiceInterface
	validator *validator.Validate
	logger    logger.ILogger
	now       func() time.Time
}

func NewPartnerPlaceService(places repositories.PartnerPlaceRepository, sync SyncServiceInterface, log logger.ILogger) *PartnerPlaceService {
	return &PartnerPlaceService{
		places:    places,
		sync:      sync,
		validator: NewPlaceValidator(),
		logger:    log,
		now:       time.Now,
	}
}

// NewPlaceValidator returns a validator that knows the partner_category tag.
func NewPlaceValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("partner_category", func(fl validator.FieldLevel) bool {
		return db_models.IsValidCategory(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("failed to register partner_category validator: %v", err))
	}
	return v
}

func (s *PartnerPlaceService) CreatePartnerPlace(ctx context.Context, req request_models.CreatePartnerPlaceRequest, actor *uuid.UUID) (response_models.PartnerPlace, error) {
	place := &db_models.PartnerPlace{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Address:      req.Address,
		Category:     req.Category,
		Tags:         req.Tags,
		Priority:     req.Priority,
		Status:       db_models.PlaceStatus(req.Status),
		Rating:       req.Rating,
		ReviewCount:  req.ReviewCount,
		PriceRange:   req.PriceRange,
		AveragePrice: req.AveragePrice,
		OpeningHours: req.OpeningHours,
		Contact: db_models.ContactInfo{
			Phone:   req.Contact.Phone,
			Email:   req.Contact.Email,
			Website: req.Contact.Website,
		},
		Images:     req.Images,
		Thumbnail:  req.Thumbnail,
		Amenities:  req.Amenities,
		SyncStatus: db_models.SyncStatusPending,
		AddedBy:    actor,
		UpdatedBy:  actor,
	}
	if req.Latitude != nil {
		place.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		place.Longitude = *req.Longitude
	}
	if place.Priority == 0 {
		place.Priority = 1
	}
	if place.Status == "" {
		place.Status = db_models.PlaceStatusActive
	}

	if err := s.validate(place); err != nil {
		return response_models.PartnerPlace{}, err
	}

	if _, err := s.places.Create(ctx, place); err != nil {
		s.logger.Error(partnerModule, "failed to create partner place", map[string]interface{}{"error": err.Error()})
		return response_models.PartnerPlace{}, utils.ErrDatabaseError
	}
	s.logger.Info(partnerModule, "partner place created", map[string]interface{}{"place_id": place.ID.String(), "name": place.Name})

	s.syncBestEffort(ctx, place)
	return ToPartnerPlaceResponse(place), nil
}

func (s *PartnerPlaceService) UpdatePartnerPlace(ctx context.Context, id uuid.UUID, req request_models.UpdatePartnerPlaceRequest, actor *uuid.UUID) (response_models.PartnerPlace, error) {
	place, err := s.load(ctx, id)
	if err != nil {
		return response_models.PartnerPlace{}, err
	}

	applyUpdate(place, req)
	place.UpdatedBy = actor
	requeue(place)

	if err := s.validate(place); err != nil {
		return response_models.PartnerPlace{}, err
	}
	if err := s.places.Update(ctx, place); err != nil {
		s.logger.Error(partnerModule, "failed to update partner place", map[string]interface{}{"place_id": id.String(), "error": err.Error()})
		return response_models.PartnerPlace{}, utils.ErrDatabaseError
	}

	s.syncBestEffort(ctx, place)
	return ToPartnerPlaceResponse(place), nil
}

func (s *PartnerPlaceService) GetPartnerPlace(ctx context.Context, id uuid.UUID) (response_models.PartnerPlace, error) {
	place, err := s.load(ctx, id)
	if err != nil {
		return response_models.PartnerPlace{}, err
	}
	return ToPartnerPlaceResponse(place), nil
}

func (s *PartnerPlaceService) ListPartnerPlaces(ctx context.Context, q request_models.ListPartnerPlacesQuery) (response_models.PartnerPlacePage, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = 20
	}
	if q.Page < 1 {
		return response_models.PartnerPlacePage{}, utils.ErrInvalidPage
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		return response_models.PartnerPlacePage{}, utils.ErrInvalidPageSize
	}
	if q.Category != "" && !db_models.IsValidCategory(q.Category) {
		return response_models.PartnerPlacePage{}, fmt.Errorf("%w: unknown category %q", utils.ErrValidation, q.Category)
	}

	places, total, err := s.places.List(ctx, repositories.PartnerPlaceFilter{
		Category:  q.Category,
		Status:    q.Status,
		MinRating: q.MinRating,
		Search:    q.Search,
	}, q.Page, q.PageSize)
	if err != nil {
		s.logger.Error(partnerModule, "failed to list partner places", map[string]interface{}{"error": err.Error()})
		return response_models.PartnerPlacePage{}, utils.ErrDatabaseError
	}

	items := make([]response_models.PartnerPlace, 0, len(places))
	for i := range places {
		items = append(items, ToPartnerPlaceResponse(&places[i]))
	}
	return response_models.PartnerPlacePage{Items: items, Page: q.Page, PageSize: q.PageSize, Total: total}, nil
}

// DeactivatePartnerPlace hides a place from search without deleting it. The index entry is
// re-synced with the inactive status.
func (s *PartnerPlaceService) DeactivatePartnerPlace(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (response_models.PartnerPlace, error) {
	place, err := s.load(ctx, id)
	if err != nil {
		return response_models.PartnerPlace{}, err
	}

	now := s.now().UTC()
	place.Status = db_models.PlaceStatusInactive
	place.DeactivatedAt = &now
	place.DeactivatedBy = actor
	place.UpdatedBy = actor
	requeue(place)

	if err := s.places.Update(ctx, place); err != nil {
		s.logger.Error(partnerModule, "failed to deactivate partner place", map[string]interface{}{"place_id": id.String(), "error": err.Error()})
		return response_models.PartnerPlace{}, utils.ErrDatabaseError
	}

	s.syncBestEffort(ctx, place)
	return ToPartnerPlaceResponse(place), nil
}

// DeletePartnerPlace removes the index entry first, then the store row. A failed index
// delete does not block the store delete; the orphan is logged for reconciliation.
func (s *PartnerPlaceService) DeletePartnerPlace(ctx context.Context, id uuid.UUID) error {
	place, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err := s.sync.DeleteFromIndex(ctx, place); err != nil {
		indexID := db_models.IndexIDFor(place.ID)
		if place.IndexID != nil {
			indexID = *place.IndexID
		}
		s.logger.Warn(partnerModule, "orphaned index entry", map[string]interface{}{
			"place_id": id.String(),
			"index_id": indexID,
			"error":    err.Error(),
		})
	}

	if err := s.places.Delete(ctx, id); err != nil {
		s.logger.Error(partnerModule, "failed to delete partner place", map[string]interface{}{"place_id": id.String(), "error": err.Error()})
		return utils.ErrDatabaseError
	}
	s.logger.Info(partnerModule, "partner place deleted", map[string]interface{}{"place_id": id.String()})
	return nil
}

func (s *PartnerPlaceService) load(ctx context.Context, id uuid.UUID) (*db_models.PartnerPlace, error) {
	place, err := s.places.GetByID(ctx, id)
	if err != nil {
		s.logger.Error(partnerModule, "failed to fetch partner place", map[string]interface{}{"place_id": id.String(), "error": err.Error()})
		return nil, utils.ErrDatabaseError
	}
	if place == nil {
		return nil, utils.ErrPartnerPlaceNotFound
	}
	return place, nil
}

func (s *PartnerPlaceService) validate(place *db_models.PartnerPlace) error {
	err := s.validator.Struct(place)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", utils.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", utils.ErrValidation, strings.Join(msgs, "; "))
}

// syncBestEffort pushes the place to the index right away. Failures stay recorded on the
// place and are picked up by the sync worker.
func (s *PartnerPlaceService) syncBestEffort(ctx context.Context, place *db_models.PartnerPlace) {
	if err := s.sync.SyncOne(ctx, place); err != nil {
		s.logger.Warn(partnerModule, "immediate sync failed, left for the sync worker", map[string]interface{}{
			"place_id": place.ID.String(),
			"error":    err.Error(),
		})
	}
}

func requeue(place *db_models.PartnerPlace) {
	place.SyncStatus = db_models.SyncStatusPending
	place.SyncRetryCount = 0
	place.SyncErrorMessage = nil
}

func applyUpdate(place *db_models.PartnerPlace, req request_models.UpdatePartnerPlaceRequest) {
	if req.Name != nil {
		place.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		place.Description = *req.Description
	}
	if req.Latitude != nil {
		place.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		place.Longitude = *req.Longitude
	}
	if req.Address != nil {
		place.Address = *req.Address
	}
	if req.Category != nil {
		place.Category = *req.Category
	}
	if req.Tags != nil {
		place.Tags = req.Tags
	}
	if req.Priority != nil {
		place.Priority = *req.Priority
	}
	if req.Status != nil {
		place.Status = db_models.PlaceStatus(*req.Status)
	}
	if req.Rating != nil {
		place.Rating = *req.Rating
	}
	if req.ReviewCount != nil {
		place.ReviewCount = *req.ReviewCount
	}
	if req.PriceRange != nil {
		place.PriceRange = *req.PriceRange
	}
	if req.AveragePrice != nil {
		place.AveragePrice = req.AveragePrice
	}
	if req.OpeningHours != nil {
		place.OpeningHours = *req.OpeningHours
	}
	if req.Contact != nil {
		place.Contact = db_models.ContactInfo{
			Phone:   req.Contact.Phone,
			Email:   req.Contact.Email,
			Website: req.Contact.Website,
		}
	}
	if req.Images != nil {
		place.Images = req.Images
	}
	if req.Thumbnail != nil {
		place.Thumbnail = *req.Thumbnail
	}
	if req.Amenities != nil {
		place.Amenities = req.Amenities
	}
}

func ToPartnerPlaceResponse(p *db_models.PartnerPlace) response_models.PartnerPlace {
	return response_models.PartnerPlace{
		ID:           p.ID.String(),
		Name:         p.Name,
		Description:  p.Description,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		Address:      p.Address,
		Category:     p.Category,
		Tags:         nonNil(p.Tags),
		Priority:     p.Priority,
		Status:       string(p.Status),
		Rating:       p.Rating,
		ReviewCount:  p.ReviewCount,
		PriceRange:   p.PriceRange,
		AveragePrice: p.AveragePrice,
		OpeningHours: p.OpeningHours,
		Contact: response_models.ContactInfo{
			Phone:   p.Contact.Phone,
			Email:   p.Contact.Email,
			Website: p.Contact.Website,
		},
		Images:    nonNil(p.Images),
		Thumbnail: p.Thumbnail,
		Amenities: nonNil(p.Amenities),
		Sync: response_models.SyncInfo{
			Status:       string(p.SyncStatus),
			IndexID:      p.IndexID,
			LastSyncedAt: p.LastSyncedAt,
			ErrorMessage: p.SyncErrorMessage,
			RetryCount:   p.SyncRetryCount,
		},
		DeactivatedAt: p.DeactivatedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
