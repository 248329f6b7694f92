package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"vinatravel/internal/models/db_models"
)

type PartnerPlaceFilter struct {
	Category  string
	Status    string
	MinRating float64
	Search    string
}

type SyncStatusCounts struct {
	Total     int64
	Synced    int64
	Pending   int64
	Failed    int64
	Exhausted int64
}

// SyncedReference pairs a store id with the index id it was last synced under.
type SyncedReference struct {
	ID      uuid.UUID
	IndexID string
}

type PartnerPlaceRepository interface {
	Create(ctx context.Context, place *db_models.PartnerPlace) (uuid.UUID, error)
	Update(ctx context.Context, place *db_models.PartnerPlace) error
	Delete(ctx context.Context, id uuid.UUID) error

	GetByID(ctx context.Context, id uuid.UUID) (*db_models.PartnerPlace, error)
	List(ctx context.Context, filter PartnerPlaceFilter, page, pageSize int) ([]db_models.PartnerPlace, int64, error)

	FindSyncCandidates(ctx context.Context, limit, maxRetries int) ([]db_models.PartnerPlace, error)
	MarkSyncSuccess(ctx context.Context, id uuid.UUID, version int64, indexID string, at time.Time) (bool, error)
	MarkSyncFailed(ctx context.Context, id uuid.UUID, version int64, message string) (bool, error)
	MarkPending(ctx context.Context, ids ...uuid.UUID) error
	CountBySyncStatus(ctx context.Context, maxRetries int) (SyncStatusCounts, error)
	ListSyncedReferences(ctx context.Context) ([]SyncedReference, error)
	ListIndexIDs(ctx context.Context) ([]string, error)
}

type partnerPlaceRepository struct {
	db *gorm.DB
}

func NewPartnerPlaceRepository(db *gorm.DB) PartnerPlaceRepository {
	return &partnerPlaceRepository{db: db}
}

func (r *partnerPlaceRepository) Create(ctx context.Context, place *db_models.PartnerPlace) (uuid.UUID, error) {
	if err := r.db.WithContext(ctx).Create(place).Error; err != nil {
		return uuid.Nil, err
	}
	return place.ID, nil
}

// Update saves the place and bumps its sync version.
func (r *partnerPlaceRepository) Update(ctx context.Context, place *db_models.PartnerPlace) error {
	place.SyncVersion++
	result := r.db.WithContext(ctx).Save(place)
	if result.Error != nil {
		place.SyncVersion--
		return fmt.Errorf("failed to update partner place: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the row for good; the index entry must already be gone.
func (r *partnerPlaceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Unscoped().Delete(&db_models.PartnerPlace{}, "id = ?", id).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// GetByID returns nil, nil when no row matches.
func (r *partnerPlaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*db_models.PartnerPlace, error) {
	var place db_models.PartnerPlace
	err := r.db.WithContext(ctx).First(&place, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &place, nil
}

func (r *partnerPlaceRepository) List(ctx context.Context, filter PartnerPlaceFilter, page, pageSize int) ([]db_models.PartnerPlace, int64, error) {
	q := r.db.WithContext(ctx).Model(&db_models.PartnerPlace{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.MinRating > 0 {
		q = q.Where("rating >= ?", filter.MinRating)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		q = q.Where("name ILIKE ? OR description ILIKE ? OR address ILIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var places []db_models.PartnerPlace
	err := q.Order("priority DESC").Order("rating DESC").Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&places).Error
	if err != nil {
		return nil, 0, err
	}
	return places, total, nil
}

// FindSyncCandidates returns pending places and failed places still under the retry ceiling,
// oldest change first.
func (r *partnerPlaceRepository) FindSyncCandidates(ctx context.Context, limit, maxRetries int) ([]db_models.PartnerPlace, error) {
	var places []db_models.PartnerPlace
	err := r.db.WithContext(ctx).
		Where("sync_status = ? OR (sync_status = ? AND sync_retry_count < ?)",
			db_models.SyncStatusPending, db_models.SyncStatusFailed, maxRetries).
		Order("updated_at ASC").
		Limit(limit).
		Find(&places).Error
	if err != nil {
		return nil, err
	}
	return places, nil
}

// MarkSyncSuccess and MarkSyncFailed are each a single UPDATE on one row, so a place never
// ends up half-written between states. Both only apply while the row still has the sync
// version the caller read; they report false when the place changed in between.
func (r *partnerPlaceRepository) MarkSyncSuccess(ctx context.Context, id uuid.UUID, version int64, indexID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&db_models.PartnerPlace{}).
		Where("id = ? AND sync_version = ?", id, version).
		UpdateColumns(map[string]interface{}{
			"sync_status":        db_models.SyncStatusSynced,
			"index_id":           indexID,
			"last_synced_at":     at,
			"sync_retry_count":   0,
			"sync_error_message": nil,
			"updated_at":         at.Unix(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *partnerPlaceRepository) MarkSyncFailed(ctx context.Context, id uuid.UUID, version int64, message string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&db_models.PartnerPlace{}).
		Where("id = ? AND sync_version = ?", id, version).
		UpdateColumns(map[string]interface{}{
			"sync_status":        db_models.SyncStatusFailed,
			"sync_retry_count":   gorm.Expr("sync_retry_count + 1"),
			"sync_error_message": message,
			"updated_at":         time.Now().Unix(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *partnerPlaceRepository) MarkPending(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&db_models.PartnerPlace{}).
		Where("id IN ?", ids).
		UpdateColumns(map[string]interface{}{
			"sync_status":        db_models.SyncStatusPending,
			"sync_retry_count":   0,
			"sync_error_message": nil,
			"updated_at":         time.Now().Unix(),
		}).Error
}

func (r *partnerPlaceRepository) CountBySyncStatus(ctx context.Context, maxRetries int) (SyncStatusCounts, error) {
	var rows []struct {
		SyncStatus string
		Exhausted  bool
		Count      int64
	}
	err := r.db.WithContext(ctx).Model(&db_models.PartnerPlace{}).
		Select("sync_status, (sync_status = ? AND sync_retry_count >= ?) AS exhausted, COUNT(*) AS count",
			db_models.SyncStatusFailed, maxRetries).
		Group("sync_status, exhausted").
		Scan(&rows).Error
	if err != nil {
		return SyncStatusCounts{}, err
	}

	var counts SyncStatusCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch db_models.SyncStatus(row.SyncStatus) {
		case db_models.SyncStatusSynced:
			counts.Synced += row.Count
		case db_models.SyncStatusPending:
			counts.Pending += row.Count
		case db_models.SyncStatusFailed:
			counts.Failed += row.Count
			if row.Exhausted {
				counts.Exhausted += row.Count
			}
		}
	}
	return counts, nil
}

func (r *partnerPlaceRepository) ListSyncedReferences(ctx context.Context) ([]SyncedReference, error) {
	var refs []SyncedReference
	err := r.db.WithContext(ctx).Model(&db_models.PartnerPlace{}).
		Select("id, index_id").
		Where("sync_status = ? AND index_id IS NOT NULL", db_models.SyncStatusSynced).
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *partnerPlaceRepository) ListIndexIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&db_models.PartnerPlace{}).
		Where("index_id IS NOT NULL").
		Pluck("index_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
