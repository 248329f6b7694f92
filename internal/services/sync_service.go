package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"vinatravel/internal/models/db_models"
	"vinatravel/internal/repositories"
	"vinatravel/pkg/logger"
	"vinatravel/pkg/utils"
)

const syncModule = "sync"

type SyncSummary struct {
	Total     int `json:"total"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Exhausted int `json:"exhausted"`
}

type SyncStats struct {
	Total     int64     `json:"total"`
	Synced    int64     `json:"synced"`
	Pending   int64     `json:"pending"`
	Failed    int64     `json:"failed"`
	Exhausted int64     `json:"exhausted"`
	SyncRate  float64   `json:"sync_rate"`
	LastCheck time.Time `json:"last_check"`
}

type ReconcileSummary struct {
	IndexEntries   int `json:"index_entries"`
	OrphansRemoved int `json:"orphans_removed"`
	Requeued       int `json:"requeued"`
}

type SyncServiceInterface interface {
	FindSyncCandidates(ctx context.Context, limit int) ([]db_models.PartnerPlace, error)
	SyncOne(ctx context.Context, place *db_models.PartnerPlace) error
	SyncByID(ctx context.Context, id uuid.UUID) error
	RetryFailed(ctx context.Context) (SyncSummary, error)
	GetSyncStats(ctx context.Context) (SyncStats, error)
	DeleteFromIndex(ctx context.Context, place *db_models.PartnerPlace) error
	Reconcile(ctx context.Context) (ReconcileSummary, error)
}

type SyncService struct {
	places     repositories.PartnerPlaceRepository
	index      repositories.VectorIndexRepository
	embedder   utils.EmbeddingClientInterface
	logger     logger.ILogger
	batchSize  int
	maxRetries int

	// batch guards RetryFailed and Reconcile so only one batch runs at a time.
	batch sync.Mutex

	now          func() time.Time
	upsertPolicy func() backoff.BackOff
}

func NewSyncService(
	places repositories.PartnerPlaceRepository,
	index repositories.VectorIndexRepository,
	embedder utils.EmbeddingClientInterface,
	log logger.ILogger,
	batchSize, maxRetries int,
) *SyncService {
	if batchSize <= 0 {
		batchSize = 10
	}
	if maxRetries <= 0 {
		maxRetries = db_models.MaxSyncRetries
	}
	return &SyncService{
		places:     places,
		index:      index,
		embedder:   embedder,
		logger:     log,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		now:        time.Now,
		upsertPolicy: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = time.Second
			return backoff.WithMaxRetries(b, 2)
		},
	}
}

func (s *SyncService) FindSyncCandidates(ctx context.Context, limit int) ([]db_models.PartnerPlace, error) {
	if limit <= 0 {
		limit = s.batchSize
	}
	places, err := s.places.FindSyncCandidates(ctx, limit, s.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	return places, nil
}

// SyncOne pushes a place into the vector index and records the outcome on the place.
// Index failures are recorded as data; the returned error wraps ErrSyncFailed so callers can
// count it, and only a failed status write is reported as a database error.
// Status writes are tied to the sync version read with the place. When the place was edited
// mid-sync the index may hold the older content, so the place is put back to pending.
func (s *SyncService) SyncOne(ctx context.Context, place *db_models.PartnerPlace) error {
	version := place.SyncVersion
	indexID := db_models.IndexIDFor(place.ID)
	if place.IndexID != nil && *place.IndexID != "" {
		indexID = *place.IndexID
	}

	op := func() error {
		vec, err := s.embedder.GetEmbedding(ctx, EmbeddingText(place))
		if err != nil {
			return fmt.Errorf("embedding: %w", err)
		}
		return s.index.Upsert(ctx, &db_models.PartnerPlaceVector{
			ID:          indexID,
			PlaceID:     place.ID.String(),
			Name:        place.Name,
			Description: place.Description,
			Address:     place.Address,
			Category:    place.Category,
			Tags:        place.Tags,
			Latitude:    place.Latitude,
			Longitude:   place.Longitude,
			Priority:    place.Priority,
			Rating:      place.Rating,
			Status:      string(place.Status),
			Embedding:   vec,
		})
	}

	if err := backoff.Retry(op, backoff.WithContext(s.upsertPolicy(), ctx)); err != nil {
		msg := err.Error()
		applied, dbErr := s.places.MarkSyncFailed(ctx, place.ID, version, msg)
		if dbErr != nil {
			s.logger.Error(syncModule, "failed to record sync failure", map[string]interface{}{
				"place_id": place.ID.String(),
				"error":    dbErr.Error(),
			})
			return fmt.Errorf("%w: %w", utils.ErrDatabaseError, dbErr)
		}
		if !applied {
			return fmt.Errorf("%w: %s (place changed during sync)", utils.ErrSyncFailed, msg)
		}
		place.SyncStatus = db_models.SyncStatusFailed
		place.SyncRetryCount++
		place.SyncErrorMessage = &msg

		s.logger.Warn(syncModule, "place sync failed", map[string]interface{}{
			"place_id":    place.ID.String(),
			"retry_count": place.SyncRetryCount,
			"error":       msg,
		})
		return fmt.Errorf("%w: %s", utils.ErrSyncFailed, msg)
	}

	at := s.now().UTC()
	applied, err := s.places.MarkSyncSuccess(ctx, place.ID, version, indexID, at)
	if err != nil {
		s.logger.Error(syncModule, "index updated but sync status write failed", map[string]interface{}{
			"place_id": place.ID.String(),
			"index_id": indexID,
			"error":    err.Error(),
		})
		return fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	if !applied {
		if err := s.places.MarkPending(ctx, place.ID); err != nil {
			return fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
		}
		s.logger.Warn(syncModule, "place changed during sync, requeued", map[string]interface{}{
			"place_id": place.ID.String(),
			"version":  version,
		})
		return fmt.Errorf("%w: place changed during sync", utils.ErrSyncFailed)
	}
	place.SyncStatus = db_models.SyncStatusSynced
	place.IndexID = &indexID
	place.LastSyncedAt = &at
	place.SyncRetryCount = 0
	place.SyncErrorMessage = nil

	s.logger.Info(syncModule, "place synced", map[string]interface{}{
		"place_id": place.ID.String(),
		"index_id": indexID,
	})
	return nil
}

// SyncByID forces a sync regardless of eligibility. Used for manual resyncs of places that
// hit the retry ceiling.
func (s *SyncService) SyncByID(ctx context.Context, id uuid.UUID) error {
	place, err := s.places.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	if place == nil {
		return utils.ErrPartnerPlaceNotFound
	}
	return s.SyncOne(ctx, place)
}

func (s *SyncService) RetryFailed(ctx context.Context) (SyncSummary, error) {
	if !s.batch.TryLock() {
		return SyncSummary{}, utils.ErrSyncInProgress
	}
	defer s.batch.Unlock()

	candidates, err := s.FindSyncCandidates(ctx, s.batchSize)
	if err != nil {
		return SyncSummary{}, err
	}

	summary := SyncSummary{Total: len(candidates)}
	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		if err := s.SyncOne(ctx, &candidates[i]); err != nil {
			summary.Failed++
			continue
		}
		summary.Success++
	}

	counts, err := s.places.CountBySyncStatus(ctx, s.maxRetries)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	summary.Exhausted = int(counts.Exhausted)

	if summary.Total > 0 || summary.Exhausted > 0 {
		s.logger.Info(syncModule, "sync batch finished", map[string]interface{}{
			"total":     summary.Total,
			"success":   summary.Success,
			"failed":    summary.Failed,
			"exhausted": summary.Exhausted,
		})
	}
	return summary, nil
}

func (s *SyncService) GetSyncStats(ctx context.Context) (SyncStats, error) {
	counts, err := s.places.CountBySyncStatus(ctx, s.maxRetries)
	if err != nil {
		return SyncStats{}, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	stats := SyncStats{
		Total:     counts.Total,
		Synced:    counts.Synced,
		Pending:   counts.Pending,
		Failed:    counts.Failed,
		Exhausted: counts.Exhausted,
		LastCheck: s.now().UTC(),
	}
	if counts.Total > 0 {
		stats.SyncRate = math.Round(float64(counts.Synced)/float64(counts.Total)*10000) / 100
	}
	return stats, nil
}

// DeleteFromIndex removes the index entry of a place. The derived id is used when the
// place never recorded one, since a status write can fail after a successful upsert.
func (s *SyncService) DeleteFromIndex(ctx context.Context, place *db_models.PartnerPlace) error {
	indexID := db_models.IndexIDFor(place.ID)
	if place.IndexID != nil && *place.IndexID != "" {
		indexID = *place.IndexID
	}
	if err := s.index.Delete(ctx, indexID); err != nil {
		return fmt.Errorf("%w: delete %s: %v", utils.ErrIndexUnavailable, indexID, err)
	}
	return nil
}

// Reconcile removes index entries with no store record and re-queues synced places whose
// entry is missing from the index.
func (s *SyncService) Reconcile(ctx context.Context) (ReconcileSummary, error) {
	if !s.batch.TryLock() {
		return ReconcileSummary{}, utils.ErrSyncInProgress
	}
	defer s.batch.Unlock()

	indexIDs, err := s.index.ListIDs(ctx)
	if err != nil {
		return ReconcileSummary{}, fmt.Errorf("%w: %w", utils.ErrIndexUnavailable, err)
	}
	storeIDs, err := s.places.ListIndexIDs(ctx)
	if err != nil {
		return ReconcileSummary{}, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	refs, err := s.places.ListSyncedReferences(ctx)
	if err != nil {
		return ReconcileSummary{}, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}

	inIndex := make(map[string]struct{}, len(indexIDs))
	for _, id := range indexIDs {
		inIndex[id] = struct{}{}
	}
	inStore := make(map[string]struct{}, len(storeIDs))
	for _, id := range storeIDs {
		inStore[id] = struct{}{}
	}

	var orphans []string
	for _, id := range indexIDs {
		if _, ok := inStore[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	var missing []uuid.UUID
	for _, ref := range refs {
		if _, ok := inIndex[ref.IndexID]; !ok {
			missing = append(missing, ref.ID)
		}
	}

	summary := ReconcileSummary{IndexEntries: len(indexIDs)}
	if len(orphans) > 0 {
		if err := s.index.Delete(ctx, orphans...); err != nil {
			return summary, fmt.Errorf("%w: %w", utils.ErrIndexUnavailable, err)
		}
		summary.OrphansRemoved = len(orphans)
	}
	if len(missing) > 0 {
		if err := s.places.MarkPending(ctx, missing...); err != nil {
			return summary, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
		}
		summary.Requeued = len(missing)
	}

	s.logger.Info(syncModule, "reconciliation finished", map[string]interface{}{
		"index_entries":   summary.IndexEntries,
		"orphans_removed": summary.OrphansRemoved,
		"requeued":        summary.Requeued,
	})
	return summary, nil
}

// EmbeddingText is the text a place is embedded from.
func EmbeddingText(p *db_models.PartnerPlace) string {
	parts := []string{p.Name, p.Description, p.Category}
	if len(p.Tags) > 0 {
		parts = append(parts, strings.Join(p.Tags, " "))
	}
	if p.Address != "" {
		parts = append(parts, p.Address)
	}
	return strings.Join(parts, " ")
}
