package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"vinatravel/internal/models/db_models"
	"vinatravel/internal/repositories"
	"vinatravel/pkg/utils"
)

var errBoom = errors.New("boom")

// memPlaceRepo is an in-memory PartnerPlaceRepository.
type memPlaceRepo struct {
	mu     sync.Mutex
	places map[uuid.UUID]db_models.PartnerPlace
	err    error
}

func newMemPlaceRepo(places ...db_models.PartnerPlace) *memPlaceRepo {
	r := &memPlaceRepo{places: map[uuid.UUID]db_models.PartnerPlace{}}
	for _, p := range places {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		r.places[p.ID] = p
	}
	return r
}

func (r *memPlaceRepo) get(id uuid.UUID) db_models.PartnerPlace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.places[id]
}

func (r *memPlaceRepo) Create(_ context.Context, p *db_models.PartnerPlace) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return uuid.Nil, r.err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Thumbnail == "" && len(p.Images) > 0 {
		p.Thumbnail = p.Images[0]
	}
	r.places[p.ID] = *p
	return p.ID, nil
}

func (r *memPlaceRepo) Update(_ context.Context, p *db_models.PartnerPlace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.places[p.ID]; !ok {
		return errors.New("record not found")
	}
	p.SyncVersion++
	r.places[p.ID] = *p
	return nil
}

func (r *memPlaceRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.places, id)
	return nil
}

func (r *memPlaceRepo) GetByID(_ context.Context, id uuid.UUID) (*db_models.PartnerPlace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.places[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memPlaceRepo) List(_ context.Context, f repositories.PartnerPlaceFilter, page, pageSize int) ([]db_models.PartnerPlace, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db_models.PartnerPlace
	for _, p := range r.places {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := int64(len(out))
	start := (page - 1) * pageSize
	if start >= len(out) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r *memPlaceRepo) FindSyncCandidates(_ context.Context, limit, maxRetries int) ([]db_models.PartnerPlace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []db_models.PartnerPlace
	for _, p := range r.places {
		if p.SyncStatus == db_models.SyncStatusPending ||
			(p.SyncStatus == db_models.SyncStatusFailed && p.SyncRetryCount < maxRetries) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memPlaceRepo) MarkSyncSuccess(_ context.Context, id uuid.UUID, version int64, indexID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.places[id]
	if !ok || p.SyncVersion != version {
		return false, nil
	}
	p.SyncStatus = db_models.SyncStatusSynced
	p.IndexID = &indexID
	p.LastSyncedAt = &at
	p.SyncRetryCount = 0
	p.SyncErrorMessage = nil
	r.places[id] = p
	return true, nil
}

func (r *memPlaceRepo) MarkSyncFailed(_ context.Context, id uuid.UUID, version int64, message string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.places[id]
	if !ok || p.SyncVersion != version {
		return false, nil
	}
	p.SyncStatus = db_models.SyncStatusFailed
	p.SyncRetryCount++
	p.SyncErrorMessage = &message
	r.places[id] = p
	return true, nil
}

func (r *memPlaceRepo) MarkPending(_ context.Context, ids ...uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		p, ok := r.places[id]
		if !ok {
			continue
		}
		p.SyncStatus = db_models.SyncStatusPending
		p.SyncRetryCount = 0
		p.SyncErrorMessage = nil
		r.places[id] = p
	}
	return nil
}

func (r *memPlaceRepo) CountBySyncStatus(_ context.Context, maxRetries int) (repositories.SyncStatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c repositories.SyncStatusCounts
	for _, p := range r.places {
		c.Total++
		switch p.SyncStatus {
		case db_models.SyncStatusSynced:
			c.Synced++
		case db_models.SyncStatusPending:
			c.Pending++
		case db_models.SyncStatusFailed:
			c.Failed++
			if p.SyncRetryCount >= maxRetries {
				c.Exhausted++
			}
		}
	}
	return c, nil
}

func (r *memPlaceRepo) ListSyncedReferences(_ context.Context) ([]repositories.SyncedReference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var refs []repositories.SyncedReference
	for _, p := range r.places {
		if p.SyncStatus == db_models.SyncStatusSynced && p.IndexID != nil {
			refs = append(refs, repositories.SyncedReference{ID: p.ID, IndexID: *p.IndexID})
		}
	}
	return refs, nil
}

func (r *memPlaceRepo) ListIndexIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, p := range r.places {
		if p.IndexID != nil {
			ids = append(ids, *p.IndexID)
		}
	}
	return ids, nil
}

// memVectorIndex is an in-memory VectorIndexRepository using exact cosine distance.
type memVectorIndex struct {
	mu        sync.Mutex
	records   map[string]db_models.PartnerPlaceVector
	upserts   int
	failNext  int
	queryErr  error
	deleteErr error

	// beforeUpsert runs outside the lock ahead of each write.
	beforeUpsert func(rec *db_models.PartnerPlaceVector)
}

func newMemVectorIndex() *memVectorIndex {
	return &memVectorIndex{records: map[string]db_models.PartnerPlaceVector{}}
}

func (m *memVectorIndex) Upsert(_ context.Context, rec *db_models.PartnerPlaceVector) error {
	m.mu.Lock()
	hook := m.beforeUpsert
	m.mu.Unlock()
	if hook != nil {
		hook(rec)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return errBoom
	}
	m.upserts++
	m.records[rec.ID] = *rec
	return nil
}

func (m *memVectorIndex) Query(_ context.Context, q repositories.VectorQuery) ([]repositories.VectorMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []repositories.VectorMatch
	for _, r := range m.records {
		if r.Status != string(db_models.PlaceStatusActive) {
			continue
		}
		if q.Category != "" && r.Category != q.Category {
			continue
		}
		if b := q.Box; b != nil &&
			(r.Latitude < b.MinLat || r.Latitude > b.MaxLat || r.Longitude < b.MinLng || r.Longitude > b.MaxLng) {
			continue
		}
		out = append(out, repositories.VectorMatch{
			ID:          r.ID,
			PlaceID:     r.PlaceID,
			Name:        r.Name,
			Description: r.Description,
			Address:     r.Address,
			Category:    r.Category,
			Tags:        r.Tags,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			Priority:    r.Priority,
			Rating:      r.Rating,
			Status:      r.Status,
			Distance:    1 - utils.CosineSimilarity(q.Embedding.Slice(), r.Embedding.Slice()),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memVectorIndex) Delete(_ context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *memVectorIndex) ListIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memVectorIndex) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryErr
}

func (m *memVectorIndex) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// stubSemantic returns canned matches or an error.
type stubSemantic struct {
	matches []SemanticMatch
	err     error
	calls   int
	mu      sync.Mutex
}

func (s *stubSemantic) Query(_ context.Context, _ string, _ SemanticFilters, topK int) ([]SemanticMatch, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := append([]SemanticMatch(nil), s.matches...)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *stubSemantic) QueryVector(ctx context.Context, _ pgvector.Vector, f SemanticFilters, topK int) ([]SemanticMatch, error) {
	return s.Query(ctx, "", f, topK)
}

func (s *stubSemantic) Ping(context.Context) error { return s.err }

// stubGateway enriches by name from a fixed table.
type stubGateway struct {
	mu        sync.Mutex
	enrich    map[string]EnrichmentResult
	failNames map[string]bool
	nearby    []ExternalPlace
	nearbyErr error
	pingErr   error
	inFlight  int
	maxFlight int
	delay     time.Duration
}

func (g *stubGateway) Enrich(ctx context.Context, p PlaceRef) (EnrichmentResult, error) {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.maxFlight {
		g.maxFlight = g.inFlight
	}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
	}()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return EnrichmentResult{}, ctx.Err()
		}
	}
	if g.failNames[p.Name] {
		return EnrichmentResult{}, utils.ErrEnrichmentFailed
	}
	if res, ok := g.enrich[p.Name]; ok {
		return res, nil
	}
	return EnrichmentResult{Outcome: EnrichmentSuccess, Data: &ExternalData{PlaceID: "g_" + p.Name}}, nil
}

func (g *stubGateway) SearchNearby(context.Context, utils.LatLng, float64, string, string) ([]ExternalPlace, error) {
	return g.nearby, g.nearbyErr
}

func (g *stubGateway) Geocode(context.Context, string) (*utils.LatLng, error) { return nil, nil }

func (g *stubGateway) Ping(context.Context) error { return g.pingErr }
