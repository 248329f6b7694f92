package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vinatravel/internal/models/db_models"
	"vinatravel/internal/models/request_models"
	"vinatravel/internal/models/response_models"
	"vinatravel/internal/services"
	"vinatravel/pkg/cache"
	"vinatravel/pkg/logger"
	"vinatravel/pkg/utils"
)

type stubPlaceService struct {
	created   request_models.CreatePartnerPlaceRequest
	listQuery request_models.ListPartnerPlacesQuery
	actor     *uuid.UUID
	err       error
}

func (s *stubPlaceService) CreatePartnerPlace(_ context.Context, req request_models.CreatePartnerPlaceRequest, actor *uuid.UUID) (response_models.PartnerPlace, error) {
	s.created, s.actor = req, actor
	return response_models.PartnerPlace{ID: uuid.NewString(), Name: req.Name}, s.err
}

func (s *stubPlaceService) UpdatePartnerPlace(_ context.Context, id uuid.UUID, req request_models.UpdatePartnerPlaceRequest, _ *uuid.UUID) (response_models.PartnerPlace, error) {
	if s.err != nil {
		return response_models.PartnerPlace{}, s.err
	}
	return response_models.PartnerPlace{ID: id.String(), Name: *req.Name}, nil
}

func (s *stubPlaceService) GetPartnerPlace(_ context.Context, id uuid.UUID) (response_models.PartnerPlace, error) {
	return response_models.PartnerPlace{ID: id.String()}, s.err
}

func (s *stubPlaceService) ListPartnerPlaces(_ context.Context, q request_models.ListPartnerPlacesQuery) (response_models.PartnerPlacePage, error) {
	s.listQuery = q
	return response_models.PartnerPlacePage{Page: q.Page, PageSize: q.PageSize}, s.err
}

func (s *stubPlaceService) DeactivatePartnerPlace(_ context.Context, id uuid.UUID, _ *uuid.UUID) (response_models.PartnerPlace, error) {
	return response_models.PartnerPlace{ID: id.String(), Status: "inactive"}, s.err
}

func (s *stubPlaceService) DeletePartnerPlace(context.Context, uuid.UUID) error { return s.err }

type stubSyncService struct {
	syncedID uuid.UUID
	err      error
}

func (s *stubSyncService) FindSyncCandidates(context.Context, int) ([]db_models.PartnerPlace, error) {
	return nil, s.err
}
func (s *stubSyncService) SyncOne(context.Context, *db_models.PartnerPlace) error { return s.err }
func (s *stubSyncService) SyncByID(_ context.Context, id uuid.UUID) error {
	s.syncedID = id
	return s.err
}
func (s *stubSyncService) RetryFailed(context.Context) (services.SyncSummary, error) {
	return services.SyncSummary{Total: 2, Success: 2}, s.err
}
func (s *stubSyncService) GetSyncStats(context.Context) (services.SyncStats, error) {
	return services.SyncStats{Total: 4, Synced: 3, SyncRate: 75}, s.err
}
func (s *stubSyncService) DeleteFromIndex(context.Context, *db_models.PartnerPlace) error {
	return s.err
}
func (s *stubSyncService) Reconcile(context.Context) (services.ReconcileSummary, error) {
	return services.ReconcileSummary{OrphansRemoved: 1}, s.err
}

type stubSearchService struct {
	query    string
	opts     services.SearchOptions
	near     *utils.LatLng
	err      error
	health   services.HealthReport
	clearErr error
}

func (s *stubSearchService) HybridSearch(_ context.Context, query string, opts services.SearchOptions) (*services.SearchEnvelope, error) {
	s.query, s.opts = query, opts
	if s.err != nil {
		return nil, s.err
	}
	return &services.SearchEnvelope{Success: true, Message: "Found 0 places", Data: services.SearchData{
		Results:        []services.SearchResult{},
		SearchMetadata: services.SearchMetadata{Query: query, Source: services.SearchSourceSemanticOnly},
	}}, nil
}

func (s *stubSearchService) SearchNear(ctx context.Context, query string, loc *utils.LatLng, radiusKm float64, limit int) (*services.SearchEnvelope, error) {
	s.near = loc
	return s.HybridSearch(ctx, query, services.SearchOptions{Location: loc, RadiusKm: radiusKm, Limit: limit})
}

func (s *stubSearchService) Stats(context.Context) services.SearchStats {
	return services.SearchStats{Metrics: services.MetricsSnapshot{Searches: services.SearchCounters{Total: 7}}}
}

func (s *stubSearchService) Health(context.Context) services.HealthReport { return s.health }

func (s *stubSearchService) InvalidateCache(context.Context) error { return s.clearErr }

func (s *stubSearchService) CacheStats(context.Context) (cache.Stats, error) {
	return cache.Stats{Driver: "memory", Keys: 3}, nil
}

type apiResponse struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(places *stubPlaceService, sync *stubSyncService, search *stubSearchService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	pc := NewPartnerPlaceController(places, sync)
	admin := r.Group("/admin/partner-places")
	admin.POST("", pc.CreatePartnerPlace)
	admin.GET("", pc.ListPartnerPlaces)
	admin.GET("/sync-status", pc.GetSyncStatus)
	admin.POST("/retry-sync", pc.RetrySync)
	admin.POST("/sync-one", pc.SyncOne)
	admin.POST("/reconcile", pc.Reconcile)
	admin.GET("/:id", pc.GetPartnerPlace)
	admin.PUT("/:id", pc.UpdatePartnerPlace)
	admin.PATCH("/:id/deactivate", pc.DeactivatePartnerPlace)
	admin.DELETE("/:id", pc.DeletePartnerPlace)

	hc := NewHybridSearchController(search, logger.NewNop())
	hs := r.Group("/hybrid-search")
	hs.POST("/search", hc.Search)
	hs.POST("/search-near", hc.SearchNear)
	hs.GET("/stats", hc.Stats)
	hs.GET("/health", hc.Health)
	hs.DELETE("/cache", hc.ClearCache)
	hs.GET("/cache/stats", hc.CacheStats)
	hs.GET("/logs", hc.Logs)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestCreatePartnerPlaceEndpoint(t *testing.T) {
	places := &stubPlaceService{}
	r := newTestRouter(places, &stubSyncService{}, &stubSearchService{})

	w, resp := do(t, r, http.MethodPost, "/admin/partner-places", map[string]interface{}{
		"name": "Biển Xanh", "description": "Khách sạn", "latitude": 16.06, "longitude": 108.24,
		"category": db_models.CategoryHotel,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Biển Xanh", places.created.Name)
	assert.Nil(t, places.actor)

	// Zero coordinates are valid; missing ones are not.
	w, _ = do(t, r, http.MethodPost, "/admin/partner-places", map[string]interface{}{
		"name": "Null Island", "description": "x", "latitude": 0, "longitude": 0, "category": "cafe",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, resp = do(t, r, http.MethodPost, "/admin/partner-places", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", resp.Status)
}

func TestPartnerPlaceEndpointsMapServiceErrors(t *testing.T) {
	id := uuid.NewString()
	cases := []struct {
		err  error
		code int
	}{
		{utils.ErrPartnerPlaceNotFound, http.StatusNotFound},
		{utils.ErrValidation, http.StatusBadRequest},
		{utils.ErrDatabaseError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := newTestRouter(&stubPlaceService{err: tc.err}, &stubSyncService{}, &stubSearchService{})
		w, _ := do(t, r, http.MethodGet, "/admin/partner-places/"+id, nil)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}

	r := newTestRouter(&stubPlaceService{}, &stubSyncService{}, &stubSearchService{})
	w, _ := do(t, r, http.MethodGet, "/admin/partner-places/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPartnerPlaceCrudEndpoints(t *testing.T) {
	places := &stubPlaceService{}
	r := newTestRouter(places, &stubSyncService{}, &stubSearchService{})
	id := uuid.NewString()

	w, _ := do(t, r, http.MethodGet, "/admin/partner-places?page=2&pageSize=5&category=cafe&minRating=4&search=bien", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, request_models.ListPartnerPlacesQuery{Page: 2, PageSize: 5, Category: "cafe", MinRating: 4, Search: "bien"}, places.listQuery)

	w, resp := do(t, r, http.MethodPut, "/admin/partner-places/"+id, map[string]interface{}{"name": "Mới"})
	assert.Equal(t, http.StatusOK, w.Code)
	var updated response_models.PartnerPlace
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, "Mới", updated.Name)

	w, resp = do(t, r, http.MethodPatch, "/admin/partner-places/"+id+"/deactivate", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, "inactive", updated.Status)

	w, _ = do(t, r, http.MethodDelete, "/admin/partner-places/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSyncEndpoints(t *testing.T) {
	sync := &stubSyncService{}
	r := newTestRouter(&stubPlaceService{}, sync, &stubSearchService{})

	w, resp := do(t, r, http.MethodGet, "/admin/partner-places/sync-status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var stats services.SyncStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, 75.0, stats.SyncRate)

	w, _ = do(t, r, http.MethodPost, "/admin/partner-places/retry-sync", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPost, "/admin/partner-places/reconcile", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	id := uuid.New()
	w, _ = do(t, r, http.MethodPost, "/admin/partner-places/sync-one", map[string]string{"id": id.String()})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, sync.syncedID)

	w, _ = do(t, r, http.MethodPost, "/admin/partner-places/sync-one", map[string]string{"id": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	busy := newTestRouter(&stubPlaceService{}, &stubSyncService{err: utils.ErrSyncInProgress}, &stubSearchService{})
	w, _ = do(t, busy, http.MethodPost, "/admin/partner-places/retry-sync", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	failing := newTestRouter(&stubPlaceService{}, &stubSyncService{err: utils.ErrSyncFailed}, &stubSearchService{})
	w, _ = do(t, failing, http.MethodPost, "/admin/partner-places/sync-one", map[string]string{"id": id.String()})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	search := &stubSearchService{}
	r := newTestRouter(&stubPlaceService{}, &stubSyncService{}, search)

	w, resp := do(t, r, http.MethodPost, "/hybrid-search/search", map[string]interface{}{
		"query":    "khách sạn gần biển",
		"limit":    3,
		"category": db_models.CategoryHotel,
		"location": map[string]float64{"lat": 16.06, "lng": 108.24},
		"radius":   5,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "khách sạn gần biển", search.query)
	assert.Equal(t, 3, search.opts.Limit)
	require.NotNil(t, search.opts.Location)
	assert.Equal(t, 16.06, search.opts.Location.Lat)
	assert.Equal(t, 5.0, search.opts.RadiusKm)

	var env services.SearchEnvelope
	require.NoError(t, json.Unmarshal(resp.Data, &env))
	assert.True(t, env.Success)
	assert.Equal(t, services.SearchSourceSemanticOnly, env.Data.SearchMetadata.Source)

	w, _ = do(t, r, http.MethodPost, "/hybrid-search/search", map[string]interface{}{"limit": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, "/hybrid-search/search", map[string]interface{}{
		"query": "x", "location": map[string]float64{"lat": 16.06},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchEndpointErrors(t *testing.T) {
	r := newTestRouter(&stubPlaceService{}, &stubSyncService{}, &stubSearchService{err: utils.ErrServiceUnavailable})
	w, resp := do(t, r, http.MethodPost, "/hybrid-search/search", map[string]interface{}{"query": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "error", resp.Status)

	r = newTestRouter(&stubPlaceService{}, &stubSyncService{}, &stubSearchService{err: utils.ErrValidation})
	w, _ = do(t, r, http.MethodPost, "/hybrid-search/search", map[string]interface{}{"query": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchNearEndpoint(t *testing.T) {
	search := &stubSearchService{}
	r := newTestRouter(&stubPlaceService{}, &stubSyncService{}, search)

	w, _ := do(t, r, http.MethodPost, "/hybrid-search/search-near", map[string]interface{}{
		"query": "cafe", "location": map[string]float64{"lat": 21.03, "lng": 105.85}, "radius": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, search.near)
	assert.Equal(t, 105.85, search.near.Lng)

	w, _ = do(t, r, http.MethodPost, "/hybrid-search/search-near", map[string]interface{}{"query": "cafe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	search := &stubSearchService{health: services.HealthReport{Status: "healthy"}}
	r := newTestRouter(&stubPlaceService{}, &stubSyncService{}, search)
	w, _ := do(t, r, http.MethodGet, "/hybrid-search/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	search.health = services.HealthReport{Status: "degraded"}
	w, resp := do(t, r, http.MethodGet, "/hybrid-search/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var report services.HealthReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, "degraded", report.Status)
}

func TestStatsCacheAndLogEndpoints(t *testing.T) {
	search := &stubSearchService{}
	r := newTestRouter(&stubPlaceService{}, &stubSyncService{}, search)

	w, resp := do(t, r, http.MethodGet, "/hybrid-search/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var stats services.SearchStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, int64(7), stats.Metrics.Searches.Total)

	w, resp = do(t, r, http.MethodGet, "/hybrid-search/cache/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var cs cache.Stats
	require.NoError(t, json.Unmarshal(resp.Data, &cs))
	assert.Equal(t, "memory", cs.Driver)

	w, _ = do(t, r, http.MethodDelete, "/hybrid-search/cache", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	search.clearErr = assert.AnError
	w, _ = do(t, r, http.MethodDelete, "/hybrid-search/cache", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w, _ = do(t, r, http.MethodGet, "/hybrid-search/logs?limit=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodGet, "/hybrid-search/logs?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
