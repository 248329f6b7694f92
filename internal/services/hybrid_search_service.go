package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"vinatravel/internal/models/db_models"
	"vinatravel/pkg/cache"
	"vinatravel/pkg/logger"
	"vinatravel/pkg/utils"
)

const (
	hybridModule = "hybrid_search"

	DefaultSearchLimit = 5
	MaxSearchLimit     = 10
	maxQueryLength     = 500
	maxRadiusKm        = 50

	SearchSourceHybrid       = "hybrid"
	SearchSourceSemanticOnly = "semantic_only"
	SearchSourceExternalOnly = "external_only"

	ResultSourcePartner = "partner"
	ResultSourceGoogle  = "google"

	EnrichmentStatusSuccess = "success"
	EnrichmentStatusPartial = "partial"
	EnrichmentStatusFailed  = "failed"
)

// DefaultSearchCenter is used for external lookups when the caller gives no location (Hà Nội).
var DefaultSearchCenter = utils.LatLng{Lat: 21.028511, Lng: 105.804817}

type SearchOptions struct {
	Limit    int
	Category string
	Location *utils.LatLng
	RadiusKm float64
}

type SearchResult struct {
	ID               string        `json:"id"`
	Source           string        `json:"source"`
	PlaceID          string        `json:"place_id,omitempty"`
	Name             string        `json:"name"`
	Description      string        `json:"description,omitempty"`
	Category         string        `json:"category,omitempty"`
	Tags             []string      `json:"tags,omitempty"`
	Address          string        `json:"address,omitempty"`
	Location         utils.LatLng  `json:"location"`
	Priority         int           `json:"priority"`
	Rating           float64       `json:"rating"`
	Score            float64       `json:"similarity_score"`
	EnrichmentStatus string        `json:"enrichment_status"`
	ExternalData     *ExternalData `json:"external_data,omitempty"`
	DistanceMeters   *float64      `json:"distance_meters,omitempty"`
}

type SearchMetadata struct {
	Query           string  `json:"query"`
	Source          string  `json:"source"`
	TotalCandidates int     `json:"total_candidates"`
	PartnerCount    int     `json:"partner_count"`
	GoogleCount     int     `json:"google_count"`
	ReturnedCount   int     `json:"returned_count"`
	EnrichmentRate  float64 `json:"enrichment_rate"`
	ElapsedMs       int64   `json:"elapsed_ms"`
	Cached          bool    `json:"cached"`
	Degraded        bool    `json:"degraded"`
}

type SearchData struct {
	Results        []SearchResult `json:"results"`
	SearchMetadata SearchMetadata `json:"search_metadata"`
}

type SearchEnvelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    SearchData `json:"data"`
}

type ComponentHealth struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type HealthReport struct {
	Status  string          `json:"status"`
	Index   ComponentHealth `json:"vector_index"`
	Gateway ComponentHealth `json:"google_maps"`
	Checked time.Time       `json:"checked_at"`
}

func (h HealthReport) Healthy() bool { return h.Status == "healthy" }

type SearchStats struct {
	Metrics MetricsSnapshot `json:"metrics"`
	Cache   *cache.Stats    `json:"cache,omitempty"`
}

type HybridSearchConfig struct {
	RequestTimeout        time.Duration
	EnrichmentTimeout     time.Duration
	EnrichmentConcurrency int
	DefaultRadiusKm       float64
	CacheTTL              time.Duration
}

type HybridSearchServiceInterface interface {
	HybridSearch(ctx context.Context, query string, opts SearchOptions) (*SearchEnvelope, error)
	SearchNear(ctx context.Context, query string, location *utils.LatLng, radiusKm float64, limit int) (*SearchEnvelope, error)
	Stats(ctx context.Context) SearchStats
	Health(ctx context.Context) HealthReport
	InvalidateCache(ctx context.Context) error
	CacheStats(ctx context.Context) (cache.Stats, error)
}

type HybridSearchService struct {
	semantic SemanticSearchServiceInterface
	gateway  PlacesGatewayInterface
	cache    cache.ResultCache
	metrics  *SearchMetrics
	logger   logger.ILogger
	cfg      HybridSearchConfig
}

func NewHybridSearchService(
	semantic SemanticSearchServiceInterface,
	gateway PlacesGatewayInterface,
	resultCache cache.ResultCache,
	metrics *SearchMetrics,
	log logger.ILogger,
	cfg HybridSearchConfig,
) *HybridSearchService {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 8 * time.Second
	}
	if cfg.EnrichmentTimeout <= 0 {
		cfg.EnrichmentTimeout = 4 * time.Second
	}
	if cfg.EnrichmentConcurrency <= 0 {
		cfg.EnrichmentConcurrency = 5
	}
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = 10
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &HybridSearchService{
		semantic: semantic,
		gateway:  gateway,
		cache:    resultCache,
		metrics:  metrics,
		logger:   log,
		cfg:      cfg,
	}
}

func (s *HybridSearchService) HybridSearch(ctx context.Context, query string, opts SearchOptions) (*SearchEnvelope, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	opts, err := s.validate(query, opts)
	if err != nil {
		return nil, err
	}

	key := cache.SearchKey(cache.SearchKeyParams{
		Query:    query,
		Category: opts.Category,
		Location: opts.Location,
		RadiusKm: opts.RadiusKm,
		Limit:    opts.Limit,
	})
	if env, ok := s.fromCache(ctx, key); ok {
		env.Data.SearchMetadata.Cached = true
		env.Data.SearchMetadata.ElapsedMs = time.Since(start).Milliseconds()
		s.metrics.RecordSearch(query, true, true, time.Since(start))
		return env, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	semStart := time.Now()
	matches, semErr := s.semantic.Query(reqCtx, query, SemanticFilters{
		Category: opts.Category,
		Location: opts.Location,
		RadiusKm: opts.RadiusKm,
	}, opts.Limit)
	s.metrics.RecordSource(SourceVectorIndex, semErr == nil, time.Since(semStart))

	degraded := semErr != nil
	if degraded {
		s.logger.Warn(hybridModule, "semantic search unavailable, using places gateway only", map[string]interface{}{
			"query": query,
			"error": semErr.Error(),
		})
	}
	partners := partnerResults(matches)

	var (
		google []SearchResult
		gwErr  error
	)
	if degraded || len(partners) < opts.Limit {
		center := DefaultSearchCenter
		if opts.Location != nil {
			center = *opts.Location
		}
		gwStart := time.Now()
		var places []ExternalPlace
		places, gwErr = s.gateway.SearchNearby(reqCtx, center, opts.RadiusKm, opts.Category, query)
		s.metrics.RecordSource(SourceGoogleMaps, gwErr == nil, time.Since(gwStart))
		if gwErr != nil {
			s.logger.Warn(hybridModule, "places gateway search failed", map[string]interface{}{
				"query": query,
				"error": gwErr.Error(),
			})
		}
		google = googleResults(places, opts.Category)
	}

	if degraded && gwErr != nil {
		s.metrics.RecordSearch(query, false, false, time.Since(start))
		return nil, fmt.Errorf("%w: index: %v; gateway: %v", utils.ErrServiceUnavailable, semErr, gwErr)
	}

	s.enrich(reqCtx, partners)

	results, total := mergeResults(partners, google, opts.Limit)
	if opts.Location != nil {
		for i := range results {
			if results[i].DistanceMeters == nil {
				d := utils.HaversineMeters(*opts.Location, results[i].Location)
				results[i].DistanceMeters = &d
			}
		}
	}

	meta := SearchMetadata{
		Query:           query,
		TotalCandidates: total,
		ReturnedCount:   len(results),
		Degraded:        degraded,
	}
	enriched := 0
	for _, r := range results {
		switch r.Source {
		case ResultSourcePartner:
			meta.PartnerCount++
		case ResultSourceGoogle:
			meta.GoogleCount++
		}
		if r.EnrichmentStatus == EnrichmentStatusSuccess {
			enriched++
		}
	}
	if len(results) > 0 {
		meta.EnrichmentRate = math.Round(float64(enriched)/float64(len(results))*100) / 100
	}
	switch {
	case degraded:
		meta.Source = SearchSourceExternalOnly
	case meta.GoogleCount > 0:
		meta.Source = SearchSourceHybrid
	default:
		meta.Source = SearchSourceSemanticOnly
	}
	meta.ElapsedMs = time.Since(start).Milliseconds()

	env := &SearchEnvelope{
		Success: true,
		Message: fmt.Sprintf("Found %d places", len(results)),
		Data:    SearchData{Results: results, SearchMetadata: meta},
	}

	// Degraded answers are not cached so a recovered index is used on the next request.
	if !degraded {
		if err := s.cache.Set(ctx, key, env, s.cfg.CacheTTL); err != nil {
			s.logger.Warn(hybridModule, "cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	s.metrics.RecordSearch(query, true, false, time.Since(start))
	s.logger.Info(hybridModule, "search completed", map[string]interface{}{
		"query":           query,
		"source":          meta.Source,
		"returned":        meta.ReturnedCount,
		"enrichment_rate": meta.EnrichmentRate,
		"elapsed_ms":      meta.ElapsedMs,
	})
	return env, nil
}

func (s *HybridSearchService) SearchNear(ctx context.Context, query string, location *utils.LatLng, radiusKm float64, limit int) (*SearchEnvelope, error) {
	if location == nil {
		return nil, fmt.Errorf("%w: location is required", utils.ErrValidation)
	}
	return s.HybridSearch(ctx, query, SearchOptions{Limit: limit, Location: location, RadiusKm: radiusKm})
}

func (s *HybridSearchService) Stats(ctx context.Context) SearchStats {
	stats := SearchStats{Metrics: s.metrics.Snapshot()}
	if cs, err := s.cache.Stats(ctx); err == nil {
		stats.Cache = &cs
	}
	return stats
}

// Health checks the index and the gateway independently and in parallel.
func (s *HybridSearchService) Health(ctx context.Context) HealthReport {
	report := HealthReport{Checked: time.Now().UTC()}

	var g errgroup.Group
	g.Go(func() error {
		report.Index = checkComponent(ctx, s.semantic.Ping)
		return nil
	})
	g.Go(func() error {
		report.Gateway = checkComponent(ctx, s.gateway.Ping)
		return nil
	})
	_ = g.Wait()

	switch {
	case report.Index.Status == "ok" && report.Gateway.Status == "ok":
		report.Status = "healthy"
	case report.Index.Status == "ok" || report.Gateway.Status == "ok":
		report.Status = "degraded"
	default:
		report.Status = "unhealthy"
	}
	return report
}

func (s *HybridSearchService) InvalidateCache(ctx context.Context) error {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("invalidate search cache: %w", err)
	}
	s.logger.Info(hybridModule, "search cache cleared", nil)
	return nil
}

func (s *HybridSearchService) CacheStats(ctx context.Context) (cache.Stats, error) {
	return s.cache.Stats(ctx)
}

func (s *HybridSearchService) validate(query string, opts SearchOptions) (SearchOptions, error) {
	if query == "" {
		return opts, fmt.Errorf("%w: query is required", utils.ErrValidation)
	}
	if utf8.RuneCountInString(query) > maxQueryLength {
		return opts, fmt.Errorf("%w: query must be at most %d characters", utils.ErrValidation, maxQueryLength)
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultSearchLimit
	}
	if opts.Limit < 1 || opts.Limit > MaxSearchLimit {
		return opts, fmt.Errorf("%w: limit must be between 1 and %d", utils.ErrValidation, MaxSearchLimit)
	}
	if opts.Category != "" && !db_models.IsValidCategory(opts.Category) {
		return opts, fmt.Errorf("%w: unknown category %q", utils.ErrValidation, opts.Category)
	}
	if opts.Location != nil {
		if err := opts.Location.Validate(); err != nil {
			return opts, err
		}
	}
	if opts.RadiusKm == 0 {
		opts.RadiusKm = s.cfg.DefaultRadiusKm
	}
	if opts.RadiusKm < 0 || opts.RadiusKm > maxRadiusKm {
		return opts, fmt.Errorf("%w: radius must be between 0 and %d km", utils.ErrValidation, maxRadiusKm)
	}
	return opts, nil
}

func (s *HybridSearchService) fromCache(ctx context.Context, key string) (*SearchEnvelope, bool) {
	var env SearchEnvelope
	found, err := s.cache.Get(ctx, key, &env)
	if err != nil {
		s.logger.Warn(hybridModule, "cache read failed, treating as miss", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &env, true
}

// enrich fans out gateway lookups for partner results. A failed lookup only marks its
// own result.
func (s *HybridSearchService) enrich(ctx context.Context, results []SearchResult) {
	var g errgroup.Group
	g.SetLimit(s.cfg.EnrichmentConcurrency)

	for i := range results {
		r := &results[i]
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.EnrichmentTimeout)
			defer cancel()

			start := time.Now()
			res, err := s.gateway.Enrich(callCtx, PlaceRef{Name: r.Name, Address: r.Address, Location: r.Location})
			s.metrics.RecordSource(SourceGoogleMaps, err == nil, time.Since(start))

			switch {
			case err != nil:
				r.EnrichmentStatus = EnrichmentStatusFailed
				s.logger.Debug(hybridModule, "enrichment failed", map[string]interface{}{
					"id":    r.ID,
					"error": err.Error(),
				})
			case res.Outcome == EnrichmentSuccess:
				r.EnrichmentStatus = EnrichmentStatusSuccess
				r.ExternalData = res.Data
			case res.Outcome == EnrichmentPartial:
				r.EnrichmentStatus = EnrichmentStatusPartial
				r.ExternalData = res.Data
			default:
				r.EnrichmentStatus = EnrichmentStatusFailed
			}
			return nil
		})
	}
	_ = g.Wait()
}

func partnerResults(matches []SemanticMatch) []SearchResult {
	out := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		out = append(out, SearchResult{
			ID:               m.IndexID,
			Source:           ResultSourcePartner,
			PlaceID:          m.PlaceID,
			Name:             m.Name,
			Description:      m.Description,
			Category:         m.Category,
			Tags:             m.Tags,
			Address:          m.Address,
			Location:         m.Location,
			Priority:         m.Priority,
			Rating:           m.Rating,
			Score:            m.Score,
			EnrichmentStatus: EnrichmentStatusFailed,
			DistanceMeters:   m.DistanceMeters,
		})
	}
	return out
}

// googleResults converts gateway places. They carry no similarity, so the score is derived
// from the Google rating and capped at 0.5; it only orders Google results among themselves.
func googleResults(places []ExternalPlace, category string) []SearchResult {
	out := make([]SearchResult, 0, len(places))
	for _, p := range places {
		out = append(out, SearchResult{
			ID:               "google_" + p.PlaceID,
			Source:           ResultSourceGoogle,
			Name:             p.Name,
			Category:         category,
			Address:          p.Address,
			Location:         p.Location,
			Rating:           p.Rating,
			Score:            math.Max(0, math.Min(0.5, p.Rating/10)),
			EnrichmentStatus: EnrichmentStatusPartial,
			ExternalData:     externalDataFromPlace(p),
		})
	}
	return out
}

// mergeResults drops Google places that duplicate a partner by name, orders everything,
// de-duplicates by store id and by name plus rounded coordinates, and trims to limit.
// It also returns the number of candidates considered.
func mergeResults(partners, google []SearchResult, limit int) ([]SearchResult, int) {
	total := len(partners) + len(google)

	partnerNames := make(map[string]struct{}, len(partners))
	for _, p := range partners {
		partnerNames[normalizeName(p.Name)] = struct{}{}
	}
	all := make([]SearchResult, 0, total)
	all = append(all, partners...)
	for _, g := range google {
		if _, dup := partnerNames[normalizeName(g.Name)]; dup {
			continue
		}
		all = append(all, g)
	}

	SortSearchResults(all)

	seenPlace := make(map[string]struct{}, len(all))
	seenKey := make(map[string]struct{}, len(all))
	out := make([]SearchResult, 0, limit)
	for _, r := range all {
		if r.PlaceID != "" {
			if _, dup := seenPlace[r.PlaceID]; dup {
				continue
			}
		}
		key := dedupKey(r)
		if _, dup := seenKey[key]; dup {
			continue
		}
		if r.PlaceID != "" {
			seenPlace[r.PlaceID] = struct{}{}
		}
		seenKey[key] = struct{}{}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, total
}

// SortSearchResults puts partner results ahead of Google results, then orders each group by
// score, priority and rating (all descending), then id.
func SortSearchResults(r []SearchResult) {
	sort.SliceStable(r, func(i, j int) bool {
		if pi, pj := r[i].Source == ResultSourcePartner, r[j].Source == ResultSourcePartner; pi != pj {
			return pi
		}
		if r[i].Score != r[j].Score {
			return r[i].Score > r[j].Score
		}
		if r[i].Priority != r[j].Priority {
			return r[i].Priority > r[j].Priority
		}
		if r[i].Rating != r[j].Rating {
			return r[i].Rating > r[j].Rating
		}
		return r[i].ID < r[j].ID
	})
}

func dedupKey(r SearchResult) string {
	return fmt.Sprintf("%s|%.3f,%.3f", normalizeName(r.Name), utils.RoundTo(r.Location.Lat, 3), utils.RoundTo(r.Location.Lng, 3))
}

func checkComponent(ctx context.Context, ping func(context.Context) error) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	h := ComponentHealth{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		h.Status = "unavailable"
		h.Error = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			h.Error = "timed out"
		}
	}
	return h
}
