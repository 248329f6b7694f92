package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pgvector/pgvector-go"
	"vinatravel/internal/repositories"
	"vinatravel/pkg/utils"
)

type SemanticFilters struct {
	Category string
	Location *utils.LatLng
	RadiusKm float64
}

type SemanticMatch struct {
	IndexID        string
	PlaceID        string
	Name           string
	Description    string
	Address        string
	Category       string
	Tags           []string
	Location       utils.LatLng
	Priority       int
	Rating         float64
	Score          float64
	DistanceMeters *float64
}

type SemanticSearchServiceInterface interface {
	Query(ctx context.Context, text string, filters SemanticFilters, topK int) ([]SemanticMatch, error)
	QueryVector(ctx context.Context, vector pgvector.Vector, filters SemanticFilters, topK int) ([]SemanticMatch, error)
	Ping(ctx context.Context) error
}

type SemanticSearchService struct {
	index    repositories.VectorIndexRepository
	embedder utils.EmbeddingClientInterface
	minScore float64
}

func NewSemanticSearchService(index repositories.VectorIndexRepository, embedder utils.EmbeddingClientInterface, minScore float64) *SemanticSearchService {
	return &SemanticSearchService{index: index, embedder: embedder, minScore: minScore}
}

func (s *SemanticSearchService) Query(ctx context.Context, text string, filters SemanticFilters, topK int) ([]SemanticMatch, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query text is required", utils.ErrValidation)
	}
	vec, err := s.embedder.GetEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", utils.ErrIndexUnavailable, err)
	}
	return s.QueryVector(ctx, vec, filters, topK)
}

// QueryVector returns at most topK active entries, best first. With a location filter the
// index is over-fetched inside the bounding box and trimmed by exact distance.
func (s *SemanticSearchService) QueryVector(ctx context.Context, vec pgvector.Vector, filters SemanticFilters, topK int) ([]SemanticMatch, error) {
	if topK <= 0 {
		return []SemanticMatch{}, nil
	}

	q := repositories.VectorQuery{Embedding: vec, Category: filters.Category, Limit: topK}
	if filters.Location != nil && filters.RadiusKm > 0 {
		box := utils.BoundingBoxAround(*filters.Location, filters.RadiusKm)
		q.Box = &box
		q.Limit = topK * 3
	}

	rows, err := s.index.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIndexUnavailable, err)
	}

	matches := make([]SemanticMatch, 0, len(rows))
	for _, row := range rows {
		m := SemanticMatch{
			IndexID:     row.ID,
			PlaceID:     row.PlaceID,
			Name:        row.Name,
			Description: row.Description,
			Address:     row.Address,
			Category:    row.Category,
			Tags:        row.Tags,
			Location:    utils.LatLng{Lat: row.Latitude, Lng: row.Longitude},
			Priority:    row.Priority,
			Rating:      row.Rating,
			Score:       scoreFromDistance(row.Distance),
		}
		if m.Score < s.minScore {
			continue
		}
		if filters.Location != nil {
			d := utils.HaversineMeters(*filters.Location, m.Location)
			if filters.RadiusKm > 0 && d > filters.RadiusKm*1000 {
				continue
			}
			m.DistanceMeters = &d
		}
		matches = append(matches, m)
	}

	SortSemanticMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *SemanticSearchService) Ping(ctx context.Context) error {
	if err := s.index.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrIndexUnavailable, err)
	}
	return nil
}

// SortSemanticMatches orders by score, then priority, then rating, all descending.
func SortSemanticMatches(m []SemanticMatch) {
	sort.SliceStable(m, func(i, j int) bool {
		if m[i].Score != m[j].Score {
			return m[i].Score > m[j].Score
		}
		if m[i].Priority != m[j].Priority {
			return m[i].Priority > m[j].Priority
		}
		if m[i].Rating != m[j].Rating {
			return m[i].Rating > m[j].Rating
		}
		return m[i].IndexID < m[j].IndexID
	})
}

// scoreFromDistance turns pgvector's cosine distance (0..2) into a similarity in [0, 1].
func scoreFromDistance(d float64) float64 {
	if math.IsNaN(d) {
		return 0
	}
	return math.Max(0, math.Min(1, 1-d))
}
