package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vinatravel/internal/models/db_models"
	"vinatravel/pkg/utils"
)

// indexedFixture syncs places through the real sync path so the index holds real embeddings.
func indexedFixture(t *testing.T, places ...db_models.PartnerPlace) (*memVectorIndex, utils.EmbeddingClientInterface) {
	t.Helper()
	repo, index := newMemPlaceRepo(places...), newMemVectorIndex()
	s := newTestSyncService(repo, index)
	s.embedder = utils.NewHashEmbeddingClient(512)
	for i := range places {
		p := repo.get(places[i].ID)
		require.NoError(t, s.SyncOne(context.Background(), &p))
	}
	return index, s.embedder
}

func TestQueryScoresAreOrderedAndBounded(t *testing.T) {
	a := hotel("Khách sạn Biển Xanh")
	b := hotel("Khách sạn Phố Núi")
	b.Description = "Nhà nghỉ trên núi, view đồi thông"
	b.Tags = nil
	c := hotel("Nhà hàng Hải Sản")
	c.Category = db_models.CategoryRestaurant
	c.Description = "Hải sản tươi sống"

	index, embedder := indexedFixture(t, a, b, c)
	svc := NewSemanticSearchService(index, embedder, 0)

	matches, err := svc.Query(context.Background(), "khách sạn gần biển hồ bơi", SemanticFilters{}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for i, m := range matches {
		assert.GreaterOrEqual(t, m.Score, 0.0)
		assert.LessOrEqual(t, m.Score, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, matches[i-1].Score, m.Score)
		}
	}
	assert.Equal(t, "Khách sạn Biển Xanh", matches[0].Name)
}

func TestQueryFiltersByCategoryAndRadius(t *testing.T) {
	danang := hotel("Đà Nẵng Hotel")
	hanoi := hotel("Hà Nội Hotel")
	hanoi.Latitude, hanoi.Longitude = 21.03, 105.85
	cafe := hotel("Cafe Biển")
	cafe.Category = db_models.CategoryCafe

	index, embedder := indexedFixture(t, danang, hanoi, cafe)
	svc := NewSemanticSearchService(index, embedder, 0)

	center := utils.LatLng{Lat: 16.06, Lng: 108.24}
	matches, err := svc.Query(context.Background(), "khách sạn", SemanticFilters{
		Category: db_models.CategoryHotel,
		Location: &center,
		RadiusKm: 5,
	}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Đà Nẵng Hotel", matches[0].Name)
	require.NotNil(t, matches[0].DistanceMeters)
	assert.Less(t, *matches[0].DistanceMeters, 1.0)
}

func TestQueryExcludesInactivePlaces(t *testing.T) {
	active := hotel("Active")
	inactive := hotel("Inactive")
	inactive.Status = db_models.PlaceStatusInactive

	index, embedder := indexedFixture(t, active, inactive)
	svc := NewSemanticSearchService(index, embedder, 0)

	matches, err := svc.Query(context.Background(), "khách sạn", SemanticFilters{}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Active", matches[0].Name)
}

func TestQueryRespectsTopKAndMinScore(t *testing.T) {
	index, embedder := indexedFixture(t, hotel("A"), hotel("B"), hotel("C"))

	matches, err := NewSemanticSearchService(index, embedder, 0).Query(context.Background(), "khách sạn", SemanticFilters{}, 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = NewSemanticSearchService(index, embedder, 1.01).Query(context.Background(), "khách sạn", SemanticFilters{}, 2)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQueryReportsIndexUnavailable(t *testing.T) {
	index := newMemVectorIndex()
	index.queryErr = errBoom
	svc := NewSemanticSearchService(index, utils.NewHashEmbeddingClient(64), 0)

	matches, err := svc.Query(context.Background(), "khách sạn", SemanticFilters{}, 5)
	assert.ErrorIs(t, err, utils.ErrIndexUnavailable)
	assert.Nil(t, matches)
	assert.ErrorIs(t, svc.Ping(context.Background()), utils.ErrIndexUnavailable)
}

func TestSortSemanticMatchesBreaksTies(t *testing.T) {
	m := []SemanticMatch{
		{IndexID: "c", Score: 0.5, Priority: 1, Rating: 4},
		{IndexID: "b", Score: 0.5, Priority: 3, Rating: 2},
		{IndexID: "a", Score: 0.5, Priority: 1, Rating: 4.5},
		{IndexID: "d", Score: 0.9, Priority: 1, Rating: 1},
	}
	SortSemanticMatches(m)
	ids := []string{m[0].IndexID, m[1].IndexID, m[2].IndexID, m[3].IndexID}
	assert.Equal(t, []string{"d", "b", "a", "c"}, ids)
}

func TestScoreFromDistanceClamps(t *testing.T) {
	assert.Equal(t, 1.0, scoreFromDistance(-0.1))
	assert.Equal(t, 0.0, scoreFromDistance(1.7))
	assert.InDelta(t, 0.75, scoreFromDistance(0.25), 1e-12)
}
