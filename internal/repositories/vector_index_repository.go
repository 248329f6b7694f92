package repositories

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"vinatravel/internal/models/db_models"
	"vinatravel/pkg/utils"
)

type VectorQuery struct {
	Embedding pgvector.Vector
	Category  string
	Box       *utils.BoundingBox
	Limit     int
}

// VectorMatch is an index row plus its cosine distance to the query vector.
type VectorMatch struct {
	ID          string
	PlaceID     string
	Name        string
	Description string
	Address     string
	Category    string
	Tags        pq.StringArray
	Latitude    float64
	Longitude   float64
	Priority    int
	Rating      float64
	Status      string
	Distance    float64
}

type VectorIndexRepository interface {
	Upsert(ctx context.Context, record *db_models.PartnerPlaceVector) error
	Query(ctx context.Context, q VectorQuery) ([]VectorMatch, error)
	Delete(ctx context.Context, ids ...string) error
	ListIDs(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

type vectorIndexRepository struct {
	db *gorm.DB
}

func NewVectorIndexRepository(db *gorm.DB) VectorIndexRepository {
	return &vectorIndexRepository{db: db}
}

const upsertVectorSQL = `
INSERT INTO partner_place_vectors
    (id, place_id, name, description, address, category, tags, latitude, longitude, priority, rating, status, embedding, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())
ON CONFLICT (id) DO UPDATE SET
    place_id = EXCLUDED.place_id,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    address = EXCLUDED.address,
    category = EXCLUDED.category,
    tags = EXCLUDED.tags,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude,
    priority = EXCLUDED.priority,
    rating = EXCLUDED.rating,
    status = EXCLUDED.status,
    embedding = EXCLUDED.embedding,
    updated_at = NOW()`

func (r *vectorIndexRepository) Upsert(ctx context.Context, rec *db_models.PartnerPlaceVector) error {
	return r.db.WithContext(ctx).Exec(upsertVectorSQL,
		rec.ID, rec.PlaceID, rec.Name, rec.Description, rec.Address, rec.Category, rec.Tags,
		rec.Latitude, rec.Longitude, rec.Priority, rec.Rating, rec.Status, rec.Embedding,
	).Error
}

// Query returns active entries nearest to the query vector by cosine distance (<=>).
// The bounding box is only a coarse pre-filter.
func (r *vectorIndexRepository) Query(ctx context.Context, q VectorQuery) ([]VectorMatch, error) {
	var (
		where = []string{"status = ?"}
		args  = []interface{}{q.Embedding, string(db_models.PlaceStatusActive)}
	)
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Box != nil {
		where = append(where, "latitude BETWEEN ? AND ?", "longitude BETWEEN ? AND ?")
		args = append(args, q.Box.MinLat, q.Box.MaxLat, q.Box.MinLng, q.Box.MaxLng)
	}
	args = append(args, q.Limit)

	query := `
SELECT id, place_id, name, description, address, category, tags, latitude, longitude,
       priority, rating, status, embedding <=> ? AS distance
FROM partner_place_vectors
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY distance ASC, priority DESC, rating DESC, id ASC
LIMIT ?`

	var matches []VectorMatch
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *vectorIndexRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec("DELETE FROM partner_place_vectors WHERE id IN ?", ids).Error
}

func (r *vectorIndexRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Raw("SELECT id FROM partner_place_vectors").Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *vectorIndexRepository) Ping(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec("SELECT 1 FROM partner_place_vectors LIMIT 1").Error
}
