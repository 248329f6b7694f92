package db_models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PartnerPlaceVector is the search replica of a PartnerPlace. Never a source of truth.
type PartnerPlaceVector struct {
	ID          string `gorm:"primaryKey"`
	PlaceID     string `gorm:"type:uuid;not null;index"`
	Name        string
	Description string
	Address     string
	Category    string         `gorm:"index"`
	Tags        pq.StringArray `gorm:"type:text[]"`
	Latitude    float64
	Longitude   float64
	Priority    int
	Rating      float64
	Status      string
	Embedding   pgvector.Vector `gorm:"type:vector(768)"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime"`
}
