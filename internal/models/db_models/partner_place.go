package db_models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// MaxSyncRetries is the automatic retry ceiling; places at or above it need a manual resync.
const MaxSyncRetries = 5

type PlaceStatus string

const (
	PlaceStatusActive   PlaceStatus = "active"
	PlaceStatusInactive PlaceStatus = "inactive"
	PlaceStatusPending  PlaceStatus = "pending"
)

// Partner place categories, kept in Vietnamese as stored and indexed.
const (
	CategoryHotel      = "khách sạn"
	CategoryRestaurant = "nhà hàng"
	CategoryAttraction = "điểm tham quan"
	CategoryAmusement  = "khu vui chơi"
	CategoryResort     = "resort"
	CategoryCafe       = "cafe"
	CategorySpa        = "spa"
	CategoryOther      = "other"
)

var Categories = []string{
	CategoryHotel, CategoryRestaurant, CategoryAttraction, CategoryAmusement,
	CategoryResort, CategoryCafe, CategorySpa, CategoryOther,
}

func IsValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type ContactInfo struct {
	Phone   string `gorm:"column:contact_phone" json:"phone,omitempty" validate:"omitempty,max=32"`
	Email   string `gorm:"column:contact_email" json:"email,omitempty" validate:"omitempty,email"`
	Website string `gorm:"column:contact_website" json:"website,omitempty" validate:"omitempty,url"`
}

type PartnerPlace struct {
	BaseModel
	Name        string  `gorm:"not null;index" validate:"required,max=200"`
	Description string  `gorm:"not null" validate:"required"`
	Longitude   float64 `gorm:"not null" validate:"gte=-180,lte=180"`
	Latitude    float64 `gorm:"not null" validate:"gte=-90,lte=90"`
	Address     string

	Category string         `gorm:"not null;index" validate:"required,partner_category"`
	Tags     pq.StringArray `gorm:"type:text[]"`

	Priority    int         `gorm:"not null;default:1;index" validate:"gte=1,lte=10"`
	Status      PlaceStatus `gorm:"type:varchar(16);not null;default:active;index" validate:"oneof=active inactive pending"`
	Rating      float64     `gorm:"not null;default:0" validate:"gte=0,lte=5"`
	ReviewCount int         `gorm:"not null;default:0" validate:"gte=0"`

	Contact ContactInfo `gorm:"embedded"`

	Images       pq.StringArray `gorm:"type:text[]" validate:"max=10"`
	Thumbnail    string
	PriceRange   string   `gorm:"type:varchar(4)" validate:"omitempty,oneof=$ $$ $$$ $$$$"`
	AveragePrice *float64 `validate:"omitempty,gte=0"`
	OpeningHours string
	Amenities    pq.StringArray `gorm:"type:text[]"`

	IndexID          *string `gorm:"uniqueIndex"`
	LastSyncedAt     *time.Time
	SyncStatus       SyncStatus `gorm:"type:varchar(16);not null;default:pending;index:idx_partner_places_sync"`
	SyncErrorMessage *string
	SyncRetryCount   int `gorm:"not null;default:0;index:idx_partner_places_sync"`

	// SyncVersion grows on every content write. Sync status writes only land when the
	// version they read is still current.
	SyncVersion int64 `gorm:"not null;default:0"`

	AddedBy       *uuid.UUID `gorm:"type:uuid"`
	UpdatedBy     *uuid.UUID `gorm:"type:uuid"`
	DeactivatedAt *time.Time
	DeactivatedBy *uuid.UUID `gorm:"type:uuid"`
}

// BeforeSave fills the thumbnail from the first image when none is given.
func (p *PartnerPlace) BeforeSave(tx *gorm.DB) error {
	if p.Thumbnail == "" && len(p.Images) > 0 {
		p.Thumbnail = p.Images[0]
	}
	return nil
}

// IsSyncEligible reports whether the sync engine may pick the place up automatically.
func (p *PartnerPlace) IsSyncEligible() bool {
	switch p.SyncStatus {
	case SyncStatusPending:
		return true
	case SyncStatusFailed:
		return p.SyncRetryCount < MaxSyncRetries
	default:
		return false
	}
}

// IndexIDFor is the vector index id of a place. It is stable so repeated syncs overwrite
// the same index entry.
func IndexIDFor(id uuid.UUID) string {
	return "partner_" + id.String()
}
