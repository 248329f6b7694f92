package response_models

import "time"

type ContactInfo struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

type SyncInfo struct {
	Status       string     `json:"status"`
	IndexID      *string    `json:"index_id,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	RetryCount   int        `json:"retry_count"`
}

type PartnerPlace struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Latitude      float64     `json:"latitude"`
	Longitude     float64     `json:"longitude"`
	Address       string      `json:"address"`
	Category      string      `json:"category"`
	Tags          []string    `json:"tags"`
	Priority      int         `json:"priority"`
	Status        string      `json:"status"`
	Rating        float64     `json:"rating"`
	ReviewCount   int         `json:"review_count"`
	PriceRange    string      `json:"price_range,omitempty"`
	AveragePrice  *float64    `json:"average_price,omitempty"`
	OpeningHours  string      `json:"opening_hours,omitempty"`
	Contact       ContactInfo `json:"contact"`
	Images        []string    `json:"images"`
	Thumbnail     string      `json:"thumbnail,omitempty"`
	Amenities     []string    `json:"amenities"`
	Sync          SyncInfo    `json:"sync"`
	DeactivatedAt *time.Time  `json:"deactivated_at,omitempty"`
	CreatedAt     int64       `json:"created_at"`
	UpdatedAt     int64       `json:"updated_at"`
}

type PartnerPlacePage struct {
	Items    []PartnerPlace `json:"items"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Total    int64          `json:"total"`
}
