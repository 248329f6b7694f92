package request_models

type ContactInfoRequest struct {
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// CreatePartnerPlaceRequest carries no sync fields; sync state is owned by the server.
type CreatePartnerPlaceRequest struct {
	Name         string             `json:"name" binding:"required"`
	Description  string             `json:"description" binding:"required"`
	Latitude     *float64           `json:"latitude" binding:"required"`
	Longitude    *float64           `json:"longitude" binding:"required"`
	Address      string             `json:"address"`
	Category     string             `json:"category" binding:"required"`
	Tags         []string           `json:"tags"`
	Priority     int                `json:"priority"`
	Status       string             `json:"status"`
	Rating       float64            `json:"rating"`
	ReviewCount  int                `json:"review_count"`
	PriceRange   string             `json:"price_range"`
	AveragePrice *float64           `json:"average_price"`
	OpeningHours string             `json:"opening_hours"`
	Contact      ContactInfoRequest `json:"contact"`
	Images       []string           `json:"images"`
	Thumbnail    string             `json:"thumbnail"`
	Amenities    []string           `json:"amenities"`
}

// UpdatePartnerPlaceRequest is a partial update; nil fields are left unchanged.
type UpdatePartnerPlaceRequest struct {
	Name         *string             `json:"name"`
	Description  *string             `json:"description"`
	Latitude     *float64            `json:"latitude"`
	Longitude    *float64            `json:"longitude"`
	Address      *string             `json:"address"`
	Category     *string             `json:"category"`
	Tags         []string            `json:"tags"`
	Priority     *int                `json:"priority"`
	Status       *string             `json:"status"`
	Rating       *float64            `json:"rating"`
	ReviewCount  *int                `json:"review_count"`
	PriceRange   *string             `json:"price_range"`
	AveragePrice *float64            `json:"average_price"`
	OpeningHours *string             `json:"opening_hours"`
	Contact      *ContactInfoRequest `json:"contact"`
	Images       []string            `json:"images"`
	Thumbnail    *string             `json:"thumbnail"`
	Amenities    []string            `json:"amenities"`
}

type ListPartnerPlacesQuery struct {
	Page      int     `form:"page"`
	PageSize  int     `form:"pageSize"`
	Category  string  `form:"category"`
	Status    string  `form:"status"`
	MinRating float64 `form:"minRating"`
	Search    string  `form:"search"`
}
