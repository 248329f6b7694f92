package request_models

type LocationRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

type HybridSearchRequest struct {
	Query    string           `json:"query" binding:"required"`
	Limit    int              `json:"limit"`
	Category string           `json:"category"`
	Location *LocationRequest `json:"location"`
	Radius   float64          `json:"radius"`
}

type SearchNearRequest struct {
	Query    string           `json:"query" binding:"required"`
	Location *LocationRequest `json:"location" binding:"required"`
	Radius   float64          `json:"radius"`
	Limit    int              `json:"limit"`
}

type SyncOneRequest struct {
	ID string `json:"id" binding:"required,uuid"`
}
