package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vinatravel/pkg/utils"
)

const SearchKeyPrefix = "hybrid_search:"

type Stats struct {
	Driver  string  `json:"driver"`
	Keys    int     `json:"keys"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// ResultCache stores JSON-encodable search envelopes. It is advisory: callers treat any
// error as a miss.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidateAll(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

// NormalizeQuery lower-cases, trims and collapses inner whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

type SearchKeyParams struct {
	Query    string
	Category string
	Location *utils.LatLng
	RadiusKm float64
	Limit    int
}

// SearchKey builds the cache key of a hybrid search. Locations are rounded to 4 decimals
// (about 11 m) so near-identical requests share an entry.
func SearchKey(p SearchKeyParams) string {
	loc := "-"
	if p.Location != nil {
		loc = fmt.Sprintf("%.4f,%.4f", utils.RoundTo(p.Location.Lat, 4), utils.RoundTo(p.Location.Lng, 4))
	}
	return fmt.Sprintf("%s%s|cat=%s|loc=%s|r=%g|n=%d",
		SearchKeyPrefix, NormalizeQuery(p.Query), p.Category, loc, p.RadiusKm, p.Limit)
}

func hitRate(hits, misses uint64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
