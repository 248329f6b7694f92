package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"vinatravel/internal/config"
	"vinatravel/internal/models/db_models"
	"vinatravel/pkg/logger"
	"vinatravel/pkg/utils"
)

type EnrichmentOutcome string

const (
	EnrichmentSuccess  EnrichmentOutcome = "success"
	EnrichmentPartial  EnrichmentOutcome = "partial"
	EnrichmentNotFound EnrichmentOutcome = "not_found"
)

const (
	enrichNearbyRadiusMeters = 250
	geocodeCacheSize         = 1024
	geocodeCacheTTL          = 7 * 24 * time.Hour
)

var googleTypeByCategory = map[string]string{
	db_models.CategoryHotel:      "lodging",
	db_models.CategoryRestaurant: "restaurant",
	db_models.CategoryAttraction: "tourist_attraction",
	db_models.CategoryAmusement:  "amusement_park",
	db_models.CategoryResort:     "lodging",
	db_models.CategoryCafe:       "cafe",
	db_models.CategorySpa:        "spa",
}

// GoogleTypeFor maps a partner category to a Places API type. Unknown categories map to "".
func GoogleTypeFor(category string) string {
	return googleTypeByCategory[category]
}

type Photo struct {
	Reference string `json:"photo_reference"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	URLSmall  string `json:"url_small"`
	URLMedium string `json:"url_medium"`
	URLLarge  string `json:"url_large"`
}

type ExternalPlace struct {
	PlaceID          string       `json:"place_id"`
	Name             string       `json:"name"`
	Address          string       `json:"address"`
	Location         utils.LatLng `json:"location"`
	Rating           float64      `json:"rating"`
	UserRatingsTotal int          `json:"user_ratings_total"`
	Types            []string     `json:"types,omitempty"`
	OpenNow          *bool        `json:"open_now,omitempty"`
	PriceLevel       *int         `json:"price_level,omitempty"`
	Photos           []Photo      `json:"photos,omitempty"`
}

type ExternalData struct {
	PlaceID          string   `json:"place_id"`
	Address          string   `json:"address,omitempty"`
	OpeningHours     []string `json:"opening_hours,omitempty"`
	OpenNow          *bool    `json:"open_now,omitempty"`
	Rating           float64  `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"user_ratings_total,omitempty"`
	Photos           []Photo  `json:"photos,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	Website          string   `json:"website,omitempty"`
	PriceLevel       *int     `json:"price_level,omitempty"`
}

type EnrichmentResult struct {
	Outcome EnrichmentOutcome
	Data    *ExternalData
}

// PlaceRef is what the gateway needs to find a place on Google.
type PlaceRef struct {
	Name     string
	Address  string
	Location utils.LatLng
}

type PlacesGatewayInterface interface {
	Enrich(ctx context.Context, place PlaceRef) (EnrichmentResult, error)
	SearchNearby(ctx context.Context, location utils.LatLng, radiusKm float64, category, keyword string) ([]ExternalPlace, error)
	Geocode(ctx context.Context, address string) (*utils.LatLng, error)
	Ping(ctx context.Context) error
}

type GoogleMapsGateway struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	language string
	timeout  time.Duration
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	geocodes *expirable.LRU[string, utils.LatLng]
	logger   logger.ILogger
}

func NewGoogleMapsGateway(cfg config.GoogleMapsConfig, log logger.ILogger) *GoogleMapsGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &GoogleMapsGateway{
		http:     &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		timeout:  timeout,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "google-maps",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("places_gateway", "circuit breaker state change", map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
			},
		}),
		geocodes: expirable.NewLRU[string, utils.LatLng](geocodeCacheSize, nil, geocodeCacheTTL),
		logger:   log,
	}
}

// Enrich looks the place up with a 250 m nearby search, falls back to geocoding name and
// address, then fetches details. Not finding the place is a normal outcome, not an error.
func (g *GoogleMapsGateway) Enrich(ctx context.Context, place PlaceRef) (EnrichmentResult, error) {
	candidates, err := g.nearby(ctx, place.Location, enrichNearbyRadiusMeters, "", place.Name)
	if err != nil {
		return EnrichmentResult{}, fmt.Errorf("%w: nearby search: %v", utils.ErrEnrichmentFailed, err)
	}

	var base *ExternalData
	if match := bestNameMatch(candidates, place.Name); match != nil {
		base = externalDataFromPlace(*match)
	} else {
		query := strings.TrimSpace(strings.Join([]string{place.Name, place.Address}, " "))
		res, err := g.geocodeResult(ctx, query)
		if err != nil {
			return EnrichmentResult{}, fmt.Errorf("%w: geocode: %v", utils.ErrEnrichmentFailed, err)
		}
		if res == nil {
			return EnrichmentResult{Outcome: EnrichmentNotFound}, nil
		}
		base = &ExternalData{PlaceID: res.PlaceID, Address: res.FormattedAddress}
	}

	details, err := g.details(ctx, base.PlaceID)
	if err != nil {
		g.logger.Debug("places_gateway", "place details failed, returning partial data", map[string]interface{}{
			"place_id": base.PlaceID,
			"error":    err.Error(),
		})
		return EnrichmentResult{Outcome: EnrichmentPartial, Data: base}, nil
	}
	return EnrichmentResult{Outcome: EnrichmentSuccess, Data: details}, nil
}

func (g *GoogleMapsGateway) SearchNearby(ctx context.Context, location utils.LatLng, radiusKm float64, category, keyword string) ([]ExternalPlace, error) {
	if err := location.Validate(); err != nil {
		return nil, err
	}
	radius := int(radiusKm * 1000)
	if radius <= 0 || radius > 50000 {
		radius = 50000
	}
	places, err := g.nearby(ctx, location, radius, GoogleTypeFor(category), keyword)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrEnrichmentFailed, err)
	}
	return places, nil
}

// Geocode returns nil, nil when Google has no match. Hits are cached for a week.
func (g *GoogleMapsGateway) Geocode(ctx context.Context, address string) (*utils.LatLng, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	if key == "" {
		return nil, fmt.Errorf("%w: address is required", utils.ErrValidation)
	}
	if loc, ok := g.geocodes.Get(key); ok {
		return &loc, nil
	}
	res, err := g.geocodeResult(ctx, address)
	if err != nil || res == nil {
		return nil, err
	}
	return &res.Geometry.Location, nil
}

func (g *GoogleMapsGateway) Ping(ctx context.Context) error {
	if g.apiKey == "" {
		return errors.New("google maps api key is not configured")
	}
	var resp geocodeResponse
	return g.get(ctx, "/maps/api/geocode/json", url.Values{"address": {"Hà Nội"}}, &resp)
}

func (g *GoogleMapsGateway) PhotoURL(reference string, maxWidth int) string {
	if reference == "" {
		return ""
	}
	q := url.Values{
		"maxwidth":        {fmt.Sprint(maxWidth)},
		"photo_reference": {reference},
		"key":             {g.apiKey},
	}
	return g.baseURL + "/maps/api/place/photo?" + q.Encode()
}

// ---- Places API wire types ----

type apiLocation struct {
	Geometry struct {
		Location utils.LatLng `json:"location"`
	} `json:"geometry"`
}

type apiPhoto struct {
	PhotoReference string `json:"photo_reference"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

type nearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		apiLocation
		PlaceID          string     `json:"place_id"`
		Name             string     `json:"name"`
		Vicinity         string     `json:"vicinity"`
		Rating           float64    `json:"rating"`
		UserRatingsTotal int        `json:"user_ratings_total"`
		Types            []string   `json:"types"`
		PriceLevel       *int       `json:"price_level"`
		Photos           []apiPhoto `json:"photos"`
		OpeningHours     *struct {
			OpenNow *bool `json:"open_now"`
		} `json:"opening_hours"`
	} `json:"results"`
}

type geocodeResult struct {
	apiLocation
	PlaceID          string `json:"place_id"`
	FormattedAddress string `json:"formatted_address"`
}

type geocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
	Results      []geocodeResult `json:"results"`
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		PlaceID              string     `json:"place_id"`
		FormattedAddress     string     `json:"formatted_address"`
		FormattedPhoneNumber string     `json:"formatted_phone_number"`
		Website              string     `json:"website"`
		Rating               float64    `json:"rating"`
		UserRatingsTotal     int        `json:"user_ratings_total"`
		PriceLevel           *int       `json:"price_level"`
		Photos               []apiPhoto `json:"photos"`
		OpeningHours         *struct {
			OpenNow     *bool    `json:"open_now"`
			WeekdayText []string `json:"weekday_text"`
		} `json:"opening_hours"`
	} `json:"result"`
}

// statusHolder lets get() check the API-level status of any response body.
type statusHolder interface {
	apiStatus() (string, string)
}

func (r *nearbyResponse) apiStatus() (string, string)  { return r.Status, r.ErrorMessage }
func (r *geocodeResponse) apiStatus() (string, string) { return r.Status, r.ErrorMessage }
func (r *detailsResponse) apiStatus() (string, string) { return r.Status, r.ErrorMessage }

func (g *GoogleMapsGateway) nearby(ctx context.Context, location utils.LatLng, radiusMeters int, placeType, keyword string) ([]ExternalPlace, error) {
	params := url.Values{
		"location": {fmt.Sprintf("%f,%f", location.Lat, location.Lng)},
		"radius":   {fmt.Sprint(radiusMeters)},
	}
	if placeType != "" {
		params.Set("type", placeType)
	}
	if keyword != "" {
		params.Set("keyword", keyword)
	}

	var resp nearbyResponse
	if err := g.get(ctx, "/maps/api/place/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}

	places := make([]ExternalPlace, 0, len(resp.Results))
	for _, r := range resp.Results {
		p := ExternalPlace{
			PlaceID:          r.PlaceID,
			Name:             r.Name,
			Address:          r.Vicinity,
			Location:         r.Geometry.Location,
			Rating:           r.Rating,
			UserRatingsTotal: r.UserRatingsTotal,
			Types:            r.Types,
			PriceLevel:       r.PriceLevel,
			Photos:           g.photos(r.Photos),
		}
		if r.OpeningHours != nil {
			p.OpenNow = r.OpeningHours.OpenNow
		}
		places = append(places, p)
	}
	return places, nil
}

func (g *GoogleMapsGateway) geocodeResult(ctx context.Context, address string) (*geocodeResult, error) {
	var resp geocodeResponse
	if err := g.get(ctx, "/maps/api/geocode/json", url.Values{"address": {address}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	res := resp.Results[0]
	g.geocodes.Add(strings.ToLower(strings.TrimSpace(address)), res.Geometry.Location)
	return &res, nil
}

func (g *GoogleMapsGateway) details(ctx context.Context, placeID string) (*ExternalData, error) {
	params := url.Values{
		"place_id": {placeID},
		"fields":   {"place_id,formatted_address,formatted_phone_number,website,rating,user_ratings_total,price_level,photos,opening_hours"},
	}
	var resp detailsResponse
	if err := g.get(ctx, "/maps/api/place/details/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "ZERO_RESULTS" {
		return nil, errors.New("place details not found")
	}

	r := resp.Result
	data := &ExternalData{
		PlaceID:          r.PlaceID,
		Address:          r.FormattedAddress,
		Rating:           r.Rating,
		UserRatingsTotal: r.UserRatingsTotal,
		Photos:           g.photos(r.Photos),
		Phone:            r.FormattedPhoneNumber,
		Website:          r.Website,
		PriceLevel:       r.PriceLevel,
	}
	if data.PlaceID == "" {
		data.PlaceID = placeID
	}
	if r.OpeningHours != nil {
		data.OpenNow = r.OpeningHours.OpenNow
		data.OpeningHours = r.OpeningHours.WeekdayText
	}
	return data, nil
}

func (g *GoogleMapsGateway) photos(in []apiPhoto) []Photo {
	if len(in) == 0 {
		return nil
	}
	out := make([]Photo, 0, len(in))
	for _, p := range in {
		out = append(out, Photo{
			Reference: p.PhotoReference,
			Width:     p.Width,
			Height:    p.Height,
			URLSmall:  g.PhotoURL(p.PhotoReference, 400),
			URLMedium: g.PhotoURL(p.PhotoReference, 800),
			URLLarge:  g.PhotoURL(p.PhotoReference, 1200),
		})
	}
	return out
}

// get waits for a rate-limit token, then runs the request through the circuit breaker with
// its own timeout. OK and ZERO_RESULTS are both successful API statuses.
func (g *GoogleMapsGateway) get(ctx context.Context, path string, params url.Values, out statusHolder) error {
	if g.apiKey == "" {
		return errors.New("google maps api key is not configured")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		params.Set("key", g.apiKey)
		if g.language != "" {
			params.Set("language", g.language)
		}
		req, err := http.NewRequestWithContext(callCtx, http.MethodGet, g.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		res, err := g.http.Do(req)
		if err != nil {
			return nil, redactTransportError(path, err)
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("google maps %s: http %d", path, res.StatusCode)
		}
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("google maps %s: decode: %w", path, err)
		}
		switch status, msg := out.apiStatus(); status {
		case "OK", "ZERO_RESULTS":
			return nil, nil
		default:
			return nil, fmt.Errorf("google maps %s: %s %s", path, status, msg)
		}
	})
	return err
}

// redactTransportError drops the request URL, which carries the api key, from client errors.
func redactTransportError(path string, err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("google maps %s: %s: %w", path, strings.ToLower(uerr.Op), uerr.Err)
	}
	return fmt.Errorf("google maps %s: %w", path, err)
}

func bestNameMatch(candidates []ExternalPlace, name string) *ExternalPlace {
	if len(candidates) == 0 {
		return nil
	}
	want := normalizeName(name)
	for i := range candidates {
		got := normalizeName(candidates[i].Name)
		if got == "" {
			continue
		}
		if got == want || strings.Contains(got, want) || strings.Contains(want, got) {
			return &candidates[i]
		}
	}
	// Nearby search is keyed by name within 250 m; the top hit is the best guess.
	return &candidates[0]
}

func externalDataFromPlace(p ExternalPlace) *ExternalData {
	return &ExternalData{
		PlaceID:          p.PlaceID,
		Address:          p.Address,
		OpenNow:          p.OpenNow,
		Rating:           p.Rating,
		UserRatingsTotal: p.UserRatingsTotal,
		Photos:           p.Photos,
		PriceLevel:       p.PriceLevel,
	}
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
