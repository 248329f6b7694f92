package utils

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000.0

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l LatLng) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) {
		return fmt.Errorf("%w: coordinates must be numbers", ErrValidation)
	}
	if l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrValidation, l.Lng)
	}
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrValidation, l.Lat)
	}
	return nil
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b LatLng) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BoundingBox is the lat/lng rectangle enclosing a circle of radiusKm around center.
// Used as a cheap SQL pre-filter; callers refine with HaversineMeters.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

func BoundingBoxAround(center LatLng, radiusKm float64) BoundingBox {
	latDelta := radiusKm / 111.32
	cosLat := math.Cos(toRad(center.Lat))
	lngDelta := 180.0
	if cosLat > 1e-9 {
		lngDelta = math.Min(180, radiusKm/(111.32*cosLat))
	}
	return BoundingBox{
		MinLat: math.Max(-90, center.Lat-latDelta),
		MaxLat: math.Min(90, center.Lat+latDelta),
		MinLng: math.Max(-180, center.Lng-lngDelta),
		MaxLng: math.Min(180, center.Lng+lngDelta),
	}
}

func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
