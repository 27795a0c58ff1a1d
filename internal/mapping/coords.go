package mapping

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// CoordinateFields names the fields a kind stores its location in.
type CoordinateFields struct {
	Combined  []string // "lat, lng"
	Latitude  []string
	Longitude []string
}

// ParseCoordinates extracts a position from a field bag. A combined
// "lat, lng" field wins over discrete fields when both are present.
func ParseCoordinates(b Bag, f CoordinateFields) (Coordinates, error) {
	if raw := b.String(f.Combined); raw != nil {
		return parseCombined(*raw)
	}

	latRaw, hasLat := b.first(f.Latitude)
	lngRaw, hasLng := b.first(f.Longitude)
	if !hasLat || !hasLng {
		return Coordinates{}, fmt.Errorf("%w: no coordinate fields", ErrInvalidCoordinates)
	}
	lat, ok1 := number(latRaw)
	lng, ok2 := number(lngRaw)
	if !ok1 || !ok2 {
		return Coordinates{}, fmt.Errorf("%w: %v, %v", ErrInvalidCoordinates, latRaw, lngRaw)
	}
	return validate(lat, lng)
}

func parseCombined(raw string) (Coordinates, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("%w: %q", ErrInvalidCoordinates, raw)
	}
	lat, ok1 := number(parts[0])
	lng, ok2 := number(parts[1])
	if !ok1 || !ok2 {
		return Coordinates{}, fmt.Errorf("%w: %q", ErrInvalidCoordinates, raw)
	}
	return validate(lat, lng)
}

func validate(lat, lng float64) (Coordinates, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return Coordinates{}, fmt.Errorf("%w: not a number", ErrInvalidCoordinates)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinates{}, fmt.Errorf("%w: out of range (%g, %g)", ErrInvalidCoordinates, lat, lng)
	}
	return Coordinates{Latitude: lat, Longitude: lng}, nil
}
