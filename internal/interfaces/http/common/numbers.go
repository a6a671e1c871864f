package common

import (
	"strconv"
	"strings"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// ParsePositiveInt parses positive integers with fallback.
func ParsePositiveInt(value string, fallback int) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback, false
	}
	return parsed, true
}

// ParseCoordinates reads a lat/lng query pair. Both absent yields nil without error.
func ParseCoordinates(latRaw, lngRaw string) (*domain.Coordinates, error) {
	latRaw = strings.TrimSpace(latRaw)
	lngRaw = strings.TrimSpace(lngRaw)
	if latRaw == "" && lngRaw == "" {
		return nil, nil
	}
	if latRaw == "" || lngRaw == "" {
		return nil, domain.NewValidationError("lat", "lat et lng doivent être fournis ensemble")
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return nil, domain.NewValidationError("lat", "latitude invalide")
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return nil, domain.NewValidationError("lng", "longitude invalide")
	}
	coords := domain.Coordinates{Latitude: lat, Longitude: lng}
	if !coords.Valid() {
		return nil, domain.NewValidationError("lat", "coordonnées hors limites")
	}
	return &coords, nil
}
