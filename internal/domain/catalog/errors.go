package catalog

import "errors"

var (
	// ErrInvalidCatalog is returned when catalog data fails validation.
	ErrInvalidCatalog = errors.New("invalid sport catalog")
	// ErrUnknownSport is returned when an id matches no catalog sport.
	ErrUnknownSport = errors.New("unknown sport")
)
