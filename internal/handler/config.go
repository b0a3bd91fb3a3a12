package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reshamsu/dlink-colombo/internal/model"
)

// ClientConfig is the public settings block the site front end boots with.
type ClientConfig struct {
	GoogleClientID   string `json:"google_client_id"`
	PlaceholderImage string `json:"placeholder_image"`
	MaxImageBytes    int64  `json:"max_image_bytes"`
}

// Config: GET /v1/config
func Config(cc ClientConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, cc)
	}
}

// Vocabulary: GET /v1/vocabulary
//
// Option lists for the dashboard form and the listing filters.
func Vocabulary(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"property_types":      model.PropertyTypes,
		"listing_types":       model.ListingTypes,
		"cities":              model.Cities,
		"locations":           model.Sides,
		"furnishing":          model.FurnishingStatuses,
		"statuses":            model.Statuses,
		"lift_access":         model.LiftAccessTiers,
		"vehicle_park":        model.VehicleParkTiers,
		"property_documents":  model.PropertyDocuments,
		"amenities":           model.Amenities,
		"property_identities": model.PropertyIdentities,
		"inquiry_reasons":     model.InquiryReasons,
	})
}
