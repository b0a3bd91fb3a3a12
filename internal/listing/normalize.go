package listing

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/reshamsu/dlink-colombo/internal/model"
)

// Normalize turns a submitted form into the record that is persisted.
//
// Numeric inputs become integers; blank, unparseable or negative input
// becomes nil.  Blank optional text becomes nil.  The image list is the
// freshly uploaded one when it is non-empty, otherwise previous, otherwise
// empty.  Normalize never fails and returns the same record for the same
// arguments.  ID and CreatedAt are left for the store to assign.
func Normalize(f Form, uploaded, previous []string) model.Listing {
	images := uploaded
	if len(images) == 0 {
		images = previous
	}

	l := model.Listing{
		PropertyTitle:    strings.TrimSpace(f.PropertyTitle),
		PropertySubtitle: strings.TrimSpace(f.PropertySubtitle),
		PropertyType:     strings.TrimSpace(f.PropertyType),
		ListingType:      strings.TrimSpace(f.ListingType),
		City:             strings.TrimSpace(f.City),
		Location:         strings.TrimSpace(f.Location),
		Description:      strings.TrimSpace(f.Description),
		Bedrooms:         parseCount(f.Bedrooms),
		Bathrooms:        parseCount(f.Bathrooms),
		Perches:          parseCount(f.Perches),
		Sqft:             parseCount(f.Sqft),
		ActualFloor:      optional(f.ActualFloor),
		Floors:           parseCount(f.Floors),
		BuildingAge:      parseCount(f.BuildingAge),
		Approx:           f.Approx,
		Price:            optional(f.Price),
		FullPrice:        optional(f.FullPrice),
		PriceNegotiable:  f.PriceNegotiable,
		PropertyDocs:     model.StringList(f.PropertyDocs).Clone(),
		LiftAccess:       orDefault(f.LiftAccess, "None"),
		VehiclePark:      orDefault(f.VehiclePark, "None"),
		Remarks:          optional(f.Remarks),
		Amenities:        model.StringList(f.Amenities).Clone(),
		Status:           orDefault(f.Status, model.StatusAvailable),
		IsFurnished:      strings.TrimSpace(f.IsFurnished),
		ImageURLs:        model.StringList(images).Clone(),
		OwnerName:        optional(titleCase(f.OwnerName)),
		PropertyLocation: optional(titleCase(f.PropertyLocation)),
		PropertyIdentity: optional(f.PropertyIdentity),
		ContactNumber:    optional(f.ContactNumber),
	}
	return l
}

// parseCount accepts digits with optional thousands separators.
func parseCount(s string) *int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// titleCase upper-cases the first letter of every word and leaves the rest
// alone, so "mcDonald" stays "McDonald".
func titleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(strings.TrimSpace(s))
}
