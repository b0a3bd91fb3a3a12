package model

import "time"

// Listing represents a row of the `listings` table.  Numeric attributes are
// nullable: a nil pointer means the value was left blank or could not be
// parsed when the listing was submitted.  Price fields are kept as text
// because the dashboard accepts free-form values ("45,000,000", "On request").
type Listing struct {
	ID               string     `json:"id"`
	PropertyTitle    string     `json:"property_title"`
	PropertySubtitle string     `json:"property_subtitle"`
	PropertyType     string     `json:"property_type"`
	ListingType      string     `json:"listing_type"`
	City             string     `json:"city"`
	Location         string     `json:"location"`
	Description      string     `json:"description"`
	Bedrooms         *int       `json:"bedrooms"`
	Bathrooms        *int       `json:"bathrooms"`
	Perches          *int       `json:"perches"`
	Sqft             *int       `json:"sqft"`
	ActualFloor      *string    `json:"actual_floor"`
	Floors           *int       `json:"floors"`
	BuildingAge      *int       `json:"building_age"`
	Price            *string    `json:"price"`
	FullPrice        *string    `json:"full_price"`
	PriceNegotiable  bool       `json:"price_negotiable"`
	Approx           bool       `json:"approx"`
	PropertyDocs     StringList `json:"property_documents"`
	LiftAccess       string     `json:"lift_access"`
	VehiclePark      string     `json:"vehicle_park"`
	Remarks          *string    `json:"remarks"`
	Amenities        StringList `json:"amenities"`
	Status           string     `json:"status"`
	IsFurnished      string     `json:"is_furnished"`
	ImageURLs        StringList `json:"image_urls"`

	// Private contact details, only returned on dashboard endpoints.
	OwnerName        *string `json:"owner_name"`
	PropertyLocation *string `json:"property_location"`
	PropertyIdentity *string `json:"property_identity"`
	ContactNumber    *string `json:"contact_number"`

	CreatedAt time.Time `json:"created_at"`
}

// PublicListing is the shape served to site visitors: the private contact
// block and the exact floor of the unit are removed and a cover image is
// always present.
type PublicListing struct {
	ID               string     `json:"id"`
	PropertyTitle    string     `json:"property_title"`
	PropertySubtitle string     `json:"property_subtitle"`
	PropertyType     string     `json:"property_type"`
	ListingType      string     `json:"listing_type"`
	City             string     `json:"city"`
	Location         string     `json:"location"`
	Description      string     `json:"description"`
	Bedrooms         *int       `json:"bedrooms"`
	Bathrooms        *int       `json:"bathrooms"`
	Perches          *int       `json:"perches"`
	Sqft             *int       `json:"sqft"`
	Floors           *int       `json:"floors"`
	BuildingAge      *int       `json:"building_age"`
	Price            *string    `json:"price"`
	FullPrice        *string    `json:"full_price"`
	PriceNegotiable  bool       `json:"price_negotiable"`
	Approx           bool       `json:"approx"`
	PropertyDocs     StringList `json:"property_documents"`
	LiftAccess       string     `json:"lift_access"`
	VehiclePark      string     `json:"vehicle_park"`
	Amenities        StringList `json:"amenities"`
	Status           string     `json:"status"`
	IsFurnished      string     `json:"is_furnished"`
	ImageURLs        StringList `json:"image_urls"`
	CoverImage       string     `json:"cover_image"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Public strips private fields.  placeholder is used as the cover when the
// listing has no images.
func (l Listing) Public(placeholder string) PublicListing {
	return PublicListing{
		ID:               l.ID,
		PropertyTitle:    l.PropertyTitle,
		PropertySubtitle: l.PropertySubtitle,
		PropertyType:     l.PropertyType,
		ListingType:      l.ListingType,
		City:             l.City,
		Location:         l.Location,
		Description:      l.Description,
		Bedrooms:         l.Bedrooms,
		Bathrooms:        l.Bathrooms,
		Perches:          l.Perches,
		Sqft:             l.Sqft,
		Floors:           l.Floors,
		BuildingAge:      l.BuildingAge,
		Price:            l.Price,
		FullPrice:        l.FullPrice,
		PriceNegotiable:  l.PriceNegotiable,
		Approx:           l.Approx,
		PropertyDocs:     l.PropertyDocs.Clone(),
		LiftAccess:       l.LiftAccess,
		VehiclePark:      l.VehiclePark,
		Amenities:        l.Amenities.Clone(),
		Status:           l.Status,
		IsFurnished:      l.IsFurnished,
		ImageURLs:        l.ImageURLs.Clone(),
		CoverImage:       l.ImageURLs.First(placeholder),
		CreatedAt:        l.CreatedAt,
	}
}

// ListingFilter narrows the listing grid.  Empty strings match everything.
type ListingFilter struct {
	PropertyType string
	ListingType  string
	City         string
	Status       string
	Limit        int
	Offset       int
}

// ListingPage is one page of results plus the unpaged total.
type ListingPage struct {
	Items []Listing `json:"items"`
	Total int       `json:"total"`
}
