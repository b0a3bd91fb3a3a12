package model

// Option sets offered by the dashboard form.  They are also enforced by the
// listing JSON schema, so a change here must be mirrored in
// internal/schema/json/listing.json.

var PropertyTypes = []string{
	"Apartment", "House", "Land", "Villa", "Commercial Building", "Commercial Land",
}

var ListingTypes = []string{"Sale", "Rent", "Lease"}

var Cities = []string{
	"Colombo 03", "Colombo 04", "Colombo 05", "Colombo 06", "Colombo 07",
	"Dehiwela", "Mount Lavinia", "Wellawatta", "Bambalapitiya", "Ratmalana", "Moratuwa",
}

// Sides of Galle Road.
var Sides = []string{"Land Side", "Sea Side"}

var FurnishingStatuses = []string{"Fully-Furnished", "Semi-Furnished", "UnFurnished"}

const (
	StatusAvailable   = "Available"
	StatusUnavailable = "Unavailable"
	StatusSold        = "Sold"
)

var Statuses = []string{StatusAvailable, StatusUnavailable, StatusSold}

var LiftAccessTiers = []string{"None", "1 Lift", "2 Lifts", "3 Lifts"}

var VehicleParkTiers = []string{"None", "1 Parking", "2 Parking", "3 Parking & above"}

var PropertyDocuments = []string{"Sales Agreement", "Deed", "COC", "Bimsaviya Certificate"}

var Amenities = []string{
	"24/7 Security",
	"Gym & Fitness Center",
	"Swimming Pool",
	"Air Conditioning",
	"CCTV Systems",
	"Backup Generator",
	"Solar Power & Hot Water",
	"Roller Shutter Gates",
}

var PropertyIdentities = []string{"Owner", "Agent", "Investor"}

// InquiryReasons are the checkbox options of the contact form.
var InquiryReasons = []string{
	"Buying a Property",
	"Selling a Property",
	"Rental Inquiry",
	"Investment Consultation",
	"Property Valuation",
	"General Inquiry",
}

// Contains reports whether v is one of set.
func Contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
