// Package listing implements the listing submission workflow used by the
// dashboard: the form state, image selection, the concurrent image upload,
// payload normalization, validation and the create/edit state machine.
package listing

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/reshamsu/dlink-colombo/internal/model"
)

var ErrUnknownField = errors.New("unknown form field")

// Form holds the listing fields exactly as the dashboard submits them.
// Numeric inputs stay strings until Normalize runs.
type Form struct {
	PropertyTitle    string   `json:"property_title"`
	PropertySubtitle string   `json:"property_subtitle"`
	PropertyType     string   `json:"property_type"`
	ListingType      string   `json:"listing_type"`
	City             string   `json:"city"`
	Location         string   `json:"location"`
	Description      string   `json:"description"`
	Bedrooms         string   `json:"bedrooms"`
	Bathrooms        string   `json:"bathrooms"`
	Perches          string   `json:"perches"`
	Sqft             string   `json:"sqft"`
	ActualFloor      string   `json:"actual_floor"`
	Floors           string   `json:"floors"`
	BuildingAge      string   `json:"building_age"`
	Approx           bool     `json:"approx"`
	Price            string   `json:"price"`
	FullPrice        string   `json:"full_price"`
	PriceNegotiable  bool     `json:"price_negotiable"`
	PropertyDocs     []string `json:"property_documents"`
	LiftAccess       string   `json:"lift_access"`
	VehiclePark      string   `json:"vehicle_park"`
	Remarks          string   `json:"remarks"`
	Amenities        []string `json:"amenities"`
	Status           string   `json:"status"`
	IsFurnished      string   `json:"is_furnished"`
	OwnerName        string   `json:"owner_name"`
	PropertyLocation string   `json:"property_location"`
	PropertyIdentity string   `json:"property_identity"`
	ContactNumber    string   `json:"contact_number"`
}

// NewForm returns a form holding the default values.
func NewForm() Form {
	return Form{
		Status:       model.StatusAvailable,
		LiftAccess:   "None",
		PropertyDocs: []string{},
		Amenities:    []string{},
	}
}

// Reset restores the defaults.
func (f *Form) Reset() { *f = NewForm() }

// Clone returns a deep copy.
func (f Form) Clone() Form {
	out := f
	out.PropertyDocs = append([]string{}, f.PropertyDocs...)
	out.Amenities = append([]string{}, f.Amenities...)
	return out
}

func (f *Form) text() map[string]*string {
	return map[string]*string{
		"property_title":    &f.PropertyTitle,
		"property_subtitle": &f.PropertySubtitle,
		"property_type":     &f.PropertyType,
		"listing_type":      &f.ListingType,
		"city":              &f.City,
		"location":          &f.Location,
		"description":       &f.Description,
		"bedrooms":          &f.Bedrooms,
		"bathrooms":         &f.Bathrooms,
		"perches":           &f.Perches,
		"sqft":              &f.Sqft,
		"actual_floor":      &f.ActualFloor,
		"floors":            &f.Floors,
		"building_age":      &f.BuildingAge,
		"price":             &f.Price,
		"full_price":        &f.FullPrice,
		"lift_access":       &f.LiftAccess,
		"vehicle_park":      &f.VehiclePark,
		"remarks":           &f.Remarks,
		"status":            &f.Status,
		"is_furnished":      &f.IsFurnished,
		"owner_name":        &f.OwnerName,
		"property_location": &f.PropertyLocation,
		"property_identity": &f.PropertyIdentity,
		"contact_number":    &f.ContactNumber,
	}
}

func (f *Form) multi() map[string]*[]string {
	return map[string]*[]string{
		"amenities":          &f.Amenities,
		"property_documents": &f.PropertyDocs,
	}
}

func (f *Form) flags() map[string]*bool {
	return map[string]*bool{
		"approx":           &f.Approx,
		"price_negotiable": &f.PriceNegotiable,
	}
}

// Set replaces the value of a text or select field.
func (f *Form) Set(name, value string) error {
	p, ok := f.text()[name]
	if !ok {
		return ErrUnknownField
	}
	*p = value
	return nil
}

// SetFlag sets a checkbox field.
func (f *Form) SetFlag(name string, on bool) error {
	p, ok := f.flags()[name]
	if !ok {
		return ErrUnknownField
	}
	*p = on
	return nil
}

// Toggle adds or removes one label of a multi-select field.  Labels keep the
// order in which they were first checked and never repeat.
func (f *Form) Toggle(name, label string, checked bool) error {
	p, ok := f.multi()[name]
	if !ok {
		return ErrUnknownField
	}
	cur := *p
	idx := -1
	for i, v := range cur {
		if v == label {
			idx = i
			break
		}
	}
	switch {
	case checked && idx < 0:
		*p = append(cur, label)
	case !checked && idx >= 0:
		*p = append(cur[:idx:idx], cur[idx+1:]...)
	}
	return nil
}

// FormFromValues builds a form from a submitted urlencoded or multipart body.
// Multi-selects may arrive as repeated keys (optionally suffixed with "[]")
// or as a single JSON encoded array.
func FormFromValues(v url.Values) Form {
	f := NewForm()
	for name, p := range f.text() {
		if vals, ok := v[name]; ok && len(vals) > 0 {
			*p = strings.TrimSpace(vals[0])
		}
	}
	for name, p := range f.flags() {
		*p = parseFlag(v.Get(name))
	}
	for name, p := range f.multi() {
		vals := append(append([]string{}, v[name]...), v[name+"[]"]...)
		for _, raw := range vals {
			labels, err := model.ParseStringList([]byte(raw))
			if err != nil {
				labels = model.StringList{raw}
			}
			for _, l := range labels {
				_ = f.Toggle(name, l, true)
			}
		}
		if *p == nil {
			*p = []string{}
		}
	}
	return f
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// FormFromListing seeds a form with a stored record for the edit page.
func FormFromListing(l model.Listing) Form {
	return Form{
		PropertyTitle:    l.PropertyTitle,
		PropertySubtitle: l.PropertySubtitle,
		PropertyType:     l.PropertyType,
		ListingType:      l.ListingType,
		City:             l.City,
		Location:         l.Location,
		Description:      l.Description,
		Bedrooms:         itoa(l.Bedrooms),
		Bathrooms:        itoa(l.Bathrooms),
		Perches:          itoa(l.Perches),
		Sqft:             itoa(l.Sqft),
		ActualFloor:      deref(l.ActualFloor),
		Floors:           itoa(l.Floors),
		BuildingAge:      itoa(l.BuildingAge),
		Approx:           l.Approx,
		Price:            deref(l.Price),
		FullPrice:        deref(l.FullPrice),
		PriceNegotiable:  l.PriceNegotiable,
		PropertyDocs:     l.PropertyDocs.Clone(),
		LiftAccess:       l.LiftAccess,
		VehiclePark:      l.VehiclePark,
		Remarks:          deref(l.Remarks),
		Amenities:        l.Amenities.Clone(),
		Status:           l.Status,
		IsFurnished:      l.IsFurnished,
		OwnerName:        deref(l.OwnerName),
		PropertyLocation: deref(l.PropertyLocation),
		PropertyIdentity: deref(l.PropertyIdentity),
		ContactNumber:    deref(l.ContactNumber),
	}
}

func itoa(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
