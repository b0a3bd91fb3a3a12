package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reshamsu/dlink-colombo/internal/logging"
	"github.com/reshamsu/dlink-colombo/internal/model"
)

var ErrListingNotFound = errors.New("listing not found")

// listingColumns is the column order used by every SELECT and INSERT.
var listingColumns = []string{
	"id", "property_title", "property_subtitle", "property_type", "listing_type",
	"city", "location", "description", "bedrooms", "bathrooms", "perches", "sqft",
	"actual_floor", "floors", "building_age", "approx", "price", "full_price",
	"price_negotiable", "property_documents", "lift_access", "vehicle_park", "remarks",
	"amenities", "status", "is_furnished", "image_urls", "owner_name",
	"property_location", "property_identity", "contact_number", "created_at",
}

var listingSelect = "SELECT " + strings.Join(listingColumns, ",") + " FROM listings"

// ListingRepo reads and writes the `listings` table.  It is the persistence
// gateway of the submission workflow.
type ListingRepo struct {
	DB    *sql.DB
	Now   func() time.Time
	NewID func() string
}

func NewListingRepo(db *sql.DB) *ListingRepo {
	return &ListingRepo{DB: db, Now: time.Now, NewID: func() string { return uuid.NewString() }}
}

// Create inserts l with a fresh identifier and creation time, then reloads
// the stored row into l. Once the INSERT has succeeded the row is
// committed: a failed reload leaves l as written and still reports success.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	l.ID = r.NewID()
	l.CreatedAt = r.Now().UTC().Truncate(time.Millisecond)

	marks := strings.TrimSuffix(strings.Repeat("?,", len(listingColumns)), ",")
	q := "INSERT INTO listings (" + strings.Join(listingColumns, ",") + ") VALUES (" + marks + ")"
	args := append([]any{l.ID}, listingValues(l)...)
	args = append(args, l.CreatedAt)
	if _, err := r.DB.ExecContext(ctx, q, args...); err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	r.reload(ctx, l.ID, l)
	return nil
}

// Update overwrites every column except id and created_at and reloads the
// row into l.
func (r *ListingRepo) Update(ctx context.Context, id string, l *model.Listing) error {
	cols := listingColumns[1 : len(listingColumns)-1]
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + "=?"
	}
	q := "UPDATE listings SET " + strings.Join(sets, ",") + " WHERE id=?"
	args := append(listingValues(l), id)
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	l.ID = id
	if n, _ := res.RowsAffected(); n > 0 {
		r.reload(ctx, id, l)
		return nil
	}
	// MySQL reports zero affected rows for an unchanged row, so existence
	// is decided by the reload
	stored, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*l = stored
	return nil
}

// reload replaces l with the stored row for id. The write it follows has
// already been committed, so a failure is logged and l is left as written.
func (r *ListingRepo) reload(ctx context.Context, id string, l *model.Listing) {
	stored, err := r.GetByID(ctx, id)
	if err != nil {
		logging.FromContext(ctx).Warn("reload listing failed", "listing_id", id, "error", err)
		return
	}
	*l = stored
}

// listingValues returns the values for every column between id and
// created_at, in listingColumns order.
func listingValues(l *model.Listing) []any {
	return []any{
		l.PropertyTitle, l.PropertySubtitle, l.PropertyType, l.ListingType,
		l.City, l.Location, l.Description, l.Bedrooms, l.Bathrooms, l.Perches, l.Sqft,
		l.ActualFloor, l.Floors, l.BuildingAge, l.Approx, l.Price, l.FullPrice,
		l.PriceNegotiable, listOrEmpty(l.PropertyDocs), l.LiftAccess, l.VehiclePark, l.Remarks,
		listOrEmpty(l.Amenities), l.Status, l.IsFurnished, listOrEmpty(l.ImageURLs), l.OwnerName,
		l.PropertyLocation, l.PropertyIdentity, l.ContactNumber,
	}
}

func listOrEmpty(l model.StringList) model.StringList {
	if l == nil {
		return model.StringList{}
	}
	return l
}

// GetByID returns ErrListingNotFound for an unknown id.
func (r *ListingRepo) GetByID(ctx context.Context, id string) (model.Listing, error) {
	row := r.DB.QueryRowContext(ctx, listingSelect+" WHERE id=? LIMIT 1", id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, ErrListingNotFound
	}
	return l, err
}

// List returns a page of listings, newest first, and the unpaged total.
func (r *ListingRepo) List(ctx context.Context, f model.ListingFilter) (model.ListingPage, error) {
	var (
		where []string
		args  []any
	)
	for _, c := range []struct{ col, val string }{
		{"property_type", f.PropertyType},
		{"listing_type", f.ListingType},
		{"city", f.City},
		{"status", f.Status},
	} {
		if c.val != "" {
			where = append(where, c.col+"=?")
			args = append(args, c.val)
		}
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings"+cond, args...).Scan(&total); err != nil {
		return model.ListingPage{}, fmt.Errorf("count listings: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	q := listingSelect + cond + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, q, append(args, limit, max(f.Offset, 0))...)
	if err != nil {
		return model.ListingPage{}, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	page := model.ListingPage{Items: []model.Listing{}, Total: total}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return model.ListingPage{}, err
		}
		page.Items = append(page.Items, l)
	}
	return page, rows.Err()
}

// ReferencedImages reports which of urls appear in the image list of any
// stored listing.  The LIKE prefilter is loose; membership is decided on
// the decoded lists so legacy string-encoded columns match too.
func (r *ListingRepo) ReferencedImages(ctx context.Context, urls []string) (map[string]bool, error) {
	want := make(map[string]bool, len(urls))
	for _, u := range urls {
		want[u] = true
	}
	found := map[string]bool{}
	for start := 0; start < len(urls); start += refChunk {
		chunk := urls[start:min(start+refChunk, len(urls))]
		likes := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, u := range chunk {
			likes[i] = "image_urls LIKE ?"
			args[i] = "%" + likeEscaper.Replace(u) + "%"
		}
		q := "SELECT image_urls FROM listings WHERE " + strings.Join(likes, " OR ")
		rows, err := r.DB.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("find image references: %w", err)
		}
		for rows.Next() {
			var imgs model.StringList
			if err := rows.Scan(&imgs); err != nil {
				rows.Close()
				return nil, err
			}
			for _, u := range imgs {
				if want[u] {
					found[u] = true
				}
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return found, nil
}

const refChunk = 50

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(s scanner) (model.Listing, error) {
	var (
		l                                                  model.Listing
		bedrooms, bathrooms, perches, sqft, floors, bldAge sql.NullInt64
		actualFloor, price, fullPrice, remarks             sql.NullString
		owner, propLoc, identity, contact                  sql.NullString
	)
	err := s.Scan(
		&l.ID, &l.PropertyTitle, &l.PropertySubtitle, &l.PropertyType, &l.ListingType,
		&l.City, &l.Location, &l.Description, &bedrooms, &bathrooms, &perches, &sqft,
		&actualFloor, &floors, &bldAge, &l.Approx, &price, &fullPrice,
		&l.PriceNegotiable, &l.PropertyDocs, &l.LiftAccess, &l.VehiclePark, &remarks,
		&l.Amenities, &l.Status, &l.IsFurnished, &l.ImageURLs, &owner,
		&propLoc, &identity, &contact, &l.CreatedAt,
	)
	if err != nil {
		return model.Listing{}, err
	}
	l.Bedrooms = nullInt(bedrooms)
	l.Bathrooms = nullInt(bathrooms)
	l.Perches = nullInt(perches)
	l.Sqft = nullInt(sqft)
	l.Floors = nullInt(floors)
	l.BuildingAge = nullInt(bldAge)
	l.ActualFloor = nullStr(actualFloor)
	l.Price = nullStr(price)
	l.FullPrice = nullStr(fullPrice)
	l.Remarks = nullStr(remarks)
	l.OwnerName = nullStr(owner)
	l.PropertyLocation = nullStr(propLoc)
	l.PropertyIdentity = nullStr(identity)
	l.ContactNumber = nullStr(contact)
	return l, nil
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

// isDuplicate matches MySQL error 1062 (duplicate entry).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
