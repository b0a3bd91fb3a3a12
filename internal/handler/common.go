package handler

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/reshamsu/dlink-colombo/internal/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListingStore is the read side of the listing repository.
type ListingStore interface {
	GetByID(ctx context.Context, id string) (model.Listing, error)
	List(ctx context.Context, f model.ListingFilter) (model.ListingPage, error)
}

// Purger drops cached public responses after a write.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// paging reads ?page (1-based) and ?page_size, clamped to sane bounds.
func paging(c echo.Context) (page, size int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	size, _ = strconv.Atoi(c.QueryParam("page_size"))
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// listingFilter builds a filter from the query string.
func listingFilter(c echo.Context) (model.ListingFilter, int, int) {
	page, size := paging(c)
	return model.ListingFilter{
		PropertyType: c.QueryParam("property_type"),
		ListingType:  c.QueryParam("listing_type"),
		City:         c.QueryParam("city"),
		Status:       c.QueryParam("status"),
		Limit:        size,
		Offset:       (page - 1) * size,
	}, page, size
}
