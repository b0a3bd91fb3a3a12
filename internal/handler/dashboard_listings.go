package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/reshamsu/dlink-colombo/internal/listing"
	"github.com/reshamsu/dlink-colombo/internal/logging"
	"github.com/reshamsu/dlink-colombo/internal/repository"
	"github.com/reshamsu/dlink-colombo/internal/schema"
)

// image file fields accepted in a multipart submission
var imageFields = []string{"images", "images[]", "image_files"}

// DashboardListingHandler runs the create and edit workflows and serves
// full records (private fields included) to dashboard users.
type DashboardListingHandler struct {
	Listings ListingStore
	Workflow *listing.Workflow
	Cache    Purger        // optional
	Timeout  time.Duration // whole submission incl. uploads
}

func NewDashboardListingHandler(store ListingStore, wf *listing.Workflow, cache Purger) *DashboardListingHandler {
	return &DashboardListingHandler{Listings: store, Workflow: wf, Cache: cache, Timeout: 2 * time.Minute}
}

// List: GET /v1/dashboard/listings
func (h *DashboardListingHandler) List(c echo.Context) error {
	f, page, size := listingFilter(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	res, err := h.Listings.List(ctx, f)
	if err != nil {
		logging.FromContext(ctx).Error("list listings failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": res.Items, "total": res.Total, "page": page, "page_size": size})
}

// Get: GET /v1/dashboard/listings/:id
//
// Besides the record it returns the edit form seeded from it.
func (h *DashboardListingHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	l, err := h.Listings.GetByID(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrListingNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	if err != nil {
		logging.FromContext(ctx).Error("load listing failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"listing": l, "form": listing.FormFromListing(l)})
}

// Create: POST /v1/dashboard/listings (multipart/form-data or JSON)
func (h *DashboardListingHandler) Create(c echo.Context) error {
	form, files, err := readSubmission(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	sub := h.Workflow.NewSubmission(form)
	sub.Images.Add(files...)

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout())
	defer cancel()
	out, err := sub.Create(ctx)
	if err != nil {
		return submitError(c, sub, err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusCreated, out)
}

// Update: PUT /v1/dashboard/listings/:id
//
// The submitted form replaces the whole record.  Without new images the
// stored image list is kept.
func (h *DashboardListingHandler) Update(c echo.Context) error {
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout())
	defer cancel()

	current, err := h.Listings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrListingNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	if err != nil {
		logging.FromContext(ctx).Error("load listing failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	form, files, err := readSubmission(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	sub := h.Workflow.NewSubmission(form)
	sub.Images.Add(files...)

	out, err := sub.Update(ctx, id, current.ImageURLs)
	if err != nil {
		return submitError(c, sub, err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, echo.Map{
		"listing":  out.Listing,
		"form":     sub.Form,
		"uploaded": out.Uploaded,
		"message":  out.Message,
		"rejected": out.Rejected,
		"redirect": out.Redirect,
	})
}

func (h *DashboardListingHandler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 2 * time.Minute
	}
	return h.Timeout
}

func (h *DashboardListingHandler) purge(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if _, err := h.Cache.Purge(context.WithoutCancel(ctx)); err != nil {
		logging.FromContext(ctx).Warn("cache purge failed", "error", err)
	}
}

// submitError maps workflow failures to responses.  Validation and save
// failures echo the submitted form and the rejected files so the dashboard
// can show them again for a retry.
func submitError(c echo.Context, sub *listing.Submission, err error) error {
	var (
		ve *schema.ValidationError
		se *listing.SaveError
	)
	body := echo.Map{"form": sub.Form, "rejected": sub.Images.Rejections()}
	switch {
	case errors.Is(err, listing.ErrSubmitInProgress):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.As(err, &ve):
		body["error"] = "validation failed"
		body["fields"] = ve.Fields
		return c.JSON(http.StatusUnprocessableEntity, body)
	case errors.Is(err, repository.ErrListingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	case errors.Is(err, repository.ErrConflict):
		body["error"] = "listing conflicts with an existing record"
		return c.JSON(http.StatusConflict, body)
	case errors.As(err, &se):
		logging.FromContext(c.Request().Context()).Error("listing save failed", "error", se.Err, "orphaned", len(se.Orphaned))
		body["error"] = "could not save listing, please try again"
		return c.JSON(http.StatusBadGateway, body)
	}
	logging.FromContext(c.Request().Context()).Error("listing submission failed", "error", err)
	body["error"] = "submission failed"
	return c.JSON(http.StatusInternalServerError, body)
}

// readSubmission extracts the form and image files from a multipart, an
// urlencoded or a JSON body.
func readSubmission(c echo.Context) (listing.Form, []listing.ImageFile, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ct, echo.MIMEMultipartForm):
		mf, err := c.MultipartForm()
		if err != nil {
			return listing.Form{}, nil, errors.New("invalid multipart body")
		}
		return listing.FormFromValues(url.Values(mf.Value)), imageFiles(mf), nil
	case strings.HasPrefix(ct, echo.MIMEApplicationJSON):
		f := listing.NewForm()
		if err := c.Bind(&f); err != nil {
			return listing.Form{}, nil, errors.New("invalid body")
		}
		if f.Amenities == nil {
			f.Amenities = []string{}
		}
		if f.PropertyDocs == nil {
			f.PropertyDocs = []string{}
		}
		return f, nil, nil
	default:
		vals, err := c.FormParams()
		if err != nil {
			return listing.Form{}, nil, errors.New("invalid form body")
		}
		return listing.FormFromValues(vals), nil, nil
	}
}

func imageFiles(mf *multipart.Form) []listing.ImageFile {
	var out []listing.ImageFile
	for _, name := range imageFields {
		for _, fh := range mf.File[name] {
			out = append(out, listing.FileFromHeader(fh))
		}
	}
	return out
}
