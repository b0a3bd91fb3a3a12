package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/reshamsu/dlink-colombo/internal/logging"
	"github.com/reshamsu/dlink-colombo/internal/model"
	"github.com/reshamsu/dlink-colombo/internal/schema"
)

// ContactStore persists contact inquiries.
type ContactStore interface {
	Create(ctx context.Context, c *model.ContactInquiry) error
	List(ctx context.Context, limit, offset int) ([]model.ContactInquiry, error)
}

// HeroStore resolves page banners.
type HeroStore interface {
	ForPage(ctx context.Context, page string) (model.Hero, error)
}

type ContactHandler struct {
	Contacts ContactStore
	Heroes   HeroStore
}

func NewContactHandler(c ContactStore, h HeroStore) *ContactHandler {
	return &ContactHandler{Contacts: c, Heroes: h}
}

type contactReq struct {
	FullName       string           `json:"full_name" form:"full_name"`
	Email          string           `json:"email" form:"email"`
	Phone          string           `json:"phone" form:"phone"`
	BestReason     model.StringList `json:"best_reason" form:"best_reason"`
	InquirySubject string           `json:"inquiry_subject" form:"inquiry_subject"`
	InquiryMessage string           `json:"inquiry_message" form:"inquiry_message"`
}

// Create: POST /v1/contact
func (h *ContactHandler) Create(c echo.Context) error {
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in := model.ContactInquiry{
		FullName:       strings.TrimSpace(req.FullName),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:          strings.TrimSpace(req.Phone),
		BestReason:     req.BestReason,
		InquirySubject: strings.TrimSpace(req.InquirySubject),
		InquiryMessage: strings.TrimSpace(req.InquiryMessage),
	}
	if in.BestReason == nil {
		in.BestReason = model.StringList{}
	}
	if err := schema.Validate(schema.Contact, in); err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": ve.Fields})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validation unavailable"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Contacts.Create(ctx, &in); err != nil {
		logging.FromContext(ctx).Error("save inquiry failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not send your message"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": in.ID, "message": "Thank you! We will get back to you shortly."})
}

// List: GET /v1/dashboard/contacts
func (h *ContactHandler) List(c echo.Context) error {
	page, size := paging(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	items, err := h.Contacts.List(ctx, size, (page-1)*size)
	if err != nil {
		logging.FromContext(ctx).Error("list inquiries failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "page": page, "page_size": size})
}

// Hero: GET /v1/heroes/:page
//
// Falls back to the built-in banner when none is configured or the lookup
// fails; the page never renders without one.
func (h *ContactHandler) Hero(c echo.Context) error {
	page := strings.ToLower(strings.TrimSpace(c.Param("page")))
	if page == "" {
		page = "contact"
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	hero, err := h.Heroes.ForPage(ctx, page)
	if err != nil {
		logging.FromContext(ctx).Debug("hero fallback", "page", page, "error", err)
		hero = model.DefaultHero(page)
	}
	if hero.ImageURLs == nil {
		hero.ImageURLs = model.StringList{}
	}
	return c.JSON(http.StatusOK, hero)
}
