package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/reshamsu/dlink-colombo/internal/listing"
	"github.com/reshamsu/dlink-colombo/internal/logging"
	"github.com/reshamsu/dlink-colombo/internal/model"
	"github.com/reshamsu/dlink-colombo/internal/repository"
)

// PublicListingHandler serves the listing grid, the detail page and the
// detail page slideshow.  Private contact fields are never returned.
type PublicListingHandler struct {
	Listings    ListingStore
	Placeholder string

	// bounds for the ?interval of the slideshow stream
	MinInterval time.Duration
	KeepAlive   time.Duration

	streams *slideshows
}

func NewPublicListingHandler(store ListingStore, placeholder string) *PublicListingHandler {
	return &PublicListingHandler{
		Listings:    store,
		Placeholder: placeholder,
		MinInterval: time.Second,
		KeepAlive:   15 * time.Second,
		streams:     newSlideshows(),
	}
}

type publicPage struct {
	Items    []model.PublicListing `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// List: GET /v1/listings
func (h *PublicListingHandler) List(c echo.Context) error {
	f, page, size := listingFilter(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Listings.List(ctx, f)
	if err != nil {
		logging.FromContext(ctx).Error("list listings failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := publicPage{Items: make([]model.PublicListing, 0, len(res.Items)), Total: res.Total, Page: page, PageSize: size}
	for _, l := range res.Items {
		out.Items = append(out.Items, l.Public(h.Placeholder))
	}
	return c.JSON(http.StatusOK, out)
}

// Get: GET /v1/listings/:id
func (h *PublicListingHandler) Get(c echo.Context) error {
	l, status, err := h.load(c)
	if err != nil {
		return c.JSON(status, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, l.Public(h.Placeholder))
}

func (h *PublicListingHandler) load(c echo.Context) (model.Listing, int, error) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	l, err := h.Listings.GetByID(ctx, c.Param("id"))
	switch {
	case errors.Is(err, repository.ErrListingNotFound):
		return l, http.StatusNotFound, errors.New("listing not found")
	case err != nil:
		logging.FromContext(ctx).Error("load listing failed", "error", err)
		return l, http.StatusInternalServerError, errors.New("query failed")
	}
	return l, http.StatusOK, nil
}

type slide struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	URL   string `json:"url"`
}

// slideshows holds the carousels of the open streams so the page can steer
// them while they run.
type slideshows struct {
	mu sync.Mutex
	m  map[string]slideshow
}

type slideshow struct {
	listingID string
	car       *listing.Carousel
}

func newSlideshows() *slideshows {
	return &slideshows{m: map[string]slideshow{}}
}

func (s *slideshows) add(streamID, listingID string, car *listing.Carousel) {
	s.mu.Lock()
	s.m[streamID] = slideshow{listingID: listingID, car: car}
	s.mu.Unlock()
}

func (s *slideshows) remove(streamID string) {
	s.mu.Lock()
	delete(s.m, streamID)
	s.mu.Unlock()
}

func (s *slideshows) get(streamID, listingID string) (*listing.Carousel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.m[streamID]
	if !ok || ss.listingID != listingID {
		return nil, false
	}
	return ss.car, true
}

// Slideshow: GET /v1/listings/:id/slideshow
//
// Streams the listing's images as Server-Sent Events.  The first event is
// "ready" and carries the stream id used by SlideshowControl; then one
// "slide" event per image, advancing every ?interval (default 10s) from
// image ?start (default 0).  A listing without images streams the
// placeholder once.  Comment lines keep idle proxies open.
func (h *PublicListingHandler) Slideshow(c echo.Context) error {
	l, status, err := h.load(c)
	if err != nil {
		return c.JSON(status, echo.Map{"error": err.Error()})
	}
	interval := listing.DefaultSlideInterval
	if v := c.QueryParam("interval"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid interval"})
		}
		interval = max(d, h.MinInterval)
	}
	start := 0
	if v := c.QueryParam("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start"})
		}
		start = n
	}
	images := []string(l.ImageURLs)
	if len(images) == 0 {
		images = []string{h.Placeholder}
	}
	car := listing.NewCarousel(images, interval)
	for i := 0; i < start%len(images); i++ {
		car.Next()
	}

	streams := h.streams
	if streams == nil {
		streams = newSlideshows()
	}
	streamID := uuid.NewString()
	streams.add(streamID, l.ID, car)
	defer streams.remove(streamID)

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, "event: ready\ndata: {\"stream\":%q}\n\n", streamID); err != nil {
		return nil
	}
	w.Flush()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	send := make(chan []byte, 1)
	go func() {
		_ = car.Run(ctx, func(idx int, url string) error {
			b, _ := json.Marshal(slide{Index: idx, Total: len(images), URL: url})
			select {
			case send <- b:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	ka := h.KeepAlive
	if ka <= 0 {
		ka = 15 * time.Second
	}
	keep := time.NewTicker(ka)
	defer keep.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-send:
			if _, err := fmt.Fprintf(w, "event: slide\ndata: %s\n\n", b); err != nil {
				return nil
			}
			w.Flush()
		case <-keep.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

type slideControl struct {
	Action string  `json:"action"`
	StartX float64 `json:"start_x"`
	EndX   float64 `json:"end_x"`
}

// SlideshowControl: POST /v1/listings/:id/slideshow/:stream
//
// Moves a running slideshow: "next", "prev", "reset" or "swipe" (with
// start_x and end_x in pixels).  The stream shows the new slide at once and
// restarts its interval.
func (h *PublicListingHandler) SlideshowControl(c echo.Context) error {
	var req slideControl
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if h.streams == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slideshow not found"})
	}
	car, ok := h.streams.get(c.Param("stream"), c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slideshow not found"})
	}
	switch req.Action {
	case "next":
		car.Next()
	case "prev":
		car.Prev()
	case "reset":
		car.Reset()
	case "swipe":
		car.Swipe(req.StartX, req.EndX)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown action"})
	}
	idx, url, _ := car.Current()
	return c.JSON(http.StatusOK, echo.Map{"index": idx, "url": url})
}
