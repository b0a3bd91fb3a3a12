package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reshamsu/dlink-colombo/internal/listing"
	"github.com/reshamsu/dlink-colombo/internal/model"
	"github.com/reshamsu/dlink-colombo/internal/repository"
	"github.com/reshamsu/dlink-colombo/internal/storage"
)

// memListings is both the read store and the write gateway.
type memListings struct {
	mu      sync.Mutex
	rows    map[string]model.Listing
	saveErr error
	n       int
}

func newMemListings(ls ...model.Listing) *memListings {
	m := &memListings{rows: map[string]model.Listing{}}
	for _, l := range ls {
		m.rows[l.ID] = l
	}
	return m
}

func (m *memListings) GetByID(_ context.Context, id string) (model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok {
		return model.Listing{}, repository.ErrListingNotFound
	}
	return l, nil
}

func (m *memListings) List(_ context.Context, f model.ListingFilter) (model.ListingPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := model.ListingPage{Items: []model.Listing{}}
	for _, l := range m.rows {
		if f.City != "" && l.City != f.City {
			continue
		}
		out.Items = append(out.Items, l)
	}
	out.Total = len(out.Items)
	return out, nil
}

func (m *memListings) Create(_ context.Context, l *model.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.n++
	l.ID = "new-" + strconv.Itoa(m.n)
	l.CreatedAt = time.Now()
	m.rows[l.ID] = *l
	return nil
}

func (m *memListings) Update(_ context.Context, id string, l *model.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	prev, ok := m.rows[id]
	if !ok {
		return repository.ErrListingNotFound
	}
	l.ID, l.CreatedAt = id, prev.CreatedAt
	m.rows[id] = *l
	return nil
}

type countPurger struct{ n int }

func (p *countPurger) Purge(context.Context) (int, error) { p.n++; return 0, nil }

func strp(s string) *string { return &s }

func storedListing() model.Listing {
	return model.Listing{
		ID:               "l1",
		PropertyTitle:    "Sea View Apartment",
		PropertySubtitle: "Three bedrooms on Galle Road",
		PropertyType:     "Apartment",
		ListingType:      "Sale",
		City:             "Dehiwela",
		Location:         "Sea Side",
		Description:      "Bright corner unit.",
		Status:           "Available",
		LiftAccess:       "None",
		PropertyDocs:     model.StringList{},
		Amenities:        model.StringList{"Swimming Pool"},
		ImageURLs:        model.StringList{"https://cdn/a.jpg", "https://cdn/b.jpg"},
		ActualFloor:      strp("7th floor of 12"),
		OwnerName:        strp("Nimal Perera"),
		ContactNumber:    strp("0771234567"),
	}
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestPublicListingsHidePrivateFields(t *testing.T) {
	h := NewPublicListingHandler(newMemListings(storedListing()), "/assets/placeholder.webp")
	e := echo.New()
	e.GET("/v1/listings", h.List)
	e.GET("/v1/listings/:id", h.Get)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/v1/listings?city=Dehiwela", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "owner_name")
	assert.NotContains(t, rec.Body.String(), "0771234567")
	assert.NotContains(t, rec.Body.String(), "actual_floor")
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["total"])

	rec = do(e, httptest.NewRequest(http.MethodGet, "/v1/listings/l1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "https://cdn/a.jpg", body["cover_image"])
	assert.NotContains(t, body, "contact_number")
	assert.NotContains(t, body, "actual_floor")

	rec = do(e, httptest.NewRequest(http.MethodGet, "/v1/listings/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSlideshowStreamsFirstSlide(t *testing.T) {
	h := NewPublicListingHandler(newMemListings(storedListing()), "/assets/placeholder.webp")
	e := echo.New()
	e.GET("/v1/listings/:id/slideshow", h.Slideshow)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/listings/l1/slideshow?interval=1h", nil).WithContext(ctx)
	rec := do(e, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "event: ready\ndata: {\"stream\":\""))
	assert.Contains(t, rec.Body.String(), "event: slide\n")
	assert.Contains(t, rec.Body.String(), `"url":"https://cdn/a.jpg"`)
	assert.NotContains(t, rec.Body.String(), "b.jpg")
	assert.Empty(t, h.streams.m, "closed streams are forgotten")

	rec = do(e, httptest.NewRequest(http.MethodGet, "/v1/listings/l1/slideshow?interval=soon", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(e, httptest.NewRequest(http.MethodGet, "/v1/listings/l1/slideshow?start=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlideshowStartsAtRequestedImage(t *testing.T) {
	h := NewPublicListingHandler(newMemListings(storedListing()), "/assets/placeholder.webp")
	e := echo.New()
	e.GET("/v1/listings/:id/slideshow", h.Slideshow)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/listings/l1/slideshow?interval=1h&start=3", nil).WithContext(ctx)
	rec := do(e, req)

	assert.Contains(t, rec.Body.String(), `"index":1`)
	assert.Contains(t, rec.Body.String(), `"url":"https://cdn/b.jpg"`)
	assert.NotContains(t, rec.Body.String(), "a.jpg")
}

func TestSlideshowControlMovesRunningStream(t *testing.T) {
	h := NewPublicListingHandler(newMemListings(storedListing()), "/assets/placeholder.webp")
	car := listing.NewCarousel([]string{"https://cdn/a.jpg", "https://cdn/b.jpg", "https://cdn/c.jpg"}, time.Hour)
	h.streams.add("s1", "l1", car)
	e := echo.New()
	e.POST("/v1/listings/:id/slideshow/:stream", h.SlideshowControl)

	control := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return do(e, req)
	}

	rec := control("/v1/listings/l1/slideshow/s1", `{"action":"next"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["index"])

	rec = control("/v1/listings/l1/slideshow/s1", `{"action":"swipe","start_x":300,"end_x":100}`)
	assert.EqualValues(t, 2, decode(t, rec)["index"])

	// a short drag stays put
	rec = control("/v1/listings/l1/slideshow/s1", `{"action":"swipe","start_x":100,"end_x":60}`)
	assert.EqualValues(t, 2, decode(t, rec)["index"])

	rec = control("/v1/listings/l1/slideshow/s1", `{"action":"prev"}`)
	assert.Equal(t, "https://cdn/b.jpg", decode(t, rec)["url"])

	rec = control("/v1/listings/l1/slideshow/s1", `{"action":"reset"}`)
	assert.EqualValues(t, 0, decode(t, rec)["index"])

	rec = control("/v1/listings/l1/slideshow/s1", `{"action":"spin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = control("/v1/listings/other/slideshow/s1", `{"action":"next"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = control("/v1/listings/l1/slideshow/gone", `{"action":"next"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type dashRig struct {
	e      *echo.Echo
	store  *memListings
	bucket *storage.MemoryStore
	purger *countPurger
}

func newDashRig(ls ...model.Listing) dashRig {
	store := newMemListings(ls...)
	bucket := storage.NewMemoryStore("https://cdn")
	wf := &listing.Workflow{
		Uploader:      &listing.Uploader{Store: bucket, Concurrency: 2, Now: time.Now},
		Gateway:       store,
		MaxImageBytes: listing.DefaultMaxImageBytes,
	}
	purger := &countPurger{}
	h := NewDashboardListingHandler(store, wf, purger)
	e := echo.New()
	e.GET("/listings/:id", h.Get)
	e.POST("/listings", h.Create)
	e.PUT("/listings/:id", h.Update)
	return dashRig{e: e, store: store, bucket: bucket, purger: purger}
}

type part struct {
	name, ct string
	body     []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string][]string, files []part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	for _, f := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="images"; filename="`+f.name+`"`)
		hdr.Set("Content-Type", f.ct)
		pw, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = pw.Write(f.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func validFields() map[string][]string {
	return map[string][]string{
		"property_title":    {"Sea View Apartment"},
		"property_subtitle": {"Three bedrooms on Galle Road"},
		"description":       {"Bright corner unit."},
		"property_type":     {"Apartment"},
		"listing_type":      {"Sale"},
		"city":              {"Dehiwela"},
		"location":          {"Sea Side"},
		"amenities[]":       {"Swimming Pool", "Gym & Fitness Center"},
		"bedrooms":          {"3"},
		"price":             {"45,000,000"},
	}
}

func TestDashboardCreateMultipart(t *testing.T) {
	rig := newDashRig()
	req := multipartRequest(t, http.MethodPost, "/listings", validFields(), []part{
		{name: "front.jpg", ct: "image/jpeg", body: []byte("jpeg")},
		{name: "notes.pdf", ct: "application/pdf", body: []byte("pdf")},
	})
	rec := do(rig.e, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out listing.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "/listing/"+out.Listing.ID, out.Redirect)
	assert.Equal(t, 1, out.Uploaded)
	require.Len(t, out.Rejected, 1)
	assert.Equal(t, "notes.pdf is not an image.", out.Rejected[0].Message)
	assert.Equal(t, []string{"Swimming Pool", "Gym & Fitness Center"}, []string(out.Listing.Amenities))
	require.NotNil(t, out.Listing.Bedrooms)
	assert.Equal(t, 3, *out.Listing.Bedrooms)

	require.Len(t, rig.bucket.Keys(), 1)
	assert.True(t, strings.HasSuffix(rig.bucket.Keys()[0], "_front.jpg"))
	assert.Equal(t, 1, rig.purger.n)
}

func TestDashboardCreateValidationFailure(t *testing.T) {
	rig := newDashRig()
	fields := validFields()
	delete(fields, "property_title")
	req := multipartRequest(t, http.MethodPost, "/listings", fields, []part{
		{name: "front.jpg", ct: "image/jpeg", body: []byte("jpeg")},
	})
	rec := do(rig.e, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, rec.Body.String(), "property_title")
	assert.Contains(t, body, "form")
	assert.Empty(t, rig.bucket.Keys())
	assert.Zero(t, rig.purger.n)
}

func TestDashboardCreateSaveFailure(t *testing.T) {
	rig := newDashRig()
	rig.store.saveErr = errors.New("db down")
	req := multipartRequest(t, http.MethodPost, "/listings", validFields(), nil)
	rec := do(rig.e, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "could not save listing, please try again", decode(t, rec)["error"])
}

func TestDashboardUpdateKeepsImages(t *testing.T) {
	rig := newDashRig(storedListing())
	f := listing.FormFromListing(storedListing())
	f.PropertyTitle = "Sea View Penthouse"
	b, err := json.Marshal(f)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/listings/l1", bytes.NewReader(b))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := do(rig.e, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	saved, _ := rig.store.GetByID(context.Background(), "l1")
	assert.Equal(t, "Sea View Penthouse", saved.PropertyTitle)
	assert.Equal(t, storedListing().ImageURLs, saved.ImageURLs)
	assert.Equal(t, "Sea View Penthouse", decode(t, rec)["form"].(map[string]any)["property_title"])

	req = httptest.NewRequest(http.MethodPut, "/listings/missing", bytes.NewReader(b))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusNotFound, do(rig.e, req).Code)
}

func TestDashboardGetReturnsForm(t *testing.T) {
	rig := newDashRig(storedListing())
	rec := do(rig.e, httptest.NewRequest(http.MethodGet, "/listings/l1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Nimal Perera", body["listing"].(map[string]any)["owner_name"])
	assert.Equal(t, "Nimal Perera", body["form"].(map[string]any)["owner_name"])
}

type memContacts struct {
	saved []model.ContactInquiry
}

func (m *memContacts) Create(_ context.Context, c *model.ContactInquiry) error {
	c.ID = uint64(len(m.saved) + 1)
	m.saved = append(m.saved, *c)
	return nil
}

func (m *memContacts) List(context.Context, int, int) ([]model.ContactInquiry, error) {
	return m.saved, nil
}

type noHeroes struct{}

func (noHeroes) ForPage(context.Context, string) (model.Hero, error) {
	return model.Hero{}, repository.ErrHeroNotFound
}

func TestContactCreate(t *testing.T) {
	contacts := &memContacts{}
	h := NewContactHandler(contacts, noHeroes{})
	e := echo.New()
	e.POST("/v1/contact", h.Create)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/contact", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return do(e, req)
	}

	rec := post(`{"full_name":"Kamal","email":"not-an-email","inquiry_message":"hi"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "email")
	assert.Empty(t, contacts.saved)

	rec = post(`{"full_name":" Kamal ","email":"Kamal@Example.com","best_reason":["Buying"],"inquiry_message":"Is it still available?"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Thank you! We will get back to you shortly.", decode(t, rec)["message"])
	require.Len(t, contacts.saved, 1)
	assert.Equal(t, "kamal@example.com", contacts.saved[0].Email)
	assert.Equal(t, "Kamal", contacts.saved[0].FullName)
}

func TestHeroFallsBackToDefault(t *testing.T) {
	h := NewContactHandler(&memContacts{}, noHeroes{})
	e := echo.New()
	e.GET("/v1/heroes/:page", h.Hero)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/v1/heroes/Contact", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Get in Touch", body["title"])
	assert.Equal(t, []any{"contact"}, body["page_type"])
	assert.Equal(t, []any{}, body["image_urls"])
}

func TestConfigAndVocabulary(t *testing.T) {
	e := echo.New()
	e.GET("/v1/config", Config(ClientConfig{GoogleClientID: "gid", MaxImageBytes: 5 << 20}))
	e.GET("/v1/vocabulary", Vocabulary)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/v1/config", nil))
	assert.JSONEq(t, `{"google_client_id":"gid","placeholder_image":"","max_image_bytes":5242880}`, rec.Body.String())

	rec = do(e, httptest.NewRequest(http.MethodGet, "/v1/vocabulary", nil))
	body := decode(t, rec)
	assert.Contains(t, body["cities"], "Dehiwela")
	assert.Contains(t, body["property_types"], "Apartment")
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestProbes(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health)
	e.GET("/readyz", Ready(pinger{}))
	e.GET("/down", Ready(pinger{err: errors.New("refused")}))

	assert.Equal(t, "ok", do(e, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Body.String())
	assert.Equal(t, http.StatusOK, do(e, httptest.NewRequest(http.MethodGet, "/readyz", nil)).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(e, httptest.NewRequest(http.MethodGet, "/down", nil)).Code)
}
