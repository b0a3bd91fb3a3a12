package listing

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reshamsu/dlink-colombo/internal/model"
	"github.com/reshamsu/dlink-colombo/internal/repository"
	"github.com/reshamsu/dlink-colombo/internal/schema"
	"github.com/reshamsu/dlink-colombo/internal/storage"
)

// fakeGateway stores listings in a map.  When hold is set, writes block
// until it is closed.
type fakeGateway struct {
	mu      sync.Mutex
	rows    map[string]model.Listing
	err     error
	calls   int
	hold    chan struct{}
	entered chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{rows: map[string]model.Listing{}}
}

func (g *fakeGateway) wait() {
	if g.hold == nil {
		return
	}
	g.entered <- struct{}{}
	<-g.hold
}

func (g *fakeGateway) Create(_ context.Context, l *model.Listing) error {
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return g.err
	}
	l.ID = "id-" + strconv.Itoa(g.calls)
	l.CreatedAt = fixedNow
	g.rows[l.ID] = *l
	return nil
}

func (g *fakeGateway) Update(_ context.Context, id string, l *model.Listing) error {
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return g.err
	}
	if _, ok := g.rows[id]; !ok {
		return errors.New("not found")
	}
	l.ID = id
	l.CreatedAt = g.rows[id].CreatedAt
	g.rows[id] = *l
	return nil
}

func (g *fakeGateway) ReferencedImages(_ context.Context, urls []string) (map[string]bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := map[string]bool{}
	for _, row := range g.rows {
		for _, img := range row.ImageURLs {
			for _, u := range urls {
				if u == img {
					out[u] = true
				}
			}
		}
	}
	return out, nil
}

type fakeEvents struct {
	mu       sync.Mutex
	saved    []model.Listing
	created  []bool
	orphaned [][]string
}

func (e *fakeEvents) ListingSaved(_ context.Context, l model.Listing, created bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saved = append(e.saved, l)
	e.created = append(e.created, created)
	return nil
}

func (e *fakeEvents) UploadsOrphaned(_ context.Context, keys []string, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orphaned = append(e.orphaned, keys)
	return nil
}

type rig struct {
	store  *storage.MemoryStore
	ledger *memLedger
	gw     *fakeGateway
	events *fakeEvents
	wf     *Workflow
}

func newRig() *rig {
	r := &rig{
		store:  storage.NewMemoryStore("https://cdn.example"),
		ledger: newMemLedger(func() time.Time { return fixedNow }),
		gw:     newFakeGateway(),
		events: &fakeEvents{},
	}
	r.wf = &Workflow{
		Uploader: &Uploader{Store: r.store, Ledger: r.ledger, Concurrency: 4, Now: func() time.Time { return fixedNow }},
		Gateway:  r.gw,
		Events:   r.events,
	}
	return r
}

func TestCreateSuccessResetsForm(t *testing.T) {
	r := newRig()
	sub := r.wf.NewSubmission(validForm())
	sub.Images.Add(
		imageFile("a.jpg", 10, "image/jpeg"),
		imageFile("big.jpg", 6<<20, "image/jpeg"),
	)

	out, err := sub.Create(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Succeeded, sub.State())
	assert.Equal(t, "/listing/id-1", out.Redirect)
	assert.Equal(t, 1, out.Uploaded)
	assert.Equal(t, "1 image(s) uploaded successfully", out.Message)
	require.Len(t, out.Rejected, 1)
	assert.Equal(t, model.StringList{"https://cdn.example/images/1700000000000_a.jpg"}, out.Listing.ImageURLs)

	// form back to defaults and selection cleared
	assert.Equal(t, NewForm(), sub.Form)
	assert.Zero(t, sub.Images.Len())

	// uploads claimed, saved event published
	assert.Empty(t, r.ledger.pending)
	require.Len(t, r.events.saved, 1)
	assert.True(t, r.events.created[0])
}

func TestCreateValidationFailsBeforeUpload(t *testing.T) {
	r := newRig()
	f := validForm()
	f.PropertyTitle = "   "
	f.City = "Kandy"
	sub := r.wf.NewSubmission(f)
	sub.Images.Add(imageFile("a.jpg", 10, "image/jpeg"))

	_, err := sub.Create(context.Background())
	var ve *schema.ValidationError
	require.ErrorAs(t, err, &ve)

	fields := map[string]bool{}
	for _, fe := range ve.Fields {
		fields[fe.Field] = true
	}
	assert.True(t, fields["property_title"])
	assert.True(t, fields["city"])

	assert.Equal(t, Failed, sub.State())
	assert.Empty(t, r.store.Keys(), "nothing uploaded")
	assert.Zero(t, r.gw.calls)
	// input kept for a retry
	assert.Equal(t, "Kandy", sub.Form.City)
	assert.Equal(t, 1, sub.Images.Len())
}

func TestCreateSaveFailureCompensates(t *testing.T) {
	r := newRig()
	r.gw.err = errors.New("db down")
	f := validForm()
	sub := r.wf.NewSubmission(f)
	sub.Images.Add(imageFile("a.jpg", 10, "image/jpeg"), imageFile("b.jpg", 10, "image/jpeg"))

	_, err := sub.Create(context.Background())
	var se *SaveError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Orphaned, 2)

	require.Len(t, r.events.orphaned, 1)
	assert.ElementsMatch(t, se.Orphaned, r.events.orphaned[0])
	assert.Empty(t, r.events.saved)
	// still pending so the sweeper catches them if the event is lost
	assert.Len(t, r.ledger.pending, 2)

	assert.Equal(t, Failed, sub.State())
	assert.Equal(t, f, sub.Form)
	assert.Equal(t, 2, sub.Images.Len())

	// retry succeeds once the store recovers
	r.gw.err = nil
	r.wf.Uploader.Now = func() time.Time { return fixedNow.Add(time.Second) }
	out, err := sub.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, sub.State())
	assert.Equal(t, 2, out.Uploaded)
}

func TestCreateCommittedRowIsNotCompensated(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := repository.NewListingRepo(db)
	repo.NewID = func() string { return "listing-1" }
	repo.Now = func() time.Time { return fixedNow }

	mock.ExpectExec("INSERT INTO listings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM listings WHERE id=").WillReturnError(errors.New("connection reset"))

	r := newRig()
	r.wf.Gateway = repo
	sub := r.wf.NewSubmission(validForm())
	sub.Images.Add(imageFile("a.jpg", 10, "image/jpeg"))

	out, err := sub.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/listing/listing-1", out.Redirect)
	assert.Equal(t, Succeeded, sub.State())
	assert.Empty(t, r.events.orphaned)
	assert.Equal(t, []string{"images/1700000000000_a.jpg"}, r.store.Keys())
	assert.Empty(t, r.ledger.pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// stuckLedger fails the first fails calls to Claim.
type stuckLedger struct {
	*memLedger
	fails int
}

func (l *stuckLedger) Claim(ctx context.Context, keys ...string) error {
	l.mu.Lock()
	if l.fails > 0 {
		l.fails--
		l.mu.Unlock()
		return errors.New("redis timeout")
	}
	l.mu.Unlock()
	return l.memLedger.Claim(ctx, keys...)
}

func shortClaimBackoff(t *testing.T) {
	old := claimBackoff
	claimBackoff = time.Millisecond
	t.Cleanup(func() { claimBackoff = old })
}

func TestCreateRetriesClaim(t *testing.T) {
	shortClaimBackoff(t)
	r := newRig()
	ledger := &stuckLedger{memLedger: r.ledger, fails: claimAttempts - 1}
	r.wf.Uploader.Ledger = ledger
	sub := r.wf.NewSubmission(validForm())
	sub.Images.Add(imageFile("a.jpg", 10, "image/jpeg"))

	_, err := sub.Create(context.Background())
	require.NoError(t, err)
	assert.Empty(t, r.ledger.pending)
}

func TestSweepKeepsImagesOfSavedListingWhenClaimFails(t *testing.T) {
	shortClaimBackoff(t)
	r := newRig()
	r.wf.Uploader.Ledger = &stuckLedger{memLedger: r.ledger, fails: 100}
	sub := r.wf.NewSubmission(validForm())
	sub.Images.Add(imageFile("a.jpg", 10, "image/jpeg"))

	out, err := sub.Create(context.Background())
	require.NoError(t, err)
	require.Len(t, r.ledger.pending, 1, "marker survives the failed claim")

	sw := &Sweeper{
		Store:  r.store,
		Ledger: r.ledger,
		Refs:   r.gw,
		TTL:    time.Hour,
		Now:    func() time.Time { return fixedNow.Add(2 * time.Hour) },
	}
	n, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"images/1700000000000_a.jpg"}, r.store.Keys())
	assert.Equal(t, out.Listing.ImageURLs, r.gw.rows[out.Listing.ID].ImageURLs)
	assert.Empty(t, r.ledger.pending, "referenced key is forgotten")
}

func TestUpdateKeepsPreviousImagesAndReloadsForm(t *testing.T) {
	r := newRig()
	sub := r.wf.NewSubmission(validForm())
	sub.Images.Add(imageFile("a.jpg", 10, "image/jpeg"))
	created, err := sub.Create(context.Background())
	require.NoError(t, err)

	edit := r.wf.NewSubmission(FormFromListing(created.Listing))
	edit.Form.PropertyTitle = "Renamed"
	edit.Form.Bedrooms = "4"
	out, err := edit.Update(context.Background(), created.Listing.ID, created.Listing.ImageURLs)
	require.NoError(t, err)

	assert.Equal(t, created.Listing.ImageURLs, out.Listing.ImageURLs)
	assert.Equal(t, "Renamed", out.Listing.PropertyTitle)
	assert.Equal(t, "/listing/"+created.Listing.ID, out.Redirect)
	assert.Equal(t, "Renamed", edit.Form.PropertyTitle)
	assert.Equal(t, "4", edit.Form.Bedrooms)
	require.Len(t, r.events.created, 2)
	assert.False(t, r.events.created[1])
}

func TestUpdateRequiresID(t *testing.T) {
	r := newRig()
	_, err := r.wf.NewSubmission(validForm()).Update(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestSecondSubmitWhileRunningIsRefused(t *testing.T) {
	r := newRig()
	r.gw.hold = make(chan struct{})
	r.gw.entered = make(chan struct{}, 1)
	sub := r.wf.NewSubmission(validForm())

	done := make(chan error, 1)
	go func() {
		_, err := sub.Create(context.Background())
		done <- err
	}()
	<-r.gw.entered
	assert.Equal(t, Submitting, sub.State())

	_, err := sub.Create(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(r.gw.hold)
	require.NoError(t, <-done)
	assert.Equal(t, 1, r.gw.calls)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "submitting", Submitting.String())
	assert.Equal(t, "state(9)", State(9).String())
}
