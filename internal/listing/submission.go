package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reshamsu/dlink-colombo/internal/model"
	"github.com/reshamsu/dlink-colombo/internal/schema"
)

// State of a Submission.
type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var ErrSubmitInProgress = errors.New("a submission is already in progress")

const claimAttempts = 3

var claimBackoff = 100 * time.Millisecond

// SaveError reports a failed write.  Orphaned lists the objects uploaded for
// the attempt; they have been handed to Events for removal.
type SaveError struct {
	Err      error
	Orphaned []string
}

func (e *SaveError) Error() string { return "save listing: " + e.Err.Error() }
func (e *SaveError) Unwrap() error { return e.Err }

// Outcome describes a successful submission.
type Outcome struct {
	Listing  model.Listing `json:"listing"`
	Redirect string        `json:"redirect"`
	Uploaded int           `json:"uploaded"`
	Message  string        `json:"message"`
	Rejected []Rejection   `json:"rejected"`
}

// Workflow carries the dependencies shared by every submission.
type Workflow struct {
	Uploader      *Uploader
	Gateway       Gateway
	Events        Events // optional
	MaxImageBytes int64
	Log           *slog.Logger
}

// NewSubmission starts a submission for form.
func (w *Workflow) NewSubmission(form Form) *Submission {
	return &Submission{
		Form:   form,
		Images: NewSelector(w.MaxImageBytes),
		wf:     w,
	}
}

// Submission drives one create or edit form through
// Idle -> Submitting -> Succeeded|Failed.  A finished submission may be
// submitted again; a second submit while one is running is refused.
//
// On success a created form is reset to its defaults and an edited form is
// reloaded from the saved record.  In both cases the image selection is
// cleared.  On failure the form and the selection are kept for a retry.
type Submission struct {
	Form   Form
	Images *Selector

	wf    *Workflow
	mu    sync.Mutex
	state State
	err   error
}

func (s *Submission) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error of the last failed attempt.
func (s *Submission) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Submission) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Submitting {
		return ErrSubmitInProgress
	}
	s.state = Submitting
	s.err = nil
	return nil
}

func (s *Submission) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Failed
		s.err = err
		return
	}
	s.state = Succeeded
}

// Create uploads the selected images and inserts a new listing.
func (s *Submission) Create(ctx context.Context) (Outcome, error) {
	return s.run(ctx, "", nil)
}

// Update uploads any newly selected images and overwrites listing id.
// previous is the stored image list, kept when no new image was uploaded.
func (s *Submission) Update(ctx context.Context, id string, previous []string) (Outcome, error) {
	if id == "" {
		return Outcome{}, errors.New("listing id required")
	}
	return s.run(ctx, id, previous)
}

func (s *Submission) run(ctx context.Context, id string, previous []string) (Outcome, error) {
	if err := s.begin(); err != nil {
		return Outcome{}, err
	}
	log := s.logger().With("listing_id", id)

	// reject bad input before anything reaches the bucket
	if err := schema.Validate(schema.Listing, Normalize(s.Form, nil, previous)); err != nil {
		s.finish(err)
		return Outcome{}, err
	}

	up := s.wf.Uploader.Upload(ctx, s.Images.Files())
	rec := Normalize(s.Form, up.URLs, previous)

	var err error
	if id == "" {
		err = s.wf.Gateway.Create(ctx, &rec)
	} else {
		err = s.wf.Gateway.Update(ctx, id, &rec)
	}
	if err != nil {
		log.Error("listing save failed", "error", err, "uploaded", len(up.Keys))
		s.compensate(ctx, up.Keys, err)
		serr := &SaveError{Err: err, Orphaned: up.Keys}
		s.finish(serr)
		return Outcome{}, serr
	}

	if err := s.claim(ctx, up.Keys); err != nil {
		// the sweeper checks references before deleting, so the keys are safe
		log.Warn("claim uploads failed", "error", err, "keys", len(up.Keys))
	}
	if ev := s.wf.Events; ev != nil {
		if err := ev.ListingSaved(context.WithoutCancel(ctx), rec, id == ""); err != nil {
			log.Warn("listing event not published", "error", err)
		}
	}

	out := Outcome{
		Listing:  rec,
		Redirect: "/listing/" + rec.ID,
		Uploaded: len(up.URLs),
		Message:  up.Message(),
		Rejected: s.Images.Rejections(),
	}
	if out.Rejected == nil {
		out.Rejected = []Rejection{}
	}
	if id == "" {
		s.Form.Reset()
	} else {
		s.Form = FormFromListing(rec)
	}
	s.Images.Clear()
	s.finish(nil)
	log.Info("listing saved", "id", rec.ID, "images", len(rec.ImageURLs))
	return out, nil
}

// claim removes the keys of a saved listing from the ledger, retrying a
// couple of times on transient errors.
func (s *Submission) claim(ctx context.Context, keys []string) error {
	l := s.wf.Uploader.Ledger
	if l == nil || len(keys) == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt < claimAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * claimBackoff)
		}
		if err = l.Claim(ctx, keys...); err == nil {
			return nil
		}
	}
	return err
}

// compensate hands the objects of a failed attempt to the orphan consumer.
// Keys stay in the ledger so the sweeper still removes them if the event
// is lost.
func (s *Submission) compensate(ctx context.Context, keys []string, cause error) {
	if len(keys) == 0 || s.wf.Events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.wf.Events.UploadsOrphaned(pctx, keys, cause.Error()); err != nil {
		s.logger().Warn("orphan event not published", "keys", len(keys), "error", err)
	}
}

func (s *Submission) logger() *slog.Logger {
	if s.wf.Log != nil {
		return s.wf.Log
	}
	return slog.Default()
}
