package listing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ObjectStore is the remote bucket images are written to.  Put must refuse
// to overwrite an existing key.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PublicURL(key string) string
	Delete(ctx context.Context, keys ...string) error
}

// UploadResult lists the stored images in input order.  Files that failed
// are absent from URLs and Keys and reported in Failed instead.
type UploadResult struct {
	URLs   []string
	Keys   []string
	Failed []FileError
}

type FileError struct {
	Name string
	Err  error
}

// Message is the confirmation shown after an upload batch.
func (r UploadResult) Message() string {
	return fmt.Sprintf("%d image(s) uploaded successfully", len(r.URLs))
}

// Uploader pushes accepted images to the object store concurrently.
type Uploader struct {
	Store       ObjectStore
	Ledger      Ledger // optional
	Concurrency int
	Now         func() time.Time
	Log         *slog.Logger
}

// ObjectKey derives the storage key for a file picked at t.
func ObjectKey(t time.Time, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if name == "" || name == "." || name == "/" {
		name = "image"
	}
	return "images/" + strconv.FormatInt(t.UnixMilli(), 10) + "_" + name
}

// Upload stores every file and returns the URLs of those that made it.
// A failing file is logged and skipped; the batch itself never fails.
func (u *Uploader) Upload(ctx context.Context, files []ImageFile) UploadResult {
	if len(files) == 0 {
		return UploadResult{URLs: []string{}, Keys: []string{}}
	}
	now := time.Now
	if u.Now != nil {
		now = u.Now
	}
	logger := u.logger()

	// keys are fixed up front so two files with the same name in one batch
	// never race for the same object
	keys := make([]string, len(files))
	seen := make(map[string]bool, len(files))
	t := now()
	for i, f := range files {
		k := ObjectKey(t, f.Name)
		for seen[k] {
			t = t.Add(time.Millisecond)
			k = ObjectKey(t, f.Name)
		}
		seen[k] = true
		keys[i] = k
	}

	type slot struct {
		url string
		err error
	}
	slots := make([]slot, len(files))

	var g errgroup.Group
	limit := u.Concurrency
	if limit < 1 {
		limit = len(files)
	}
	g.SetLimit(limit)
	for i := range files {
		i := i
		g.Go(func() error {
			url, err := u.uploadOne(ctx, keys[i], files[i])
			slots[i] = slot{url: url, err: err}
			if err != nil {
				logger.Warn("image upload failed", "file", files[i].Name, "key", keys[i], "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := UploadResult{URLs: []string{}, Keys: []string{}}
	for i, s := range slots {
		if s.err != nil {
			res.Failed = append(res.Failed, FileError{Name: files[i].Name, Err: s.err})
			continue
		}
		res.URLs = append(res.URLs, s.url)
		res.Keys = append(res.Keys, keys[i])
	}
	logger.Info(res.Message(), "failed", len(res.Failed))
	return res
}

func (u *Uploader) uploadOne(ctx context.Context, key string, f ImageFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Open == nil {
		return "", fmt.Errorf("no content for %s", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	// tracked before the write so a crash mid-upload still leaves a marker
	// for the sweeper
	if u.Ledger != nil {
		if err := u.Ledger.Track(ctx, key); err != nil {
			return "", fmt.Errorf("track %s: %w", key, err)
		}
	}
	if err := u.Store.Put(ctx, key, rc, f.Size, ct); err != nil {
		if u.Ledger != nil {
			if cerr := u.Ledger.Claim(context.WithoutCancel(ctx), key); cerr != nil {
				u.logger().Warn("pending marker left for failed upload", "key", key, "error", cerr)
			}
		}
		return "", err
	}
	return u.Store.PublicURL(key), nil
}

func (u *Uploader) logger() *slog.Logger {
	if u.Log != nil {
		return u.Log
	}
	return slog.Default()
}
