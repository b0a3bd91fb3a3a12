package listing

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"
)

// DefaultMaxImageBytes is the per-file ceiling (5 MiB).
const DefaultMaxImageBytes int64 = 5 << 20

// ImageFile is one picked image waiting to be uploaded.
type ImageFile struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// FileFromHeader wraps a multipart upload.
func FileFromHeader(fh *multipart.FileHeader) ImageFile {
	return ImageFile{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Rejection explains why a file was dropped before upload.
type Rejection struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Message string `json:"message"`
}

// Selector holds the accepted images of one submission.  A file that breaks
// the size ceiling or is not an image is rejected on its own; the remaining
// files are still accepted.
type Selector struct {
	max      int64
	files    []ImageFile
	rejected []Rejection
}

func NewSelector(maxBytes int64) *Selector {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Selector{max: maxBytes}
}

// Add checks each file and returns the rejections produced by this call.
func (s *Selector) Add(files ...ImageFile) []Rejection {
	var out []Rejection
	for _, f := range files {
		switch {
		case f.Size > s.max:
			out = append(out, Rejection{
				Name:    f.Name,
				Size:    f.Size,
				Message: fmt.Sprintf("%s is too large! Max %s.", f.Name, humanBytes(s.max)),
			})
		case f.ContentType != "" && !strings.HasPrefix(strings.ToLower(f.ContentType), "image/"):
			out = append(out, Rejection{
				Name:    f.Name,
				Size:    f.Size,
				Message: fmt.Sprintf("%s is not an image.", f.Name),
			})
		default:
			s.files = append(s.files, f)
		}
	}
	s.rejected = append(s.rejected, out...)
	return out
}

func (s *Selector) Files() []ImageFile {
	return append([]ImageFile(nil), s.files...)
}

func (s *Selector) Rejections() []Rejection {
	return append([]Rejection(nil), s.rejected...)
}

func (s *Selector) Len() int { return len(s.files) }

func (s *Selector) Clear() {
	s.files = nil
	s.rejected = nil
}

func humanBytes(n int64) string {
	switch {
	case n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
