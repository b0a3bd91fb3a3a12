package listing

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageFile(name string, size int64, ct string) ImageFile {
	body := strings.Repeat("x", int(min(size, 64)))
	return ImageFile{
		Name:        name,
		Size:        size,
		ContentType: ct,
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil },
	}
}

func TestSelectorRejectsOversizeAndNonImages(t *testing.T) {
	s := NewSelector(0)
	rej := s.Add(
		imageFile("front.jpg", 1<<20, "image/jpeg"),
		imageFile("huge.png", 6<<20, "image/png"),
		imageFile("notes.pdf", 100, "application/pdf"),
		imageFile("back.webp", 5<<20, "image/webp"),
	)
	require.Len(t, rej, 2)
	assert.Equal(t, "huge.png is too large! Max 5MB.", rej[0].Message)
	assert.Equal(t, "notes.pdf is not an image.", rej[1].Message)

	assert.Equal(t, 2, s.Len())
	names := []string{s.Files()[0].Name, s.Files()[1].Name}
	assert.Equal(t, []string{"front.jpg", "back.webp"}, names)
	assert.Len(t, s.Rejections(), 2)
}

func TestSelectorAccumulatesAndClears(t *testing.T) {
	s := NewSelector(1 << 10)
	s.Add(imageFile("a.jpg", 10, "image/jpeg"))
	rej := s.Add(imageFile("b.jpg", 2<<10, "image/jpeg"))
	assert.Equal(t, "b.jpg is too large! Max 1KB.", rej[0].Message)
	assert.Equal(t, 1, s.Len())

	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Rejections())
}
