package listing

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultSlideInterval = 10 * time.Second
	SwipeThreshold       = 75 // pixels
)

// Carousel cycles through a listing's images.  Moves wrap in both
// directions and are no-ops when there are no images.
type Carousel struct {
	mu       sync.Mutex
	images   []string
	idx      int
	interval time.Duration
	kick     chan struct{}
}

func NewCarousel(images []string, interval time.Duration) *Carousel {
	if interval <= 0 {
		interval = DefaultSlideInterval
	}
	return &Carousel{
		images:   append([]string(nil), images...),
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// Current returns the index and URL shown now.  ok is false when empty.
func (c *Carousel) Current() (int, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.images) == 0 {
		return 0, "", false
	}
	return c.idx, c.images[c.idx], true
}

func (c *Carousel) Next() int { return c.move(1, true) }
func (c *Carousel) Prev() int { return c.move(-1, true) }

// Swipe applies a horizontal gesture.  Dragging left by more than the
// threshold shows the next image, dragging right the previous one.
func (c *Carousel) Swipe(startX, endX float64) int {
	d := startX - endX
	switch {
	case d > SwipeThreshold:
		return c.Next()
	case d < -SwipeThreshold:
		return c.Prev()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idx
}

// Reset returns to the first image.
func (c *Carousel) Reset() {
	c.mu.Lock()
	c.idx = 0
	c.mu.Unlock()
	c.poke()
}

func (c *Carousel) move(step int, manual bool) int {
	c.mu.Lock()
	n := len(c.images)
	if n == 0 {
		c.mu.Unlock()
		return 0
	}
	c.idx = ((c.idx+step)%n + n) % n
	idx := c.idx
	c.mu.Unlock()
	if manual {
		c.poke()
	}
	return idx
}

// poke restarts the auto-advance timer after a manual move.
func (c *Carousel) poke() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Run calls show with the current image, then advances every interval until
// ctx is done.  Manual moves restart the interval and are shown at once.
// With fewer than two images it shows the single image (if any) and waits.
func (c *Carousel) Run(ctx context.Context, show func(idx int, url string) error) error {
	// moves made before Run are already part of the first show
	select {
	case <-c.kick:
	default:
	}
	if idx, url, ok := c.Current(); ok {
		if err := show(idx, url); err != nil {
			return err
		}
	}
	c.mu.Lock()
	n := len(c.images)
	c.mu.Unlock()
	if n < 2 {
		<-ctx.Done()
		return ctx.Err()
	}

	t := time.NewTimer(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.kick:
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
		case <-t.C:
			c.move(1, false)
		}
		idx, url, _ := c.Current()
		if err := show(idx, url); err != nil {
			return err
		}
		t.Reset(c.interval)
	}
}
