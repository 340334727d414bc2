package vision

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zoeyai/zoeyfinder/internal/logger"
	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

// fakeClock 手动推进的时钟，Sleep 立即返回并记录时长
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// frame 假截图来源的一帧，img 与 err 二选一
type frame struct {
	img image.Image
	err error
}

// fakeSource 按顺序返回预设帧，最后一帧重复使用
type fakeSource struct {
	clock     *fakeClock
	frames    []frame
	captures  []time.Time
	regions   []cv.Region
	onCapture func(n int)
}

func (s *fakeSource) Capture() (*cv.ImageBuffer, error) {
	n := len(s.captures)
	s.captures = append(s.captures, s.clock.Now())
	if s.onCapture != nil {
		s.onCapture(n)
	}
	fr := s.frames[min(n, len(s.frames)-1)]
	if fr.err != nil {
		return nil, fr.err
	}
	return cv.FromImage(fr.img)
}

func (s *fakeSource) CaptureRegion(r cv.Region) (*cv.ImageBuffer, error) {
	s.regions = append(s.regions, r)
	img, err := s.Capture()
	if err != nil {
		return nil, err
	}
	defer img.Close()
	return img.Crop(r)
}

func quietLogger() *logger.Logger {
	l := logger.New()
	l.SetEnabled(false)
	return l
}

func newTestFinder(clock Clock, opts ...Option) *Finder {
	base := []Option{WithClock(clock), WithLogger(quietLogger())}
	return NewFinder(append(base, opts...)...)
}

func solidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func noiseRGBA(w, h int, seed uint64) *image.RGBA {
	r := rand.New(rand.NewPCG(seed, seed*7+1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(r.IntN(256))
		img.Pix[i+1] = uint8(r.IntN(256))
		img.Pix[i+2] = uint8(r.IntN(256))
		img.Pix[i+3] = 255
	}
	return img
}

func paste(dst *image.RGBA, src image.Image, x, y int) {
	b := src.Bounds()
	draw.Draw(dst, image.Rect(x, y, x+b.Dx(), y+b.Dy()), src, b.Min, draw.Src)
}

// scene 在灰色背景上放入模板的副本
func scene(w, h int, pat image.Image, at ...image.Point) *image.RGBA {
	canvas := solidRGBA(w, h, color.RGBA{128, 128, 128, 255})
	for _, p := range at {
		paste(canvas, pat, p.X, p.Y)
	}
	return canvas
}

func mustBuffer(t *testing.T, img image.Image) *cv.ImageBuffer {
	t.Helper()
	buf, err := cv.FromImage(img)
	require.NoError(t, err)
	t.Cleanup(func() { buf.Close() })
	return buf
}

func mustPattern(t *testing.T, img image.Image, opts ...cv.PatternOption) *cv.Pattern {
	t.Helper()
	p, err := cv.NewPattern(mustBuffer(t, img), opts...)
	require.NoError(t, err)
	return p
}
