package vision

import (
	"fmt"
	"time"

	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

// ImageSource 截图来源
// 每次调用返回一份新的图像，由调用方负责 Close。
type ImageSource interface {
	Capture() (*cv.ImageBuffer, error)
	CaptureRegion(r cv.Region) (*cv.ImageBuffer, error)
}

// Clock 时钟
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock 系统时钟
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// StaticSource 每次返回同一张图像的副本
type StaticSource struct {
	img *cv.ImageBuffer
}

// NewStaticSource 创建静态图像来源，不接管 img 的所有权
func NewStaticSource(img *cv.ImageBuffer) *StaticSource {
	return &StaticSource{img: img}
}

func (s *StaticSource) Capture() (*cv.ImageBuffer, error) {
	if s.img.Empty() {
		return nil, cv.ErrEmptyHaystack
	}
	return s.img.Clone(), nil
}

func (s *StaticSource) CaptureRegion(r cv.Region) (*cv.ImageBuffer, error) {
	if s.img.Empty() {
		return nil, cv.ErrEmptyHaystack
	}
	return s.img.Crop(r)
}

// FileSource 每次从磁盘重新读取图像，文件被外部更新时可观察到变化
type FileSource struct {
	Path string
}

func (s FileSource) Capture() (*cv.ImageBuffer, error) {
	img, err := cv.ReadImage(s.Path)
	if err != nil {
		return nil, fmt.Errorf("读取截图文件失败: %w", err)
	}
	return img, nil
}

func (s FileSource) CaptureRegion(r cv.Region) (*cv.ImageBuffer, error) {
	img, err := s.Capture()
	if err != nil {
		return nil, err
	}
	defer img.Close()
	return img.Crop(r)
}
