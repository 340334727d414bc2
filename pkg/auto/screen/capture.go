// Package screen 提供屏幕截图和编码功能
package screen

import (
	"fmt"
	"image"
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

// Source 基于 robotgo 的屏幕截图来源，实现 vision.ImageSource
//
// robotgo.CaptureImg 返回物理像素，高 DPI 屏幕上与逻辑坐标不一致。
// Logical 为 true 时截图会缩放回逻辑尺寸，匹配坐标可直接用于鼠标操作；
// 为 false 时按物理像素匹配，用 LastMeta().AdjustMatch 换算回逻辑坐标。
type Source struct {
	Logical bool

	mu   sync.Mutex
	meta CaptureMeta
}

// NewSource 创建屏幕截图来源，默认输出逻辑坐标
func NewSource() *Source {
	return &Source{Logical: true}
}

// Capture 截取全屏
func (s *Source) Capture() (*cv.ImageBuffer, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("截屏失败: %w", err)
	}
	w, h := GetScreenSize()
	return s.convert(img, nil, w, h)
}

// CaptureRegion 截取屏幕区域，r 为逻辑坐标
func (s *Source) CaptureRegion(r cv.Region) (*cv.ImageBuffer, error) {
	if r.Empty() {
		return nil, fmt.Errorf("%w: %s", cv.ErrRegionOutOfBounds, r)
	}
	img, err := robotgo.CaptureImg(r.X, r.Y, r.Width, r.Height)
	if err != nil {
		return nil, fmt.Errorf("截取区域失败: %w", err)
	}
	return s.convert(img, &r, r.Width, r.Height)
}

// LastMeta 最近一次截图的坐标换算信息
func (s *Source) LastMeta() CaptureMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// convert 转换截图并记录元信息，region 为 nil 表示全屏
func (s *Source) convert(img image.Image, region *cv.Region, expectedW, expectedH int) (*cv.ImageBuffer, error) {
	buf, err := cv.FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("转换图像失败: %w", err)
	}
	if s.Logical {
		if buf, err = Normalize(buf, expectedW, expectedH); err != nil {
			return nil, err
		}
	}

	meta := BuildCaptureMeta(buf.Width(), buf.Height(), region, expectedW, expectedH)
	s.mu.Lock()
	s.meta = meta
	s.mu.Unlock()
	return buf, nil
}

// GetScreenSize 获取屏幕逻辑尺寸
func GetScreenSize() (width, height int) {
	return robotgo.GetScreenSize()
}

// GetDisplayCount 获取显示器数量
func GetDisplayCount() int {
	return robotgo.DisplaysNum()
}
