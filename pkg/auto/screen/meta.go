package screen

import (
	"math"

	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

// CaptureMeta 截图元信息（物理像素与逻辑坐标的缩放和偏移量）
type CaptureMeta struct {
	ScaleX  float64
	ScaleY  float64
	OffsetX int
	OffsetY int
}

// BuildCaptureMeta 根据截图实际尺寸和期望的逻辑区域计算元信息
// region 为 nil 表示全屏，此时 screenW/screenH 为屏幕逻辑尺寸。
func BuildCaptureMeta(imgW, imgH int, region *cv.Region, screenW, screenH int) CaptureMeta {
	expectedW, expectedH := screenW, screenH
	offsetX, offsetY := 0, 0
	if region != nil {
		expectedW = region.Width
		expectedH = region.Height
		offsetX = region.X
		offsetY = region.Y
	}

	scaleX := 1.0
	if expectedW > 0 && imgW > 0 {
		scaleX = float64(imgW) / float64(expectedW)
	}
	scaleY := 1.0
	if expectedH > 0 && imgH > 0 {
		scaleY = float64(imgH) / float64(expectedH)
	}

	return CaptureMeta{
		ScaleX:  scaleX,
		ScaleY:  scaleY,
		OffsetX: offsetX,
		OffsetY: offsetY,
	}
}

// Identity 截图已是逻辑坐标且没有偏移
func (m CaptureMeta) Identity() bool {
	return m.ScaleX == 1 && m.ScaleY == 1 && m.OffsetX == 0 && m.OffsetY == 0
}

// AdjustPoint 将截图中的点换算为屏幕逻辑坐标（反向缩放 + 偏移）
func (m CaptureMeta) AdjustPoint(p cv.Point) cv.Point {
	return cv.Point{
		X: scaleCoord(p.X, m.ScaleX) + m.OffsetX,
		Y: scaleCoord(p.Y, m.ScaleY) + m.OffsetY,
	}
}

// AdjustRegion 将截图中的区域换算为屏幕逻辑坐标
func (m CaptureMeta) AdjustRegion(r cv.Region) cv.Region {
	tl := m.AdjustPoint(cv.Point{X: r.X, Y: r.Y})
	br := m.AdjustPoint(cv.Point{X: r.Right(), Y: r.Bottom()})
	return cv.NewRegion(tl.X, tl.Y, br.X-tl.X, br.Y-tl.Y)
}

// AdjustMatch 调整匹配结果坐标
func (m CaptureMeta) AdjustMatch(match cv.Match) cv.Match {
	match.Region = m.AdjustRegion(match.Region)
	match.Target = m.AdjustPoint(match.Target)
	return match
}

// Normalize 将物理像素截图缩放到逻辑尺寸，尺寸一致时原样返回
// 缩放时原缓冲会被释放。
func Normalize(buf *cv.ImageBuffer, expectedW, expectedH int) (*cv.ImageBuffer, error) {
	if expectedW <= 0 || expectedH <= 0 {
		return buf, nil
	}
	if buf.Width() == expectedW && buf.Height() == expectedH {
		return buf, nil
	}
	defer buf.Close()
	// 缩小用线性插值
	return buf.Resize(expectedW, expectedH, cv.InterpolationLinear)
}

func scaleCoord(v int, scale float64) int {
	if scale <= 0 || scale == 1 {
		return v
	}
	return int(math.Round(float64(v) / scale))
}
