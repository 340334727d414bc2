package cv

import (
	"fmt"
	"image"
)

// Point 表示二维坐标点
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add 返回平移后的点
func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Offset 目标点相对匹配区域中心的偏移
type Offset struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// Region 轴对齐矩形区域 (x, y, width, height)
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRegion 创建区域
func NewRegion(x, y, w, h int) Region {
	return Region{X: x, Y: y, Width: w, Height: h}
}

// Empty 宽或高为 0
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area 面积
func (r Region) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Center 中心点（整数截断）
func (r Region) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Right 右边界（不含）
func (r Region) Right() int { return r.X + r.Width }

// Bottom 下边界（不含）
func (r Region) Bottom() int { return r.Y + r.Height }

// Contains 判断 other 是否完全位于 r 内
func (r Region) Contains(other Region) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.Right() <= r.Right() && other.Bottom() <= r.Bottom()
}

// Intersect 求交集，无交集时返回空区域
func (r Region) Intersect(other Region) Region {
	x0 := max(r.X, other.X)
	y0 := max(r.Y, other.Y)
	x1 := min(r.Right(), other.Right())
	y1 := min(r.Bottom(), other.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Region{}
	}
	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Overlap 交集面积除以较小区域面积，范围 [0,1]
func (r Region) Overlap(other Region) float64 {
	smaller := min(r.Area(), other.Area())
	if smaller == 0 {
		return 0
	}
	return float64(r.Intersect(other).Area()) / float64(smaller)
}

// Offset 平移区域
func (r Region) Offset(dx, dy int) Region {
	return Region{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Rect 转换为 image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.Right(), r.Bottom())
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.X, r.Y, r.Width, r.Height)
}

// Match 一次匹配的结果，值类型，可长期保存
type Match struct {
	// Region 匹配区域（按匹配尺度计算的尺寸）
	Region Region `json:"region"`
	// Score 匹配得分 (0-1)
	Score float64 `json:"score"`
	// Scale 命中时模板的缩放比例
	Scale float64 `json:"scale"`
	// Target 目标点：区域中心加上目标偏移
	Target Point `json:"target"`
	// PatternID 来源模板标识
	PatternID string `json:"pattern_id,omitempty"`
}

// Translate 将匹配结果平移到另一个坐标系
func (m Match) Translate(dx, dy int) Match {
	m.Region = m.Region.Offset(dx, dy)
	m.Target = m.Target.Add(dx, dy)
	return m
}

func (m Match) String() string {
	return fmt.Sprintf("region=%s score=%.4f scale=%.3f target=(%d,%d)",
		m.Region, m.Score, m.Scale, m.Target.X, m.Target.Y)
}
