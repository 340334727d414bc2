// Package grid 提供网格划分功能，用于把搜索区域限制在某个格子内
package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

// GridPosition 网格位置
type GridPosition struct {
	Rows int `json:"rows"` // 总行数
	Cols int `json:"cols"` // 总列数
	Row  int `json:"row"`  // 目标行 (1-based)
	Col  int `json:"col"`  // 目标列 (1-based)
}

// ParseGridPosition 解析网格位置字符串
// 格式: rows.cols.row.col (如 "2.2.1.1" 表示 2x2 网格的第1行第1列)
func ParseGridPosition(s string) (*GridPosition, error) {
	if s == "" {
		return nil, fmt.Errorf("网格位置字符串为空")
	}

	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("无效的网格位置格式: %s (期望格式: rows.cols.row.col)", s)
	}

	var vals [4]int
	names := [4]string{"行数", "列数", "目标行", "目标列"}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("无效的%s: %s", names[i], p)
		}
		vals[i] = v
	}
	rows, cols, row, col := vals[0], vals[1], vals[2], vals[3]

	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("行数和列数必须大于 0: rows=%d, cols=%d", rows, cols)
	}
	if row < 1 || col < 1 {
		return nil, fmt.Errorf("目标行和目标列必须大于 0: row=%d, col=%d", row, col)
	}
	if row > rows || col > cols {
		return nil, fmt.Errorf("目标位置超出范围: row=%d > rows=%d 或 col=%d > cols=%d", row, rows, col, cols)
	}

	return &GridPosition{Rows: rows, Cols: cols, Row: row, Col: col}, nil
}

// FormatGridPosition 格式化网格位置为字符串
func FormatGridPosition(rows, cols, row, col int) string {
	return fmt.Sprintf("%d.%d.%d.%d", rows, cols, row, col)
}

func (g GridPosition) String() string {
	return FormatGridPosition(g.Rows, g.Cols, g.Row, g.Col)
}

// Cell 返回 bounds 中该格子的区域
// 最后一行和最后一列吸收除不尽的像素，所有格子正好铺满 bounds。
func (g GridPosition) Cell(bounds cv.Region) cv.Region {
	x0 := bounds.X + bounds.Width*(g.Col-1)/g.Cols
	x1 := bounds.X + bounds.Width*g.Col/g.Cols
	y0 := bounds.Y + bounds.Height*(g.Row-1)/g.Rows
	y1 := bounds.Y + bounds.Height*g.Row/g.Rows
	return cv.NewRegion(x0, y0, x1-x0, y1-y0)
}

// CellFromString 从字符串解析并计算格子区域，空字符串返回 bounds 本身
func CellFromString(bounds cv.Region, gridStr string) (cv.Region, error) {
	if gridStr == "" {
		return bounds, nil
	}
	g, err := ParseGridPosition(gridStr)
	if err != nil {
		return cv.Region{}, err
	}
	return g.Cell(bounds), nil
}

// Iterator 按行优先遍历网格中的全部格子
type Iterator struct {
	bounds  cv.Region
	rows    int
	cols    int
	current int
}

// NewIterator 创建网格迭代器
func NewIterator(bounds cv.Region, rows, cols int) *Iterator {
	return &Iterator{bounds: bounds, rows: rows, cols: cols}
}

// Next 返回下一个格子，遍历完毕返回 false
func (it *Iterator) Next() (GridPosition, cv.Region, bool) {
	if it.current >= it.Count() {
		return GridPosition{}, cv.Region{}, false
	}
	pos := GridPosition{
		Rows: it.rows,
		Cols: it.cols,
		Row:  it.current/it.cols + 1,
		Col:  it.current%it.cols + 1,
	}
	it.current++
	return pos, pos.Cell(it.bounds), true
}

// Reset 重置迭代器
func (it *Iterator) Reset() {
	it.current = 0
}

// Count 返回总格子数
func (it *Iterator) Count() int {
	if it.rows < 1 || it.cols < 1 {
		return 0
	}
	return it.rows * it.cols
}
