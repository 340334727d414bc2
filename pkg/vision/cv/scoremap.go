package cv

// ScoreMap 某一尺度下每个左上角位置的得分
// 尺寸为 (源宽 - 模板宽 + 1) x (源高 - 模板高 + 1)，得分均在 [0,1]。
type ScoreMap struct {
	Width  int
	Height int
	// Scale 计算时模板的缩放比例
	Scale float64
	// PatternWidth / PatternHeight 缩放后的模板尺寸
	PatternWidth  int
	PatternHeight int
	// Mode 实际使用的公式（纯色模板在默认模式下会回退为平方差）
	Mode   MatchMode
	Scores []float32
}

// At 返回 (x, y) 处的得分
func (m *ScoreMap) At(x, y int) float64 {
	return float64(m.Scores[y*m.Width+x])
}

// Max 返回最大得分及其位置，相同得分取光栅顺序最靠前者
func (m *ScoreMap) Max() (score float64, x, y int) {
	score = -1
	for i, v := range m.Scores {
		if float64(v) > score {
			score = float64(v)
			x, y = i%m.Width, i/m.Width
		}
	}
	return score, x, y
}

// isLocalMax (x, y) 的得分不小于 8 邻域内任何得分
func (m *ScoreMap) isLocalMax(x, y int) bool {
	v := m.Scores[y*m.Width+x]
	for dy := -1; dy <= 1; dy++ {
		ny := y + dy
		if ny < 0 || ny >= m.Height {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			nx := x + dx
			if (dx == 0 && dy == 0) || nx < 0 || nx >= m.Width {
				continue
			}
			if m.Scores[ny*m.Width+nx] > v {
				return false
			}
		}
	}
	return true
}

// region 返回 (x, y) 处模板覆盖的区域
func (m *ScoreMap) region(x, y int) Region {
	return Region{X: x, Y: y, Width: m.PatternWidth, Height: m.PatternHeight}
}
