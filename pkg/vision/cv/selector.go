package cv

import (
	"math"
	"sort"
)

// DefaultOverlap 非极大值抑制的默认重叠比例
const DefaultOverlap = 0.5

// SelectOptions SelectAll 的选项
type SelectOptions struct {
	// Overlap 交集面积 / 较小区域面积 超过该值的候选被丢弃
	// 0 表示任何重叠都丢弃，负数表示使用 DefaultOverlap。
	Overlap float64
	// MaxMatches 最多返回的匹配数，0 表示不限制
	MaxMatches int
}

func (o SelectOptions) overlap() float64 {
	switch {
	case o.Overlap < 0:
		return DefaultOverlap
	case o.Overlap > 1:
		return 1
	}
	return o.Overlap
}

// SelectBest 在所有得分图中选出全局最高分
// maps 需按尺度计划顺序排列；得分相同时靠前的尺度优先，再按光栅顺序。
// 返回的 best 为观察到的最高分，ok 表示是否达到阈值。
func SelectBest(maps []*ScoreMap, p *Pattern) (m Match, best float64, ok bool) {
	var (
		found   bool
		bestMap *ScoreMap
		bx, by  int
	)
	best = 0
	for _, sm := range maps {
		if sm == nil {
			continue
		}
		score, x, y := sm.Max()
		if !found || score > best {
			found = true
			best = score
			bestMap, bx, by = sm, x, y
		}
	}
	if !found {
		return Match{}, 0, false
	}
	if best < p.Threshold() {
		return Match{}, best, false
	}
	return newMatch(bestMap, bx, by, p), best, true
}

type candidate struct {
	match Match
	dist  float64
}

// SelectAll 收集所有达到阈值的局部极大值并做非极大值抑制
// 结果按得分降序排列，得分相同按光栅顺序。
func SelectAll(maps []*ScoreMap, p *Pattern, opts SelectOptions) []Match {
	threshold := p.Threshold()

	var cands []candidate
	for _, sm := range maps {
		if sm == nil {
			continue
		}
		dist := math.Abs(sm.Scale - 1)
		for y := 0; y < sm.Height; y++ {
			for x := 0; x < sm.Width; x++ {
				if sm.At(x, y) < threshold || !sm.isLocalMax(x, y) {
					continue
				}
				cands = append(cands, candidate{match: newMatch(sm, x, y, p), dist: dist})
			}
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.match.Score != b.match.Score {
			return a.match.Score > b.match.Score
		}
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		return rasterLess(a.match.Region, b.match.Region)
	})

	overlap := opts.overlap()
	kept := make([]Match, 0, len(cands))
	for _, c := range cands {
		suppressed := false
		for _, k := range kept {
			if c.match.Region.Overlap(k.Region) > overlap {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c.match)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return rasterLess(kept[i].Region, kept[j].Region)
	})

	if opts.MaxMatches > 0 && len(kept) > opts.MaxMatches {
		kept = kept[:opts.MaxMatches]
	}
	return kept
}

func rasterLess(a, b Region) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// newMatch 由得分图位置构建匹配结果，目标偏移按尺度缩放
func newMatch(sm *ScoreMap, x, y int, p *Pattern) Match {
	region := sm.region(x, y)
	off := p.TargetOffset()
	dx := int(math.Round(float64(off.DX) * sm.Scale))
	dy := int(math.Round(float64(off.DY) * sm.Scale))
	return Match{
		Region:    region,
		Score:     sm.At(x, y),
		Scale:     sm.Scale,
		Target:    region.Center().Add(dx, dy),
		PatternID: p.ID(),
	}
}
