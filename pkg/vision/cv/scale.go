package cv

import (
	"fmt"
	"math"
	"sort"
)

const (
	// scaleEpsilon 尺度去重精度
	scaleEpsilon = 1e-6
	scaleDigits  = 1e6
	// MaxPlannedScales 单次计划的最大尺度数量
	MaxPlannedScales = 512
	// MinScaledSide 缩放后模板的最小边长，更小的尺度会被跳过（原始尺度除外）
	MinScaledSide = 3
)

// ScaleRange 多尺度搜索范围
// 适用场景：
//   - 不同分辨率显示器（1080p vs 4K）
//   - DPI 缩放（125%/150%/200%）
//   - 录制和回放时分辨率不同
type ScaleRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Validate 校验范围
func (r ScaleRange) Validate() error {
	switch {
	case math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsNaN(r.Step):
		return fmt.Errorf("%w: 包含 NaN", ErrInvalidScaleRange)
	case r.Min <= 0:
		return fmt.Errorf("%w: 最小值 %v 必须大于 0", ErrInvalidScaleRange, r.Min)
	case r.Max < r.Min:
		return fmt.Errorf("%w: 最大值 %v 小于最小值 %v", ErrInvalidScaleRange, r.Max, r.Min)
	case r.Step <= 0:
		return fmt.Errorf("%w: 步长 %v 必须大于 0", ErrInvalidScaleRange, r.Step)
	case (r.Max-r.Min)/r.Step+1 > MaxPlannedScales:
		return fmt.Errorf("%w: 尺度数量超过 %d", ErrInvalidScaleRange, MaxPlannedScales)
	}
	return nil
}

// PlanScales 生成尺度序列
// 未配置范围时为 [1.0]；否则按 |s-1| 升序排列，距离相同时较小尺度在前。
// 1.0 位于范围内时总会被包含。
func PlanScales(r *ScaleRange) []float64 {
	if r == nil || r.Validate() != nil {
		return []float64{1.0}
	}

	var scales []float64
	add := func(s float64) {
		s = math.Round(s*scaleDigits) / scaleDigits
		for _, v := range scales {
			if math.Abs(v-s) < scaleEpsilon {
				return
			}
		}
		scales = append(scales, s)
	}

	for k := 0; ; k++ {
		s := r.Min + float64(k)*r.Step
		if s > r.Max+scaleEpsilon {
			break
		}
		add(math.Min(s, r.Max))
	}
	if r.Min-scaleEpsilon <= 1 && 1 <= r.Max+scaleEpsilon {
		add(1.0)
	}

	sort.SliceStable(scales, func(i, j int) bool {
		di, dj := math.Abs(scales[i]-1), math.Abs(scales[j]-1)
		if math.Abs(di-dj) > scaleEpsilon {
			return di < dj
		}
		return scales[i] < scales[j]
	})
	return scales
}

// scaledSize 计算缩放后的尺寸
func scaledSize(w, h int, scale float64) (int, int) {
	if scale == 1 {
		return w, h
	}
	return int(math.Round(float64(w) * scale)), int(math.Round(float64(h) * scale))
}
