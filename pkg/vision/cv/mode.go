package cv

import (
	"fmt"
	"strings"
)

// MatchMode 得分公式，在创建 Pattern 时选定
type MatchMode int

const (
	// ModeCorrCoeffNormed 归一化相关系数（默认），对亮度和对比度变化不敏感
	ModeCorrCoeffNormed MatchMode = iota
	// ModeCrossCorrNormed 归一化互相关
	ModeCrossCorrNormed
	// ModeSqDiffNormed 归一化平方差，得分 = 1 - 归一化距离
	ModeSqDiffNormed
)

func (m MatchMode) String() string {
	switch m {
	case ModeCorrCoeffNormed:
		return "ccoeff"
	case ModeCrossCorrNormed:
		return "ccorr"
	case ModeSqDiffNormed:
		return "sqdiff"
	default:
		return fmt.Sprintf("MatchMode(%d)", int(m))
	}
}

// Valid 是否为已知模式
func (m MatchMode) Valid() bool {
	return m >= ModeCorrCoeffNormed && m <= ModeSqDiffNormed
}

// ParseMatchMode 解析匹配模式字符串
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ccoeff", "ccoeff_normed", "corrcoeff":
		return ModeCorrCoeffNormed, nil
	case "ccorr", "ccorr_normed", "crosscorr":
		return ModeCrossCorrNormed, nil
	case "sqdiff", "sqdiff_normed":
		return ModeSqDiffNormed, nil
	default:
		return ModeCorrCoeffNormed, fmt.Errorf("未知的匹配模式: %s", s)
	}
}
