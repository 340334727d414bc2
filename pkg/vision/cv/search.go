package cv

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ScalePolicy 多尺度搜索策略
type ScalePolicy int

const (
	// ScalePolicyBestOverall 计算全部尺度后取全局最高分（默认）
	ScalePolicyBestOverall ScalePolicy = iota
	// ScalePolicyFirstAboveThreshold 按计划顺序逐个尺度计算，首个达到阈值的尺度即返回
	ScalePolicyFirstAboveThreshold
)

func (p ScalePolicy) String() string {
	switch p {
	case ScalePolicyBestOverall:
		return "best"
	case ScalePolicyFirstAboveThreshold:
		return "first"
	default:
		return fmt.Sprintf("ScalePolicy(%d)", int(p))
	}
}

// ParseScalePolicy 解析策略字符串
func ParseScalePolicy(s string) (ScalePolicy, error) {
	switch s {
	case "", "best", "best_overall":
		return ScalePolicyBestOverall, nil
	case "first", "first_above_threshold":
		return ScalePolicyFirstAboveThreshold, nil
	default:
		return ScalePolicyBestOverall, fmt.Errorf("未知的尺度策略: %s", s)
	}
}

// SearchOptions 单次搜索的选项
type SearchOptions struct {
	Policy ScalePolicy
	// Workers 并发计算的尺度数，<=1 时顺序计算
	Workers int
	Select  SelectOptions
}

// SearchContext 单次匹配尝试的上下文，用完即弃
type SearchContext struct {
	Haystack *ImageBuffer
	Pattern  *Pattern
	// Scales 按计划顺序排列且能放入源图像的尺度
	Scales []float64
}

// NewSearchContext 校验输入并生成尺度计划
func NewSearchContext(haystack *ImageBuffer, p *Pattern) (*SearchContext, error) {
	if haystack.Empty() {
		return nil, ErrEmptyHaystack
	}
	if p == nil {
		return nil, ErrEmptyImage
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	pw, ph := p.image.Width(), p.image.Height()
	var (
		scales  []float64
		fitting int
	)
	for _, s := range PlanScales(p.scales) {
		w, h := scaledSize(pw, ph, s)
		if w < 1 || h < 1 || w > haystack.Width() || h > haystack.Height() {
			continue
		}
		fitting++
		if s != 1 && (w < MinScaledSide || h < MinScaledSide) {
			continue
		}
		scales = append(scales, s)
	}

	if fitting == 0 {
		return nil, &SizeError{
			HaystackSize: [2]int{haystack.Width(), haystack.Height()},
			PatternSize:  [2]int{pw, ph},
		}
	}
	if len(scales) == 0 {
		return nil, fmt.Errorf("%w: 所有尺度下模板都小于 %d 像素", ErrInvalidSize, MinScaledSide)
	}
	return &SearchContext{Haystack: haystack, Pattern: p, Scales: scales}, nil
}

func (s *SearchContext) prepare() (*haystack, error) {
	gray := s.Pattern.grayscale || s.Haystack.Channels() != 3 || s.Pattern.image.Channels() != 3
	return prepareHaystack(s.Haystack, gray)
}

// scoreAt 计算单个尺度的得分图
func (s *SearchContext) scoreAt(hay *haystack, scale float64) (*ScoreMap, error) {
	p := s.Pattern
	if scale == 1 {
		return hay.score(p.image, p.mask, p.mode, 1)
	}

	w, h := scaledSize(p.image.Width(), p.image.Height(), scale)
	scaled, err := p.image.Resize(w, h, InterpolationLinear)
	if err != nil {
		return nil, err
	}
	defer scaled.Close()

	var mask *ImageBuffer
	if p.mask != nil {
		// 掩码用最近邻缩放，保持二值
		mask, err = p.mask.Resize(w, h, InterpolationNearest)
		if err != nil {
			return nil, err
		}
		defer mask.Close()
	}
	return hay.score(scaled, mask, p.mode, scale)
}

// ScoreMaps 计算全部计划尺度的得分图，结果顺序与 Scales 一致
func (s *SearchContext) ScoreMaps(ctx context.Context, workers int) ([]*ScoreMap, error) {
	hay, err := s.prepare()
	if err != nil {
		return nil, err
	}
	defer hay.Close()
	return s.scoreMaps(ctx, hay, workers)
}

func (s *SearchContext) scoreMaps(ctx context.Context, hay *haystack, workers int) ([]*ScoreMap, error) {
	maps := make([]*ScoreMap, len(s.Scales))

	if workers <= 1 || len(s.Scales) == 1 {
		for i, scale := range s.Scales {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			m, err := s.scoreAt(hay, scale)
			if err != nil {
				return nil, fmt.Errorf("尺度 %.3f 匹配失败: %w", scale, err)
			}
			maps[i] = m
		}
		return maps, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, scale := range s.Scales {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := s.scoreAt(hay, scale)
			if err != nil {
				return fmt.Errorf("尺度 %.3f 匹配失败: %w", scale, err)
			}
			maps[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return maps, nil
}

// Best 返回最佳匹配；没有达到阈值时返回 *NotFoundError
func (s *SearchContext) Best(ctx context.Context, opts SearchOptions) (Match, error) {
	hay, err := s.prepare()
	if err != nil {
		return Match{}, err
	}
	defer hay.Close()

	threshold := s.Pattern.Threshold()

	if opts.Policy == ScalePolicyFirstAboveThreshold {
		best := 0.0
		for _, scale := range s.Scales {
			if err := ctx.Err(); err != nil {
				return Match{}, err
			}
			sm, err := s.scoreAt(hay, scale)
			if err != nil {
				return Match{}, fmt.Errorf("尺度 %.3f 匹配失败: %w", scale, err)
			}
			m, score, ok := SelectBest([]*ScoreMap{sm}, s.Pattern)
			if ok {
				return m, nil
			}
			best = max(best, score)
		}
		return Match{}, &NotFoundError{BestScore: best, Threshold: threshold}
	}

	maps, err := s.scoreMaps(ctx, hay, opts.Workers)
	if err != nil {
		return Match{}, err
	}
	m, best, ok := SelectBest(maps, s.Pattern)
	if !ok {
		return Match{}, &NotFoundError{BestScore: best, Threshold: threshold}
	}
	return m, nil
}

// All 返回全部尺度下经过非极大值抑制的匹配
func (s *SearchContext) All(ctx context.Context, opts SearchOptions) ([]Match, error) {
	maps, err := s.ScoreMaps(ctx, opts.Workers)
	if err != nil {
		return nil, err
	}
	return SelectAll(maps, s.Pattern, opts.Select), nil
}
