package vision

import (
	"context"
	"errors"
	"time"

	"github.com/zoeyai/zoeyfinder/internal/logger"
	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

// Finder 查找器
// 组合尺度规划、得分计算和结果筛选；不持有任何图像，可并发使用。
type Finder struct {
	opts Options
}

// NewFinder 基于全局配置创建查找器
func NewFinder(opts ...Option) *Finder {
	o := *GetOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}
	if o.Timeout < 0 {
		o.Timeout = 0
	}
	return &Finder{opts: o}
}

// Options 返回查找器生效的配置
func (f *Finder) Options() Options {
	return f.opts
}

func (f *Finder) searchOptions() cv.SearchOptions {
	return cv.SearchOptions{
		Policy:  f.opts.ScalePolicy,
		Workers: f.opts.Workers,
		Select: cv.SelectOptions{
			Overlap:    f.opts.Overlap,
			MaxMatches: f.opts.MaxMatches,
		},
	}
}

// FindBest 在 haystack 中查找得分最高的匹配
// 没有达到阈值时返回 *cv.NotFoundError，其中带有最高得分。
func (f *Finder) FindBest(haystack *cv.ImageBuffer, pattern *cv.Pattern) (*cv.Match, error) {
	return f.findBest(context.Background(), haystack, pattern)
}

func (f *Finder) findBest(ctx context.Context, haystack *cv.ImageBuffer, pattern *cv.Pattern) (*cv.Match, error) {
	start := time.Now()

	sc, err := cv.NewSearchContext(haystack, pattern)
	if err != nil {
		return nil, err
	}
	m, err := sc.Best(ctx, f.searchOptions())
	if err != nil {
		var nf *cv.NotFoundError
		if errors.As(err, &nf) {
			f.opts.Logger.Debug("FIND | %s | best=%.4f < %.4f | %.1fms",
				pattern, nf.BestScore, nf.Threshold, elapsedMs(start))
		}
		return nil, err
	}

	f.opts.Logger.Debug("FIND | %s | %s | %.1fms", pattern, m, elapsedMs(start))
	return &m, nil
}

// FindAll 返回全部达到阈值的匹配，按得分降序
// 没有匹配时返回空切片而不是错误。
func (f *Finder) FindAll(haystack *cv.ImageBuffer, pattern *cv.Pattern) ([]cv.Match, error) {
	start := time.Now()

	sc, err := cv.NewSearchContext(haystack, pattern)
	if err != nil {
		return nil, err
	}
	matches, err := sc.All(context.Background(), f.searchOptions())
	if err != nil {
		return nil, err
	}

	f.opts.Logger.Debug("FALL | %s | %d 个匹配 | %.1fms", pattern, len(matches), elapsedMs(start))
	return matches, nil
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
