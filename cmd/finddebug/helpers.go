package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zoeyai/zoeyfinder/internal/logger"
	"github.com/zoeyai/zoeyfinder/pkg/auto/grid"
	"github.com/zoeyai/zoeyfinder/pkg/auto/screen"
	"github.com/zoeyai/zoeyfinder/pkg/vision"
	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

// loadPattern 按配置和命令行参数加载模板，调用方负责 Close
func loadPattern(path string) (*cv.Pattern, error) {
	popts, err := vision.PatternOptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if opts.Scale != "" {
		r, err := parseScaleRange(opts.Scale)
		if err != nil {
			return nil, err
		}
		popts = append(popts, cv.WithScaleRange(r.Min, r.Max, r.Step))
	}
	if opts.Offset != "" {
		v, err := parseInts(opts.Offset, 2)
		if err != nil {
			return nil, fmt.Errorf("offset 格式错误: %w", err)
		}
		popts = append(popts, cv.WithTargetOffset(v[0], v[1]))
	}
	if opts.Gray {
		popts = append(popts, cv.WithGrayscale(true))
	}
	if opts.Name != "" {
		popts = append(popts, cv.WithName(opts.Name))
	}

	var mask *cv.ImageBuffer
	if opts.Mask != "" {
		mask, err = cv.ReadImage(opts.Mask)
		if err != nil {
			return nil, fmt.Errorf("加载掩码失败: %w", err)
		}
		popts = append(popts, cv.WithMask(mask))
	}

	p, err := cv.LoadPattern(path, popts...)
	if err != nil {
		mask.Close()
		return nil, fmt.Errorf("加载模板失败: %w", err)
	}
	logger.Debug("加载模板: %s", p)
	return p, nil
}

func newFinder() (*vision.Finder, error) {
	fopts, err := vision.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return vision.NewFinder(fopts...), nil
}

// newSource 指定了源图像文件时每次重新读取文件，否则截取屏幕
func newSource() (vision.ImageSource, error) {
	if opts.Haystack != "" {
		return vision.FileSource{Path: opts.Haystack}, nil
	}
	if ok, msg := screen.CheckPermission(); !ok {
		return nil, fmt.Errorf("缺少屏幕录制权限\n%s", msg)
	}
	return &screen.Source{Logical: !opts.Physical}, nil
}

// searchRegion 由 --region 和 --grid 计算搜索区域，ok 为 false 表示搜索整幅图像
func searchRegion() (cv.Region, bool, error) {
	if opts.Region == "" && opts.Grid == "" {
		return cv.Region{}, false, nil
	}

	var bounds cv.Region
	if opts.Region != "" {
		r, err := parseRegion(opts.Region)
		if err != nil {
			return cv.Region{}, false, err
		}
		bounds = r
	} else if opts.Haystack != "" {
		img, err := cv.ReadImage(opts.Haystack)
		if err != nil {
			return cv.Region{}, false, err
		}
		bounds = img.Bounds()
		img.Close()
	} else {
		w, h := screen.GetScreenSize()
		bounds = cv.NewRegion(0, 0, w, h)
	}

	cell, err := grid.CellFromString(bounds, opts.Grid)
	if err != nil {
		return cv.Region{}, false, err
	}
	return cell, true, nil
}

// regionSource 只截取搜索区域的图像来源，并把匹配结果换算回屏幕坐标
type regionSource struct {
	src      vision.ImageSource
	region   cv.Region
	inRegion bool
}

// openSource 按 --haystack、--region、--grid 打开图像来源
func openSource() (*regionSource, error) {
	src, err := newSource()
	if err != nil {
		return nil, err
	}
	region, ok, err := searchRegion()
	if err != nil {
		return nil, err
	}
	if ok {
		logger.Debug("搜索区域: %s", region)
	}
	return &regionSource{src: src, region: region, inRegion: ok}, nil
}

// Capture 截取搜索区域
func (s *regionSource) Capture() (*cv.ImageBuffer, error) {
	if s.inRegion {
		return s.src.CaptureRegion(s.region)
	}
	return s.src.Capture()
}

// CaptureRegion r 相对于搜索区域
func (s *regionSource) CaptureRegion(r cv.Region) (*cv.ImageBuffer, error) {
	if s.inRegion {
		r = r.Offset(s.region.X, s.region.Y)
	}
	return s.src.CaptureRegion(r)
}

// meta 最近一次截图到屏幕逻辑坐标的换算
func (s *regionSource) meta() screen.CaptureMeta {
	if scr, ok := s.src.(*screen.Source); ok {
		return scr.LastMeta()
	}
	m := screen.CaptureMeta{ScaleX: 1, ScaleY: 1}
	if s.inRegion {
		m.OffsetX, m.OffsetY = s.region.X, s.region.Y
	}
	return m
}

// toScreen 将截图中的匹配换算为屏幕（或源图像）坐标
func (s *regionSource) toScreen(m cv.Match) cv.Match {
	return s.meta().AdjustMatch(m)
}

// loadHaystack 获取一次源图像，指定了区域时只返回该区域
func loadHaystack() (*cv.ImageBuffer, *regionSource, error) {
	src, err := openSource()
	if err != nil {
		return nil, nil, err
	}
	img, err := src.Capture()
	if err != nil {
		return nil, nil, err
	}
	return img, src, nil
}

func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("需要 %d 个整数: %q", n, s)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseRegion(s string) (cv.Region, error) {
	v, err := parseInts(s, 4)
	if err != nil {
		return cv.Region{}, fmt.Errorf("region 格式错误: %w", err)
	}
	r := cv.NewRegion(v[0], v[1], v[2], v[3])
	if r.Empty() {
		return cv.Region{}, fmt.Errorf("region 宽高必须大于 0: %s", r)
	}
	return r, nil
}

func parseScaleRange(s string) (cv.ScaleRange, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return cv.ScaleRange{}, fmt.Errorf("scale 格式应为 min:max:step: %q", s)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return cv.ScaleRange{}, fmt.Errorf("scale 格式错误: %w", err)
		}
		vals[i] = v
	}
	r := cv.ScaleRange{Min: vals[0], Max: vals[1], Step: vals[2]}
	return r, r.Validate()
}
