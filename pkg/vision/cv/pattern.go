package cv

import (
	"encoding/base64"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/corona10/goimagehash"
)

var (
	// DefaultThreshold 默认匹配阈值
	DefaultThreshold = 0.7
	// CurrentPath 相对路径模板的根目录
	CurrentPath = ""
)

// Pattern 待查找的参考图像及其匹配配置
// 创建后不可修改，Similar 返回阈值不同的副本。
type Pattern struct {
	image     *ImageBuffer
	mask      *ImageBuffer
	threshold float64
	offset    Offset
	mode      MatchMode
	scales    *ScaleRange
	name      string
	grayscale bool

	// owned 为 true 时 Close 会释放 image 和 mask
	owned bool

	idOnce sync.Once
	id     string
}

// PatternOption 模板选项
type PatternOption func(*Pattern)

// WithThreshold 设置相似度阈值
func WithThreshold(threshold float64) PatternOption {
	return func(p *Pattern) {
		p.threshold = threshold
	}
}

// WithMask 设置掩码，非零像素参与计算
func WithMask(mask *ImageBuffer) PatternOption {
	return func(p *Pattern) {
		p.mask = mask
	}
}

// WithTargetOffset 设置目标点相对匹配中心的偏移
func WithTargetOffset(dx, dy int) PatternOption {
	return func(p *Pattern) {
		p.offset = Offset{DX: dx, DY: dy}
	}
}

// WithMode 设置匹配公式
func WithMode(mode MatchMode) PatternOption {
	return func(p *Pattern) {
		p.mode = mode
	}
}

// WithScaleRange 启用多尺度搜索
func WithScaleRange(minScale, maxScale, step float64) PatternOption {
	return func(p *Pattern) {
		p.scales = &ScaleRange{Min: minScale, Max: maxScale, Step: step}
	}
}

// WithName 设置模板名称，作为匹配结果中的 PatternID
func WithName(name string) PatternOption {
	return func(p *Pattern) {
		p.name = name
	}
}

// WithGrayscale 强制使用灰度图计算
func WithGrayscale(gray bool) PatternOption {
	return func(p *Pattern) {
		p.grayscale = gray
	}
}

// NewPattern 创建模板，img 与 mask 的所有权仍归调用方
func NewPattern(img *ImageBuffer, opts ...PatternOption) (*Pattern, error) {
	p := &Pattern{
		image:     img,
		threshold: DefaultThreshold,
		mode:      ModeCorrCoeffNormed,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadPattern 从文件路径或 data URL 加载模板，返回的 Pattern 拥有图像，需调用 Close
func LoadPattern(source string, opts ...PatternOption) (*Pattern, error) {
	img, err := loadPatternImage(source)
	if err != nil {
		return nil, err
	}
	p, err := NewPattern(img, opts...)
	if err != nil {
		img.Close()
		return nil, err
	}
	p.owned = true
	if p.name == "" {
		p.name = patternName(source)
	}
	return p, nil
}

func loadPatternImage(source string) (*ImageBuffer, error) {
	// base64 data URL 直接解码，不处理路径
	if strings.HasPrefix(source, "data:image/") {
		idx := strings.Index(source, ",")
		if idx < 0 {
			return nil, fmt.Errorf("%w: 无效的 data URL", ErrDecodeFailure)
		}
		data, err := base64.StdEncoding.DecodeString(source[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
		}
		return DecodeImage(data)
	}

	// 处理相对路径
	filename := source
	if CurrentPath != "" && !filepath.IsAbs(filename) {
		filename = filepath.Join(CurrentPath, filename)
	}
	return ReadImage(filename)
}

func patternName(source string) string {
	if strings.HasPrefix(source, "data:image/") {
		return ""
	}
	return strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
}

func (p *Pattern) validate() error {
	if p.image.Empty() {
		return ErrEmptyImage
	}
	if math.IsNaN(p.threshold) || p.threshold < 0 || p.threshold > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, p.threshold)
	}
	if !p.mode.Valid() {
		return fmt.Errorf("未知的匹配模式: %v", p.mode)
	}
	if p.mask != nil {
		if p.mask.Empty() {
			return fmt.Errorf("%w: 掩码为空", ErrEmptyMask)
		}
		if p.mask.Width() != p.image.Width() || p.mask.Height() != p.image.Height() {
			return fmt.Errorf("%w: 掩码 %dx%d, 模板 %dx%d", ErrMaskSizeMismatch,
				p.mask.Width(), p.mask.Height(), p.image.Width(), p.image.Height())
		}
	}
	if p.scales != nil {
		if err := p.scales.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Similar 返回阈值为 threshold 的副本，共享图像
func (p *Pattern) Similar(threshold float64) (*Pattern, error) {
	cp := &Pattern{
		image:     p.image,
		mask:      p.mask,
		threshold: threshold,
		offset:    p.offset,
		mode:      p.mode,
		scales:    p.scales,
		name:      p.name,
		grayscale: p.grayscale,
	}
	if err := cp.validate(); err != nil {
		return nil, err
	}
	return cp, nil
}

// Image 参考图像
func (p *Pattern) Image() *ImageBuffer { return p.image }

// Mask 掩码，可能为 nil
func (p *Pattern) Mask() *ImageBuffer { return p.mask }

// Threshold 相似度阈值
func (p *Pattern) Threshold() float64 { return p.threshold }

// TargetOffset 目标偏移
func (p *Pattern) TargetOffset() Offset { return p.offset }

// Mode 匹配公式
func (p *Pattern) Mode() MatchMode { return p.mode }

// ScaleRange 缩放范围，未配置时为 nil
func (p *Pattern) ScaleRange() *ScaleRange { return p.scales }

// Grayscale 是否强制灰度匹配
func (p *Pattern) Grayscale() bool { return p.grayscale }

// Name 模板名称
func (p *Pattern) Name() string { return p.name }

// ID 模板标识：有名称时为名称，否则为参考图像的感知哈希
func (p *Pattern) ID() string {
	p.idOnce.Do(func() {
		if p.name != "" {
			p.id = p.name
			return
		}
		p.id = fingerprint(p.image)
	})
	return p.id
}

func fingerprint(img *ImageBuffer) string {
	fallback := fmt.Sprintf("%dx%dx%d", img.Width(), img.Height(), img.Channels())
	src, err := img.ToImage()
	if err != nil {
		return fallback
	}
	hash, err := goimagehash.PerceptionHash(src)
	if err != nil {
		return fallback
	}
	return hash.ToString()
}

// Close 释放 LoadPattern 加载的图像；NewPattern 创建的模板不做任何事
func (p *Pattern) Close() {
	if !p.owned {
		return
	}
	p.image.Close()
	if p.mask != nil {
		p.mask.Close()
	}
	p.owned = false
}

func (p *Pattern) String() string {
	return fmt.Sprintf("Pattern(%s %dx%d threshold=%.2f mode=%s)",
		p.ID(), p.image.Width(), p.image.Height(), p.threshold, p.mode)
}
