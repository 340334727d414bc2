package vision

import (
	"fmt"
	"time"

	"github.com/zoeyai/zoeyfinder/internal/logger"
	"github.com/zoeyai/zoeyfinder/pkg/config"
	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

// Options 查找器配置选项
type Options struct {
	// 等待配置
	Timeout            time.Duration // Wait 超时时间，默认 3s
	PollInterval       time.Duration // 两次尝试之间的休眠，默认 200ms
	MinCaptureInterval time.Duration // 两次截图之间的最小间隔，默认 50ms

	// 匹配配置
	Overlap     float64        // FindAll 非极大值抑制的重叠比例，默认 0.5
	MaxMatches  int            // FindAll 最多返回数量，0 表示不限制
	ScalePolicy cv.ScalePolicy // 多尺度策略
	Workers     int            // 并发计算的尺度数，默认 1

	Clock  Clock
	Logger *logger.Logger
}

// DefaultOptions 默认配置
var DefaultOptions = Options{
	Timeout:            3 * time.Second,
	PollInterval:       200 * time.Millisecond,
	MinCaptureInterval: 50 * time.Millisecond,

	Overlap:     cv.DefaultOverlap,
	MaxMatches:  0,
	ScalePolicy: cv.ScalePolicyBestOverall,
	Workers:     1,
}

// globalOptions 全局配置实例
var globalOptions = DefaultOptions

// GetOptions 获取当前全局配置
func GetOptions() *Options {
	return &globalOptions
}

// SetOptions 设置全局配置
func SetOptions(opts Options) {
	globalOptions = opts
}

// ResetOptions 重置为默认配置
func ResetOptions() {
	globalOptions = DefaultOptions
}

// Option 配置选项函数类型
type Option func(*Options)

// WithTimeout 设置等待超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithPollInterval 设置轮询间隔
func WithPollInterval(d time.Duration) Option {
	return func(o *Options) {
		o.PollInterval = d
	}
}

// WithMinCaptureInterval 设置两次截图之间的最小间隔，<=0 表示不限制
func WithMinCaptureInterval(d time.Duration) Option {
	return func(o *Options) {
		o.MinCaptureInterval = d
	}
}

// WithOverlap 设置非极大值抑制的重叠比例
func WithOverlap(overlap float64) Option {
	return func(o *Options) {
		o.Overlap = overlap
	}
}

// WithMaxMatches 设置 FindAll 最多返回数量
func WithMaxMatches(n int) Option {
	return func(o *Options) {
		o.MaxMatches = n
	}
}

// WithScalePolicy 设置多尺度策略
func WithScalePolicy(policy cv.ScalePolicy) Option {
	return func(o *Options) {
		o.ScalePolicy = policy
	}
}

// WithWorkers 设置并发计算的尺度数
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

// WithClock 设置时钟，测试时注入假时钟
func WithClock(c Clock) Option {
	return func(o *Options) {
		o.Clock = c
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *logger.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// OptionsFromConfig 将配置文件转换为查找器选项
func OptionsFromConfig(c *config.FinderConfig) ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	policy, err := cv.ParseScalePolicy(c.ScalePolicy)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithTimeout(c.Timeout()),
		WithPollInterval(c.PollInterval()),
		WithMinCaptureInterval(c.MinCaptureInterval()),
		WithOverlap(c.Overlap),
		WithMaxMatches(c.MaxMatches),
		WithScalePolicy(policy),
		WithWorkers(c.Workers),
	}, nil
}

// PatternOptionsFromConfig 将配置中的阈值和匹配公式转换为模板选项
func PatternOptionsFromConfig(c *config.FinderConfig) ([]cv.PatternOption, error) {
	mode, err := cv.ParseMatchMode(c.Mode)
	if err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return nil, fmt.Errorf("%w: %v", cv.ErrInvalidThreshold, c.Threshold)
	}
	return []cv.PatternOption{
		cv.WithThreshold(c.Threshold),
		cv.WithMode(mode),
	}, nil
}
