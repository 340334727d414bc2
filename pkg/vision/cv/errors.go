package cv

import (
	"errors"
	"fmt"
	"time"
)

// 加载错误
var (
	ErrImageNotFound = errors.New("图像文件不存在")
	ErrDecodeFailure = errors.New("图像解码失败")
	ErrEmptyImage    = errors.New("图像为空")
)

// 匹配错误
var (
	ErrEmptyHaystack             = errors.New("源图像为空")
	ErrPatternLargerThanHaystack = errors.New("模板尺寸大于源图像")
	ErrInvalidThreshold          = errors.New("匹配阈值必须在 [0,1] 范围内")
	ErrMaskSizeMismatch          = errors.New("掩码尺寸与模板不一致")
	ErrEmptyMask                 = errors.New("掩码未包含任何像素")
	ErrInvalidScaleRange         = errors.New("无效的缩放范围")
	ErrRegionOutOfBounds         = errors.New("区域超出图像边界")
	ErrInvalidSize               = errors.New("无效的图像尺寸")
)

// 结果类错误
var (
	ErrNotFound  = errors.New("未找到匹配")
	ErrTimeout   = errors.New("匹配超时")
	ErrCancelled = errors.New("匹配已取消")
)

// SizeError 模板尺寸大于源图像
type SizeError struct {
	HaystackSize [2]int
	PatternSize  [2]int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("搜索图像尺寸大于源图像: 模板 %dx%d, 源图像 %dx%d",
		e.PatternSize[0], e.PatternSize[1], e.HaystackSize[0], e.HaystackSize[1])
}

func (e *SizeError) Unwrap() error { return ErrPatternLargerThanHaystack }

// NotFoundError 没有得分达到阈值的位置，BestScore 为本次观察到的最高分
type NotFoundError struct {
	BestScore float64
	Threshold float64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("未找到匹配: 最高得分 %.4f < 阈值 %.4f", e.BestScore, e.Threshold)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TimeoutError 等待超时
type TimeoutError struct {
	Elapsed   time.Duration
	BestScore float64
	Attempts  int
	// LastErr 最近一次截图失败的原因（如有）
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("匹配超时: 耗时 %v, 尝试 %d 次, 最高得分 %.4f", e.Elapsed, e.Attempts, e.BestScore)
	if e.LastErr != nil {
		msg += fmt.Sprintf(", 最近错误: %v", e.LastErr)
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// CancelledError 等待被取消
type CancelledError struct {
	Elapsed  time.Duration
	Attempts int
	Cause    error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("匹配已取消: 耗时 %v, 尝试 %d 次", e.Elapsed, e.Attempts)
}

func (e *CancelledError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrCancelled}
	}
	return []error{ErrCancelled, e.Cause}
}

// IsNotFound 判断是否为未找到
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
