package vision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

// State 轮询状态
type State int

const (
	StateIdle State = iota
	StatePolling
	StateFound
	StateTimedOut
	StateCancelled
	// StateFailed 配置或匹配参数错误，重试没有意义
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateFound:
		return "found"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// PollResult 一次轮询的最终结果
type PollResult struct {
	State     State
	Match     *cv.Match
	Attempts  int
	Elapsed   time.Duration
	BestScore float64
	// Err 非 Found 状态下的错误：*cv.TimeoutError、*cv.CancelledError 或致命错误
	Err error
}

// captureError 截图失败，只计为一次失败的尝试
type captureError struct {
	err error
}

func (e *captureError) Error() string { return "截图失败: " + e.err.Error() }
func (e *captureError) Unwrap() error { return e.err }

type captureFunc func() (*cv.ImageBuffer, error)

// Poll 反复截图匹配，直到找到、超时或取消
// timeout < 0 时使用 Options.Timeout；timeout 为 0 时只截图匹配一次，不休眠。
func (f *Finder) Poll(ctx context.Context, source ImageSource, pattern *cv.Pattern, timeout time.Duration) *PollResult {
	return f.poll(ctx, source.Capture, pattern, timeout)
}

// Wait 等待模板出现，超时返回 *cv.TimeoutError，取消返回 *cv.CancelledError
func (f *Finder) Wait(ctx context.Context, source ImageSource, pattern *cv.Pattern, timeout time.Duration) (*cv.Match, error) {
	res := f.Poll(ctx, source, pattern, timeout)
	return res.Match, res.Err
}

// WaitIn 只在 region 内等待，返回的坐标已换算回截图来源的坐标系
func (f *Finder) WaitIn(ctx context.Context, source ImageSource, region cv.Region, pattern *cv.Pattern, timeout time.Duration) (*cv.Match, error) {
	capture := func() (*cv.ImageBuffer, error) {
		return source.CaptureRegion(region)
	}
	res := f.poll(ctx, capture, pattern, timeout)
	if res.Match != nil {
		m := res.Match.Translate(region.X, region.Y)
		return &m, nil
	}
	return nil, res.Err
}

// Exists 判断模板是否存在，未找到、超时和取消都返回 false
func (f *Finder) Exists(ctx context.Context, source ImageSource, pattern *cv.Pattern, timeout time.Duration) bool {
	if timeout < 0 {
		timeout = 0
	}
	res := f.Poll(ctx, source, pattern, timeout)
	if res.State == StateFailed {
		f.opts.Logger.Warn("EXISTS 失败: %v", res.Err)
	}
	return res.State == StateFound
}

func (f *Finder) captureLimiter() *rate.Limiter {
	if f.opts.MinCaptureInterval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(f.opts.MinCaptureInterval), 1)
}

func (f *Finder) poll(ctx context.Context, capture captureFunc, pattern *cv.Pattern, timeout time.Duration) *PollResult {
	if timeout < 0 {
		timeout = f.opts.Timeout
	}
	clock := f.opts.Clock
	log := f.opts.Logger

	res := &PollResult{State: StateIdle}
	if pattern == nil {
		res.State = StateFailed
		res.Err = fmt.Errorf("模板为空: %w", cv.ErrEmptyImage)
		return res
	}

	// 正在计算的得分不受取消影响，取消只在两次尝试之间检查
	matchCtx := context.WithoutCancel(ctx)
	limiter := f.captureLimiter()
	start := clock.Now()
	res.State = StatePolling

	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			res.State = StateCancelled
			res.Elapsed = clock.Now().Sub(start)
			res.Err = &cv.CancelledError{Elapsed: res.Elapsed, Attempts: res.Attempts, Cause: err}
			log.LogEvent("WAIT", false, msOf(res.Elapsed), fmt.Sprintf("%s 已取消", pattern))
			return res
		}

		if limiter != nil {
			now := clock.Now()
			if d := limiter.ReserveN(now, 1).DelayFrom(now); d > 0 {
				clock.Sleep(d)
			}
		}

		res.Attempts++
		m, err := f.attempt(matchCtx, capture, pattern)
		var (
			nf *cv.NotFoundError
			ce *captureError
		)
		switch {
		case err == nil:
			res.State = StateFound
			res.Match = m
			res.BestScore = max(res.BestScore, m.Score)
			res.Elapsed = clock.Now().Sub(start)
			log.LogEvent("WAIT", true, msOf(res.Elapsed), fmt.Sprintf("%s %s 尝试 %d 次", pattern, m, res.Attempts))
			return res
		case errors.As(err, &nf):
			res.BestScore = max(res.BestScore, nf.BestScore)
		case errors.As(err, &ce):
			lastErr = ce.err
			log.Debug("WAIT | 第 %d 次%v", res.Attempts, err)
		default:
			res.State = StateFailed
			res.Elapsed = clock.Now().Sub(start)
			res.Err = err
			log.LogEvent("WAIT", false, msOf(res.Elapsed), fmt.Sprintf("%s 失败: %v", pattern, err))
			return res
		}

		elapsed := clock.Now().Sub(start)
		if elapsed >= timeout {
			res.State = StateTimedOut
			res.Elapsed = elapsed
			res.Err = &cv.TimeoutError{
				Elapsed:   elapsed,
				BestScore: res.BestScore,
				Attempts:  res.Attempts,
				LastErr:   lastErr,
			}
			log.LogEvent("WAIT", false, msOf(elapsed), fmt.Sprintf("%s 超时 best=%.4f", pattern, res.BestScore))
			return res
		}

		if f.opts.PollInterval > 0 {
			clock.Sleep(f.opts.PollInterval)
		}
	}
}

// attempt 截图并匹配一次，截图归本次尝试所有
func (f *Finder) attempt(ctx context.Context, capture captureFunc, pattern *cv.Pattern) (*cv.Match, error) {
	hay, err := capture()
	if err != nil {
		return nil, &captureError{err: err}
	}
	defer hay.Close()
	if hay.Empty() {
		return nil, &captureError{err: cv.ErrEmptyHaystack}
	}
	return f.findBest(ctx, hay, pattern)
}

func msOf(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
