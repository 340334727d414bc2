package vision

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

var errScreenLocked = errors.New("屏幕已锁定")

func TestWaitTimeoutZeroSingleCycle(t *testing.T) {
	clock := newFakeClock()
	pat := noiseRGBA(16, 16, 10)
	src := &fakeSource{clock: clock, frames: []frame{{img: noiseRGBA(80, 60, 11)}}}
	f := newTestFinder(clock)

	res := f.Poll(context.Background(), src, mustPattern(t, pat), 0)
	assert.Equal(t, StateTimedOut, res.State)
	assert.Equal(t, 1, res.Attempts)
	assert.Len(t, src.captures, 1)
	assert.Empty(t, clock.Sleeps(), "超时为 0 时不应休眠")

	var te *cv.TimeoutError
	require.True(t, errors.As(res.Err, &te))
	assert.ErrorIs(t, res.Err, cv.ErrTimeout)
	assert.Equal(t, 1, te.Attempts)
	assert.Equal(t, res.BestScore, te.BestScore)
	assert.Greater(t, te.BestScore, 0.0)
	assert.Less(t, te.BestScore, cv.DefaultThreshold)
	t.Logf("超时错误: %v", res.Err)
}

func TestWaitFoundAfterAttempts(t *testing.T) {
	clock := newFakeClock()
	pat := noiseRGBA(16, 16, 12)
	blank := solidRGBA(120, 90, color.RGBA{128, 128, 128, 255})
	src := &fakeSource{clock: clock, frames: []frame{
		{img: blank},
		{img: blank},
		{img: scene(120, 90, pat, image.Point{X: 40, Y: 30})},
	}}
	f := newTestFinder(clock, WithPollInterval(200*time.Millisecond))

	res := f.Poll(context.Background(), src, mustPattern(t, pat), 5*time.Second)
	require.Equal(t, StateFound, res.State, "err=%v", res.Err)
	require.NotNil(t, res.Match)
	assert.NoError(t, res.Err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, cv.NewRegion(40, 30, 16, 16), res.Match.Region)
	assert.Equal(t, 400*time.Millisecond, res.Elapsed)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, clock.Sleeps())
}

func TestWaitTimeout(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{clock: clock, frames: []frame{{img: noiseRGBA(80, 60, 13)}}}
	f := newTestFinder(clock, WithTimeout(time.Second), WithPollInterval(200*time.Millisecond))

	m, err := f.Wait(context.Background(), src, mustPattern(t, noiseRGBA(12, 12, 14)), -1)
	assert.Nil(t, m)

	var te *cv.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 6, te.Attempts)
	assert.Equal(t, time.Second, te.Elapsed)
	assert.NoError(t, te.LastErr)
	assert.Len(t, src.captures, 6)
}

func TestWaitCancelled(t *testing.T) {
	t.Run("开始前已取消", func(t *testing.T) {
		clock := newFakeClock()
		src := &fakeSource{clock: clock, frames: []frame{{img: noiseRGBA(40, 40, 15)}}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := newTestFinder(clock).Poll(ctx, src, mustPattern(t, noiseRGBA(8, 8, 16)), time.Second)
		assert.Equal(t, StateCancelled, res.State)
		assert.Equal(t, 0, res.Attempts)
		assert.Empty(t, src.captures)
		assert.ErrorIs(t, res.Err, cv.ErrCancelled)
		assert.ErrorIs(t, res.Err, context.Canceled)
	})

	t.Run("轮询中取消", func(t *testing.T) {
		clock := newFakeClock()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		src := &fakeSource{clock: clock, frames: []frame{{img: noiseRGBA(40, 40, 17)}}}
		src.onCapture = func(n int) {
			if n == 1 {
				cancel()
			}
		}

		_, err := newTestFinder(clock).Wait(ctx, src, mustPattern(t, noiseRGBA(8, 8, 18)), 10*time.Second)
		var ce *cv.CancelledError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, 2, ce.Attempts, "正在进行的尝试应完成后再取消")
		assert.Len(t, src.captures, 2)
	})
}

func TestWaitCaptureFailureAbsorbed(t *testing.T) {
	pat := noiseRGBA(16, 16, 19)

	t.Run("失败后恢复", func(t *testing.T) {
		clock := newFakeClock()
		src := &fakeSource{clock: clock, frames: []frame{
			{err: errScreenLocked},
			{err: errScreenLocked},
			{img: scene(100, 80, pat, image.Point{X: 10, Y: 50})},
		}}
		res := newTestFinder(clock).Poll(context.Background(), src, mustPattern(t, pat), 3*time.Second)
		require.Equal(t, StateFound, res.State)
		assert.Equal(t, 3, res.Attempts)
		assert.Equal(t, cv.NewRegion(10, 50, 16, 16), res.Match.Region)
	})

	t.Run("一直失败", func(t *testing.T) {
		clock := newFakeClock()
		src := &fakeSource{clock: clock, frames: []frame{{err: errScreenLocked}}}
		_, err := newTestFinder(clock, WithTimeout(600*time.Millisecond)).
			Wait(context.Background(), src, mustPattern(t, pat), -1)

		var te *cv.TimeoutError
		require.True(t, errors.As(err, &te))
		assert.ErrorIs(t, te.LastErr, errScreenLocked)
		assert.Equal(t, 0.0, te.BestScore)
		assert.Equal(t, 4, te.Attempts)
	})
}

func TestWaitFailedOnMatchError(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{clock: clock, frames: []frame{{img: noiseRGBA(20, 20, 20)}}}

	res := newTestFinder(clock).Poll(context.Background(), src, mustPattern(t, noiseRGBA(30, 10, 21)), 5*time.Second)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 1, res.Attempts)
	assert.ErrorIs(t, res.Err, cv.ErrPatternLargerThanHaystack)
	assert.Empty(t, clock.Sleeps())

	res = newTestFinder(clock).Poll(context.Background(), src, nil, time.Second)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 0, res.Attempts)
}

func TestWaitMinCaptureInterval(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{clock: clock, frames: []frame{{img: noiseRGBA(60, 60, 22)}}}
	f := newTestFinder(clock,
		WithPollInterval(0),
		WithMinCaptureInterval(50*time.Millisecond),
		WithTimeout(120*time.Millisecond))

	res := f.Poll(context.Background(), src, mustPattern(t, noiseRGBA(10, 10, 23)), -1)
	assert.Equal(t, StateTimedOut, res.State)
	require.Len(t, src.captures, 4)
	for i := 1; i < len(src.captures); i++ {
		gap := src.captures[i].Sub(src.captures[i-1])
		assert.InDelta(t, float64(50*time.Millisecond), float64(gap), float64(time.Microsecond),
			"两次截图间隔应为 50ms, 实际 %v", gap)
	}
}

func TestWaitIn(t *testing.T) {
	clock := newFakeClock()
	pat := noiseRGBA(16, 16, 24)
	// 区域外放一个干扰副本
	src := &fakeSource{clock: clock, frames: []frame{
		{img: scene(200, 150, pat, image.Point{X: 120, Y: 80}, image.Point{X: 5, Y: 5})},
	}}
	region := cv.NewRegion(100, 60, 80, 80)

	m, err := newTestFinder(clock).WaitIn(context.Background(), src, region, mustPattern(t, pat, cv.WithTargetOffset(2, -3)), 0)
	require.NoError(t, err)
	assert.Equal(t, cv.NewRegion(120, 80, 16, 16), m.Region)
	assert.Equal(t, cv.Point{X: 130, Y: 85}, m.Target)
	assert.Equal(t, []cv.Region{region}, src.regions)
}

func TestExists(t *testing.T) {
	pat := noiseRGBA(16, 16, 25)

	clock := newFakeClock()
	present := &fakeSource{clock: clock, frames: []frame{{img: scene(90, 90, pat, image.Point{X: 30, Y: 30})}}}
	assert.True(t, newTestFinder(clock).Exists(context.Background(), present, mustPattern(t, pat), 0))

	absent := &fakeSource{clock: clock, frames: []frame{{img: noiseRGBA(90, 90, 26)}}}
	assert.False(t, newTestFinder(clock).Exists(context.Background(), absent, mustPattern(t, pat), 0))
	assert.Len(t, absent.captures, 1)
	assert.Empty(t, clock.Sleeps())

	broken := &fakeSource{clock: clock, frames: []frame{{err: errScreenLocked}}}
	assert.False(t, newTestFinder(clock).Exists(context.Background(), broken, mustPattern(t, pat), 0))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "found", StateFound.String())
	assert.Equal(t, "timed_out", StateTimedOut.String())
	assert.Equal(t, "State(42)", State(42).String())
}
