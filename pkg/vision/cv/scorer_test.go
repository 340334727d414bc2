package cv

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreSelfMatch(t *testing.T) {
	img := mustBuffer(t, noiseRGBA(24, 18, 10))

	for _, mode := range []MatchMode{ModeCorrCoeffNormed, ModeCrossCorrNormed, ModeSqDiffNormed} {
		t.Run(mode.String(), func(t *testing.T) {
			sm, err := Score(img, img, nil, mode)
			require.NoError(t, err)
			require.Equal(t, 1, sm.Width)
			require.Equal(t, 1, sm.Height)
			assert.GreaterOrEqual(t, sm.At(0, 0), 0.999)
			assert.Equal(t, mode, sm.Mode)
			t.Logf("自匹配得分 %s: %.6f", mode, sm.At(0, 0))
		})
	}
}

func TestScoreMapDimensionsAndRange(t *testing.T) {
	hay := mustBuffer(t, noiseRGBA(60, 40, 11))
	pat := mustBuffer(t, noiseRGBA(12, 9, 12))

	for _, mode := range []MatchMode{ModeCorrCoeffNormed, ModeCrossCorrNormed, ModeSqDiffNormed} {
		sm, err := Score(hay, pat, nil, mode)
		require.NoError(t, err)
		assert.Equal(t, 60-12+1, sm.Width)
		assert.Equal(t, 40-9+1, sm.Height)
		assert.Len(t, sm.Scores, sm.Width*sm.Height)
		for _, v := range sm.Scores {
			require.GreaterOrEqual(t, v, float32(0))
			require.LessOrEqual(t, v, float32(1))
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	hay := mustBuffer(t, noiseRGBA(50, 50, 13))
	pat := mustBuffer(t, noiseRGBA(10, 10, 14))

	a, err := Score(hay, pat, nil, ModeCorrCoeffNormed)
	require.NoError(t, err)
	b, err := Score(hay, pat, nil, ModeCorrCoeffNormed)
	require.NoError(t, err)
	assert.Equal(t, a.Scores, b.Scores)
}

func TestScorePatternLargerThanHaystack(t *testing.T) {
	hay := mustBuffer(t, noiseRGBA(20, 20, 15))
	pat := mustBuffer(t, noiseRGBA(21, 10, 16))

	_, err := Score(hay, pat, nil, ModeCorrCoeffNormed)
	require.ErrorIs(t, err, ErrPatternLargerThanHaystack)

	var sizeErr *SizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, [2]int{20, 20}, sizeErr.HaystackSize)
	assert.Equal(t, [2]int{21, 10}, sizeErr.PatternSize)
}

func TestScoreEmptyHaystack(t *testing.T) {
	pat := mustBuffer(t, noiseRGBA(4, 4, 17))
	_, err := Score(nil, pat, nil, ModeCorrCoeffNormed)
	assert.ErrorIs(t, err, ErrEmptyHaystack)
}

func TestScoreFlatWindowIsMinimum(t *testing.T) {
	// 左半边纯色，右半边纹理
	canvas := solidRGBA(60, 30, color.RGBA{120, 120, 120, 255})
	paste(canvas, noiseRGBA(30, 30, 18), 30, 0)
	hay := mustBuffer(t, canvas)
	pat := mustBuffer(t, noiseRGBA(8, 8, 19))

	sm, err := Score(hay, pat, nil, ModeCorrCoeffNormed)
	require.NoError(t, err)
	for y := 0; y < sm.Height; y++ {
		for x := 0; x+8 <= 30; x++ {
			require.Equal(t, 0.0, sm.At(x, y), "纯色窗口 (%d,%d) 应为最小得分", x, y)
		}
	}
}

func TestScoreColorVsGray(t *testing.T) {
	canvas := noiseRGBA(40, 40, 20)
	pat := canvas.SubImage(image.Rect(5, 7, 17, 19))

	hay := mustBuffer(t, canvas)
	patBuf := mustBuffer(t, pat)
	grayPat, err := patBuf.ToGray()
	require.NoError(t, err)
	defer grayPat.Close()

	// 单通道模板 + 彩色源图 => 两者都按灰度计算
	sm, err := Score(hay, grayPat, nil, ModeCorrCoeffNormed)
	require.NoError(t, err)
	score, x, y := sm.Max()
	assert.Equal(t, 5, x)
	assert.Equal(t, 7, y)
	assert.GreaterOrEqual(t, score, 0.999)
}

func TestScoreMask(t *testing.T) {
	canvas := noiseRGBA(50, 50, 21)
	hay := mustBuffer(t, canvas)

	// 模板右半部分被破坏，掩码只保留左半部分
	patImg := image.NewRGBA(image.Rect(0, 0, 16, 16))
	paste(patImg, canvas.SubImage(image.Rect(20, 10, 36, 26)), 0, 0)
	paste(patImg, noiseRGBA(8, 16, 22), 8, 0)
	pat := mustBuffer(t, patImg)

	maskImg := solidRGBA(16, 16, color.RGBA{0, 0, 0, 255})
	paste(maskImg, solidRGBA(8, 16, color.RGBA{255, 255, 255, 255}), 0, 0)
	mask := mustBuffer(t, maskImg)

	unmasked, err := Score(hay, pat, nil, ModeCorrCoeffNormed)
	require.NoError(t, err)
	masked, err := Score(hay, pat, mask, ModeCorrCoeffNormed)
	require.NoError(t, err)

	score, x, y := masked.Max()
	assert.Equal(t, 20, x)
	assert.Equal(t, 10, y)
	assert.GreaterOrEqual(t, score, 0.99)
	assert.Less(t, unmasked.At(20, 10), 0.9)
	t.Logf("掩码得分 %.4f, 无掩码得分 %.4f", score, unmasked.At(20, 10))
}

func TestScoreMaskErrors(t *testing.T) {
	hay := mustBuffer(t, noiseRGBA(30, 30, 23))
	pat := mustBuffer(t, noiseRGBA(10, 10, 24))

	wrongSize := mustBuffer(t, solidRGBA(9, 10, color.RGBA{255, 255, 255, 255}))
	_, err := Score(hay, pat, wrongSize, ModeCorrCoeffNormed)
	assert.ErrorIs(t, err, ErrMaskSizeMismatch)

	black := mustBuffer(t, solidRGBA(10, 10, color.RGBA{0, 0, 0, 255}))
	_, err = Score(hay, pat, black, ModeCorrCoeffNormed)
	assert.ErrorIs(t, err, ErrEmptyMask)
}

func TestScorePlainColorPatternFallsBack(t *testing.T) {
	canvas := solidRGBA(100, 100, color.RGBA{50, 50, 50, 255})
	square := solidRGBA(10, 10, color.RGBA{200, 30, 30, 255})
	paste(canvas, square, 20, 20)

	sm, err := Score(mustBuffer(t, canvas), mustBuffer(t, square), nil, ModeCorrCoeffNormed)
	require.NoError(t, err)
	assert.Equal(t, ModeSqDiffNormed, sm.Mode)

	score, x, y := sm.Max()
	assert.Equal(t, 20, x)
	assert.Equal(t, 20, y)
	assert.GreaterOrEqual(t, score, 0.99)
}

func TestScorePlainColorSelfMatch(t *testing.T) {
	colors := map[string]color.RGBA{
		"黑色": {0, 0, 0, 255},
		"白色": {255, 255, 255, 255},
		"灰色": {128, 128, 128, 255},
	}
	for name, c := range colors {
		img := mustBuffer(t, solidRGBA(10, 10, c))
		for _, mode := range []MatchMode{ModeCorrCoeffNormed, ModeCrossCorrNormed, ModeSqDiffNormed} {
			t.Run(name+"/"+mode.String(), func(t *testing.T) {
				sm, err := Score(img, img, nil, mode)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, sm.At(0, 0), 0.999)
			})
		}
	}
}

func TestScorePlainColorMask(t *testing.T) {
	canvas := solidRGBA(60, 40, color.RGBA{255, 255, 255, 255})
	square := solidRGBA(8, 8, color.RGBA{0, 0, 0, 255})
	paste(canvas, square, 30, 12)

	mask := solidRGBA(8, 8, color.RGBA{255, 255, 255, 255})
	paste(mask, solidRGBA(2, 2, color.RGBA{0, 0, 0, 255}), 0, 0)

	sm, err := Score(mustBuffer(t, canvas), mustBuffer(t, square), mustBuffer(t, mask), ModeCorrCoeffNormed)
	require.NoError(t, err)
	score, x, y := sm.Max()
	assert.Equal(t, 30, x)
	assert.Equal(t, 12, y)
	assert.GreaterOrEqual(t, score, 0.99)
}

func TestScorePlainColorTolerance(t *testing.T) {
	white := mustBuffer(t, solidRGBA(60, 40, color.RGBA{255, 255, 255, 255}))

	// 空白背景上不应找到颜色相近的纯色按钮
	lightGray := mustBuffer(t, solidRGBA(10, 10, color.RGBA{220, 220, 220, 255}))
	sm, err := Score(white, lightGray, nil, ModeCorrCoeffNormed)
	require.NoError(t, err)
	score, _, _ := sm.Max()
	assert.Less(t, score, DefaultThreshold)
	assert.InDelta(t, 1-35/PlainColorTolerance, score, 1e-4)

	// 色差很小时仍视为同一颜色
	nearWhite := mustBuffer(t, solidRGBA(10, 10, color.RGBA{250, 250, 250, 255}))
	sm, err = Score(white, nearWhite, nil, ModeCorrCoeffNormed)
	require.NoError(t, err)
	score, _, _ = sm.Max()
	assert.GreaterOrEqual(t, score, DefaultThreshold)

	// 纹理窗口与纯色模板差异大
	noise := mustBuffer(t, noiseRGBA(60, 40, 13))
	sm, err = Score(noise, lightGray, nil, ModeCorrCoeffNormed)
	require.NoError(t, err)
	score, _, _ = sm.Max()
	assert.Less(t, score, DefaultThreshold)
}

func TestPlainSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, plainSimilarity(0))
	assert.Equal(t, 1.0, plainSimilarity(-1e-9), "舍入误差")
	assert.InDelta(t, 0.5, plainSimilarity(32*32), 1e-12)
	assert.Equal(t, 0.0, plainSimilarity(PlainColorTolerance*PlainColorTolerance*4))
}

func TestSimilarity(t *testing.T) {
	flat := 10.0
	assert.Equal(t, 0.0, similarity(ModeCorrCoeffNormed, 5, 100, 5, flat), "窗口能量过低")
	assert.Equal(t, 0.0, similarity(ModeCorrCoeffNormed, 5, 5, 100, flat), "模板能量过低")
	assert.Equal(t, 0.0, similarity(ModeCorrCoeffNormed, -50, 100, 100, flat), "负相关截断为 0")
	assert.InDelta(t, 1.0, similarity(ModeCorrCoeffNormed, 100, 100, 100, flat), 1e-12)
	assert.InDelta(t, 1.0, similarity(ModeSqDiffNormed, 100, 100, 100, flat), 1e-12)
	assert.Equal(t, 0.0, similarity(ModeSqDiffNormed, 0, 100, 400, flat))
}
