package cv

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// solidRGBA 纯色图
func solidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// noiseRGBA 固定种子的随机纹理图
func noiseRGBA(w, h int, seed uint64) *image.RGBA {
	r := rand.New(rand.NewPCG(seed, seed*31+7))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(r.IntN(256))
		img.Pix[i+1] = uint8(r.IntN(256))
		img.Pix[i+2] = uint8(r.IntN(256))
		img.Pix[i+3] = 255
	}
	return img
}

// paste 将 src 贴到 dst 的 (x, y)
func paste(dst *image.RGBA, src image.Image, x, y int) {
	b := src.Bounds()
	draw.Draw(dst, image.Rect(x, y, x+b.Dx(), y+b.Dy()), src, b.Min, draw.Src)
}

// mustBuffer 转换为 ImageBuffer，并在测试结束时释放
func mustBuffer(t *testing.T, img image.Image) *ImageBuffer {
	t.Helper()
	buf, err := FromImage(img)
	require.NoError(t, err)
	t.Cleanup(func() { buf.Close() })
	return buf
}

// mustPattern 创建模板
func mustPattern(t *testing.T, img image.Image, opts ...PatternOption) *Pattern {
	t.Helper()
	p, err := NewPattern(mustBuffer(t, img), opts...)
	require.NoError(t, err)
	return p
}
