package cv

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.png")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, noiseRGBA(40, 30, 1)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	img, err := ReadImage(path)
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, 40, img.Width())
	assert.Equal(t, 30, img.Height())
	assert.Equal(t, 3, img.Channels())
	t.Logf("读取成功: %dx%d 通道=%d", img.Width(), img.Height(), img.Channels())
}

func TestReadImageErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadImage(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, ErrImageNotFound)

	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0644))
	_, err = ReadImage(garbage)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestDecodeImage(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"空数据", nil, ErrDecodeFailure},
		{"非图像数据", []byte{0x01, 0x02, 0x03, 0x04}, ErrDecodeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeImage(tt.data)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidRGBA(8, 6, color.RGBA{10, 20, 30, 255})))
	img, err := DecodeImage(buf.Bytes())
	require.NoError(t, err)
	defer img.Close()
	assert.Equal(t, Region{Width: 8, Height: 6}, img.Bounds())
}

func TestFromImageEmpty(t *testing.T) {
	_, err := FromImage(solidRGBA(0, 0, color.RGBA{}))
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestCrop(t *testing.T) {
	src := mustBuffer(t, noiseRGBA(50, 40, 2))

	crop, err := src.Crop(NewRegion(10, 5, 20, 15))
	require.NoError(t, err)
	defer crop.Close()
	assert.Equal(t, 20, crop.Width())
	assert.Equal(t, 15, crop.Height())

	// 裁剪结果与源图对应位置完全一致
	sm, err := Score(src, crop, nil, ModeCorrCoeffNormed)
	require.NoError(t, err)
	score, x, y := sm.Max()
	assert.Equal(t, 10, x)
	assert.Equal(t, 5, y)
	assert.GreaterOrEqual(t, score, 0.999)

	for _, r := range []Region{
		NewRegion(-1, 0, 10, 10),
		NewRegion(45, 0, 10, 10),
		NewRegion(0, 35, 10, 10),
		NewRegion(0, 0, 0, 10),
	} {
		_, err := src.Crop(r)
		assert.ErrorIs(t, err, ErrRegionOutOfBounds, "region %s", r)
	}
}

func TestResize(t *testing.T) {
	src := mustBuffer(t, noiseRGBA(20, 10, 3))

	for _, interp := range []Interpolation{InterpolationNearest, InterpolationLinear, InterpolationCubic} {
		t.Run(interp.String(), func(t *testing.T) {
			dst, err := src.Resize(40, 25, interp)
			require.NoError(t, err)
			defer dst.Close()
			assert.Equal(t, 40, dst.Width())
			assert.Equal(t, 25, dst.Height())
			assert.Equal(t, src.Channels(), dst.Channels())
		})
	}

	_, err := src.Resize(0, 10, InterpolationLinear)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestToGrayAndClone(t *testing.T) {
	src := mustBuffer(t, noiseRGBA(16, 16, 4))

	gray, err := src.ToGray()
	require.NoError(t, err)
	defer gray.Close()
	assert.Equal(t, 1, gray.Channels())
	assert.Equal(t, src.Bounds(), gray.Bounds())

	again, err := gray.ToGray()
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, 1, again.Channels())

	// 深拷贝在源释放后依然有效
	tmp, err := FromImage(noiseRGBA(12, 9, 5))
	require.NoError(t, err)
	clone := tmp.Clone()
	defer clone.Close()
	require.NoError(t, tmp.Close())
	assert.False(t, clone.Empty())
	assert.Equal(t, 12, clone.Width())
}

func TestImageBufferSave(t *testing.T) {
	src := mustBuffer(t, noiseRGBA(10, 10, 6))
	path := filepath.Join(t.TempDir(), "out", "saved.png")
	require.NoError(t, src.Save(path))

	img, err := ReadImage(path)
	require.NoError(t, err)
	defer img.Close()
	assert.Equal(t, src.Bounds(), img.Bounds())
}
