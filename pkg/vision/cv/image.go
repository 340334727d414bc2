package cv

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Interpolation 缩放插值策略
type Interpolation int

const (
	InterpolationNearest Interpolation = iota
	InterpolationLinear
	InterpolationCubic
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationNearest:
		return "nearest"
	case InterpolationLinear:
		return "linear"
	case InterpolationCubic:
		return "cubic"
	default:
		return "unknown"
	}
}

func (i Interpolation) flag() gocv.InterpolationFlags {
	switch i {
	case InterpolationNearest:
		return gocv.InterpolationNearestNeighbor
	case InterpolationCubic:
		return gocv.InterpolationCubic
	default:
		return gocv.InterpolationLinear
	}
}

// ImageBuffer 独占所有权的像素缓冲
// 彩色图统一为 BGR 三通道，灰度图为单通道。
// 构造后不可修改；Clone 为显式深拷贝，Close 释放底层内存。
type ImageBuffer struct {
	mat    gocv.Mat
	closed bool
}

// NewImageBuffer 接管 mat 的所有权
// 四通道图像会转换为 BGR，空 Mat 返回 ErrEmptyImage。
func NewImageBuffer(mat gocv.Mat) (*ImageBuffer, error) {
	if mat.Empty() || mat.Rows() <= 0 || mat.Cols() <= 0 {
		mat.Close()
		return nil, ErrEmptyImage
	}
	if mat.Channels() == 4 {
		bgr := gocv.NewMat()
		gocv.CvtColor(mat, &bgr, gocv.ColorBGRAToBGR)
		mat.Close()
		mat = bgr
	}
	return &ImageBuffer{mat: mat}, nil
}

// ReadImage 读取图像文件
func ReadImage(filename string) (*ImageBuffer, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrImageNotFound, filename)
		}
		return nil, fmt.Errorf("无法读取图像 %s: %w", filename, err)
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return img, nil
}

// DecodeImage 从内存解码图像
// 先用 OpenCV 解码，失败时回退到 Go 标准解码器（含 bmp/tiff/webp）。
func DecodeImage(data []byte) (*ImageBuffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: 数据为空", ErrDecodeFailure)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil {
		if !mat.Empty() {
			return NewImageBuffer(mat)
		}
		mat.Close()
	}

	img, _, decErr := image.Decode(bytes.NewReader(data))
	if decErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, decErr)
	}
	return FromImage(img)
}

// FromImage 将 image.Image 转换为 ImageBuffer
func FromImage(img image.Image) (*ImageBuffer, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	src, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return nil, fmt.Errorf("图像转换失败: %w", err)
	}
	defer src.Close()

	// 转换为 BGR（OpenCV 默认格式）
	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, gocv.ColorRGBAToBGR)
	return NewImageBuffer(dst)
}

// Width 宽度
func (b *ImageBuffer) Width() int { return b.mat.Cols() }

// Height 高度
func (b *ImageBuffer) Height() int { return b.mat.Rows() }

// Channels 通道数（1 或 3）
func (b *ImageBuffer) Channels() int { return b.mat.Channels() }

// Empty 缓冲为 nil、已释放或尺寸为 0
func (b *ImageBuffer) Empty() bool {
	return b == nil || b.closed || b.mat.Empty() || b.mat.Rows() <= 0 || b.mat.Cols() <= 0
}

// Bounds 返回覆盖整幅图像的区域
func (b *ImageBuffer) Bounds() Region {
	return Region{Width: b.Width(), Height: b.Height()}
}

// Mat 返回底层 Mat，调用方只能读取，不能关闭或修改
func (b *ImageBuffer) Mat() gocv.Mat { return b.mat }

// Crop 裁剪出 r 区域，r 必须完全位于图像内
func (b *ImageBuffer) Crop(r Region) (*ImageBuffer, error) {
	if b.Empty() {
		return nil, ErrEmptyImage
	}
	if r.Empty() || !b.Bounds().Contains(r) {
		return nil, fmt.Errorf("%w: %s 不在 %dx%d 内", ErrRegionOutOfBounds, r, b.Width(), b.Height())
	}
	region := b.mat.Region(r.Rect())
	defer region.Close()
	return &ImageBuffer{mat: region.Clone()}, nil
}

// Resize 按指定插值策略缩放到 width x height
func (b *ImageBuffer) Resize(width, height int, interp Interpolation) (*ImageBuffer, error) {
	if b.Empty() {
		return nil, ErrEmptyImage
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if width == b.Width() && height == b.Height() {
		return b.Clone(), nil
	}
	dst := gocv.NewMat()
	gocv.Resize(b.mat, &dst, image.Point{X: width, Y: height}, 0, 0, interp.flag())
	return NewImageBuffer(dst)
}

// ToGray 转换为单通道灰度图
func (b *ImageBuffer) ToGray() (*ImageBuffer, error) {
	if b.Empty() {
		return nil, ErrEmptyImage
	}
	if b.Channels() == 1 {
		return b.Clone(), nil
	}
	dst := gocv.NewMat()
	gocv.CvtColor(b.mat, &dst, gocv.ColorBGRToGray)
	return NewImageBuffer(dst)
}

// Clone 深拷贝
func (b *ImageBuffer) Clone() *ImageBuffer {
	if b.Empty() {
		return nil
	}
	return &ImageBuffer{mat: b.mat.Clone()}
}

// Close 释放底层内存，可重复调用
func (b *ImageBuffer) Close() error {
	if b == nil || b.closed {
		return nil
	}
	b.closed = true
	return b.mat.Close()
}

// ToImage 转换为 image.Image
func (b *ImageBuffer) ToImage() (image.Image, error) {
	if b.Empty() {
		return nil, ErrEmptyImage
	}
	img, err := b.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("Mat 转换失败: %w", err)
	}
	return img, nil
}

// Save 保存为图像文件
func (b *ImageBuffer) Save(filename string) error {
	if b.Empty() {
		return ErrEmptyImage
	}
	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	if ok := gocv.IMWrite(filename, b.mat); !ok {
		return fmt.Errorf("保存图像失败: %s", filename)
	}
	return nil
}
