package screen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/jpeg"
	"image/png"

	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

// ToDataURL 将图像转换为 Base64 data URL，可直接作为 cv.LoadPattern 的输入
// format: "png" 或 "jpeg"，默认 "png"（无损，适合作为模板）
// quality: JPEG 质量 1-100，默认 80
func ToDataURL(buf *cv.ImageBuffer, format string, quality int) (string, error) {
	if buf.Empty() {
		return "", fmt.Errorf("图像为空")
	}
	img, err := buf.ToImage()
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	var mimeType string

	if format == "" {
		format = "png"
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	switch format {
	case "png":
		if err := png.Encode(&out, img); err != nil {
			return "", fmt.Errorf("PNG 编码失败: %w", err)
		}
		mimeType = "image/png"
	case "jpeg", "jpg":
		if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", fmt.Errorf("JPEG 编码失败: %w", err)
		}
		mimeType = "image/jpeg"
	default:
		return "", fmt.Errorf("不支持的图像格式: %s", format)
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(out.Bytes())), nil
}
