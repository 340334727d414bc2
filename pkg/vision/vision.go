// Package vision 提供基于模板匹配的图像查找功能
//
// 主要功能:
//   - 单次查找: FindBest / FindAll
//   - 轮询等待: Wait / WaitIn / Exists，由 ImageSource 提供截图
//
// 基本用法:
//
//	pattern, err := cv.LoadPattern("button.png", cv.WithThreshold(0.8))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pattern.Close()
//
//	finder := vision.NewFinder(vision.WithTimeout(5 * time.Second))
//	m, err := finder.Wait(ctx, screen.NewSource(), pattern, -1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("找到位置: %s\n", m.Target)
package vision

import (
	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

// Match 匹配结果
type Match = cv.Match

// Region 矩形区域
type Region = cv.Region

// Point 坐标点
type Point = cv.Point
