// Package cv 提供模板匹配引擎的底层实现
//
// 包含以下组件:
//   - ImageBuffer: 独占所有权的像素缓冲（裁剪、缩放、灰度化、深拷贝）
//   - Pattern: 参考图像 + 阈值 + 掩码 + 目标偏移 + 匹配模式 + 缩放范围
//   - Score: 计算得分图（归一化相关系数 / 归一化互相关 / 归一化平方差）
//   - PlanScales: 多尺度搜索的尺度序列
//   - SelectBest / SelectAll: 最佳匹配与非极大值抑制
//
// 基本用法:
//
//	screen, err := cv.ReadImage("screen.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer screen.Close()
//
//	pattern, err := cv.LoadPattern("button.png", cv.WithThreshold(0.9))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pattern.Close()
//
//	sc, err := cv.NewSearchContext(screen, pattern)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m, err := sc.Best(context.Background(), cv.SearchOptions{})
//	fmt.Printf("找到位置: (%d, %d) 置信度 %.3f\n", m.Target.X, m.Target.Y, m.Score)
package cv
