package main

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeyfinder/pkg/auto/grid"
	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

var (
	annotatePath string
	maxMatches   int
	overlap      float64
	perCell      string
)

var allCmd = &cobra.Command{
	Use:   "all <pattern>",
	Short: "查找全部匹配（非极大值抑制后）",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("max") {
			cfg.MaxMatches = maxMatches
		}
		if cmd.Flags().Changed("overlap") {
			cfg.Overlap = overlap
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runAll(args[0])
	},
}

func init() {
	allCmd.Flags().StringVarP(&annotatePath, "annotate", "a", "", "将匹配框绘制到源图像并保存到此路径")
	allCmd.Flags().IntVar(&maxMatches, "max", 0, "最多返回数量，0 表示不限制")
	allCmd.Flags().Float64Var(&overlap, "overlap", cv.DefaultOverlap, "非极大值抑制的重叠比例")
	allCmd.Flags().StringVar(&perCell, "per-cell", "", "按网格 rows,cols 统计每个格子内的匹配数")
	rootCmd.AddCommand(allCmd)
}

func runAll(patternPath string) error {
	pattern, err := loadPattern(patternPath)
	if err != nil {
		return err
	}
	defer pattern.Close()

	hay, src, err := loadHaystack()
	if err != nil {
		return err
	}
	defer hay.Close()

	finder, err := newFinder()
	if err != nil {
		return err
	}

	matches, err := finder.FindAll(hay, pattern)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("未找到匹配")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\t区域\t目标\t得分\t尺度")
	meta := src.meta()
	found := make([]cv.Match, len(matches))
	for i, m := range matches {
		found[i] = meta.AdjustMatch(m)
	}
	for i, m := range found {
		fmt.Fprintf(w, "%d\t%s\t(%d,%d)\t%.4f\t%.3f\n",
			i+1, m.Region, m.Target.X, m.Target.Y, m.Score, m.Scale)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if perCell != "" {
		bounds := meta.AdjustRegion(hay.Bounds())
		if err := printCellCounts(bounds, found); err != nil {
			return err
		}
	}

	if annotatePath != "" {
		if err := annotate(hay, matches, annotatePath); err != nil {
			return err
		}
		fmt.Printf("标注图像已保存到 %s\n", annotatePath)
	}
	return nil
}

// printCellCounts 统计每个格子内目标点的数量，坐标均为屏幕坐标
func printCellCounts(bounds cv.Region, matches []cv.Match) error {
	v, err := parseInts(perCell, 2)
	if err != nil {
		return fmt.Errorf("per-cell 格式错误: %w", err)
	}

	it := grid.NewIterator(bounds, v[0], v[1])
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "格子\t区域\t匹配数")
	for {
		pos, cell, ok := it.Next()
		if !ok {
			break
		}
		n := 0
		for _, m := range matches {
			t := m.Target
			if cell.Contains(cv.NewRegion(t.X, t.Y, 1, 1)) {
				n++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", pos, cell, n)
	}
	return w.Flush()
}

// annotate 在源图像副本上绘制匹配框和目标点
func annotate(hay *cv.ImageBuffer, matches []cv.Match, path string) error {
	out := hay.Clone()
	defer out.Close()

	mat := out.Mat()
	box := color.RGBA{R: 0, G: 255, B: 0, A: 0}
	dot := color.RGBA{R: 255, G: 0, B: 0, A: 0}
	for _, m := range matches {
		gocv.Rectangle(&mat, m.Region.Rect(), box, 2)
		gocv.Circle(&mat, image.Point{X: m.Target.X, Y: m.Target.Y}, 3, dot, -1)
	}
	return out.Save(path)
}
