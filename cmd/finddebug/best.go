package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zoeyai/zoeyfinder/pkg/vision/cv"
)

var bestCmd = &cobra.Command{
	Use:   "best <pattern>",
	Short: "查找得分最高的匹配",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBest(args[0])
	},
}

func init() {
	rootCmd.AddCommand(bestCmd)
}

func runBest(patternPath string) error {
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

	m, err := finder.FindBest(hay, pattern)
	var nf *cv.NotFoundError
	if errors.As(err, &nf) {
		fmt.Printf("未找到: 最高得分 %.4f < 阈值 %.4f\n", nf.BestScore, nf.Threshold)
		return err
	}
	if err != nil {
		return err
	}

	found := src.toScreen(*m)
	fmt.Printf("区域:   %s\n", found.Region)
	fmt.Printf("目标:   (%d, %d)\n", found.Target.X, found.Target.Y)
	fmt.Printf("得分:   %.4f\n", found.Score)
	fmt.Printf("尺度:   %.3f\n", found.Scale)
	fmt.Printf("模板:   %s\n", found.PatternID)
	return nil
}
