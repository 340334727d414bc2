package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	waitTimeoutMs int
	existsOnly    bool
)

var waitCmd = &cobra.Command{
	Use:   "wait <pattern>",
	Short: "轮询截图直到模板出现或超时",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout := time.Duration(-1)
		if cmd.Flags().Changed("timeout") {
			timeout = time.Duration(waitTimeoutMs) * time.Millisecond
		}
		return runWait(cmd.Context(), args[0], timeout)
	},
}

func init() {
	waitCmd.Flags().IntVar(&waitTimeoutMs, "timeout", 3000, "超时时间（毫秒），0 表示只尝试一次")
	waitCmd.Flags().BoolVar(&existsOnly, "exists", false, "只尝试一次并输出 true/false")
	rootCmd.AddCommand(waitCmd)
}

func runWait(ctx context.Context, patternPath string, timeout time.Duration) error {
	pattern, err := loadPattern(patternPath)
	if err != nil {
		return err
	}
	defer pattern.Close()

	src, err := openSource()
	if err != nil {
		return err
	}
	finder, err := newFinder()
	if err != nil {
		return err
	}

	// 指定了 --region / --grid 时只在该区域内判断
	if existsOnly {
		fmt.Println(finder.Exists(ctx, src, pattern, 0))
		return nil
	}

	res := finder.Poll(ctx, src, pattern, timeout)
	fmt.Printf("状态:   %s (尝试 %d 次, 耗时 %v, 最高得分 %.4f)\n",
		res.State, res.Attempts, res.Elapsed.Round(time.Millisecond), res.BestScore)
	if res.Err != nil {
		return res.Err
	}

	m := src.toScreen(*res.Match)
	fmt.Printf("区域:   %s\n", m.Region)
	fmt.Printf("目标:   (%d, %d)\n", m.Target.X, m.Target.Y)
	fmt.Printf("得分:   %.4f\n", m.Score)
	return nil
}
