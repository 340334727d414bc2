package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zoeyai/zoeyfinder/internal/logger"
	"github.com/zoeyai/zoeyfinder/pkg/config"
)

// flagOptions 命令行参数，指定时覆盖配置文件
type flagOptions struct {
	ConfigFile string
	Threshold  float64
	Mode       string
	Policy     string
	Workers    int
	LogLevel   string
	LogFile    string

	// 模板相关
	Scale  string
	Mask   string
	Offset string
	Gray   bool
	Name   string

	// Haystack 源图像文件，为空时截取屏幕
	Haystack string
	Region   string
	Grid     string
	// Physical 按物理像素截图，结果再换算回逻辑坐标
	Physical bool
}

var (
	opts       flagOptions
	cfg        *config.FinderConfig
	cfgManager *config.Manager
)

var rootCmd = &cobra.Command{
	Use:          "finddebug",
	Short:        "模板匹配调试工具",
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgManager = config.GetDefaultManager()
		if opts.ConfigFile != "" {
			cfgManager = config.NewManagerWithFile(opts.ConfigFile)
		}

		var err error
		cfg, err = cfgManager.Load()
		if err != nil {
			logger.Warn("加载配置失败，使用默认配置: %v", err)
		}

		// 命令行参数优先级高于配置文件
		applyFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("参数无效: %w", err)
		}

		logger.Default().SetLevel(logger.ParseLevel(cfg.LogLevel))
		if cfg.LogFile != "" {
			if err := logger.Default().SetFile(true, cfg.LogFile); err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Default().Close()
	},
}

// Execute 执行根命令，Ctrl+C 会取消正在进行的等待
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(fmt.Sprintf("finddebug v%s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR]", err)
		os.Exit(1)
	}
}

func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("threshold") {
		cfg.Threshold = opts.Threshold
	}
	if flags.Changed("mode") {
		cfg.Mode = opts.Mode
	}
	if flags.Changed("policy") {
		cfg.ScalePolicy = opts.Policy
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = opts.LogFile
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "配置文件路径 (默认: ~/.zoey-finder/config.json)")
	pf.Float64VarP(&opts.Threshold, "threshold", "t", 0.7, "匹配阈值 (0-1)")
	pf.StringVarP(&opts.Mode, "mode", "m", "ccoeff", "匹配公式: ccoeff / ccorr / sqdiff")
	pf.StringVar(&opts.Policy, "policy", "best", "多尺度策略: best / first")
	pf.IntVarP(&opts.Workers, "workers", "w", 1, "并发计算的尺度数")
	pf.StringVar(&opts.LogLevel, "log-level", "INFO", "日志级别: DEBUG / INFO / WARN / ERROR")
	pf.StringVar(&opts.LogFile, "log-file", "", "日志文件路径")

	pf.StringVar(&opts.Scale, "scale", "", "多尺度范围 min:max:step，例: 0.8:1.2:0.05")
	pf.StringVar(&opts.Mask, "mask", "", "掩码图像路径，非零像素参与匹配")
	pf.StringVar(&opts.Offset, "offset", "", "目标点偏移 dx,dy")
	pf.BoolVar(&opts.Gray, "gray", false, "使用灰度图匹配")
	pf.StringVar(&opts.Name, "name", "", "模板名称")

	pf.StringVarP(&opts.Haystack, "haystack", "i", "", "源图像文件 (默认截取屏幕)")
	pf.StringVarP(&opts.Region, "region", "r", "", "搜索区域 x,y,w,h")
	pf.StringVarP(&opts.Grid, "grid", "g", "", "只搜索区域中的某个格子 rows.cols.row.col，例: 2.2.1.1")
	pf.BoolVar(&opts.Physical, "physical", false, "高 DPI 屏幕按物理像素截图匹配，结果换算回逻辑坐标")
}
