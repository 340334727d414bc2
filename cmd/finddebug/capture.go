package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zoeyai/zoeyfinder/pkg/auto/screen"
)

var (
	captureOut    string
	captureFormat string
	captureBase64 bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "截取屏幕或区域，保存为文件或输出 data URL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if captureOut == "" && !captureBase64 {
			return fmt.Errorf("需要指定 --out 或 --base64")
		}
		return runCapture()
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "", "保存路径")
	captureCmd.Flags().StringVar(&captureFormat, "format", "png", "data URL 格式: png / jpeg")
	captureCmd.Flags().BoolVar(&captureBase64, "base64", false, "输出 data URL，可直接作为模板参数")
	rootCmd.AddCommand(captureCmd)
}

func runCapture() error {
	w, h := screen.GetScreenSize()
	fmt.Printf("屏幕: %dx%d, 显示器数量: %d\n", w, h, screen.GetDisplayCount())

	img, _, err := loadHaystack()
	if err != nil {
		return err
	}
	defer img.Close()

	if captureOut != "" {
		if err := img.Save(captureOut); err != nil {
			return err
		}
		fmt.Printf("截图 %dx%d 已保存到 %s\n", img.Width(), img.Height(), captureOut)
	}
	if captureBase64 {
		url, err := screen.ToDataURL(img, captureFormat, 0)
		if err != nil {
			return err
		}
		fmt.Println(url)
	}
	return nil
}
