package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "查看或保存查找配置",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "显示生效的配置（配置文件 + 命令行参数）",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("配置文件位置: %s (存在: %v)\n", cfgManager.GetConfigFile(), cfgManager.Exists())
		fmt.Println(string(data))
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "将生效的配置保存到配置文件",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfgManager.Save(cfg); err != nil {
			return fmt.Errorf("保存配置失败: %w", err)
		}
		fmt.Printf("配置已保存到 %s\n", cfgManager.GetConfigFile())
		return nil
	},
}

var configClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "删除配置文件",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfgManager.Clear(); err != nil {
			return fmt.Errorf("清除配置失败: %w", err)
		}
		fmt.Println("配置已清除")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSaveCmd, configClearCmd)
	rootCmd.AddCommand(configCmd)
}
