package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/xiannn/fitlog/internal"
)

var (
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "fitlog",
	Short: "Fitlog - 健身记录与行情观察面板",
	Long:  ``,
	RunE: func(cmd *cobra.Command, args []string) error {
		return internal.Run(configFile)
	},
}

func init() {
	// 全局配置文件标志
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "配置文件路径")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
