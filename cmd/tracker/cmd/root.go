package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tx-tracker/pkg/config"
	"tx-tracker/pkg/logger"
)

var cfgFile string

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "链上交易追踪工具",
	Long: `记录已提交的交易 Hash，轮询回执确认状态 (pending / success / failed)，
并通过 Redis Streams 或 Kafka 在多个运行实例之间同步变更。`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Init(cfgFile)
		logger.Init(config.Global.App.Env, config.Global.App.LogLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件 (默认 ./config.yaml)")
}
