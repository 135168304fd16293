package cmd

import (
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 DeckCast 服务",
	Long:  `启动事件接入 HTTP 端口和 WebSocket 推送端口`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
