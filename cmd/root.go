package cmd

import (
	"fmt"
	"os"

	"DeckCast/config"
	"DeckCast/logger"
	"DeckCast/server"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "deckcast",
	Short: "DeckCast relays Traktor deck state to stream overlays.",
	Long: `DeckCast 接收 Traktor 推送的 deck / 通道 / 主时钟事件，
维护当前混音状态，并通过 WebSocket 实时推送 now playing 给 OBS overlay。`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径 (toml/yaml/json)")
}

// loadConfig 读取配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.InitLogger(cfg.LoggerConfig())
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	return server.Start(cfg)
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
