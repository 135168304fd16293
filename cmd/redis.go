package cmd

import (
	"context"
	"errors"
	"fmt"

	"DeckCast/cache"
	"DeckCast/model"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis 镜像连接测试",
	Long:  `测试 Redis 连接并进行基本读写，同时显示最近一次镜像的 now playing 快照。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		ctx := context.Background()

		fmt.Fprintf(out, "Redis配置: %s, DB: %d, 前缀: %s\n", cfg.RedisAddr(), cfg.Redis.DB, cfg.Redis.KeyPrefix)
		if !cfg.Redis.Enabled {
			fmt.Fprintln(out, "提示: redis.enabled 为 false，服务运行时不会写入镜像")
		}

		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		fmt.Fprintln(out, "Redis连接成功！")

		if err := cache.Check(ctx, rdb, cfg.Redis.KeyPrefix); err != nil {
			return fmt.Errorf("Redis操作测试失败: %w", err)
		}
		fmt.Fprintln(out, "Redis基本读写测试成功！")

		mirror := cache.NewNowPlayingCache(rdb, cfg.Redis.KeyPrefix, cfg.Redis.SnapshotTTL, nil)
		defer mirror.Close()
		snapshot, err := mirror.Latest(ctx, model.TopicNowPlaying)
		switch {
		case err == nil:
			fmt.Fprintf(out, "最近快照: %s\n", snapshot)
		case errors.Is(err, cache.ErrNoSnapshot):
			fmt.Fprintln(out, "暂无镜像快照")
		default:
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
