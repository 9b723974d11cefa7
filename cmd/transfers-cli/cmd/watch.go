package cmd

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"transfers-client/internal/bootstrap"
	"transfers-client/internal/service/mq"
	"transfers-client/pkg/config"
	"transfers-client/pkg/database"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "订阅消息队列中的余额结果 (需要 redis.mq_type)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var rdb *redis.Client
		if cfg.Redis.MQType == "redis" {
			if rdb, err = database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
				return err
			}
			defer rdb.Close()
		}
		consumer, err := bootstrap.NewConsumer(cfg, rdb)
		if err != nil {
			return err
		}
		defer consumer.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		fmt.Fprintf(cmd.ErrOrStderr(), "监听 %s ...\n", cfg.Notify.Topic)
		return consumer.Subscribe(ctx, cfg.Notify.Topic, func(msg *mq.Message) error {
			o, err := mq.DecodeOutcome(msg)
			if err != nil {
				// 格式错误的消息重试也没有意义
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return nil
			}
			if account != "" && o.Account != account {
				return nil
			}
			return enc.Encode(o)
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
