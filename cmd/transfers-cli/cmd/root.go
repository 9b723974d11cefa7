package cmd

import (
	"context"
	"fmt"
	"os"

	"transfers-client/internal/bootstrap"
	"transfers-client/pkg/config"
	"transfers-client/pkg/errno"
	"transfers-client/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configFile string
	account    string
	verbose    bool
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "transfers-cli",
	Short: "加密余额合约命令行客户端",
	Long: `transfers-cli 管理会话助记词, 并与加密转账合约交互:
存入、加密转账、提取, 以及通过 query_request / store_balance 事件读取加密余额。`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code, msg := errno.Decode(err)
		fmt.Fprintf(os.Stderr, "错误 [%d]: %s\n", code, msg)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件 (默认 ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&account, "account", "a", "", "账户地址, 为空时使用 chain.from 对应的 keyring 地址")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出日志")
}

// setup loads config, prompts for the storage passphrase when needed and
// builds the container.
func setup(cmd *cobra.Command, confirm bool) (*bootstrap.Container, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		logger.Init(cfg.App.Env)
	}
	// 每次调用都是一次性会话, 不需要连接后的自动刷新
	cfg.Balance.RefreshOnConnect = false

	if cfg.Storage.Backend != "memory" && cfg.Storage.Passphrase == "" {
		pass, err := readPassphrase(cmd, confirm)
		if err != nil {
			return nil, err
		}
		cfg.Storage.Passphrase = pass
	}
	return bootstrap.New(commandContext(cmd), cfg)
}

// connected is setup plus Connect, for commands that act as an account.
func connected(cmd *cobra.Command) (*bootstrap.Container, error) {
	c, err := setup(cmd, false)
	if err != nil {
		return nil, err
	}
	addr, err := c.Wallet.Connect(commandContext(cmd), account)
	if err != nil {
		c.Close()
		return nil, err
	}
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "账户: %s\n", addr)
	}
	return c, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
