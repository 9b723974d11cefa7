package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "读取加密余额",
}

var balanceRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "提交 query_request 并等待 store_balance 事件",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connected(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		fmt.Fprintln(cmd.ErrOrStderr(), "已提交请求, 等待合约响应...")
		bal, err := c.Wallet.RequestBalance(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), bal.String())
		return nil
	},
}

var balanceQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "通过 get_balance 直接读取已存储的加密余额",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connected(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		bal, err := c.Wallet.Refresh(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), bal.String())
		return nil
	},
}

func init() {
	balanceCmd.AddCommand(balanceRequestCmd, balanceQueryCmd)
	rootCmd.AddCommand(balanceCmd)
}
