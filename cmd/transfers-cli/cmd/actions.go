package cmd

import (
	"fmt"

	"transfers-client/internal/chain"

	"github.com/spf13/cobra"
)

var depositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "存入 amount (最小单位) 到合约",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connected(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		receipt, err := c.Wallet.Deposit(commandContext(cmd), args[0])
		return printReceipt(cmd, receipt, err)
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "提取合约内全部余额",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connected(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		receipt, err := c.Wallet.Withdraw(commandContext(cmd))
		return printReceipt(cmd, receipt, err)
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <receiver> <amount>",
	Short: "加密转账给 receiver",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connected(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		receipt, err := c.Wallet.Transfer(commandContext(cmd), args[0], args[1])
		return printReceipt(cmd, receipt, err)
	},
}

func printReceipt(cmd *cobra.Command, receipt *chain.Receipt, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "交易已上链: %s (height %d)\n", receipt.TxHash, receipt.Height)
	return nil
}

func init() {
	rootCmd.AddCommand(depositCmd, withdrawCmd, transferCmd)
}
