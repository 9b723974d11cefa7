package cmd

import (
	"errors"
	"fmt"
	"strings"

	"transfers-client/pkg/errno"

	"github.com/spf13/cobra"
)

var mnemonicCmd = &cobra.Command{
	Use:   "mnemonic",
	Short: "管理会话助记词",
}

var mnemonicNewCmd = &cobra.Command{
	Use:   "new",
	Short: "生成新的 24 词助记词并加密保存",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer c.Close()
		ctx := commandContext(cmd)

		if _, err := c.Keys.Current(ctx); err == nil {
			return errors.New("已存在会话助记词, 请先执行 mnemonic clear")
		} else if !errors.Is(err, errno.ErrMnemonicNotFound) {
			return err
		}

		mnemonic, err := c.Keys.GetOrCreate(ctx)
		if err != nil {
			return err
		}
		pub, err := c.Wallet.PublicKey(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "助记词 (Mnemonic):")
		fmt.Fprintln(out, mnemonic)
		fmt.Fprintln(out, "---------------------------------------------------")
		fmt.Fprintf(out, "公钥 (Public Key): %s\n", pub)
		fmt.Fprintln(out, "余额响应只能用这个助记词解密，请妥善保管！")
		return nil
	},
}

var mnemonicShowCmd = &cobra.Command{
	Use:   "show",
	Short: "显示当前助记词",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setup(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()

		mnemonic, err := c.Keys.Current(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), mnemonic)
		return nil
	},
}

var mnemonicImportCmd = &cobra.Command{
	Use:   "import [words...]",
	Short: "导入助记词, 不带参数时从终端读取",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setup(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()

		phrase := strings.Join(args, " ")
		if phrase == "" {
			if phrase, err = readSecret(cmd, "输入助记词: "); err != nil {
				return err
			}
		}
		if err := c.Wallet.ImportMnemonic(commandContext(cmd), phrase); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "助记词已导入")
		return nil
	},
}

var mnemonicPubKeyCmd = &cobra.Command{
	Use:   "pubkey",
	Short: "显示当前助记词对应的公钥 (uncompressed hex)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setup(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()

		pub, err := c.Wallet.PublicKey(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), pub)
		return nil
	},
}

var mnemonicClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "删除会话助记词",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setup(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Keys.Clear(commandContext(cmd)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "助记词已删除")
		return nil
	},
}

func init() {
	mnemonicCmd.AddCommand(mnemonicNewCmd, mnemonicShowCmd, mnemonicImportCmd, mnemonicPubKeyCmd, mnemonicClearCmd)
	rootCmd.AddCommand(mnemonicCmd)
}
