package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const minPassphraseLen = 6

// stdin is shared so piped input can carry several lines (passphrase, then
// mnemonic) without one reader buffering away the next.
var stdin *bufio.Reader

// readPassphrase 从终端读取存储口令, 非终端时从 stdin 读一行
func readPassphrase(cmd *cobra.Command, confirm bool) (string, error) {
	pass, err := readSecret(cmd, "输入存储口令: ")
	if err != nil {
		return "", err
	}
	if !confirm {
		return pass, nil
	}

	if len(pass) < minPassphraseLen {
		return "", fmt.Errorf("口令长度至少需要 %d 位", minPassphraseLen)
	}
	again, err := readSecret(cmd, "确认口令: ")
	if err != nil {
		return "", err
	}
	if pass != again {
		return "", errors.New("两次输入的口令不一致")
	}
	return pass, nil
}

func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		if stdin == nil {
			stdin = bufio.NewReader(cmd.InOrStdin())
		}
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("读取口令失败: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("读取口令失败: %w", err)
	}
	return string(b), nil
}
