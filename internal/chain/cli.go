package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"transfers-client/pkg/errno"
	"transfers-client/pkg/logger"

	"go.uber.org/zap"
)

// Runner runs a command and returns its stdout. Stderr is folded into the
// error on failure.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs real processes.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

// CLIOptions configures the chain binary invocation.
type CLIOptions struct {
	Binary         string // wasmd, neutrond
	Node           string
	ChainID        string
	From           string // key name or address in the keyring
	KeyringBackend string
	GasPrices      string
	GasAdjustment  float64
}

// CLIExecutor signs and broadcasts through the chain CLI, letting the
// node's keyring hold the signing key.
type CLIExecutor struct {
	opts CLIOptions
	run  Runner
	log  *zap.Logger
}

func NewCLIExecutor(opts CLIOptions, run Runner, log *zap.Logger) *CLIExecutor {
	if run == nil {
		run = ExecRunner
	}
	if log == nil {
		log = logger.Named("cli-executor")
	}
	if opts.GasAdjustment == 0 {
		opts.GasAdjustment = 1.3
	}
	return &CLIExecutor{opts: opts, run: run, log: log}
}

// ExecuteContract runs `tx wasm execute` and fails when the process fails
// or the node rejects the transaction (code != 0). sender must be a keyring
// entry (name or address); empty means the configured key.
func (e *CLIExecutor) ExecuteContract(ctx context.Context, sender, contract string, msg json.Marshaler, funds Coins) (*Receipt, error) {
	if sender == "" {
		sender = e.opts.From
	}

	body, err := msg.MarshalJSON()
	if err != nil {
		return nil, errno.Wrap(errno.ErrSubmissionFailed, err)
	}

	args := []string{"tx", "wasm", "execute", contract, string(body)}
	if len(funds) > 0 {
		args = append(args, "--amount", funds.String())
	}
	args = append(args,
		"--from", sender,
		"--chain-id", e.opts.ChainID,
		"--node", e.opts.Node,
		"--gas", "auto",
		"--gas-adjustment", strconv.FormatFloat(e.opts.GasAdjustment, 'f', -1, 64),
	)
	if e.opts.GasPrices != "" {
		args = append(args, "--gas-prices", e.opts.GasPrices)
	}
	if e.opts.KeyringBackend != "" {
		args = append(args, "--keyring-backend", e.opts.KeyringBackend)
	}
	args = append(args, "-y", "--output", "json")

	out, err := e.run(ctx, e.opts.Binary, args...)
	if err != nil {
		return nil, errno.Wrap(errno.ErrSubmissionFailed, err)
	}

	var receipt Receipt
	if err := json.Unmarshal(lastJSONLine(out), &receipt); err != nil {
		return nil, errno.Wrap(errno.ErrSubmissionFailed, fmt.Errorf("decode tx output: %w", err))
	}
	if receipt.Code != 0 {
		return &receipt, errno.Wrap(errno.ErrSubmissionFailed, fmt.Errorf("tx %s failed with code %d: %s", receipt.TxHash, receipt.Code, receipt.RawLog))
	}

	e.log.Info("contract executed",
		zap.String("contract", contract),
		zap.String("sender", sender),
		zap.String("tx_hash", receipt.TxHash),
		zap.String("funds", funds.String()),
	)
	return &receipt, nil
}

// KeyAddress resolves a keyring entry to its bech32 address.
func (e *CLIExecutor) KeyAddress(ctx context.Context, name string) (string, error) {
	args := []string{"keys", "show", name, "-a"}
	if e.opts.KeyringBackend != "" {
		args = append(args, "--keyring-backend", e.opts.KeyringBackend)
	}
	out, err := e.run(ctx, e.opts.Binary, args...)
	if err != nil {
		return "", err
	}
	addr := strings.TrimSpace(string(out))
	if addr == "" {
		return "", errors.New("empty address from keyring")
	}
	return addr, nil
}

// gas estimation lines may precede the JSON document on stdout
func lastJSONLine(out []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if bytes.HasPrefix(line, []byte("{")) {
			return line
		}
	}
	return out
}
