package handler

import (
	"context"
	"io"

	"transfers-client/internal/chain"
	"transfers-client/internal/handler/request"
	"transfers-client/internal/handler/response"
	"transfers-client/internal/service/balance"
	"transfers-client/pkg/validator"

	ethevent "github.com/ethereum/go-ethereum/event"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletService is what the HTTP API drives, see wallet.Service.
type WalletService interface {
	Connect(ctx context.Context, account string) (string, error)
	Disconnect(ctx context.Context) error
	ImportMnemonic(ctx context.Context, phrase string) error
	PublicKey(ctx context.Context) (string, error)
	RequestBalance(ctx context.Context) (decimal.Decimal, error)
	Refresh(ctx context.Context) (decimal.Decimal, error)
	Snapshot() balance.Snapshot
	SubscribeState(ch chan<- balance.Snapshot) ethevent.Subscription
	Deposit(ctx context.Context, amount string) (*chain.Receipt, error)
	Transfer(ctx context.Context, receiver, amount string) (*chain.Receipt, error)
	Withdraw(ctx context.Context) (*chain.Receipt, error)
}

type WalletHandler struct {
	svc WalletService
}

func NewWalletHandler(svc WalletService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

// Connect 连接或切换账户
// @Summary 连接或切换账户
// @Tags Session
// @Accept json
// @Param request body request.ConnectRequest false "Connect Request"
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/session [post]
func (h *WalletHandler) Connect(c *gin.Context) {
	var req request.ConnectRequest
	// body 可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, validator.GetErrorMsg(err))
			return
		}
	}

	account, err := h.svc.Connect(c.Request.Context(), req.Account)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"account": account})
}

// Disconnect 断开账户并清除助记词
// @Summary 断开账户
// @Tags Session
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/session [delete]
func (h *WalletHandler) Disconnect(c *gin.Context) {
	if err := h.svc.Disconnect(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ImportMnemonic 导入助记词
// @Summary 导入助记词
// @Tags Session
// @Accept json
// @Param request body request.ImportMnemonicRequest true "Mnemonic"
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/mnemonic [post]
func (h *WalletHandler) ImportMnemonic(c *gin.Context) {
	var req request.ImportMnemonicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, validator.GetErrorMsg(err))
		return
	}
	if err := h.svc.ImportMnemonic(c.Request.Context(), req.Mnemonic); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// PublicKey 当前会话的临时公钥
// @Summary 会话临时公钥
// @Tags Session
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/pubkey [get]
func (h *WalletHandler) PublicKey(c *gin.Context) {
	pub, err := h.svc.PublicKey(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"public_key": pub})
}

// GetBalance 返回最近一次解析出的余额和流程状态, 不访问链
// @Summary 最近一次余额与流程状态
// @Tags Balance
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/balance [get]
func (h *WalletHandler) GetBalance(c *gin.Context) {
	response.Success(c, h.svc.Snapshot())
}

// RequestBalance 发起 query_request 并等待链上事件返回
// @Summary 发起加密余额请求
// @Tags Balance
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/balance/request [post]
func (h *WalletHandler) RequestBalance(c *gin.Context) {
	h.balance(c, h.svc.RequestBalance)
}

// RefreshBalance 直接 smart query get_balance
// @Summary 查询已存储的加密余额
// @Tags Balance
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/balance/refresh [post]
func (h *WalletHandler) RefreshBalance(c *gin.Context) {
	h.balance(c, h.svc.Refresh)
}

func (h *WalletHandler) balance(c *gin.Context, fetch func(context.Context) (decimal.Decimal, error)) {
	bal, err := fetch(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"account": h.svc.Snapshot().Account,
		"balance": bal.String(),
	})
}

// StreamBalance 以 SSE 推送状态变化
// @Summary 余额状态 SSE 推送
// @Tags Balance
// @Produce text/event-stream
// @Success 200 {object} response.Response
// @Router /api/v1/balance/stream [get]
func (h *WalletHandler) StreamBalance(c *gin.Context) {
	ch := make(chan balance.Snapshot, 16)
	sub := h.svc.SubscribeState(ch)
	defer sub.Unsubscribe()

	c.SSEvent("snapshot", h.svc.Snapshot())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case s := <-ch:
			c.SSEvent("snapshot", s)
			return true
		case <-sub.Err():
			return false
		case <-ctx.Done():
			return false
		}
	})
}

// Deposit 存入
// @Summary 存入
// @Tags Wallet
// @Accept json
// @Param request body request.DepositRequest true "Deposit Request"
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/deposit [post]
func (h *WalletHandler) Deposit(c *gin.Context) {
	var req request.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, validator.GetErrorMsg(err))
		return
	}
	receipt, err := h.svc.Deposit(c.Request.Context(), req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, receipt)
}

// Transfer 加密转账
// @Summary 加密转账
// @Tags Wallet
// @Accept json
// @Param request body request.TransferRequest true "Transfer Request"
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/transfer [post]
func (h *WalletHandler) Transfer(c *gin.Context) {
	var req request.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, validator.GetErrorMsg(err))
		return
	}
	receipt, err := h.svc.Transfer(c.Request.Context(), req.Receiver, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, receipt)
}

// Withdraw 提取全部余额
// @Summary 提取全部余额
// @Tags Wallet
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/withdraw [post]
func (h *WalletHandler) Withdraw(c *gin.Context) {
	receipt, err := h.svc.Withdraw(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, receipt)
}
