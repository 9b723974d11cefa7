package request

// ConnectRequest 连接钱包, account 为空时使用配置的 keyring 账户
type ConnectRequest struct {
	Account string `json:"account"`
}

// ImportMnemonicRequest 导入助记词
type ImportMnemonicRequest struct {
	Mnemonic string `json:"mnemonic" binding:"required"`
}

// DepositRequest 存入合约, amount 为最小单位整数
type DepositRequest struct {
	Amount string `json:"amount" binding:"required,base_units"`
}

// TransferRequest 合约内转账
type TransferRequest struct {
	Receiver string `json:"receiver" binding:"required"`
	Amount   string `json:"amount" binding:"required,base_units"`
}
