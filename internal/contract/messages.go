package contract

import (
	"encoding/json"
)

// Message is anything that can be sent to the transfers contract, either as
// an execute or as a smart query.
type Message interface {
	json.Marshaler
	// Action names the message for logs and metrics.
	Action() string
}

// Deposit serializes as the bare string "deposit". Funds travel alongside
// the transaction, not in the message.
type Deposit struct{}

func (Deposit) Action() string { return "deposit" }

func (Deposit) MarshalJSON() ([]byte, error) {
	return json.Marshal("deposit")
}

// Withdraw serializes as the bare string "withdraw".
type Withdraw struct{}

func (Withdraw) Action() string { return "withdraw" }

func (Withdraw) MarshalJSON() ([]byte, error) {
	return json.Marshal("withdraw")
}

// GetBalance is the smart query returning the stored encrypted balance of
// an address as a hex string.
type GetBalance struct {
	Address string `json:"address"`
}

func (GetBalance) Action() string { return "get_balance" }

func (m GetBalance) MarshalJSON() ([]byte, error) {
	type body GetBalance
	return json.Marshal(struct {
		Body body `json:"get_balance"`
	}{body(m)})
}

// QueryRequest asks the enclave to publish the caller's balance encrypted
// for EphemeralPubKey. The field name misspelling is what the contract
// expects on the wire.
type QueryRequest struct {
	EphemeralPubKey string `json:"emphemeral_pubkey"`
}

func (QueryRequest) Action() string { return "query_request" }

func (m QueryRequest) MarshalJSON() ([]byte, error) {
	type body QueryRequest
	return json.Marshal(struct {
		Body body `json:"query_request"`
	}{body(m)})
}

// TransferRequest carries a TransferPayload encrypted for the enclave.
type TransferRequest struct {
	Ciphertext string `json:"ciphertext"`
	Digest     string `json:"digest"`
}

func (TransferRequest) Action() string { return "transfer_request" }

func (m TransferRequest) MarshalJSON() ([]byte, error) {
	type body TransferRequest
	return json.Marshal(struct {
		Body body `json:"transfer_request"`
	}{body(m)})
}

func BuildDeposit() Message { return Deposit{} }

func BuildWithdraw() Message { return Withdraw{} }

func BuildBalanceQuery(address string) Message {
	return GetBalance{Address: address}
}

func BuildBalanceRequest(pubKeyHex string) Message {
	return QueryRequest{EphemeralPubKey: pubKeyHex}
}

// BuildTransfer wraps an already encrypted payload. The digest is not
// checked by the contract yet and is always sent empty.
func BuildTransfer(ciphertextHex string) Message {
	return TransferRequest{Ciphertext: ciphertextHex, Digest: ""}
}

// TransferPayload is the plaintext of a transfer before it is encrypted for
// the enclave.
type TransferPayload struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}
