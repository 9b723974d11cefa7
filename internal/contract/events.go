package contract

import "fmt"

// Attribute keys of the events emitted when the enclave stores a balance.
const (
	EventEncryptedBalance = "wasm-store_balance.encrypted_balance"
	EventBalanceAddress   = "wasm-store_balance.address"
	EventContractAddress  = "execute._contract_address"
)

// BalanceResponseFilter selects store_balance events of contract for
// account only.
func BalanceResponseFilter(contract, account string) string {
	return fmt.Sprintf("%s='%s' AND %s='%s'", EventContractAddress, contract, EventBalanceAddress, account)
}
