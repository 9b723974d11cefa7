package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageShapes(t *testing.T) {
	cases := []struct {
		msg    Message
		action string
		want   string
	}{
		{BuildDeposit(), "deposit", `"deposit"`},
		{BuildWithdraw(), "withdraw", `"withdraw"`},
		{BuildBalanceQuery("wasm1abc"), "get_balance", `{"get_balance":{"address":"wasm1abc"}}`},
		{BuildBalanceRequest("04aa"), "query_request", `{"query_request":{"emphemeral_pubkey":"04aa"}}`},
		{BuildTransfer("deadbeef"), "transfer_request", `{"transfer_request":{"ciphertext":"deadbeef","digest":""}}`},
	}

	for _, c := range cases {
		got, err := json.Marshal(c.msg)
		require.NoError(t, err)
		assert.JSONEq(t, c.want, string(got))
		assert.Equal(t, c.action, c.msg.Action())
	}
}

func TestMessageNestedInEnvelope(t *testing.T) {
	// messages keep their shape when embedded in another document
	env := map[string]any{"msg": BuildBalanceQuery("wasm1xyz")}
	got, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"msg":{"get_balance":{"address":"wasm1xyz"}}}`, string(got))
}

func TestTransferPayload(t *testing.T) {
	got, err := json.Marshal(TransferPayload{Sender: "wasm1a", Receiver: "wasm1b", Amount: "10"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sender":"wasm1a","receiver":"wasm1b","amount":"10"}`, string(got))
}

func TestBalanceResponseFilter(t *testing.T) {
	assert.Equal(t,
		"execute._contract_address='wasm1contract' AND wasm-store_balance.address='wasm1user'",
		BalanceResponseFilter("wasm1contract", "wasm1user"),
	)
}
