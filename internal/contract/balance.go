package contract

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseBalance reads {"balance": N} from a decrypted response. N may be a
// JSON number or a numeric string. Anything unreadable, including a
// negative value, yields zero.
func ParseBalance(text string) decimal.Decimal {
	balance, _ := parseBalance(text)
	return balance
}

// ParseBalanceStrict is ParseBalance that also reports whether the payload
// was well formed, so callers can log the lenient fallback.
func ParseBalanceStrict(text string) (decimal.Decimal, bool) {
	return parseBalance(text)
}

func parseBalance(text string) (decimal.Decimal, bool) {
	if strings.TrimSpace(text) == "" {
		return decimal.Zero, false
	}

	var resp struct {
		Balance json.RawMessage `json:"balance"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil || len(resp.Balance) == 0 {
		return decimal.Zero, false
	}

	raw := string(resp.Balance)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(resp.Balance, &s); err != nil {
			return decimal.Zero, false
		}
		raw = strings.TrimSpace(s)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}
