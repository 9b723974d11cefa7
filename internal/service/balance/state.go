package balance

import (
	"time"

	"github.com/shopspring/decimal"
)

// State of the balance request flow. Resolved and Failed are only ever
// observed by state watchers; the flow settles back to Idle right after.
type State int

const (
	Idle State = iota
	Requesting
	AwaitingResponse
	Resolved
	Failed
)

var stateNames = []string{"idle", "requesting", "awaiting_response", "resolved", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Busy reports whether a round trip is in flight.
func (s State) Busy() bool {
	return s == Requesting || s == AwaitingResponse
}

// Path tells which way a balance reached the flow.
type Path string

const (
	// PathRequest is the async round trip: query_request + store_balance event.
	PathRequest Path = "request"
	// PathRefresh is the direct get_balance smart query.
	PathRefresh Path = "refresh"
)

// Snapshot is a copy of the session state.
type Snapshot struct {
	State     State           `json:"state"`
	Account   string          `json:"account"`
	Balance   decimal.Decimal `json:"balance"`
	LastError string          `json:"last_error,omitempty"`
	LastPath  Path            `json:"last_path,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Outcome is published once per finished round trip.
type Outcome struct {
	Account  string          `json:"account"`
	Path     Path            `json:"path"`
	Result   string          `json:"result"` // resolved, failed, aborted
	Balance  decimal.Decimal `json:"balance"`
	Error    string          `json:"error,omitempty"`
	Code     int             `json:"code"`
	Duration time.Duration   `json:"duration_ns"`
	At       time.Time       `json:"at"`
}
