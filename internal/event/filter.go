package event

import (
	"fmt"
	"strings"

	"transfers-client/internal/chain"
)

// Clause is a single key='value' equality of a tendermint query.
type Clause struct {
	Key   string
	Value string
}

// Filter is a conjunction of clauses.
type Filter []Clause

// ParseFilter accepts the subset of the tendermint query language used for
// balance responses: equality clauses on string values joined by AND.
func ParseFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty filter")
	}

	var f Filter
	for _, part := range strings.Split(expr, " AND ") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("clause %q: missing '='", part)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return nil, fmt.Errorf("clause %q: empty key", part)
		}
		if len(value) < 2 || value[0] != '\'' || value[len(value)-1] != '\'' {
			return nil, fmt.Errorf("clause %q: value must be single quoted", part)
		}
		f = append(f, Clause{Key: key, Value: value[1 : len(value)-1]})
	}
	return f, nil
}

// Matches reports whether every clause value is among the event's values
// for that key.
func (f Filter) Matches(ev chain.Event) bool {
	for _, c := range f {
		found := false
		for _, v := range ev.Attributes[c.Key] {
			if v == c.Value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	parts := make([]string, len(f))
	for i, c := range f {
		parts[i] = fmt.Sprintf("%s='%s'", c.Key, c.Value)
	}
	return strings.Join(parts, " AND ")
}
