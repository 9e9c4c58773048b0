// Package ledger holds the pickup and trade rules. Everything here is pure:
// callers load state, ask for a decision and persist the result themselves.
package ledger

// Denial reasons.
const (
	ReasonMaxPickups   = "max_pickups_reached"
	ReasonCoolingDown  = "cooling_down"
	ReasonInsufficient = "insufficient_items"
)

// Decision is the outcome of an eligibility check. A denial is a normal
// result, not an error.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}
