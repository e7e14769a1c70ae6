package alphasms

import "strings"

// DeliveryState describes where a submitted message is in its lifecycle.
type DeliveryState string

const (
	StateQueued    DeliveryState = "queued"
	StateSent      DeliveryState = "sent"
	StateDelivered DeliveryState = "delivered"
	StateFailed    DeliveryState = "failed"
	StateUnknown   DeliveryState = "unknown"
)

// SendResult reports the gateway's verdict for one message of a batch.
// Rejected messages carry the gateway's explanation in ProviderMessage instead
// of failing the whole call.
type SendResult struct {
	SMSID           string
	Accepted        bool
	ProviderMessage string
}

// StatusResult reports the delivery state of a previously submitted message.
type StatusResult struct {
	SMSID  string
	State  DeliveryState
	Detail string
}

// BalanceResult reports the remaining account balance.
type BalanceResult struct {
	Amount   float64
	Currency string
}

// parseDeliveryState maps a wire status value onto the known states. Values
// the gateway may add later map to StateUnknown rather than failing.
func parseDeliveryState(raw string) DeliveryState {
	switch state := DeliveryState(strings.ToLower(strings.TrimSpace(raw))); state {
	case StateQueued, StateSent, StateDelivered, StateFailed:
		return state
	default:
		return StateUnknown
	}
}
