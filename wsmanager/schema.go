package wsmanager

import "encoding/json"

// envelope is used only to read the discriminant type field before
// dispatching to a concrete schema.
type envelope struct {
	Type string `json:"type"`
}

// PriceLevel is one book side entry.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookUpdate is the book_update wire schema of spec.md 6.
type BookUpdate struct {
	ConditionId string       `json:"conditionId"`
	Bids        []PriceLevel `json:"bids"`
	Asks        []PriceLevel `json:"asks"`
	TimestampMs int64        `json:"timestampMs"`
}

// UserFill is the user_fill wire schema.
type UserFill struct {
	OrderId     string `json:"orderId"`
	FilledSize  string `json:"filledSize"`
	FillPrice   string `json:"fillPrice"`
	TimestampMs int64  `json:"timestampMs"`
}

// UserOrderStatus is the user_order_status wire schema.
type UserOrderStatus struct {
	OrderId     string `json:"orderId"`
	Status      string `json:"status"`
	TimestampMs int64  `json:"timestampMs"`
}

// Heartbeat is the heartbeat wire schema.
type Heartbeat struct {
	TimestampMs int64 `json:"timestampMs"`
}

// isValidFrame strictly validates raw against the known schema for its
// "type" discriminant. Unknown types and structurally invalid payloads
// both fail validation — the manager drops both rather than buffering.
func isValidFrame(raw string) bool {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return false
	}
	switch env.Type {
	case "book_update":
		var m BookUpdate
		if err := json.Unmarshal([]byte(raw), &m); err != nil || m.ConditionId == "" {
			return false
		}
		return true
	case "user_fill":
		var m UserFill
		if err := json.Unmarshal([]byte(raw), &m); err != nil || m.OrderId == "" {
			return false
		}
		return true
	case "user_order_status":
		var m UserOrderStatus
		if err := json.Unmarshal([]byte(raw), &m); err != nil || m.OrderId == "" || m.Status == "" {
			return false
		}
		return true
	case "heartbeat":
		var m Heartbeat
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return false
		}
		return true
	default:
		return false
	}
}
