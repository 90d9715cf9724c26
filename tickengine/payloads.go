package tickengine

import (
	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/signal"
)

// OrderPlacedPayload is the order_placed SDK event payload.
type OrderPlacedPayload struct {
	ClientOrderId ids.ClientOrderId
	Intent        signal.OrderIntent
}

// PositionOpenedPayload is the position_opened SDK event payload.
type PositionOpenedPayload struct {
	ConditionId ids.ConditionId
	EntryPrice  decimal.Decimal
	Size        decimal.Decimal
}

// PositionClosedPayload is the position_closed SDK event payload the
// cumulative statistics subscriber consumes.
type PositionClosedPayload struct {
	ConditionId ids.ConditionId
	ExitPrice   decimal.Decimal
	RealizedPnl decimal.Decimal
	Fee         decimal.Decimal
	Reason      string
}

// AuditFields renders the payload's fields as strings for a secondary
// recorder (internal/audit) to persist, without that package importing
// tickengine directly.
func (p PositionClosedPayload) AuditFields() (conditionId, exitPrice, realizedPnl, fee, reason string) {
	return p.ConditionId.String(), p.ExitPrice.String(), p.RealizedPnl.String(), p.Fee.String(), p.Reason
}
