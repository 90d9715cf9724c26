package execution

import (
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/orders"
)

// ExchangeOrderState is one order's last-known state as reported by the
// venue, the shape Reconcile compares against the registry restored from
// the journal on startup.
type ExchangeOrderState struct {
	ClientOrderId ids.ClientOrderId
	State         orders.State
}

// ReconcileReport summarizes what Reconcile found: orders whose registry
// state already matched the exchange (nothing to do), and orders that had
// drifted — filled or cancelled at the venue while the process was down —
// and were advanced to match.
type ReconcileReport struct {
	Matched []ids.ClientOrderId
	Drifted []ids.ClientOrderId
	Unknown []ids.ClientOrderId
}

// Reconcile resolves drift between an OrderRegistry restored from the
// journal and the venue's authoritative order states, grounded on this
// package's prior RecoverPositions/LoadPosition startup recovery. Every
// order in registry, terminal ones included, is looked up in
// exchangeStates: an order the venue does not report goes to Unknown, an
// order whose state already matches goes to Matched, and any other order is
// moved to the exchange's reported state through registry.UpdateState and
// listed in Drifted. A move the registry rejects (a terminal order, or a
// backward step) leaves the order unchanged and in none of the three lists.
// Nothing in the tick loop calls it.
func Reconcile(registry *orders.Registry, exchangeStates []ExchangeOrderState) ReconcileReport {
	byCoid := make(map[ids.ClientOrderId]orders.State, len(exchangeStates))
	for _, s := range exchangeStates {
		byCoid[s.ClientOrderId] = s.State
	}

	report := ReconcileReport{}
	for _, pending := range registry.All() {
		exchangeState, known := byCoid[pending.ClientOrderId]
		if !known {
			report.Unknown = append(report.Unknown, pending.ClientOrderId)
			continue
		}
		if exchangeState == pending.State {
			report.Matched = append(report.Matched, pending.ClientOrderId)
			continue
		}
		if registry.UpdateState(pending.ClientOrderId, exchangeState).IsOk() {
			report.Drifted = append(report.Drifted, pending.ClientOrderId)
		}
	}
	return report
}
