// Package orders implements the OrderRegistry of spec.md 4.6/3: a keyed
// table of PendingOrder lifecycle state, grounded on the order state machine
// in the teacher's execution/executor.go (OrderState enum, Order struct)
// generalized into a standalone, monotonic-transition registry decoupled
// from any concrete executor.
package orders

import (
	"sync"

	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
	"github.com/flowstate-labs/predengine/xerrors"
	"github.com/flowstate-labs/predengine/xresult"
)

// State is a PendingOrder's lifecycle state.
type State string

const (
	Created         State = "created"
	Submitted       State = "submitted"
	PartiallyFilled State = "partially_filled"
	Filled          State = "filled"
	Cancelled       State = "cancelled"
	Rejected        State = "rejected"
)

// terminal states accept no further transitions.
func (s State) terminal() bool {
	return s == Cancelled || s == Rejected
}

// rank gives the monotonic forward ordering among non-terminal states;
// Created < Submitted < PartiallyFilled < Filled.
var rank = map[State]int{
	Created:         0,
	Submitted:       1,
	PartiallyFilled: 2,
	Filled:          3,
}

// PendingOrder is a snapshot of an order's lifecycle. Snapshots returned by
// the registry are always copies — callers never observe mid-mutation
// state.
type PendingOrder struct {
	ClientOrderId   ids.ClientOrderId
	ConditionId     ids.ConditionId
	TokenId         ids.MarketTokenId
	Side            market.Side
	Size            decimal.Decimal
	Price           decimal.Decimal
	SubmittedAtMs   int64
	State           State
	ExchangeOrderId *ids.ExchangeOrderId
}

// Registry is the keyed table of PendingOrder by ClientOrderId.
type Registry struct {
	mu     sync.RWMutex
	byCoid map[ids.ClientOrderId]PendingOrder
	order  []ids.ClientOrderId // insertion order, for stable iteration
}

func NewRegistry() *Registry {
	return &Registry{byCoid: make(map[ids.ClientOrderId]PendingOrder)}
}

// Track registers a new order. Rejects duplicate client order ids with
// KindInvalidState.
func (r *Registry) Track(order PendingOrder) xresult.Result[PendingOrder] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCoid[order.ClientOrderId]; exists {
		return xresult.Err[PendingOrder](xerrors.New(xerrors.KindInvalidState,
			"orders: duplicate client order id %s", order.ClientOrderId))
	}
	r.byCoid[order.ClientOrderId] = order
	r.order = append(r.order, order.ClientOrderId)
	return xresult.Ok(order)
}

// UpdateState advances the order to newState. Only forward lifecycle moves
// are allowed; reviving a terminal order, or moving non-terminal states
// backward, fails with KindInvalidState.
func (r *Registry) UpdateState(coid ids.ClientOrderId, newState State) xresult.Result[PendingOrder] {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byCoid[coid]
	if !ok {
		return xresult.Err[PendingOrder](xerrors.New(xerrors.KindOrderNotFound, "orders: unknown client order id %s", coid))
	}

	if current.State.terminal() {
		return xresult.Err[PendingOrder](xerrors.New(xerrors.KindInvalidState,
			"orders: cannot transition terminal order %s out of %s", coid, current.State))
	}

	if !newState.terminal() {
		if rank[newState] < rank[current.State] {
			return xresult.Err[PendingOrder](xerrors.New(xerrors.KindInvalidState,
				"orders: %s cannot move backward from %s to %s", coid, current.State, newState))
		}
	}

	current.State = newState
	r.byCoid[coid] = current
	return xresult.Ok(current)
}

// SetExchangeOrderId records the venue-assigned id once known.
func (r *Registry) SetExchangeOrderId(coid ids.ClientOrderId, exchangeId ids.ExchangeOrderId) xresult.Result[PendingOrder] {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byCoid[coid]
	if !ok {
		return xresult.Err[PendingOrder](xerrors.New(xerrors.KindOrderNotFound, "orders: unknown client order id %s", coid))
	}
	current.ExchangeOrderId = &exchangeId
	r.byCoid[coid] = current
	return xresult.Ok(current)
}

// Get returns the current snapshot, or (zero, false) if unknown.
func (r *Registry) Get(coid ids.ClientOrderId) (PendingOrder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byCoid[coid]
	return o, ok
}

// All returns a stable, insertion-ordered snapshot of every tracked order.
func (r *Registry) All() []PendingOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PendingOrder, 0, len(r.order))
	for _, coid := range r.order {
		out = append(out, r.byCoid[coid])
	}
	return out
}

// HasPendingFor reports whether any order for cid/side is still in flight
// (neither terminal nor Filled) — the predicate the DuplicateOrder guard
// consults.
func (r *Registry) HasPendingFor(cid ids.ConditionId, side market.Side) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, coid := range r.order {
		o := r.byCoid[coid]
		if o.ConditionId == cid && o.Side == side && !o.State.terminal() && o.State != Filled {
			return true
		}
	}
	return false
}

// PruneTerminal drops terminal orders submitted before cutoffMs. Pruning is
// permitted but not mandatory per spec.md 4.6; callers invoke it
// periodically to bound memory.
func (r *Registry) PruneTerminal(cutoffMs int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.order[:0:0]
	pruned := 0
	for _, coid := range r.order {
		o := r.byCoid[coid]
		if o.State.terminal() && o.SubmittedAtMs < cutoffMs {
			delete(r.byCoid, coid)
			pruned++
			continue
		}
		kept = append(kept, coid)
	}
	r.order = kept
	return pruned
}
