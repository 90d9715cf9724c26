// Package tickengine implements the BuiltStrategy tick orchestrator of
// spec.md 4.14: the seven-step per-tick sequence wiring watchdog,
// lifecycle, the entry/exit guard pipelines, the exit policy pipeline, the
// signal detector, the order registry, the position manager, the executor,
// and the event dispatcher together. Grounded on the teacher's
// core/engine.go processTick/checkPosition/exitPosition flow, generalized
// from Engine's ad hoc map[string]*types.Position bookkeeping and
// synchronous PlaceOrder calls into the typed, Result-returning collaborator
// contracts the rest of this engine exposes.
package tickengine

import (
	"context"

	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/events"
	"github.com/flowstate-labs/predengine/execution"
	"github.com/flowstate-labs/predengine/exits"
	"github.com/flowstate-labs/predengine/guards"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/journal"
	"github.com/flowstate-labs/predengine/lifecycle"
	"github.com/flowstate-labs/predengine/market"
	"github.com/flowstate-labs/predengine/orders"
	"github.com/flowstate-labs/predengine/positions"
	"github.com/flowstate-labs/predengine/signal"
	"github.com/flowstate-labs/predengine/watchdog"
	"github.com/flowstate-labs/predengine/xerrors"
)

// TickContext is the per-tick input, spec.md 4.14's "given TickContext".
// EntryView is the market snapshot passed to the detector for this tick's
// candidate entry. MarketView resolves a snapshot for any other condition
// the strategy already holds a position in, needed to evaluate exits for
// positions the current tick's EntryView does not itself describe.
type TickContext struct {
	NowMs     int64
	Balance   decimal.Decimal
	DailyPnl  decimal.Decimal
	EntryView signal.TickView
	MarketView func(cid ids.ConditionId, side market.Side) (signal.TickView, bool)
	BookAgeMs  func(cid ids.ConditionId) *int64
}

// Config bundles the collaborators BuiltStrategy wires together.
type Config struct {
	Lifecycle      *lifecycle.Machine
	Watchdog       *watchdog.Watchdog
	EntryGuards    *guards.Pipeline
	ExitGuards     *guards.Pipeline // narrow pipeline: DuplicateOrder + BookStaleness only, per spec.md 4.14
	ExitPolicies   *exits.Pipeline
	Detector       signal.Detector
	Registry       *orders.Registry
	Executor       execution.Executor
	Dispatcher     *events.Dispatcher
	Journal        journal.Recorder
	WarmupTicks    int

	// RateLimit/PerMarketLimit are recorded on every successful submission,
	// in addition to being wired into EntryGuards for the Check half of
	// their contract. Optional: a nil value simply isn't fed.
	RateLimit      *guards.RateLimit
	PerMarketLimit *guards.PerMarketLimit
	// CircuitBreaker is fed a win/loss on every closed position, in
	// addition to being wired into EntryGuards. Optional.
	CircuitBreaker *guards.CircuitBreaker
	// ProfitLocker is fed cumulative net equity on every closed position.
	// On trigger, the strategy forces itself into ClosingOnly. Optional.
	ProfitLocker *exits.ProfitLocker
}

// BuiltStrategy is the tick orchestrator. The zero value is not usable;
// construct with New.
type BuiltStrategy struct {
	cfg Config

	positionsMgr   *positions.Manager
	warmupTicksDone int
	lastTradeMs    map[ids.ConditionId]int64
	stats          *Stats
}

// New builds a BuiltStrategy, wiring the cumulative-statistics subscriber
// onto the dispatcher's position_closed event per spec.md 4.14.
func New(cfg Config) *BuiltStrategy {
	b := &BuiltStrategy{
		cfg:          cfg,
		positionsMgr: positions.NewManager(positions.DefaultMaxClosed),
		lastTradeMs:  make(map[ids.ConditionId]int64),
		stats:        NewStats(),
	}
	if cfg.Dispatcher != nil {
		cfg.Dispatcher.OnSdk(events.SdkPositionClosed, func(_ events.SdkType, payload any) {
			if closed, ok := payload.(PositionClosedPayload); ok {
				b.stats.Record(closed)
			}
		})
	}
	return b
}

// Stats returns the running cumulative statistics.
func (b *BuiltStrategy) Stats() Snapshot { return b.stats.Snapshot() }

// Positions returns the current position manager snapshot.
func (b *BuiltStrategy) Positions() *positions.Manager { return b.positionsMgr }

// Tick runs one pass of the seven-step sequence against tc. Watchdog.Touch
// is not called here: it is driven externally by the caller's ingestion
// loop on actual market-data receipt, so a dead feed is distinguishable
// from a live one even while the tick heartbeat itself keeps firing.
func (b *BuiltStrategy) Tick(ctx context.Context, tc TickContext) error {
	// 1. warmup gate. A Machine still in Initializing (cmd/engine constructs
	// it without initializing it) is moved to WarmingUp on the first tick;
	// ticks observe WarmingUp while warmup is in progress.
	if b.cfg.Lifecycle.State() == lifecycle.Initializing {
		_ = b.cfg.Lifecycle.Initialize()
	}
	if b.cfg.Lifecycle.State() == lifecycle.WarmingUp {
		if b.cfg.WarmupTicks > 0 {
			b.warmupTicksDone++
			pct := b.warmupTicksDone * 100 / b.cfg.WarmupTicks
			_ = b.cfg.Lifecycle.UpdateWarmup(pct)
			if b.warmupTicksDone >= b.cfg.WarmupTicks {
				_ = b.cfg.Lifecycle.WarmupComplete()
			}
			return nil
		}
		_ = b.cfg.Lifecycle.WarmupComplete()
	}

	// 2. exit phase, always runs regardless of canOpen.
	b.exitPhase(ctx, tc)

	// 3. entries gated on lifecycle and watchdog liveness.
	if !b.cfg.Lifecycle.CanOpen() || (b.cfg.Watchdog != nil && b.cfg.Watchdog.ShouldBlockEntries()) {
		return nil
	}

	// 4. entry phase.
	b.entryPhase(ctx, tc)
	return nil
}

func (b *BuiltStrategy) exitPhase(ctx context.Context, tc TickContext) {
	for _, pos := range b.positionsMgr.AllOpen() {
		view, ok := b.marketViewFor(tc, pos.ConditionId, pos.Side)
		if !ok {
			continue
		}
		b.positionsMgr = b.positionsMgr.Mark(pos.ConditionId, view.BestBid(pos.Side))
		pos, _ = b.positionsMgr.Get(pos.ConditionId)
		exitCtx := exits.Context{
			NowMs:           tc.NowMs,
			BestBid:         view.BestBid(pos.Side),
			OraclePrice:     view.OraclePrice(),
			TimeRemainingMs: view.TimeRemainingMs(),
			SpreadPct:       view.SpreadPct(pos.Side),
		}
		reason, fired := b.cfg.ExitPolicies.Evaluate(pos, exitCtx)
		if !fired {
			continue
		}

		guardCtx := b.buildGuardContext(tc, pos.ConditionId, pos.Side, view)
		decision := b.cfg.ExitGuards.Evaluate(guardCtx)
		if decision.Blocked {
			b.emitGuardBlocked(decision)
			continue
		}

		intentResult := signal.NewOrderIntent(pos.ConditionId, pos.TokenId, pos.Side, signal.Sell, view.BestBid(pos.Side), pos.Size)
		if intentResult.IsErr() {
			b.emitError(intentResult.UnwrapErr())
			continue
		}
		b.submitAndApply(ctx, tc, intentResult.Unwrap(), string(reason), true)
	}
}

func (b *BuiltStrategy) entryPhase(ctx context.Context, tc TickContext) {
	if b.cfg.Detector == nil || tc.EntryView == nil {
		return
	}
	sig := b.cfg.Detector.DetectEntry(tc.EntryView)
	if sig == nil {
		return
	}
	intentResult := b.cfg.Detector.ToOrder(*sig, tc.EntryView)
	if intentResult.IsErr() {
		b.emitError(intentResult.UnwrapErr())
		return
	}
	intent := intentResult.Unwrap()

	guardCtx := b.buildGuardContext(tc, intent.ConditionId, intent.Side, tc.EntryView)
	decision := b.cfg.EntryGuards.Evaluate(guardCtx)
	if decision.Blocked {
		b.emitGuardBlocked(decision)
		return
	}

	b.submitAndApply(ctx, tc, intent, sig.Reason, false)
}

// submitAndApply submits intent, then updates the registry and position
// manager on success, emitting and journaling along the way. isExit
// distinguishes a sell-to-close from a buy-to-open for position-manager
// bookkeeping.
func (b *BuiltStrategy) submitAndApply(ctx context.Context, tc TickContext, intent signal.OrderIntent, reason string, isExit bool) {
	coid := ids.NewClientOrderId()
	pending := orders.PendingOrder{
		ClientOrderId: coid,
		ConditionId:   intent.ConditionId,
		TokenId:       intent.TokenId,
		Side:          intent.Side,
		Size:          intent.Size,
		Price:         intent.Price,
		SubmittedAtMs: tc.NowMs,
		State:         orders.Created,
	}
	if trackResult := b.cfg.Registry.Track(pending); trackResult.IsErr() {
		b.emitError(trackResult.UnwrapErr())
		return
	}
	b.emitSdk(events.SdkOrderPlaced, OrderPlacedPayload{ClientOrderId: coid, Intent: intent})
	b.journalEntry(journal.OrderSubmitted, map[string]any{
		"client_order_id": coid.String(),
		"condition_id":    intent.ConditionId.String(),
		"price":           journal.DecimalField(intent.Price),
		"size":            journal.DecimalField(intent.Size),
	})

	result := b.cfg.Executor.Submit(ctx, intent, coid)
	if result.IsErr() {
		b.cfg.Registry.UpdateState(coid, orders.Rejected)
		b.handleExecutorError(result.UnwrapErr())
		return
	}
	orderResult := result.Unwrap()
	b.cfg.Registry.UpdateState(coid, orders.Filled)
	b.lastTradeMs[intent.ConditionId] = tc.NowMs
	if b.cfg.RateLimit != nil {
		b.cfg.RateLimit.Record(tc.NowMs)
	}
	if b.cfg.PerMarketLimit != nil {
		b.cfg.PerMarketLimit.Record(intent.ConditionId)
	}

	b.emitSdk(events.SdkFillReceived, orderResult)
	b.journalEntry(journal.OrderFilled, map[string]any{
		"client_order_id": orderResult.ClientOrderId.String(),
		"avg_fill_price":  journal.DecimalField(orderResult.AvgFillPrice),
		"filled_size":     journal.DecimalField(orderResult.TotalFilled),
		"fee":             journal.DecimalField(orderResult.Fee),
	})

	if isExit {
		b.applyClose(intent, orderResult, reason, tc.NowMs)
	} else {
		b.applyOpen(intent, orderResult, tc.NowMs)
	}
}

func (b *BuiltStrategy) applyOpen(intent signal.OrderIntent, result execution.OrderResult, nowMs int64) {
	openResult := b.positionsMgr.Open(intent.ConditionId, intent.TokenId, intent.Side, result.AvgFillPrice, result.TotalFilled, nowMs)
	if openResult.Err != nil {
		b.emitError(openResult.Err)
		return
	}
	b.positionsMgr = openResult.Manager
	b.emitSdk(events.SdkPositionOpened, PositionOpenedPayload{ConditionId: intent.ConditionId, EntryPrice: result.AvgFillPrice, Size: result.TotalFilled})
	b.journalEntry(journal.PositionOpened, map[string]any{
		"condition_id": intent.ConditionId.String(),
		"entry_price":  journal.DecimalField(result.AvgFillPrice),
		"size":         journal.DecimalField(result.TotalFilled),
	})
}

func (b *BuiltStrategy) applyClose(intent signal.OrderIntent, result execution.OrderResult, reason string, nowMs int64) {
	closeResult := b.positionsMgr.Close(intent.ConditionId, result.AvgFillPrice, nowMs)
	if closeResult == nil {
		return
	}
	b.positionsMgr = closeResult.Manager
	payload := PositionClosedPayload{
		ConditionId: intent.ConditionId,
		ExitPrice:   result.AvgFillPrice,
		RealizedPnl: closeResult.RealizedPnl,
		Fee:         result.Fee,
		Reason:      reason,
	}
	b.emitSdk(events.SdkPositionClosed, payload)
	b.journalEntry(journal.PositionClosed, map[string]any{
		"condition_id": intent.ConditionId.String(),
		"exit_price":   journal.DecimalField(result.AvgFillPrice),
		"realized_pnl": journal.DecimalField(closeResult.RealizedPnl),
		"fee":          journal.DecimalField(result.Fee),
		"reason":       reason,
	})

	if b.cfg.CircuitBreaker != nil {
		if closeResult.RealizedPnl.IsNegative() {
			b.cfg.CircuitBreaker.RecordLoss(nowMs)
		} else {
			b.cfg.CircuitBreaker.RecordWin()
		}
	}
	if b.cfg.ProfitLocker != nil {
		// stats already reflects this close: the Stats subscriber ran
		// synchronously inside the EmitSdk call above.
		if b.cfg.ProfitLocker.Update(b.stats.Snapshot().NetEquity()) {
			b.lockProfitsAndCloseOnly()
		}
	}
}

// lockProfitsAndCloseOnly forces the strategy into ClosingOnly once the
// ProfitLocker reports a drawdown-off-peak breach, mirroring the KillSwitch
// ExitsOnly severity without needing a separate guard check.
func (b *BuiltStrategy) lockProfitsAndCloseOnly() {
	if err := b.cfg.Lifecycle.EnterClosingOnly(); err != nil {
		return
	}
	b.emitSdk(events.SdkStateChanged, b.cfg.Lifecycle.State())
	b.emitDomain(events.DomainRiskBreached, "profit locker drawdown breach: entering closing-only")
}

func (b *BuiltStrategy) marketViewFor(tc TickContext, cid ids.ConditionId, side market.Side) (signal.TickView, bool) {
	if tc.EntryView != nil && tc.EntryView.ConditionId() == cid {
		return tc.EntryView, true
	}
	if tc.MarketView == nil {
		return nil, false
	}
	return tc.MarketView(cid, side)
}

func (b *BuiltStrategy) buildGuardContext(tc TickContext, cid ids.ConditionId, side market.Side, view signal.TickView) guards.Context {
	var lastTrade *int64
	if t, ok := b.lastTradeMs[cid]; ok {
		tt := t
		lastTrade = &tt
	}
	var bookAge *int64
	if tc.BookAgeMs != nil {
		bookAge = tc.BookAgeMs(cid)
	}
	return guards.Context{
		ConditionId:     cid,
		Side:            side,
		NowMs:           tc.NowMs,
		SpreadPct:       view.SpreadPct(side),
		OpenCount:       b.positionsMgr.OpenCount(),
		Balance:         tc.Balance,
		TotalExposure:   b.positionsMgr.TotalNotional(),
		LastTradeTimeMs: lastTrade,
		HasPendingOrder: b.cfg.Registry.HasPendingFor(cid, side),
		BookAgeMs:       bookAge,
		OraclePrice:     view.OraclePrice(),
		BestAsk:         view.BestAsk(side),
		DailyPnl:        tc.DailyPnl,
	}
}

func (b *BuiltStrategy) emitSdk(typ events.SdkType, payload any) {
	if b.cfg.Dispatcher != nil {
		b.cfg.Dispatcher.EmitSdk(typ, payload)
	}
}

func (b *BuiltStrategy) emitGuardBlocked(decision guards.Decision) {
	b.emitSdk(events.SdkGuardBlocked, decision)
	b.journalEntry(journal.GuardBlocked, map[string]any{
		"guard_name":  decision.GuardName,
		"reason":      decision.Reason,
		"recoverable": decision.Recoverable,
	})

	switch decision.GuardName {
	case "CircuitBreaker":
		b.emitDomain(events.DomainCircuitTripped, decision)
	case "KillSwitch":
		b.emitDomain(events.DomainRiskBreached, decision)
	}
}

func (b *BuiltStrategy) emitDomain(typ events.DomainType, payload any) {
	if b.cfg.Dispatcher != nil {
		b.cfg.Dispatcher.EmitDomain(typ, payload)
	}
}

func (b *BuiltStrategy) emitError(err error) {
	b.emitSdk(events.SdkErrorOccurred, err)
	b.journalEntry(journal.ErrorEntry, map[string]any{"error": err.Error()})
}

// handleExecutorError classifies err via xerrors and emits accordingly:
// Fatal triggers a lifecycle halt, per spec.md 7. Retryable and
// NonRetryable errors are left to the caller's retry/UI layer; this
// orchestrator only reacts to Fatal.
func (b *BuiltStrategy) handleExecutorError(err error) {
	b.emitError(err)
	te := xerrors.Classify(err)
	if te.Category() == xerrors.Fatal {
		_ = b.cfg.Lifecycle.Halt("fatal executor error")
		b.emitSdk(events.SdkStateChanged, b.cfg.Lifecycle.State())
	}
}

func (b *BuiltStrategy) journalEntry(typ journal.EntryType, data map[string]any) {
	if b.cfg.Journal == nil {
		return
	}
	_ = b.cfg.Journal.Record(journal.Entry{Type: typ, Data: data})
}
