package tickengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowstate-labs/predengine/clock"
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
	"github.com/flowstate-labs/predengine/signal"
	"github.com/flowstate-labs/predengine/watchdog"
	"github.com/flowstate-labs/predengine/xerrors"
	"github.com/flowstate-labs/predengine/xresult"
)

// fakeView is a fixed-value signal.TickView for one condition.
type fakeView struct {
	cid             ids.ConditionId
	nowMs           int64
	oracle          decimal.Decimal
	spot            decimal.Decimal
	bid             decimal.Decimal
	ask             decimal.Decimal
	timeRemainingMs int64
}

func (v fakeView) ConditionId() ids.ConditionId           { return v.cid }
func (v fakeView) Now() int64                             { return v.nowMs }
func (v fakeView) OraclePrice() decimal.Decimal           { return v.oracle }
func (v fakeView) Spot() decimal.Decimal                  { return v.spot }
func (v fakeView) BestBid(_ market.Side) decimal.Decimal  { return v.bid }
func (v fakeView) BestAsk(_ market.Side) decimal.Decimal  { return v.ask }
func (v fakeView) Spread(_ market.Side) decimal.Decimal   { return v.ask.Sub(v.bid) }
func (v fakeView) SpreadPct(_ market.Side) decimal.Decimal {
	return v.ask.Sub(v.bid).DivOr(v.ask, decimal.Zero)
}
func (v fakeView) TimeRemainingMs() int64 { return v.timeRemainingMs }

var _ signal.TickView = fakeView{}

// stubDetector fires once (or never, if armed is false) with a fixed
// intent, then disarms itself so repeated ticks don't resubmit.
type stubDetector struct {
	armed bool
	cid   ids.ConditionId
	token ids.MarketTokenId
	side  market.Side
	price decimal.Decimal
	size  decimal.Decimal
}

func (d *stubDetector) DetectEntry(_ signal.TickView) *signal.Signal {
	if !d.armed {
		return nil
	}
	d.armed = false
	sig := signal.NewBuilder().ConditionId(d.cid).Side(d.side).Direction(signal.Buy).Reason("stub").Build()
	return &sig
}

func (d *stubDetector) ToOrder(s signal.Signal, _ signal.TickView) xresult.Result[signal.OrderIntent] {
	return signal.NewOrderIntent(d.cid, d.token, d.side, s.Direction, d.price, d.size)
}

// stubExecutor fills every submission at the intent's price unless forced
// to fail.
type stubExecutor struct {
	failWith error
	seq      int64
}

func (e *stubExecutor) Submit(_ context.Context, intent signal.OrderIntent, coid ids.ClientOrderId) xresult.Result[execution.OrderResult] {
	if e.failWith != nil {
		return xresult.Err[execution.OrderResult](e.failWith)
	}
	e.seq++
	return xresult.Ok(execution.OrderResult{
		ClientOrderId: coid,
		FinalState:    "filled",
		TotalFilled:   intent.Size,
		AvgFillPrice:  intent.Price,
		Fee:           decimal.MustFrom("0.01"),
	})
}

func (e *stubExecutor) Cancel(_ context.Context, _ ids.ClientOrderId) xresult.Result[struct{}] {
	return xresult.Ok(struct{}{})
}

var _ execution.Executor = (*stubExecutor)(nil)

func newActiveConfig(t *testing.T, exec execution.Executor, detector signal.Detector) (Config, *events.Dispatcher, *journal.Memory, *lifecycle.Machine) {
	t.Helper()
	clk := clock.NewFake(1000)
	lm := lifecycle.New(clk)
	require.NoError(t, lm.Initialize())
	require.NoError(t, lm.WarmupComplete())

	dispatcher := events.New()
	mem := journal.NewMemory()

	cfg := Config{
		Lifecycle:    lm,
		Watchdog:     watchdog.New(clk, 5000, 15000),
		EntryGuards:  guards.New(),
		ExitGuards:   guards.New(),
		ExitPolicies: exits.New(),
		Detector:     detector,
		Registry:     orders.NewRegistry(),
		Executor:     exec,
		Dispatcher:   dispatcher,
		Journal:      mem,
	}
	return cfg, dispatcher, mem, lm
}

func TestTickEntryOpensPosition(t *testing.T) {
	cid := ids.ConditionId("cond-1")
	detector := &stubDetector{armed: true, cid: cid, token: "token-1", side: market.Yes, price: decimal.MustFrom("0.50"), size: decimal.MustFrom("10")}
	exec := &stubExecutor{}
	cfg, dispatcher, mem, _ := newActiveConfig(t, exec, detector)

	var opened []PositionOpenedPayload
	dispatcher.OnSdk(events.SdkPositionOpened, func(_ events.SdkType, payload any) {
		opened = append(opened, payload.(PositionOpenedPayload))
	})

	strat := New(cfg)
	view := fakeView{cid: cid, nowMs: 1000, oracle: decimal.MustFrom("0.5"), bid: decimal.MustFrom("0.49"), ask: decimal.MustFrom("0.51"), timeRemainingMs: 60000}

	require.NoError(t, strat.Tick(context.Background(), TickContext{NowMs: 1000, EntryView: view}))

	require.Len(t, opened, 1)
	assert.Equal(t, cid, opened[0].ConditionId)
	assert.Equal(t, 1, strat.Positions().OpenCount())

	entries := mem.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, journal.OrderSubmitted, entries[0].Type)
}

func TestTickWarmupGateDelaysEntries(t *testing.T) {
	clk := clock.NewFake(1000)
	lm := lifecycle.New(clk)
	require.NoError(t, lm.Initialize())

	cid := ids.ConditionId("cond-1")
	detector := &stubDetector{armed: true, cid: cid, token: "token-1", side: market.Yes, price: decimal.MustFrom("0.5"), size: decimal.MustFrom("1")}
	exec := &stubExecutor{}
	cfg := Config{
		Lifecycle:    lm,
		Watchdog:     watchdog.New(clk, 5000, 15000),
		EntryGuards:  guards.New(),
		ExitGuards:   guards.New(),
		ExitPolicies: exits.New(),
		Detector:     detector,
		Registry:     orders.NewRegistry(),
		Executor:     exec,
		Dispatcher:   events.New(),
		Journal:      journal.NewMemory(),
		WarmupTicks:  2,
	}
	strat := New(cfg)
	view := fakeView{cid: cid, nowMs: 1000, bid: decimal.MustFrom("0.49"), ask: decimal.MustFrom("0.51")}

	require.NoError(t, strat.Tick(context.Background(), TickContext{NowMs: 1000, EntryView: view}))
	assert.Equal(t, lifecycle.WarmingUp, lm.State())
	assert.Equal(t, 0, strat.Positions().OpenCount())

	require.NoError(t, strat.Tick(context.Background(), TickContext{NowMs: 1001, EntryView: view}))
	assert.Equal(t, lifecycle.Active, lm.State())

	require.NoError(t, strat.Tick(context.Background(), TickContext{NowMs: 1002, EntryView: view}))
	assert.Equal(t, 1, strat.Positions().OpenCount())
}

func TestTickEntryGuardBlockPreventsSubmission(t *testing.T) {
	cid := ids.ConditionId("cond-1")
	detector := &stubDetector{armed: true, cid: cid, token: "token-1", side: market.Yes, price: decimal.MustFrom("0.5"), size: decimal.MustFrom("1")}
	exec := &stubExecutor{}
	cfg, dispatcher, _, _ := newActiveConfig(t, exec, detector)
	cfg.EntryGuards = guards.New().With(blockAllGuard{})

	var blocked []guards.Decision
	dispatcher.OnSdk(events.SdkGuardBlocked, func(_ events.SdkType, payload any) {
		blocked = append(blocked, payload.(guards.Decision))
	})

	strat := New(cfg)
	view := fakeView{cid: cid, nowMs: 1000, bid: decimal.MustFrom("0.49"), ask: decimal.MustFrom("0.51")}
	require.NoError(t, strat.Tick(context.Background(), TickContext{NowMs: 1000, EntryView: view}))

	require.Len(t, blocked, 1)
	assert.Equal(t, 0, strat.Positions().OpenCount())
}

type blockAllGuard struct{}

func (blockAllGuard) Name() string                    { return "BlockAll" }
func (blockAllGuard) Check(_ guards.Context) guards.Decision { return guards.Block("BlockAll", "test block", false) }

func TestTickExitPhaseClosesPositionAndRecordsStats(t *testing.T) {
	cid := ids.ConditionId("cond-1")
	detector := &stubDetector{armed: false, cid: cid}
	exec := &stubExecutor{}
	cfg, _, _, _ := newActiveConfig(t, exec, detector)
	cfg.ExitPolicies = exits.New().With(exits.TakeProfitPolicy{TargetPct: decimal.MustFrom("0.1")})

	strat := New(cfg)

	openResult := strat.positionsMgr.Open(cid, "token-1", market.Yes, decimal.MustFrom("0.50"), decimal.MustFrom("10"), 1000)
	require.Nil(t, openResult.Err)
	strat.positionsMgr = openResult.Manager

	view := fakeView{cid: cid, nowMs: 2000, bid: decimal.MustFrom("0.60"), ask: decimal.MustFrom("0.62"), timeRemainingMs: 10000}
	tc := TickContext{NowMs: 2000, EntryView: view}

	require.NoError(t, strat.Tick(context.Background(), tc))

	assert.Equal(t, 0, strat.Positions().OpenCount())
	snap := strat.Stats()
	assert.Equal(t, 1, snap.Trades)
	assert.True(t, snap.TotalPnl.IsPositive())
}

func TestTickFatalExecutorErrorHaltsLifecycle(t *testing.T) {
	cid := ids.ConditionId("cond-1")
	detector := &stubDetector{armed: true, cid: cid, token: "token-1", side: market.Yes, price: decimal.MustFrom("0.5"), size: decimal.MustFrom("1")}
	exec := &stubExecutor{failWith: xerrors.New(xerrors.KindSystem, "venue unreachable")}
	cfg, _, _, lm := newActiveConfig(t, exec, detector)

	strat := New(cfg)
	view := fakeView{cid: cid, nowMs: 1000, bid: decimal.MustFrom("0.49"), ask: decimal.MustFrom("0.51")}
	require.NoError(t, strat.Tick(context.Background(), TickContext{NowMs: 1000, EntryView: view}))

	assert.Equal(t, lifecycle.Halted, lm.State())
}
