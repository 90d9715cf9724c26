// Package execution implements the Executor collaborator of spec.md 6: a
// narrow submit/cancel interface returning Result<OrderResult,TradingError>,
// plus PaperExecutor, a simulated-fill implementation. Grounded on this
// file's own prior shape (OrderState machine, simulateFill's
// slippage/clamp/fee logic), generalized from its map-of-Order/*Position
// internal bookkeeping — now owned by orders.Registry and positions.Manager
// — down to the bare submit/cancel contract spec.md 6 specifies. Submission
// throttling uses golang.org/x/time/rate, the token-bucket limiter the
// guards.RateLimit guard deliberately does not use (see DESIGN.md) since
// this is where the engine actually rate-limits outbound traffic to a
// venue.
package execution

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/signal"
	"github.com/flowstate-labs/predengine/xerrors"
	"github.com/flowstate-labs/predengine/xresult"
)

// OrderResult is the executor's success value, per spec.md 6.
type OrderResult struct {
	ClientOrderId   ids.ClientOrderId
	ExchangeOrderId ids.ExchangeOrderId
	FinalState      string
	TotalFilled     decimal.Decimal
	AvgFillPrice    decimal.Decimal
	TradeId         string
	Fee             decimal.Decimal
}

// Executor is the narrow collaborator interface spec.md 6 specifies. A
// submission boundary is a suspension point (spec.md 5): implementations
// must bound submit/cancel by a per-call timeout via ctx.
type Executor interface {
	Submit(ctx context.Context, intent signal.OrderIntent, coid ids.ClientOrderId) xresult.Result[OrderResult]
	Cancel(ctx context.Context, coid ids.ClientOrderId) xresult.Result[struct{}]
}

// PaperConfig configures PaperExecutor's simulated fills.
type PaperConfig struct {
	SlippageBps    int64
	FeeBps         int64
	MinPrice       decimal.Decimal
	MaxPrice       decimal.Decimal
	RateLimitHz    float64
	RateLimitBurst int
}

// DefaultPaperConfig mirrors this package's previous DefaultExecutorConfig
// defaults (10bps slippage, 10bps fee, clamp to [0.01, 0.99]).
func DefaultPaperConfig() PaperConfig {
	return PaperConfig{
		SlippageBps:    10,
		FeeBps:         10,
		MinPrice:       decimal.MustFrom("0.01"),
		MaxPrice:       decimal.MustFrom("0.99"),
		RateLimitHz:    10,
		RateLimitBurst: 5,
	}
}

// PaperExecutor simulates fills instead of submitting to a venue, grounded
// on this file's prior simulateFill: apply slippage against the requested
// price, clamp to a valid probability range, fill in full, charge a
// proportional fee.
type PaperExecutor struct {
	cfg          PaperConfig
	limiter      *rate.Limiter
	nextTradeSeq int64
}

// NewPaperExecutor builds a PaperExecutor throttled to cfg's rate limit.
func NewPaperExecutor(cfg PaperConfig) *PaperExecutor {
	return &PaperExecutor{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitHz), cfg.RateLimitBurst),
	}
}

var _ Executor = (*PaperExecutor)(nil)

// Submit waits for rate-limiter admission (respecting ctx cancellation),
// then simulates an immediate full fill with slippage and fee.
func (p *PaperExecutor) Submit(ctx context.Context, intent signal.OrderIntent, coid ids.ClientOrderId) xresult.Result[OrderResult] {
	if err := p.limiter.Wait(ctx); err != nil {
		return xresult.Err[OrderResult](xerrors.Wrap(xerrors.KindTimeout, err, "execution: rate limiter wait"))
	}

	slippage := decimal.FromInt(p.cfg.SlippageBps).DivOr(decimal.FromInt(10000), decimal.Zero)
	fillPrice := intent.Price
	if intent.Direction == signal.Buy {
		fillPrice = intent.Price.Mul(decimal.One.Add(slippage))
	} else {
		fillPrice = intent.Price.Mul(decimal.One.Sub(slippage))
	}
	fillPrice = decimal.Clamp(fillPrice, p.cfg.MinPrice, p.cfg.MaxPrice)

	feeRate := decimal.FromInt(p.cfg.FeeBps).DivOr(decimal.FromInt(10000), decimal.Zero)
	notional := fillPrice.Mul(intent.Size)
	fee := notional.Mul(feeRate)

	p.nextTradeSeq++
	return xresult.Ok(OrderResult{
		ClientOrderId:   coid,
		ExchangeOrderId: ids.ExchangeOrderId(fmt.Sprintf("paper-%s", coid)),
		FinalState:      "filled",
		TotalFilled:     intent.Size,
		AvgFillPrice:    fillPrice,
		TradeId:         fmt.Sprintf("trade-%d", p.nextTradeSeq),
		Fee:             fee,
	})
}

// Cancel always reports the order already filled: PaperExecutor fills
// immediately on submit, matching a real venue's "too late" response to a
// cancel racing a fill.
func (p *PaperExecutor) Cancel(ctx context.Context, coid ids.ClientOrderId) xresult.Result[struct{}] {
	return xresult.Err[struct{}](xerrors.New(xerrors.KindOrderRejected, "execution: order %s already filled, cannot cancel", coid))
}
