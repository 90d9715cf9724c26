// predengine is the core of an algorithmic trading engine for Polymarket
// prediction windows: a single-threaded, per-tick orchestrator wiring
// market data, signal detection, risk guards, exit policies and a paper
// executor together, journaling every decision.
//
// Architecture: MarketData -> SignalDetector -> GuardPipeline -> Executor
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flowstate-labs/predengine/clock"
	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/detect"
	"github.com/flowstate-labs/predengine/events"
	"github.com/flowstate-labs/predengine/execution"
	"github.com/flowstate-labs/predengine/exits"
	"github.com/flowstate-labs/predengine/guards"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/internal/audit"
	"github.com/flowstate-labs/predengine/internal/config"
	"github.com/flowstate-labs/predengine/journal"
	"github.com/flowstate-labs/predengine/lifecycle"
	"github.com/flowstate-labs/predengine/market"
	"github.com/flowstate-labs/predengine/marketdata"
	"github.com/flowstate-labs/predengine/notify"
	"github.com/flowstate-labs/predengine/orders"
	sig "github.com/flowstate-labs/predengine/signal"
	"github.com/flowstate-labs/predengine/tickengine"
	"github.com/flowstate-labs/predengine/watchdog"
	"github.com/flowstate-labs/predengine/wsmanager"
)

const version = "1.0.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfgResult := config.Load()
	if cfgResult.IsErr() {
		log.Fatal().Err(cfgResult.UnwrapErr()).Msg("Failed to load configuration")
	}
	cfg := cfgResult.Unwrap()

	log.Info().
		Str("version", version).
		Str("name", cfg.Name).
		Bool("paper_mode", cfg.PaperMode).
		Msg("🚀 predengine starting...")

	clk := clock.NewSystem()
	dispatcher := events.New()
	dispatcher.OnHandlerError(func(err any) {
		log.Error().Interface("error", err).Msg("event handler panicked")
	})

	journalPath := getEnv("PREDENGINE_JOURNAL_PATH", "predengine.journal.jsonl")
	jrnl, err := journal.NewFile(journalPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open journal")
	}
	defer jrnl.Close()

	if restored, err := journal.Restore(journalPath); err != nil {
		log.Error().Err(err).Msg("Failed to restore journal")
	} else {
		log.Info().
			Int("entries", len(restored.Entries)).
			Int("corrupt_lines", len(restored.CorruptLines)).
			Msg("📓 Journal restored")
	}

	auditDBPath := getEnv("PREDENGINE_AUDIT_DB_PATH", "predengine.audit.db")
	auditStore, err := audit.New(auditDBPath, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audit store")
	}
	defer auditStore.Close()
	auditStore.Subscribe(dispatcher)

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID, _ := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
		notifier, err := notify.New(token, chatID, log.Logger)
		if err != nil {
			log.Error().Err(err).Msg("Failed to start telegram notifier")
		} else {
			notifier.Subscribe(dispatcher)
			log.Info().Msg("📱 Telegram notifier active")
		}
	}

	lm := lifecycle.New(clk)
	wd := watchdog.New(clk, 5000, 15000)
	tracker := marketdata.New(clk)
	registry := orders.NewRegistry()

	executor := execution.NewPaperExecutor(execution.DefaultPaperConfig())

	rateLimit := guards.NewRateLimit(20, 60000)
	perMarketLimit := guards.NewPerMarketLimit(5)
	circuitBreaker := guards.NewCircuitBreaker(3, decimal.MustFrom("0.15"), 300000)
	profitLocker := exits.NewProfitLocker(decimal.MustFrom("0.25"))

	entryGuards := guards.New().
		With(guards.MaxPositions{Max: cfg.MaxPositions}).
		With(guards.Balance{MinBalance: decimal.MustFrom("10")}).
		With(guards.Exposure{MaxPct: decimal.MustFrom("0.8")}).
		With(guards.DuplicateOrder{}).
		With(guards.BookStaleness{MaxMs: 10000}).
		With(guards.UsdcRejection{}).
		With(rateLimit).
		With(perMarketLimit).
		With(circuitBreaker)

	exitGuards := guards.New().
		With(guards.DuplicateOrder{}).
		With(guards.BookStaleness{MaxMs: 10000})

	exitPolicies := exits.New().
		With(exits.TakeProfitPolicy{TargetPct: decimal.MustFrom("0.1")}).
		With(exits.StopLossPolicy{StopPct: decimal.MustFrom("0.3")}).
		With(exits.NearExpiryPolicy{ThresholdMs: 5000})

	conditionID := ids.ConditionId(getEnv("PREDENGINE_CONDITION_ID", ""))
	detector := detect.Sniper{
		TokenId:   ids.MarketTokenId(getEnv("PREDENGINE_TOKEN_ID", "")),
		MinTimeMs: 15000,
		MaxTimeMs: 60000,
		MinOdds:   decimal.MustFrom("0.88"),
		MaxOdds:   decimal.MustFrom("0.93"),
		EntrySize: decimal.MustFrom(strconv.Itoa(cfg.MaxOrderSizeUsdc)),
	}

	strat := tickengine.New(tickengine.Config{
		Lifecycle:      lm,
		Watchdog:       wd,
		EntryGuards:    entryGuards,
		ExitGuards:     exitGuards,
		ExitPolicies:   exitPolicies,
		Detector:       detector,
		Registry:       registry,
		Executor:       executor,
		Dispatcher:     dispatcher,
		Journal:        jrnl,
		WarmupTicks:    5,
		RateLimit:      rateLimit,
		PerMarketLimit: perMarketLimit,
		CircuitBreaker: circuitBreaker,
		ProfitLocker:   profitLocker,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsURL := getEnv("PREDENGINE_WS_URL", wsmanager.DefaultPolymarketWsURL)
	wsClient := wsmanager.NewGorillaClient(wsURL)
	wsMgr := wsmanager.New(clk, wsClient, 1000, 30000)
	wsMgr.OnError(func(err error) {
		log.Error().Err(err).Msg("ws manager error")
		dispatcher.EmitDomain(events.DomainFeedDegraded, err.Error())
	})

	if conditionID != "" {
		if err := wsMgr.Reconnect(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to connect websocket, running without live data")
		} else if err := wsMgr.Subscribe(wsmanager.Subscription{Channel: "book", Assets: []string{conditionID.String()}}); err != nil {
			log.Error().Err(err).Msg("Failed to subscribe to book channel")
		}
	}

	startingBalance := decimal.MustFrom(getEnv("PREDENGINE_STARTING_BALANCE", "1000"))

	ticker := time.NewTicker(time.Duration(cfg.TickIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Msg("✅ All services started")

runLoop:
	for {
		select {
		case <-quit:
			break runLoop
		case <-ticker.C:
			ingestFrames(wsMgr, tracker, wd)
			runTick(ctx, strat, tracker, clk, conditionID, startingBalance)
		}
	}

	log.Info().Msg("🛑 Shutting down...")
	_ = lm.Shutdown()
	cancel()
	log.Info().Msg("👋 Goodbye!")
}

// ingestFrames drains every book_update frame the ws manager has buffered
// since the last tick into tracker, touching wd on each one actually
// applied. Frames of other validated types (user_fill, user_order_status,
// heartbeat) are drained along with them and discarded.
// wd is only touched by real market-data receipt, not by this function
// merely running, so a dead feed still reads as silence.
func ingestFrames(wsMgr *wsmanager.Manager, tracker *marketdata.Tracker, wd *watchdog.Watchdog) {
	for _, msg := range wsMgr.Drain(nil) {
		var update wsmanager.BookUpdate
		if err := json.Unmarshal([]byte(msg.Message), &update); err != nil || update.ConditionId == "" {
			continue
		}
		tracker.Ingest(update)
		wd.Touch()
	}
}

// runTick builds this tick's TickContext off the tracked book for
// conditionID and runs one pass of the orchestrator. balance is a fixed
// paper bankroll; dailyPnl is approximated by the strategy's running net
// equity since start.
func runTick(ctx context.Context, strat *tickengine.BuiltStrategy, tracker *marketdata.Tracker, clk clock.Clock, conditionID ids.ConditionId, balance decimal.Decimal) {
	entryView, _ := tracker.View(conditionID)

	tc := tickengine.TickContext{
		NowMs:    clk.NowMs(),
		Balance:  balance,
		DailyPnl: strat.Stats().NetEquity(),
		EntryView: entryView,
		MarketView: func(cid ids.ConditionId, _ market.Side) (sig.TickView, bool) {
			return tracker.View(cid)
		},
		BookAgeMs: tracker.BookAgeMs,
	}

	if err := strat.Tick(ctx, tc); err != nil {
		log.Error().Err(err).Msg("tick failed")
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
