// Package audit implements the secondary, purely additive recorder of
// SPEC_FULL.md Section C: a gorm/sqlite-backed store of closed positions
// and filled orders, adapted from the teacher's
// internal/database/database.go models (Trade, ArbTrade) generalized onto
// this engine's own domain types and subscribed directly to the
// dispatcher's position_closed/fill_received SDK events instead of being
// called synchronously from the order path. The authoritative crash
// recovery source stays the JSONL journal (spec.md 4.5); Store never gates
// any tick-loop operation, so a write failure here is logged, not
// propagated.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flowstate-labs/predengine/events"
	"github.com/flowstate-labs/predengine/execution"
)

// ClosedPositionRecord is the gorm model for a position_closed event,
// generalized from the teacher's Trade/ArbTrade models onto this engine's
// ConditionId/decimal.Decimal types (decimals persisted as strings so
// sqlite never rounds through float64).
type ClosedPositionRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	ConditionId string `gorm:"index"`
	ExitPrice   string
	RealizedPnl string
	Fee         string
	Reason      string
	ClosedAt    time.Time
}

func (ClosedPositionRecord) TableName() string { return "closed_positions" }

// OrderFilledRecord is the gorm model for an order_filled event.
type OrderFilledRecord struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	ClientOrderId   string `gorm:"index"`
	ExchangeOrderId string
	FinalState      string
	AvgFillPrice    string
	TotalFilled     string
	Fee             string
	FilledAt        time.Time
}

func (OrderFilledRecord) TableName() string { return "order_fills" }

// Store is the audit database. The zero value is not usable; construct
// with New.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New opens (creating if absent) a sqlite database at dbPath and migrates
// the audit schema, mirroring the teacher's New's directory-creation and
// silent-logger conventions.
func New(dbPath string, log zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("audit: create db directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&ClosedPositionRecord{}, &OrderFilledRecord{}); err != nil {
		return nil, fmt.Errorf("audit: automigrate: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Subscribe wires this Store onto dispatcher's position_closed and
// fill_received SDK events. Payload shapes must match
// tickengine.PositionClosedPayload and execution.OrderResult; any other
// payload is logged and dropped.
func (s *Store) Subscribe(dispatcher *events.Dispatcher) {
	dispatcher.OnSdk(events.SdkPositionClosed, func(_ events.SdkType, payload any) {
		s.recordPositionClosed(payload)
	})
	dispatcher.OnSdk(events.SdkFillReceived, func(_ events.SdkType, payload any) {
		s.recordOrderFilled(payload)
	})
}

// positionClosedPayload is the narrow shape Subscribe needs off a
// position_closed payload, avoiding an import of tickengine (which would
// create an import cycle, since tickengine never depends on audit).
type positionClosedPayload interface {
	AuditFields() (conditionId, exitPrice, realizedPnl, fee, reason string)
}

func (s *Store) recordPositionClosed(payload any) {
	p, ok := payload.(positionClosedPayload)
	if !ok {
		s.log.Warn().Msg("audit: position_closed payload missing AuditFields")
		return
	}
	conditionId, exitPrice, realizedPnl, fee, reason := p.AuditFields()
	record := ClosedPositionRecord{
		ConditionId: conditionId,
		ExitPrice:   exitPrice,
		RealizedPnl: realizedPnl,
		Fee:         fee,
		Reason:      reason,
		ClosedAt:    time.Now(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		s.log.Error().Err(err).Msg("audit: failed to record closed position")
	}
}

func (s *Store) recordOrderFilled(payload any) {
	result, ok := payload.(execution.OrderResult)
	if !ok {
		s.log.Warn().Msg("audit: fill_received payload is not execution.OrderResult")
		return
	}
	record := OrderFilledRecord{
		ClientOrderId:   result.ClientOrderId.String(),
		ExchangeOrderId: result.ExchangeOrderId.String(),
		FinalState:      result.FinalState,
		AvgFillPrice:    result.AvgFillPrice.String(),
		TotalFilled:     result.TotalFilled.String(),
		Fee:             result.Fee.String(),
		FilledAt:        time.Now(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		s.log.Error().Err(err).Msg("audit: failed to record order fill")
	}
}

// RecentClosedPositions returns up to limit most-recently-closed position
// records, newest first.
func (s *Store) RecentClosedPositions(limit int) ([]ClosedPositionRecord, error) {
	var out []ClosedPositionRecord
	err := s.db.Order("closed_at desc").Limit(limit).Find(&out).Error
	return out, err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
