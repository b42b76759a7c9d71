// Package audit persists simulated executions to sqlite so sessions
// can be replayed and compared offline.
package audit

import (
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/gorm"

	"github.com/glebarez/sqlite"

	"main/internal/model"
	"main/internal/sim"
)

// TradeLog is one executed fill with the signal context it fired
// under.
type TradeLog struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	TimestampNS int64   `gorm:"column:timestamp_ns;index"`
	Symbol      string  `gorm:"column:symbol"`
	Side        string  `gorm:"column:side"`
	Strategy    string  `gorm:"column:strategy"`
	Price       string  `gorm:"column:price"`
	Quantity    string  `gorm:"column:qty"`
	PnL         string  `gorm:"column:pnl"`
	Velocity    float64 `gorm:"column:velocity"`
	VPIN        string  `gorm:"column:vpin"`
	SessionID   string  `gorm:"column:session_id;index"`
}

// TableName keeps the historical table name.
func (TradeLog) TableName() string { return "trade_log" }

// Context is the signal snapshot recorded next to each fill.
type Context struct {
	Velocity    float64
	VPIN        int64
	RealizedPnL int64
}

// Store writes trade logs. A nil Store drops everything, so callers
// can run without persistence.
type Store struct {
	db        *gorm.DB
	symbol    string
	sessionID string
}

// Open connects to the sqlite file at path and migrates the schema.
func Open(path, symbol string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open audit db")
	}
	if err := db.AutoMigrate(&TradeLog{}); err != nil {
		return nil, errors.Wrap(err, "migrate audit db")
	}
	return &Store{
		db:        db,
		symbol:    symbol,
		sessionID: time.Now().UTC().Format("20060102T150405Z"),
	}, nil
}

// RecordFill appends one fill. Persistence failures are logged and
// swallowed; the pipeline never stalls on the audit trail.
func (s *Store) RecordFill(f sim.Fill, ctx Context) {
	if s == nil {
		return
	}
	row := TradeLog{
		TimestampNS: f.TsNano,
		Symbol:      s.symbol,
		Side:        sideString(f.Side),
		Strategy:    f.Reason,
		Price:       f.Price.String(),
		Quantity:    f.Quantity.String(),
		PnL:         model.Notional(ctx.RealizedPnL).String(),
		Velocity:    ctx.Velocity,
		VPIN:        model.Notional(ctx.VPIN).String(),
		SessionID:   s.sessionID,
	}
	if err := s.db.Create(&row).Error; err != nil {
		logs.Errorf("audit: record fill, err: %+v", err)
	}
}

// SessionFills returns this session's fills in time order.
func (s *Store) SessionFills() ([]TradeLog, error) {
	if s == nil {
		return nil, nil
	}
	var rows []TradeLog
	err := s.db.
		Where("session_id = ?", s.sessionID).
		Order("timestamp_ns asc").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query session fills")
	}
	return rows, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "close audit db")
	}
	return sqlDB.Close()
}

func sideString(side model.Side) string {
	switch side {
	case model.SideBuy:
		return "BUY"
	case model.SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}
