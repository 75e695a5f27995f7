package signals

import "time"

// TradeSignal mirrors a row of the external admin_trade_signals table.
// EntryPrice and Quantity are NUMERIC(20,8) columns carried as strings so no
// precision is lost on the wire.
type TradeSignal struct {
	ID         int32     `json:"id"`
	Symbol     string    `json:"symbol"`
	EntryPrice string    `json:"ep"`
	Quantity   string    `json:"qty"`
	CreatedAt  time.Time `json:"createdAt"`
}
