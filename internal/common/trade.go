package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an ephemeral fill record emitted by the matching engine. It is a
// value, never a node referenced back into the book or the engine.
type Trade struct {
	ID        uint64
	Symbol    string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	BuyerID   uint64
	SellerID  uint64
	Timestamp time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{id=%d sym=%s price=%s qty=%s buyer=%d seller=%d}",
		t.ID, t.Symbol, t.Price, t.Quantity, t.BuyerID, t.SellerID,
	)
}
