package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a client's trading intent. Immutable by convention: the engine
// only ever mutates Quantity on a resting order during matching, and a
// rested remainder is always inserted as a fresh clone.
type Order struct {
	ID            uint64
	Symbol        string
	Side          Side
	Type          OrderType
	Price         decimal.Decimal // limit price; ignored (zero) for Market
	Quantity      decimal.Decimal // remaining quantity
	TotalQuantity decimal.Decimal // original quantity requested
	Owner         string          // who submitted this order
	Timestamp     time.Time       // time of arrival at the producer
	ExchTimestamp time.Time       // time of arrival into the book
}

// Clone returns a shallow copy of the order.
func (o Order) Clone() Order {
	return o
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{id=%d sym=%s side=%s type=%s price=%s qty=%s/%s owner=%s}",
		o.ID, o.Symbol, o.Side, o.Type, o.Price, o.Quantity, o.TotalQuantity, o.Owner,
	)
}

// Remaining reports whether the order still carries quantity worth acting on.
func (o Order) Remaining() bool {
	return o.Quantity.GreaterThan(QuantityEpsilon)
}
