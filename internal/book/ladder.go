package book

import (
	"vantage/internal/common"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// PriceLevel is the FIFO queue of resting orders sharing one price on one
// side of one symbol. Time priority is insertion order into Orders.
type PriceLevel struct {
	Price  decimal.Decimal
	Orders []*common.Order
}

// ladder is a balanced tree of price levels for one side of one symbol,
// ordered so that "first" (Min) always means "best". Bids use a
// greatest-first comparator, asks a least-first comparator, so both sides
// share the same "walk from Min" matching code.
type ladder struct {
	tree *btree.BTreeG[*PriceLevel]
}

func newBidLadder() *ladder {
	return &ladder{tree: btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.GreaterThan(b.Price)
	})}
}

func newAskLadder() *ladder {
	return &ladder{tree: btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.LessThan(b.Price)
	})}
}

func (l *ladder) best() (*PriceLevel, bool) {
	return l.tree.Min()
}

func (l *ladder) get(price decimal.Decimal) (*PriceLevel, bool) {
	return l.tree.Get(&PriceLevel{Price: price})
}

func (l *ladder) set(level *PriceLevel) {
	l.tree.Set(level)
}

func (l *ladder) delete(level *PriceLevel) {
	l.tree.Delete(level)
}

func (l *ladder) len() int {
	return l.tree.Len()
}

// items returns a priority-ordered snapshot of the ladder's levels.
func (l *ladder) items() []*PriceLevel {
	out := make([]*PriceLevel, 0, l.tree.Len())
	l.tree.Scan(func(level *PriceLevel) bool {
		out = append(out, level)
		return true
	})
	return out
}

// walk visits levels in priority order, stopping early when fn returns false.
func (l *ladder) walk(fn func(*PriceLevel) bool) {
	l.tree.Scan(fn)
}
