package engine

import "vantage/internal/common"

// MessageKind tags the union carried on the engine's ingest queue.
type MessageKind int

const (
	KindNewOrder MessageKind = iota
	KindCancelOrder
	KindBatchOrders
)

// CancelRequest identifies a resting order to remove.
type CancelRequest struct {
	Symbol string
	ID     uint64
}

// EngineMessage is the tagged union the matching engine consumes:
// NewOrder(Order) | CancelOrder{symbol, id} | BatchOrders(list<Order>).
type EngineMessage struct {
	Kind   MessageKind
	Order  common.Order
	Cancel CancelRequest
	Batch  []common.Order
}

// NewOrderMessage wraps a single order for ingestion.
func NewOrderMessage(o common.Order) EngineMessage {
	return EngineMessage{Kind: KindNewOrder, Order: o}
}

// CancelOrderMessage requests removal of a resting order by id.
func CancelOrderMessage(symbol string, id uint64) EngineMessage {
	return EngineMessage{Kind: KindCancelOrder, Cancel: CancelRequest{Symbol: symbol, ID: id}}
}

// BatchOrdersMessage wraps a batch of orders to be processed in sequence.
func BatchOrdersMessage(orders []common.Order) EngineMessage {
	return EngineMessage{Kind: KindBatchOrders, Batch: orders}
}
