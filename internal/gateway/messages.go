// Package gateway implements the TCP order-entry front end: a
// length-prefixed binary wire protocol, a tomb-supervised worker pool
// reading client connections, and session bookkeeping for routing
// execution reports back to the two parties of a fill. Grounded on
// internal/net/messages.go and internal/net/server.go, generalized so
// monetary/quantity fields are length-prefixed decimal strings (matching
// vantage's fixed-point decimal core) instead of IEEE-754 float64 bits,
// and so frames are length-prefixed rather than read in a single
// best-effort buffer read.
package gateway

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"vantage/internal/common"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidMessageType = errors.New("gateway: invalid message type")
	ErrMessageTooShort    = errors.New("gateway: message too short")
)

// MessageType tags an inbound client message.
type MessageType uint8

const (
	TypeNewOrder MessageType = iota
	TypeCancelOrder
	TypeLogBook
	TypeBatchOrders
)

// ReportType tags an outbound server message.
type ReportType uint8

const (
	TypeExecutionReport ReportType = iota
	TypeErrorReport
)

// ClientMessage is the parsed union of everything a client can send.
type ClientMessage struct {
	Type   MessageType
	Order  common.Order
	Cancel CancelRequest
	Batch  []common.Order
}

// CancelRequest identifies an order to cancel by symbol and id.
type CancelRequest struct {
	Symbol string
	ID     uint64
}

func putLenPrefixedString(buf []byte, offset int, s string, lenBytes int) int {
	switch lenBytes {
	case 1:
		buf[offset] = byte(len(s))
	case 2:
		binary.BigEndian.PutUint16(buf[offset:], uint16(len(s)))
	case 4:
		binary.BigEndian.PutUint32(buf[offset:], uint32(len(s)))
	}
	offset += lenBytes
	copy(buf[offset:], s)
	return offset + len(s)
}

func readLenPrefixedString(msg []byte, offset int, lenBytes int) (string, int, error) {
	if offset+lenBytes > len(msg) {
		return "", 0, ErrMessageTooShort
	}
	var n int
	switch lenBytes {
	case 1:
		n = int(msg[offset])
	case 2:
		n = int(binary.BigEndian.Uint16(msg[offset:]))
	case 4:
		n = int(binary.BigEndian.Uint32(msg[offset:]))
	}
	offset += lenBytes
	if offset+n > len(msg) {
		return "", 0, ErrMessageTooShort
	}
	return string(msg[offset : offset+n]), offset + n, nil
}

// ParseMessage decodes one client frame (without the outer 4-byte length
// prefix, already stripped by the frame reader).
func ParseMessage(msg []byte) (ClientMessage, error) {
	if len(msg) < 1 {
		return ClientMessage{}, ErrMessageTooShort
	}
	typeOf := MessageType(msg[0])
	body := msg[1:]
	switch typeOf {
	case TypeNewOrder:
		o, err := parseNewOrder(body)
		return ClientMessage{Type: TypeNewOrder, Order: o}, err
	case TypeCancelOrder:
		c, err := parseCancelOrder(body)
		return ClientMessage{Type: TypeCancelOrder, Cancel: c}, err
	case TypeLogBook:
		return ClientMessage{Type: TypeLogBook}, nil
	case TypeBatchOrders:
		orders, err := parseBatchOrders(body)
		return ClientMessage{Type: TypeBatchOrders, Batch: orders}, err
	default:
		return ClientMessage{}, ErrInvalidMessageType
	}
}

// parseNewOrder decodes: orderType(1) side(1) symbolLen(1)+symbol
// priceLen(2)+price quantityLen(2)+quantity usernameLen(1)+username.
func parseNewOrder(msg []byte) (common.Order, error) {
	o, _, err := parseNewOrderAt(msg, 0)
	return o, err
}

// parseBatchOrders decodes: count(2) followed by count back-to-back
// new-order records, each in parseNewOrderAt's format.
func parseBatchOrders(msg []byte) ([]common.Order, error) {
	if len(msg) < 2 {
		return nil, ErrMessageTooShort
	}
	count := int(binary.BigEndian.Uint16(msg))
	offset := 2

	orders := make([]common.Order, 0, count)
	for i := 0; i < count; i++ {
		o, next, err := parseNewOrderAt(msg, offset)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
		offset = next
	}
	return orders, nil
}

// parseNewOrderAt decodes one new-order record starting at offset and
// returns the offset immediately past it, so batch parsing can chain calls.
func parseNewOrderAt(msg []byte, offset int) (common.Order, int, error) {
	if offset+2 > len(msg) {
		return common.Order{}, 0, ErrMessageTooShort
	}
	orderType := common.OrderType(msg[offset])
	side := common.Side(msg[offset+1])
	offset += 2

	symbol, offset, err := readLenPrefixedString(msg, offset, 1)
	if err != nil {
		return common.Order{}, 0, err
	}
	priceStr, offset, err := readLenPrefixedString(msg, offset, 2)
	if err != nil {
		return common.Order{}, 0, err
	}
	qtyStr, offset, err := readLenPrefixedString(msg, offset, 2)
	if err != nil {
		return common.Order{}, 0, err
	}
	owner, offset, err := readLenPrefixedString(msg, offset, 1)
	if err != nil {
		return common.Order{}, 0, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return common.Order{}, 0, fmt.Errorf("parse price: %w", err)
	}
	qty, err := decimal.NewFromString(qtyStr)
	if err != nil {
		return common.Order{}, 0, fmt.Errorf("parse quantity: %w", err)
	}

	return common.Order{
		Symbol:        symbol,
		Side:          side,
		Type:          orderType,
		Price:         price,
		Quantity:      qty,
		TotalQuantity: qty,
		Owner:         owner,
		Timestamp:     time.Now(),
	}, offset, nil
}

// parseCancelOrder decodes: symbolLen(1)+symbol orderID(8).
func parseCancelOrder(msg []byte) (CancelRequest, error) {
	symbol, offset, err := readLenPrefixedString(msg, 0, 1)
	if err != nil {
		return CancelRequest{}, err
	}
	if offset+8 > len(msg) {
		return CancelRequest{}, ErrMessageTooShort
	}
	id := binary.BigEndian.Uint64(msg[offset : offset+8])
	return CancelRequest{Symbol: symbol, ID: id}, nil
}

// Report is an outbound execution or error report.
type Report struct {
	Type         ReportType
	Side         common.Side
	Timestamp    time.Time
	Symbol       string
	Price        string
	Quantity     string
	Counterparty string
	Err          string
}

// Serialize packs a report into its wire form: type(1) side(1)
// timestamp(8) symbolLen(1)+symbol priceLen(2)+price qtyLen(2)+qty
// counterpartyLen(2)+counterparty errLen(4)+err.
func (r Report) Serialize() []byte {
	size := 1 + 1 + 8 + 1 + len(r.Symbol) + 2 + len(r.Price) + 2 + len(r.Quantity) +
		2 + len(r.Counterparty) + 4 + len(r.Err)
	buf := make([]byte, size)

	buf[0] = byte(r.Type)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], uint64(r.Timestamp.UnixNano()))
	offset := 10
	offset = putLenPrefixedString(buf, offset, r.Symbol, 1)
	offset = putLenPrefixedString(buf, offset, r.Price, 2)
	offset = putLenPrefixedString(buf, offset, r.Quantity, 2)
	offset = putLenPrefixedString(buf, offset, r.Counterparty, 2)
	putLenPrefixedString(buf, offset, r.Err, 4)
	return buf
}

// ExecutionReport builds a fill report addressed to one side of a trade.
func ExecutionReport(symbol string, side common.Side, price, quantity string, counterparty string, ts time.Time) Report {
	return Report{
		Type:         TypeExecutionReport,
		Side:         side,
		Timestamp:    ts,
		Symbol:       symbol,
		Price:        price,
		Quantity:     quantity,
		Counterparty: counterparty,
	}
}

// ErrorReportMsg builds an error report.
func ErrorReportMsg(err error) Report {
	return Report{Type: TypeErrorReport, Timestamp: time.Now(), Err: err.Error()}
}
