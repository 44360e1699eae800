// Command vantage-client is a CLI order-entry client for the vantage
// gateway. Adapted from cmd/client/client.go, generalized to the
// length-prefixed decimal-string wire protocol in internal/gateway.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"vantage/internal/common"
	"vantage/internal/gateway"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:7443", "address of the vantage gateway")
	owner := flag.String("owner", "", "owner username (required)")
	action := flag.String("action", "place", "action: place, cancel, log")

	symbol := flag.String("symbol", "AAPL", "symbol")
	sideStr := flag.String("side", "buy", "buy or sell")
	typeStr := flag.String("type", "limit", "limit or market")
	price := flag.String("price", "100.00", "limit price")
	qtyStr := flag.String("qty", "10", "quantity, or comma-separated list e.g. 10,20,50")

	orderID := flag.Uint64("id", 0, "order id to cancel")

	flag.Parse()

	if *owner == "" {
		fmt.Println("error: -owner is required")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as %q\n", *serverAddr, *owner)

	go readReports(conn)

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}
	orderType := common.Limit
	if strings.ToLower(*typeStr) == "market" {
		orderType = common.Market
	}

	switch strings.ToLower(*action) {
	case "place":
		for _, qty := range strings.Split(*qtyStr, ",") {
			qty = strings.TrimSpace(qty)
			if qty == "" {
				continue
			}
			if err := sendPlaceOrder(conn, *owner, *symbol, orderType, side, *price, qty); err != nil {
				log.Printf("failed to place order (qty %s): %v", qty, err)
			} else {
				fmt.Printf("-> sent %s order: %s %s @ %s\n", strings.ToUpper(*sideStr), *symbol, qty, *price)
			}
			time.Sleep(5 * time.Millisecond)
		}
	case "cancel":
		if *orderID == 0 {
			log.Fatal("error: -id is required for cancel")
		}
		if err := sendCancelOrder(conn, *symbol, *orderID); err != nil {
			log.Printf("failed to send cancel: %v", err)
		} else {
			fmt.Printf("-> sent cancel for id %d\n", *orderID)
		}
	case "log":
		if err := sendLogBook(conn); err != nil {
			log.Printf("failed to send log request: %v", err)
		}
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (ctrl+c to exit)")
	select {}
}

func sendPlaceOrder(conn net.Conn, owner, symbol string, orderType common.OrderType, side common.Side, price, qty string) error {
	body := make([]byte, 0, 64)
	body = append(body, byte(gateway.TypeNewOrder))
	body = append(body, byte(orderType), byte(side))
	body = appendLenPrefixed(body, symbol, 1)
	body = appendLenPrefixed(body, price, 2)
	body = appendLenPrefixed(body, qty, 2)
	body = appendLenPrefixed(body, owner, 1)
	return writeFrame(conn, body)
}

func sendCancelOrder(conn net.Conn, symbol string, id uint64) error {
	body := make([]byte, 0, 32)
	body = append(body, byte(gateway.TypeCancelOrder))
	body = appendLenPrefixed(body, symbol, 1)
	idBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(idBuf, id)
	body = append(body, idBuf...)
	return writeFrame(conn, body)
}

func sendLogBook(conn net.Conn) error {
	return writeFrame(conn, []byte{byte(gateway.TypeLogBook)})
}

func appendLenPrefixed(buf []byte, s string, lenBytes int) []byte {
	switch lenBytes {
	case 1:
		buf = append(buf, byte(len(s)))
	case 2:
		lb := make([]byte, 2)
		binary.BigEndian.PutUint16(lb, uint16(len(s)))
		buf = append(buf, lb...)
	}
	return append(buf, s...)
}

func writeFrame(conn net.Conn, payload []byte) error {
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	if _, err := conn.Write(lenBuf); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

func readReports(conn net.Conn) {
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		buf := make([]byte, n)
		if _, err := io.ReadFull(conn, buf); err != nil {
			log.Printf("error reading report body: %v", err)
			return
		}
		printReport(buf)
	}
}

func printReport(buf []byte) {
	if len(buf) < 10 {
		log.Printf("malformed report: too short")
		return
	}
	reportType := gateway.ReportType(buf[0])
	side := common.Side(buf[1])
	ts := int64(binary.BigEndian.Uint64(buf[2:10]))
	offset := 10

	symbol, offset, err := readLenPrefixed(buf, offset, 1)
	if err != nil {
		log.Printf("malformed report: %v", err)
		return
	}
	price, offset, err := readLenPrefixed(buf, offset, 2)
	if err != nil {
		log.Printf("malformed report: %v", err)
		return
	}
	qty, offset, err := readLenPrefixed(buf, offset, 2)
	if err != nil {
		log.Printf("malformed report: %v", err)
		return
	}
	counterparty, offset, err := readLenPrefixed(buf, offset, 2)
	if err != nil {
		log.Printf("malformed report: %v", err)
		return
	}
	errStr, _, err := readLenPrefixed(buf, offset, 4)
	if err != nil {
		log.Printf("malformed report: %v", err)
		return
	}

	if reportType == gateway.TypeErrorReport {
		fmt.Printf("\n[ERROR] %s\n", errStr)
		return
	}

	sideStr := "BUY"
	if side == common.Sell {
		sideStr = "SELL"
	}
	fmt.Printf("\n[FILL] %s %s qty=%s price=%s vs=%s t=%d\n", sideStr, symbol, qty, price, counterparty, ts)
}

func readLenPrefixed(buf []byte, offset, lenBytes int) (string, int, error) {
	if offset+lenBytes > len(buf) {
		return "", 0, fmt.Errorf("truncated length prefix at offset %d", offset)
	}
	var n int
	switch lenBytes {
	case 1:
		n = int(buf[offset])
	case 2:
		n = int(binary.BigEndian.Uint16(buf[offset:]))
	case 4:
		n = int(binary.BigEndian.Uint32(buf[offset:]))
	}
	offset += lenBytes
	if offset+n > len(buf) {
		return "", 0, fmt.Errorf("truncated value at offset %d", offset)
	}
	return string(buf[offset : offset+n]), offset + n, nil
}
