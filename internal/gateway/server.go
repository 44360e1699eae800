package gateway

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"vantage/internal/book"
	"vantage/internal/common"
	"vantage/internal/engine"
	"vantage/internal/risk"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultConnTimeout = 30 * time.Second

var errImproperTask = errors.New("gateway: worker given non-connection task")

// session tracks one connected client's socket, keyed by owner username so
// execution reports for either party of a trade can be routed back.
type session struct {
	conn net.Conn
}

// Server is the TCP order-entry front end. It never mutates the book or
// risk manager directly; every accepted order or cancel is validated (for
// new orders) then handed to the matching engine's ingest queue over a
// persistent length-prefixed frame loop per connection.
type Server struct {
	addr   string
	engine *engine.MatchingEngine
	book   *book.OrderBook
	risk   *risk.RiskManager
	pool   *workerPool

	sessionsMu sync.Mutex
	sessions   map[string]*session
	ownerByID  map[uint64]string

	cancel context.CancelFunc
}

// New builds a gateway listening on addr with workers-many connection
// handlers, routing accepted orders into e and validating them against r.
func New(addr string, workers int, e *engine.MatchingEngine, b *book.OrderBook, r *risk.RiskManager) *Server {
	s := &Server{
		addr:      addr,
		engine:    e,
		book:      b,
		risk:      r,
		pool:      newWorkerPool(workers),
		sessions:  make(map[string]*session),
		ownerByID: make(map[uint64]string),
	}
	e.OnTrade(s.onTrade)
	return s
}

// Shutdown cancels the server's run context.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Run listens for and serves client connections until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}
	defer listener.Close()

	t.Go(func() error {
		s.pool.run(t, s.handleConnection)
		return nil
	})

	log.Info().Str("addr", s.addr).Msg("gateway: listening")

	go func() {
		<-t.Dying()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Error().Err(err).Msg("gateway: accept error")
				continue
			}
		}
		s.pool.addTask(conn)
	}
}

// handleConnection owns one client socket for its entire lifetime: it
// reads length-prefixed frames, dispatches each to the engine, and cleans
// up the session on any read error or EOF.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return errImproperTask
	}
	addr := conn.RemoteAddr().String()
	defer conn.Close()

	for {
		select {
		case <-t.Dying():
			return nil
		default:
		}

		if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("gateway: set deadline failed")
			s.dropSessionsFor(conn)
			return nil
		}

		frame, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Str("addr", addr).Msg("gateway: connection closed")
			}
			s.dropSessionsFor(conn)
			return nil
		}

		msg, err := ParseMessage(frame)
		if err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("gateway: malformed message")
			s.send(conn, ErrorReportMsg(err))
			continue
		}
		s.dispatch(conn, msg)
	}
}

func (s *Server) dispatch(conn net.Conn, msg ClientMessage) {
	switch msg.Type {
	case TypeNewOrder:
		s.handleNewOrder(conn, msg.Order)
	case TypeCancelOrder:
		if err := s.engine.Send(engine.CancelOrderMessage(msg.Cancel.Symbol, msg.Cancel.ID)); err != nil {
			s.send(conn, ErrorReportMsg(err))
		}
	case TypeLogBook:
		bid, _ := s.book.GetBestBid("AAPL")
		ask, _ := s.book.GetBestAsk("AAPL")
		log.Info().Str("bestBid", bid.String()).Str("bestAsk", ask.String()).Msg("gateway: book snapshot requested")
	case TypeBatchOrders:
		s.handleBatchOrders(conn, msg.Batch)
	}
}

func (s *Server) handleBatchOrders(conn net.Conn, orders []common.Order) {
	accepted := make([]common.Order, 0, len(orders))
	for _, o := range orders {
		s.trackSession(o.ID, o.Owner, conn)
		if !s.risk.ValidateOrder(o) {
			s.send(conn, ErrorReportMsg(fmt.Errorf("order rejected: risk validation failed for %s", o.Symbol)))
			continue
		}
		accepted = append(accepted, o)
	}
	if len(accepted) == 0 {
		return
	}
	if err := s.engine.Send(engine.BatchOrdersMessage(accepted)); err != nil {
		s.send(conn, ErrorReportMsg(err))
	}
}

func (s *Server) handleNewOrder(conn net.Conn, o common.Order) {
	s.trackSession(o.ID, o.Owner, conn)

	if !s.risk.ValidateOrder(o) {
		s.send(conn, ErrorReportMsg(fmt.Errorf("order rejected: risk validation failed for %s", o.Symbol)))
		return
	}
	if err := s.engine.Send(engine.NewOrderMessage(o)); err != nil {
		s.send(conn, ErrorReportMsg(err))
	}
}

// onTrade is invoked by the matching engine's consumer loop for every
// fill; it fans an execution report out to whichever of the two parties
// still have a live session.
func (s *Server) onTrade(trade common.Trade) {
	s.reportFill(trade.BuyerID, trade.SellerID, common.Buy, trade)
	s.reportFill(trade.SellerID, trade.BuyerID, common.Sell, trade)
}

func (s *Server) reportFill(partyID, counterpartyID uint64, side common.Side, trade common.Trade) {
	s.sessionsMu.Lock()
	owner, ok := s.ownerByID[partyID]
	var sess *session
	if ok {
		sess = s.sessions[owner]
	}
	counterpartyOwner := s.ownerByID[counterpartyID]
	s.sessionsMu.Unlock()
	if sess == nil {
		return
	}

	report := ExecutionReport(trade.Symbol, side, trade.Price.String(), trade.Quantity.String(), counterpartyOwner, trade.Timestamp)
	s.send(sess.conn, report)
}

func (s *Server) trackSession(orderID uint64, owner string, conn net.Conn) {
	if owner == "" {
		return
	}
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[owner] = &session{conn: conn}
	s.ownerByID[orderID] = owner
}

func (s *Server) dropSessionsFor(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for owner, sess := range s.sessions {
		if sess.conn == conn {
			delete(s.sessions, owner)
		}
	}
}

func (s *Server) send(conn net.Conn, r Report) {
	if _, err := conn.Write(frameBytes(r.Serialize())); err != nil {
		log.Error().Err(err).Msg("gateway: write report failed")
	}
}

// readFrame reads one 4-byte-length-prefixed frame from r.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// frameBytes prefixes payload with its 4-byte big-endian length.
func frameBytes(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out[:4], uint32(len(payload)))
	copy(out[4:], payload)
	return out
}
