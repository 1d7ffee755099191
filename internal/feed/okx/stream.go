package okx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/internal/metrics"
)

const (
	baseReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay  = 30 * time.Second
)

// reconnectDelay doubles from 500ms per consecutive failure, capped at 30s.
func reconnectDelay(retry int) time.Duration {
	if retry < 0 {
		return baseReconnectDelay
	}
	if retry > 16 {
		return maxReconnectDelay
	}
	d := baseReconnectDelay * time.Duration(1<<retry)
	if d > maxReconnectDelay {
		return maxReconnectDelay
	}
	return d
}

// Streamer keeps the cache current from the public books5 channel.
// Each push is a full top-of-book snapshot, so no local book is maintained.
type Streamer struct {
	logger  *zap.Logger
	url     string
	symbols []string
	books   Swapper
	dialer  *websocket.Dialer
	now     func() time.Time

	PingInterval time.Duration
	ReadTimeout  time.Duration

	writeMu sync.Mutex
}

func NewStreamer(logger *zap.Logger, wsURL string, symbols []string, books Swapper) *Streamer {
	return &Streamer{
		logger:       logger,
		url:          wsURL,
		symbols:      symbols,
		books:        books,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		now:          time.Now,
		PingInterval: 20 * time.Second,
		ReadTimeout:  45 * time.Second,
	}
}

// Run connects, subscribes and reconnects with backoff until ctx is done.
func (s *Streamer) Run(ctx context.Context) error {
	retry := 0
	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			s.logger.Info("okx.stream_stopped")
			return ctx.Err()
		}
		if connected {
			retry = 0
		}
		delay := reconnectDelay(retry)
		retry++
		s.logger.Warn("okx.stream_disconnected",
			zap.Error(err),
			zap.Int("retry", retry),
			zap.Duration("delay", delay))
		metrics.IncError("okx_stream", "disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// session runs one connection until it fails. connected reports whether the
// subscription was sent, so the caller can reset its backoff.
func (s *Streamer) session(ctx context.Context) (connected bool, err error) {
	header := make(http.Header)
	header.Set("User-Agent", "cost-estimator")

	conn, _, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-sessCtx.Done()
		_ = conn.Close()
	}()

	if err := s.subscribe(conn); err != nil {
		return false, err
	}
	s.logger.Info("okx.stream_connected", zap.String("url", s.url), zap.Strings("symbols", s.symbols))

	if s.PingInterval > 0 {
		go s.pingLoop(sessCtx, conn)
	}

	for {
		if s.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		if err := s.handle(sessCtx, msg); err != nil {
			return true, err
		}
	}
}

func (s *Streamer) subscribe(conn *websocket.Conn) error {
	args := make([]subscribeArg, 0, len(s.symbols))
	for _, sym := range s.symbols {
		args = append(args, subscribeArg{Channel: booksChannel, InstID: sym})
	}
	b, err := json.Marshal(subscribeRequest{Op: subscribeOp, Args: args})
	if err != nil {
		return err
	}
	return s.write(conn, b)
}

func (s *Streamer) write(conn *websocket.Conn, b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Streamer) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.write(conn, []byte(pingFrame)); err != nil {
				s.logger.Warn("okx.stream_ping_failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}
}

var errSubscriptionRejected = errors.New("okx subscription rejected")

// handle processes one frame. Only a rejected subscription ends the session;
// bad payloads are logged and skipped.
func (s *Streamer) handle(ctx context.Context, msg []byte) error {
	if string(msg) == pongFrame {
		return nil
	}

	var push pushMessage
	if err := json.Unmarshal(msg, &push); err != nil {
		s.logger.Warn("okx.stream_decode_failed", zap.Error(err), zap.Int("bytes", len(msg)))
		metrics.IncError("okx_stream", "decode_failed")
		return nil
	}

	switch push.Event {
	case eventError:
		s.logger.Error("okx.stream_error_event", zap.String("code", push.Code), zap.String("msg", push.Msg))
		return fmt.Errorf("%w: %s %s", errSubscriptionRejected, push.Code, push.Msg)
	case eventSubAck:
		s.logger.Debug("okx.stream_subscribed", zap.String("inst_id", push.Arg.InstID))
		return nil
	}

	if push.Arg.Channel != booksChannel || len(push.Data) == 0 {
		return nil
	}

	for _, d := range push.Data {
		instID := d.InstID
		if instID == "" {
			instID = push.Arg.InstID
		}
		b, err := ToOrderBook(instID, d, s.now())
		if err != nil {
			s.logger.Warn("okx.stream_map_failed", zap.String("inst_id", instID), zap.Error(err))
			metrics.IncBookSwap(Venue, "ws", "rejected")
			continue
		}
		if _, err := s.books.Swap(ctx, b); err != nil {
			s.logger.Debug("okx.stream_swap_rejected", zap.String("inst_id", instID), zap.Error(err))
			metrics.IncBookSwap(Venue, "ws", "rejected")
			continue
		}
		metrics.IncBookSwap(Venue, "ws", "ok")
	}
	return nil
}
