package feed

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vitos/index_ratio_monitor/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultWSURL = "wss://socket-api.groww.in/v1/feed"

	updatesBuffer    = 1024
	handshakeTimeout = 10 * time.Second
	maxBackoff       = 30 * time.Second
)

// GrowwAdapter maintains the websocket connection to the Groww feed,
// normalizes incoming frames and exposes them as a bounded update channel.
// One ingestion goroutine is expected to drain Updates(); when it falls
// behind, the oldest buffered update is dropped so the read loop never
// blocks.
type GrowwAdapter struct {
	wsURL       string
	accessToken string
	instruments []domain.Instrument
	norm        *Normalizer
	logger      *zap.Logger

	updates  chan domain.PriceUpdate
	overflow atomic.Uint64

	mu      sync.Mutex
	conn    *websocket.Conn
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewGrowwAdapter(wsURL, accessToken string, instruments []domain.Instrument, logger *zap.Logger) *GrowwAdapter {
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	return &GrowwAdapter{
		wsURL:       wsURL,
		accessToken: accessToken,
		instruments: instruments,
		norm:        NewNormalizer(instruments),
		logger:      logger,
		updates:     make(chan domain.PriceUpdate, updatesBuffer),
		done:        make(chan struct{}),
	}
}

// Updates returns the normalized tick stream. The channel is closed after
// Close once the read loop has exited.
func (g *GrowwAdapter) Updates() <-chan domain.PriceUpdate {
	return g.updates
}

// DroppedTicks totals everything discarded before the store: unknown
// instruments, invalid prices and channel overflow.
func (g *GrowwAdapter) DroppedTicks() uint64 {
	return g.norm.UnknownDropped() + g.norm.InvalidDropped() + g.overflow.Load()
}

// Start launches the connect/read/reconnect loop. Reconnects use capped
// exponential backoff; disconnects are logged, never fatal.
func (g *GrowwAdapter) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return nil
	}
	g.started = true
	ctx, g.cancel = context.WithCancel(ctx)
	g.mu.Unlock()

	go g.run(ctx)
	return nil
}

// Close stops the adapter and closes the update channel once the loop exits.
func (g *GrowwAdapter) Close() error {
	g.mu.Lock()
	cancel := g.cancel
	conn := g.conn
	started := g.started
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if started {
		<-g.done
	}
	return nil
}

func (g *GrowwAdapter) run(ctx context.Context) {
	defer func() {
		close(g.updates)
		close(g.done)
	}()

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := g.dial(ctx)
		if err != nil {
			g.logger.Warn("feed dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		g.mu.Lock()
		g.conn = conn
		g.mu.Unlock()

		if err := g.subscribe(conn); err != nil {
			g.logger.Warn("feed subscribe failed", zap.Error(err))
			conn.Close()
			continue
		}

		g.logger.Info("feed connected", zap.String("url", g.wsURL),
			zap.Int("instruments", len(g.instruments)))
		g.readLoop(ctx, conn)

		g.mu.Lock()
		g.conn = nil
		g.mu.Unlock()
	}
}

func (g *GrowwAdapter) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+g.accessToken)

	conn, _, err := dialer.DialContext(ctx, g.wsURL, header)
	return conn, err
}

func (g *GrowwAdapter) subscribe(conn *websocket.Conn) error {
	for _, inst := range g.instruments {
		feedType := frameLTP
		if inst.Kind == domain.KindCash {
			feedType = frameIndexValue
		}
		msg := map[string]interface{}{
			"op":             "subscribe",
			"feed_type":      feedType,
			"exchange":       inst.Exchange,
			"segment":        inst.Segment,
			"exchange_token": inst.ExchangeToken,
		}
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	return nil
}

func (g *GrowwAdapter) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				g.logger.Warn("feed read error, reconnecting", zap.Error(err))
			}
			return
		}

		updates, err := g.norm.Normalize(message)
		if err != nil {
			g.logger.Debug("dropping malformed frame", zap.Error(err))
			continue
		}
		for _, u := range updates {
			g.push(u)
		}
	}
}

// push enqueues an update without ever blocking the read loop. On overflow
// the oldest buffered update is discarded in favor of the new one.
func (g *GrowwAdapter) push(u domain.PriceUpdate) {
	select {
	case g.updates <- u:
		return
	default:
	}
	select {
	case <-g.updates:
		g.overflow.Add(1)
	default:
	}
	select {
	case g.updates <- u:
	default:
		g.overflow.Add(1)
	}
}
