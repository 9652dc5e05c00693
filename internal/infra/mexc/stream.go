package mexc

import (
	"context"
	"encoding/json"
	"time"

	"funding_go/internal/domain"
	"funding_go/internal/infra"
	"funding_go/internal/stream"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Stream drives the MEXC futures ticker channel. The protocol needs an
// in-band JSON ping under 60s or the server drops the connection.
type Stream struct {
	collector *Collector
	wsURL     string
}

func NewStream(cfg *infra.Config, rest *infra.RESTClient) *Stream {
	return &Stream{
		collector: NewCollector(cfg, rest),
		wsURL:     cfg.Exchange(domain.ExchangeMEXC).WSURL,
	}
}

func (s *Stream) Name() string { return domain.ExchangeMEXC }

func (s *Stream) URL(string) string { return s.wsURL }

func (s *Stream) SubscribeMessage(symbol string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"method": "sub.ticker",
		"param":  map[string]string{"symbol": NativeSymbol(symbol)},
	})
}

// AppPing is the exchange-required JSON keepalive.
func (s *Stream) AppPing() []byte {
	return []byte(`{"method":"ping"}`)
}

// tickerFrame covers push.ticker data plus the pong/ack channels.
type tickerFrame struct {
	Channel string `json:"channel"`
	Data    struct {
		Symbol    string          `json:"symbol"`
		Bid1      decimal.Decimal `json:"bid1"`
		Ask1      decimal.Decimal `json:"ask1"`
		Timestamp int64           `json:"timestamp"`
	} `json:"data"`
}

// Parse extracts bid1/ask1 from push.ticker frames. Pongs,
// subscription acks and error notices are routine control traffic.
func (s *Stream) Parse(messageType int, data []byte, symbol string) stream.ParseResult {
	if messageType != websocket.TextMessage {
		// The spot endpoint pushes protobuf binary; the futures
		// channel is JSON-only, so binary here is not orderbook data.
		return stream.Skip()
	}

	var msg tickerFrame
	if err := json.Unmarshal(data, &msg); err != nil {
		return stream.Malformed(err)
	}

	switch msg.Channel {
	case "push.ticker":
	case "pong", "rs.pong", "rs.sub.ticker", "rs.error", "clock":
		return stream.Skip()
	default:
		return stream.Skip()
	}

	if msg.Data.Symbol != NativeSymbol(symbol) {
		return stream.Skip()
	}
	if !msg.Data.Bid1.IsPositive() || !msg.Data.Ask1.IsPositive() {
		return stream.Skip()
	}

	ts := time.Now()
	if msg.Data.Timestamp > 0 {
		ts = time.UnixMilli(msg.Data.Timestamp)
	}

	return stream.Tick(domain.OrderbookTick{
		Symbol:    symbol,
		BestBid:   msg.Data.Bid1,
		BestAsk:   msg.Data.Ask1,
		Timestamp: ts,
	})
}

func (s *Stream) FetchMetadata(ctx context.Context, symbol string) (*domain.SymbolMetadata, error) {
	return s.collector.Metadata(ctx, symbol)
}
