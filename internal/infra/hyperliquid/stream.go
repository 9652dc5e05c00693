package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"funding_go/internal/domain"
	"funding_go/internal/infra"
	"funding_go/internal/stream"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Stream drives the Hyperliquid l2Book websocket channel.
type Stream struct {
	collector *Collector
	wsURL     string
}

func NewStream(cfg *infra.Config, rest *infra.RESTClient) *Stream {
	return &Stream{
		collector: NewCollector(cfg, rest),
		wsURL:     cfg.Exchange(domain.ExchangeHyperliquid).WSURL,
	}
}

func (s *Stream) Name() string { return domain.ExchangeHyperliquid }

func (s *Stream) URL(string) string { return s.wsURL }

// SubscribeMessage subscribes to the symbol's l2Book channel.
func (s *Stream) SubscribeMessage(symbol string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"method": "subscribe",
		"subscription": map[string]string{
			"type": "l2Book",
			"coin": NativeSymbol(symbol),
		},
	})
}

// AppPing is nil: Hyperliquid accepts transport-level pings.
func (s *Stream) AppPing() []byte { return nil }

// l2BookMessage mirrors the l2Book push frame. Levels is
// [bids descending, asks ascending], each level {px, sz, n}.
type l2BookMessage struct {
	Channel string `json:"channel"`
	Data    struct {
		Coin   string `json:"coin"`
		Levels [][]struct {
			Px string `json:"px"`
			Sz string `json:"sz"`
		} `json:"levels"`
		Time int64 `json:"time"`
	} `json:"data"`
}

// Parse extracts the top of book from an l2Book frame. Subscription
// acks and other channels are routine traffic, not errors.
func (s *Stream) Parse(messageType int, data []byte, symbol string) stream.ParseResult {
	if messageType != websocket.TextMessage {
		return stream.Skip()
	}

	var msg l2BookMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return stream.Malformed(err)
	}
	if msg.Channel != "l2Book" {
		return stream.Skip()
	}
	if msg.Data.Coin != NativeSymbol(symbol) {
		return stream.Skip()
	}
	if len(msg.Data.Levels) < 2 || len(msg.Data.Levels[0]) == 0 || len(msg.Data.Levels[1]) == 0 {
		return stream.Skip()
	}

	bid, err := decimal.NewFromString(msg.Data.Levels[0][0].Px)
	if err != nil {
		return stream.Malformed(fmt.Errorf("bad bid price: %w", err))
	}
	ask, err := decimal.NewFromString(msg.Data.Levels[1][0].Px)
	if err != nil {
		return stream.Malformed(fmt.Errorf("bad ask price: %w", err))
	}

	return stream.Tick(domain.OrderbookTick{
		Symbol:    symbol,
		BestBid:   bid,
		BestAsk:   ask,
		Timestamp: time.UnixMilli(msg.Data.Time),
	})
}

func (s *Stream) FetchMetadata(ctx context.Context, symbol string) (*domain.SymbolMetadata, error) {
	return s.collector.Metadata(ctx, symbol)
}
