package aster

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"funding_go/internal/domain"
	"funding_go/internal/infra"
	"funding_go/internal/stream"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Stream drives Aster's Binance-style partial depth channel
// (<symbol>@depth20@100ms).
type Stream struct {
	collector *Collector
	wsBase    string
}

func NewStream(cfg *infra.Config, rest *infra.RESTClient) *Stream {
	return &Stream{
		collector: NewCollector(cfg, rest),
		wsBase:    cfg.Exchange(domain.ExchangeAster).WSURL,
	}
}

func (s *Stream) Name() string { return domain.ExchangeAster }

func (s *Stream) URL(symbol string) string { return s.wsBase }

func streamName(symbol string) string {
	return strings.ToLower(NativeSymbol(symbol)) + "@depth20@100ms"
}

func (s *Stream) SubscribeMessage(symbol string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"method": "SUBSCRIBE",
		"params": []string{streamName(symbol)},
		"id":     1,
	})
}

// AppPing returns nil: Aster answers protocol-level pings.
func (s *Stream) AppPing() []byte { return nil }

type depthFrame struct {
	EventType string     `json:"e"`
	EventTime int64      `json:"E"`
	Symbol    string     `json:"s"`
	Bids      [][]string `json:"b"`
	Asks      [][]string `json:"a"`
}

func (s *Stream) Parse(messageType int, data []byte, symbol string) stream.ParseResult {
	if messageType != websocket.TextMessage {
		return stream.Skip()
	}

	var frame depthFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return stream.Malformed(fmt.Errorf("decode depth frame: %w", err))
	}
	if frame.EventType != "depthUpdate" {
		// Subscription acks carry {"result":null,"id":1}.
		return stream.Skip()
	}
	if frame.Symbol != NativeSymbol(symbol) {
		return stream.Skip()
	}
	if len(frame.Bids) == 0 || len(frame.Asks) == 0 {
		return stream.Skip()
	}
	if len(frame.Bids[0]) < 2 || len(frame.Asks[0]) < 2 {
		return stream.Malformed(fmt.Errorf("depth level shape: bids[0]=%v asks[0]=%v", frame.Bids[0], frame.Asks[0]))
	}

	bid, err := decimal.NewFromString(frame.Bids[0][0])
	if err != nil {
		return stream.Malformed(fmt.Errorf("parse best bid %q: %w", frame.Bids[0][0], err))
	}
	ask, err := decimal.NewFromString(frame.Asks[0][0])
	if err != nil {
		return stream.Malformed(fmt.Errorf("parse best ask %q: %w", frame.Asks[0][0], err))
	}

	ts := time.Now()
	if frame.EventTime > 0 {
		ts = time.UnixMilli(frame.EventTime)
	}
	return stream.Tick(domain.OrderbookTick{
		Symbol:    symbol,
		BestBid:   bid,
		BestAsk:   ask,
		Timestamp: ts,
	})
}

func (s *Stream) FetchMetadata(ctx context.Context, symbol string) (*domain.SymbolMetadata, error) {
	return s.collector.Metadata(ctx, symbol)
}
