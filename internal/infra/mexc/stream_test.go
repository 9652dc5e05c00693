package mexc

import (
	"encoding/json"
	"testing"

	"funding_go/internal/infra"
	"funding_go/internal/stream"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

func testStream(t *testing.T) *Stream {
	t.Helper()
	cfg := &infra.Config{
		Exchanges: map[string]*infra.ExchangeConfig{
			"mexc": {
				RestURL:              "https://contract.mexc.com/api/v1/contract",
				WSURL:                "wss://contract.mexc.com/edge",
				FundingIntervalHours: 8,
			},
		},
	}
	return NewStream(cfg, infra.NewRESTClient(5, nil))
}

func TestSymbolMapping(t *testing.T) {
	if got := NativeSymbol("BTC"); got != "BTC_USDT" {
		t.Errorf("NativeSymbol(BTC) = %q, want BTC_USDT", got)
	}
	if got := NativeSymbol("btc"); got != "BTC_USDT" {
		t.Errorf("NativeSymbol(btc) = %q, want BTC_USDT", got)
	}
	if got := NormalizedSymbol("BTC_USDT"); got != "BTC" {
		t.Errorf("NormalizedSymbol(BTC_USDT) = %q, want BTC", got)
	}
	if got := NormalizedSymbol("BTCUSDC"); got != "" {
		t.Errorf("NormalizedSymbol(BTCUSDC) = %q, want empty", got)
	}
}

func TestStream_SubscribeMessage(t *testing.T) {
	s := testStream(t)

	msg, err := s.SubscribeMessage("BTC")
	if err != nil {
		t.Fatalf("SubscribeMessage failed: %v", err)
	}

	var decoded struct {
		Method string `json:"method"`
		Param  struct {
			Symbol string `json:"symbol"`
		} `json:"param"`
	}
	if err := json.Unmarshal(msg, &decoded); err != nil {
		t.Fatalf("subscription is not valid JSON: %v", err)
	}
	if decoded.Method != "sub.ticker" || decoded.Param.Symbol != "BTC_USDT" {
		t.Errorf("unexpected subscription %s", msg)
	}
}

func TestStream_AppPing(t *testing.T) {
	s := testStream(t)
	if string(s.AppPing()) != `{"method":"ping"}` {
		t.Errorf("unexpected app ping %s", s.AppPing())
	}
}

func TestStream_Parse(t *testing.T) {
	s := testStream(t)

	t.Run("push.ticker yields a tick", func(t *testing.T) {
		frame := `{
			"channel": "push.ticker",
			"data": {
				"symbol": "BTC_USDT",
				"bid1": 65000.5,
				"ask1": 65001.0,
				"timestamp": 1700000000000
			}
		}`
		res := s.Parse(websocket.TextMessage, []byte(frame), "BTC")
		if res.Kind != stream.ParseTick {
			t.Fatalf("expected tick, got kind %d (err %v)", res.Kind, res.Err)
		}
		if !res.Tick.BestBid.Equal(decimal.RequireFromString("65000.5")) {
			t.Errorf("bid = %s, want 65000.5", res.Tick.BestBid)
		}
		if !res.Tick.BestAsk.Equal(decimal.RequireFromString("65001.0")) {
			t.Errorf("ask = %s, want 65001.0", res.Tick.BestAsk)
		}
		if res.Tick.Timestamp.UnixMilli() != 1700000000000 {
			t.Errorf("timestamp = %d", res.Tick.Timestamp.UnixMilli())
		}
	})

	t.Run("pong and acks are skipped", func(t *testing.T) {
		for _, frame := range []string{
			`{"channel": "pong", "data": {}}`,
			`{"channel": "rs.sub.ticker", "data": {}}`,
			`{"channel": "rs.error", "data": {}}`,
			`{"channel": "clock"}`,
		} {
			if res := s.Parse(websocket.TextMessage, []byte(frame), "BTC"); res.Kind != stream.ParseSkip {
				t.Errorf("frame %s: expected skip, got kind %d", frame, res.Kind)
			}
		}
	})

	t.Run("other symbol is skipped", func(t *testing.T) {
		frame := `{"channel": "push.ticker", "data": {"symbol": "ETH_USDT", "bid1": 1, "ask1": 2}}`
		if res := s.Parse(websocket.TextMessage, []byte(frame), "BTC"); res.Kind != stream.ParseSkip {
			t.Errorf("expected skip, got kind %d", res.Kind)
		}
	})

	t.Run("zero quotes are skipped", func(t *testing.T) {
		frame := `{"channel": "push.ticker", "data": {"symbol": "BTC_USDT", "bid1": 0, "ask1": 0}}`
		if res := s.Parse(websocket.TextMessage, []byte(frame), "BTC"); res.Kind != stream.ParseSkip {
			t.Errorf("expected skip, got kind %d", res.Kind)
		}
	})

	t.Run("binary frame is skipped", func(t *testing.T) {
		if res := s.Parse(websocket.BinaryMessage, []byte{0x0a, 0x02}, "BTC"); res.Kind != stream.ParseSkip {
			t.Errorf("expected skip, got kind %d", res.Kind)
		}
	})

	t.Run("invalid JSON is malformed", func(t *testing.T) {
		if res := s.Parse(websocket.TextMessage, []byte("{nope"), "BTC"); res.Kind != stream.ParseMalformed {
			t.Errorf("expected malformed, got kind %d", res.Kind)
		}
	})
}
