package websocket

import "testing"

func TestDecodeFramesTrade(t *testing.T) {
	payload := []byte(`[{"T":"t","S":"AAPL","p":187.45,"s":100,"t":"2026-08-18T14:30:00.123456789Z","x":"V","c":["@"]}]`)

	msgs, err := DecodeFrames(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Trade == nil {
		t.Fatalf("expected 1 trade message, got %+v", msgs)
	}

	trade := msgs[0].Trade
	if trade.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", trade.Symbol)
	}
	if trade.Price != 187.45 || trade.Size != 100 {
		t.Errorf("price/size = %v/%v", trade.Price, trade.Size)
	}
	if string(trade.Timestamp) != `"2026-08-18T14:30:00.123456789Z"` {
		t.Errorf("timestamp not kept raw: %s", trade.Timestamp)
	}
}

func TestDecodeFramesBarWithIntTimestamp(t *testing.T) {
	payload := []byte(`[{"T":"b","S":"MSFT","o":1,"h":2,"l":0.5,"c":1.5,"v":1000,"t":1755527400000000000,"n":42,"vw":1.25}]`)

	msgs, err := DecodeFrames(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Bar == nil {
		t.Fatalf("expected 1 bar message, got %+v", msgs)
	}

	bar := msgs[0].Bar
	if bar.Symbol != "MSFT" || bar.Volume != 1000 {
		t.Errorf("unexpected bar: %+v", bar)
	}
	if bar.TradeCount == nil || *bar.TradeCount != 42 {
		t.Errorf("trade count = %v", bar.TradeCount)
	}
	if bar.VWAP == nil || *bar.VWAP != 1.25 {
		t.Errorf("vwap = %v", bar.VWAP)
	}
	if string(bar.Timestamp) != "1755527400000000000" {
		t.Errorf("timestamp not kept raw: %s", bar.Timestamp)
	}
}

func TestDecodeFramesControl(t *testing.T) {
	payload := []byte(`[{"T":"success","msg":"authenticated"},{"T":"subscription","trades":["AAPL"],"bars":["AAPL"]},{"T":"error","code":406,"msg":"connection limit exceeded"}]`)

	msgs, err := DecodeFrames(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}

	if msgs[0].Control == nil || msgs[0].Control.Msg != "authenticated" {
		t.Errorf("success frame: %+v", msgs[0].Control)
	}
	if msgs[1].Control == nil || len(msgs[1].Control.Trades) != 1 {
		t.Errorf("subscription frame: %+v", msgs[1].Control)
	}
	if msgs[2].Control == nil || msgs[2].Control.Code != 406 {
		t.Errorf("error frame: %+v", msgs[2].Control)
	}
}

func TestDecodeFramesDropsUnknownTypes(t *testing.T) {
	payload := []byte(`[{"T":"q","S":"AAPL","bp":187.4},{"T":"t","S":"AAPL","p":1,"s":1,"t":"2026-08-18T14:30:00Z"}]`)

	msgs, err := DecodeFrames(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Trade == nil {
		t.Errorf("expected unknown frame dropped, got %+v", msgs)
	}
}

func TestDecodeFramesTagAndTimestampDoNotCollide(t *testing.T) {
	// "T" (type tag) and "t" (timestamp) must resolve independently in
	// either key order.
	payloads := [][]byte{
		[]byte(`[{"T":"t","t":"2026-08-18T14:30:00Z","S":"AAPL","p":1,"s":2}]`),
		[]byte(`[{"t":"2026-08-18T14:30:00Z","S":"AAPL","p":1,"s":2,"T":"t"}]`),
	}
	for _, payload := range payloads {
		msgs, err := DecodeFrames(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(msgs) != 1 || msgs[0].Trade == nil {
			t.Fatalf("expected 1 trade message, got %+v", msgs)
		}
		if string(msgs[0].Trade.Timestamp) != `"2026-08-18T14:30:00Z"` {
			t.Errorf("timestamp = %s", msgs[0].Trade.Timestamp)
		}
	}

	// Integer timestamps previously broke tag extraction entirely.
	msgs, err := DecodeFrames([]byte(`[{"T":"b","S":"MSFT","o":1,"h":2,"l":0.5,"c":1.5,"v":10,"t":1755527400000000000}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Bar == nil {
		t.Fatalf("expected 1 bar message, got %+v", msgs)
	}
}

func TestDecodeFramesRejectsNonArray(t *testing.T) {
	if _, err := DecodeFrames([]byte(`{"T":"t"}`)); err == nil {
		t.Error("expected error for non-array payload")
	}
}
