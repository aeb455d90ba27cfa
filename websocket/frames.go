package websocket

import (
	"encoding/json"
	"fmt"
)

// Inbound frames arrive as JSON arrays of objects, each tagged with a short
// type code in the "T" field. Trade and bar payloads use single-letter keys.
const (
	frameTypeSuccess      = "success"
	frameTypeSubscription = "subscription"
	frameTypeError        = "error"
	frameTypeTrade        = "t"
	frameTypeBar          = "b"
)

// Trade is one inbound trade event.
//
// Timestamp is kept raw: the feed sends either an ISO-8601 string or integer
// nanoseconds since epoch, and normalization is not this layer's job.
//
// The Type field pins the "T" tag to its own field. Without it, struct
// unmarshaling matches keys case-insensitively and the "T" key would bind to
// the field tagged "t".
type Trade struct {
	Type       string          `json:"T"`
	Symbol     string          `json:"S"`
	Price      float64         `json:"p"`
	Size       float64         `json:"s"`
	Timestamp  json.RawMessage `json:"t"`
	Exchange   string          `json:"x"`
	Conditions []string        `json:"c"`
}

// Bar is one inbound minute bar. Type pins the "T" tag, same as on Trade.
type Bar struct {
	Type       string          `json:"T"`
	Symbol     string          `json:"S"`
	Open       float64         `json:"o"`
	High       float64         `json:"h"`
	Low        float64         `json:"l"`
	Close      float64         `json:"c"`
	Volume     float64         `json:"v"`
	Timestamp  json.RawMessage `json:"t"`
	TradeCount *int64          `json:"n"`
	VWAP       *float64        `json:"vw"`
}

// Control is a success, subscription or error frame.
type Control struct {
	Type   string   `json:"T"`
	Msg    string   `json:"msg"`
	Code   int      `json:"code"`
	Trades []string `json:"trades"`
	Bars   []string `json:"bars"`
}

// Message is a tagged variant: exactly one of the fields is non-nil.
type Message struct {
	Trade   *Trade
	Bar     *Bar
	Control *Control
}

// DecodeFrames parses one inbound WebSocket payload into messages. Frames
// with unknown type codes are dropped silently.
func DecodeFrames(data []byte) ([]Message, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode frame array: %w", err)
	}

	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		// The tag is read with an exact key lookup. Unmarshaling into a
		// struct field tagged "T" matches case-insensitively, so the "t"
		// timestamp key of trade and bar frames would bind to it.
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			continue
		}
		var frameType string
		tagRaw, ok := fields["T"]
		if !ok || json.Unmarshal(tagRaw, &frameType) != nil {
			continue
		}

		switch frameType {
		case frameTypeTrade:
			var trade Trade
			if err := json.Unmarshal(item, &trade); err != nil {
				return nil, fmt.Errorf("failed to decode trade frame: %w", err)
			}
			messages = append(messages, Message{Trade: &trade})
		case frameTypeBar:
			var bar Bar
			if err := json.Unmarshal(item, &bar); err != nil {
				return nil, fmt.Errorf("failed to decode bar frame: %w", err)
			}
			messages = append(messages, Message{Bar: &bar})
		case frameTypeSuccess, frameTypeSubscription, frameTypeError:
			var ctrl Control
			if err := json.Unmarshal(item, &ctrl); err != nil {
				return nil, fmt.Errorf("failed to decode control frame: %w", err)
			}
			ctrl.Type = frameType
			messages = append(messages, Message{Control: &ctrl})
		default:
			// Unknown frame type, ignore
		}
	}
	return messages, nil
}
