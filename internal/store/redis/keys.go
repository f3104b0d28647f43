package redis

import (
	"encoding/json"
	"fmt"
	"strings"

	"trading-signals/internal/model"
)

// DefaultBarPrefix is the key prefix of bar streams: bar:{tf}:{symbol}.
const DefaultBarPrefix = "bar"

// BarStreamKey returns the stream key of one bar series.
func BarStreamKey(prefix, tf, symbol string) string {
	if prefix == "" {
		prefix = DefaultBarPrefix
	}
	return prefix + ":" + tf + ":" + symbol
}

// ParseBarStreamKey splits a bar stream key back into (tf, symbol).
func ParseBarStreamKey(prefix, key string) (tf, symbol string, err error) {
	if prefix == "" {
		prefix = DefaultBarPrefix
	}
	rest, ok := strings.CutPrefix(key, prefix+":")
	if !ok {
		return "", "", fmt.Errorf("stream %q does not start with %q", key, prefix)
	}
	tf, symbol, ok = strings.Cut(rest, ":")
	if !ok || tf == "" || symbol == "" {
		return "", "", fmt.Errorf("stream %q: want %s:{tf}:{symbol}", key, prefix)
	}
	return tf, symbol, nil
}

// SignalChannel is the Pub/Sub channel for every evaluated bar of a series.
func SignalChannel(tf, symbol string) string {
	return "pub:signal:" + tf + ":" + symbol
}

// SignalStreamKey is the stream that keeps fired signals only.
func SignalStreamKey(tf, symbol string) string {
	return "signal:" + tf + ":" + symbol
}

// LatestSignalKey holds the last fired signal of a symbol on any timeframe.
func LatestSignalKey(symbol string) string {
	return "signal:latest:" + symbol
}

// decodeBar parses the "data" field of a stream message. Bars missing symbol
// or timeframe inherit them from the stream key.
func decodeBar(prefix, stream string, values map[string]interface{}) (model.Bar, error) {
	data, ok := values["data"].(string)
	if !ok {
		return model.Bar{}, fmt.Errorf("%s: message has no data field", stream)
	}
	var b model.Bar
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return model.Bar{}, fmt.Errorf("%s: unmarshal bar: %w", stream, err)
	}
	if b.Symbol == "" || b.Timeframe == "" {
		tf, symbol, err := ParseBarStreamKey(prefix, stream)
		if err != nil {
			return model.Bar{}, err
		}
		if b.Symbol == "" {
			b.Symbol = symbol
		}
		if b.Timeframe == "" {
			b.Timeframe = tf
		}
	}
	return b, nil
}
