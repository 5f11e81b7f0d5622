package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// headerCarrier adapts message headers to the otel propagation API.
type headerCarrier struct {
	headers *[]kafka.Header
}

var _ propagation.TextMapCarrier = headerCarrier{}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// TraceHeaders returns the trace context of ctx as message headers.
func TraceHeaders(ctx context.Context) []kafka.Header {
	var hs []kafka.Header
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &hs})
	return hs
}

// ExtractTrace returns ctx carrying the trace context found in m's headers.
func ExtractTrace(ctx context.Context, m kafka.Message) context.Context {
	hs := m.Headers
	return otel.GetTextMapPropagator().Extract(ctx, headerCarrier{headers: &hs})
}
