package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseBrokers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "localhost:9092", want: []string{"localhost:9092"}},
		{name: "trims blanks", in: " a:9092, ,b:9092 ,", want: []string{"a:9092", "b:9092"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBrokers(tt.in))
		})
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(t.Context(), Event{Type: OrderCreated}))
	assert.NoError(t, p.Close())
}

func TestNewKafkaPublisher_FlushesPromptly(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "orders")
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, "orders", p.writer.Topic)
	assert.Positive(t, p.writer.BatchTimeout)
	assert.LessOrEqual(t, p.writer.BatchTimeout, 10*time.Millisecond)
}
