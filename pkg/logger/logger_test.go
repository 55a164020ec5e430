package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestCollector_AggregatesErrors(t *testing.T) {
	l := Nop()
	pub := &capturePublisher{}
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "idxlens.logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("fit failed", String("symbol", "NIFTY 50"))
	}
	l.Error("fit failed", String("symbol", "NIFTY BANK"))
	l.Warn("slow request")
	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "idxlens.logs", pub.topic)
	counts := map[interface{}]int{}
	for _, e := range pub.batches[0] {
		assert.Equal(t, "error", e.Level)
		counts[e.Fields["symbol"]] = e.Count
	}
	assert.Equal(t, map[interface{}]int{"NIFTY 50": 3, "NIFTY BANK": 1}, counts)
}

func TestCollector_FlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")
	c.AddLog("error", "c", nil, "x.go:3")
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 2)
	assert.ElementsMatch(t, []int{2, 1}, []int{len(pub.batches[0]), len(pub.batches[1])})
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}
