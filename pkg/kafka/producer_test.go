package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(WithCompression("lz4"))
	assert.Error(t, err)
}

func TestNewProducerOptions(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"localhost:9092"}),
		WithCompression("zstd"),
		WithRequiredAcks(1),
		WithBatching(10, 0),
		WithWriteTimeout(time.Second),
	)
	require.NoError(t, err)
	defer p.Close()

	w := p.writer
	assert.Equal(t, kafka.Zstd, w.Compression)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	assert.Equal(t, 10, w.BatchSize)
	assert.Equal(t, 100*time.Millisecond, w.BatchTimeout)
	assert.Equal(t, time.Second, w.WriteTimeout)
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(b))
}
