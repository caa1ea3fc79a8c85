package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffWithJitter_Bounds(t *testing.T) {
	min, max := 50*time.Millisecond, 400*time.Millisecond
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
}

func TestNewConsumer_RequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	require.Error(t, err)
}

func TestPartitionLock_Stable(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)

	a := c.partitionLock("candles", 0)
	b := c.partitionLock("candles", 0)
	other := c.partitionLock("candles", 1)
	assert.Same(t, a, b)
	assert.NotSame(t, a, other)
}

func TestEncodeValue(t *testing.T) {
	v, err := encodeValue(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(v))

	v, err = encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(v))
}
