package producer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, SplitBrokers(""))
}

func TestNew(t *testing.T) {
	t.Run("requires brokers", func(t *testing.T) {
		_, err := New(Config{Brokers: " , "}, nil)
		require.Error(t, err)
	})

	t.Run("does not dial on construction", func(t *testing.T) {
		p, err := New(DefaultConfig("127.0.0.1:1"), nil)
		require.NoError(t, err)
		require.NoError(t, p.Close(t.Context()))
		assert.Error(t, p.Ping(t.Context()), "closed producer refuses calls")
	})
}
