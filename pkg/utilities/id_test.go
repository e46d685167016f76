package utilities

import (
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKSUID(t *testing.T) {
	a := NewKSUID()
	b := NewKSUID()
	assert.NotEqual(t, a, b)
	_, err := ksuid.Parse(a)
	assert.NoError(t, err)
}

func TestIDGenerator(t *testing.T) {
	g, err := NewIDGenerator(3)
	require.NoError(t, err)

	seen := make(map[int64]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := g.Next()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
}

func TestIDGeneratorRejectsBadNode(t *testing.T) {
	_, err := NewIDGenerator(5000)
	assert.Error(t, err)
}

func TestIDGeneratorFromEnv(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "not-a-number")
	g, err := NewIDGeneratorFromEnv()
	require.NoError(t, err)
	assert.Positive(t, g.Next())
}
