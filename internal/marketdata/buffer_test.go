package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_SnapshotEmpty(t *testing.T) {
	b := NewBuffer(4)
	stats := b.Snapshot()
	assert.False(t, stats.HasLast)
	assert.Equal(t, 0, stats.Count)
}

func TestBuffer_EvictsOldestOverCapacity(t *testing.T) {
	b := NewBuffer(2)
	b.Add(Quote{Close: d("1")}, Quote{Close: d("2")}, Quote{Close: d("3")})

	stats := b.Snapshot()
	require.True(t, stats.HasLast)
	assert.Equal(t, 2, stats.Count)
	assert.True(t, stats.LastClose.Equal(d("3")))
}
