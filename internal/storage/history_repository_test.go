package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRoiDays_NilStaysNil(t *testing.T) {
	assert.Nil(t, historyRoiDays(nil))
}

func TestHistoryRoiDays_ValuePassesThrough(t *testing.T) {
	days := 300
	converted := historyRoiDays(&days)
	require.NotNil(t, converted)
	assert.Equal(t, int32(300), *converted)
}
