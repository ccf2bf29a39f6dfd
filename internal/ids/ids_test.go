package ids

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAt_SortsByTime(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	later, err := At(base.Add(time.Hour))
	require.NoError(t, err)
	earlier, err := At(base)
	require.NoError(t, err)

	got := []string{later, earlier}
	sort.Strings(got)
	assert.Equal(t, []string{earlier, later}, got)

	ts, err := Time(earlier)
	require.NoError(t, err)
	assert.True(t, ts.Equal(base))
}

func TestTime_RejectsGarbage(t *testing.T) {
	_, err := Time("nope")
	assert.Error(t, err)
	assert.Len(t, New(), 27)
}
