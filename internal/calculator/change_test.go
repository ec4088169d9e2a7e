package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ETFPal/internal/model"
)

func TestPeriodChanges(t *testing.T) {
	s := weekly("110", "100", "125")
	changes := PeriodChanges(s, 3)
	require.Len(t, changes, 3)

	assert.True(t, changes[0].HasPrior)
	assert.Equal(t, "10", changes[0].Change.String())
	assert.Equal(t, "10", changes[0].Percent.String())

	assert.True(t, changes[1].HasPrior)
	assert.Equal(t, "-25", changes[1].Change.String())
	assert.Equal(t, "-20", changes[1].Percent.String())

	assert.False(t, changes[2].HasPrior, "oldest period has no predecessor")
	assert.Equal(t, latestWeek.AddDate(0, 0, -14), changes[2].PeriodStart)
}

func TestPeriodChanges_Bounds(t *testing.T) {
	assert.Empty(t, PeriodChanges(model.PriceSeries{}, 3))
	assert.Len(t, PeriodChanges(weekly("1", "2"), 5), 2)
	assert.Len(t, PeriodChanges(weekly("1", "", "3"), 3), 1, "invalid close ends the list")
	assert.Empty(t, PeriodChanges(weekly("1", "2"), -1))
	assert.Empty(t, PeriodChanges(weekly("1", "2"), 0))
}

func TestLatestCloses(t *testing.T) {
	got := LatestCloses(map[string]model.PriceSeries{
		"nasdaq": weekly("455.2", "450"),
		"sp500":  weekly("530.1"),
		"empty":  {},
		"broken": weekly("", "10"),
	})
	require.Len(t, got, 2)
	assert.Equal(t, "455.2", got["nasdaq"].String())
	assert.Equal(t, "530.1", got["sp500"].String())
}
