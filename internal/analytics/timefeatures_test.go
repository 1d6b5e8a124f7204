package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
)

func TestTimeNormalizerApply(t *testing.T) {
	tn, err := NewTimeNormalizer("America/Montevideo")
	require.NoError(t, err)

	// 2024-03-15 is a Friday; Montevideo is UTC-3.
	rec := domain.EnrichedRecord{
		TradeRecord: domain.TradeRecord{MatchTimeUTC: "2024-03-15 14:30:00"},
	}
	require.True(t, tn.Apply(&rec))

	require.NotNil(t, rec.MatchTimeParsed)
	require.NotNil(t, rec.MatchTimeLocal)
	assert.Equal(t, 11, rec.HourLocal)
	assert.Equal(t, 5, rec.WeekdayLocal)
	assert.Equal(t, 2024, rec.Year)
	assert.Equal(t, "2024-03", rec.YearMonth)
}

func TestTimeNormalizerSundayIsSeven(t *testing.T) {
	tn, err := NewTimeNormalizer("America/Montevideo")
	require.NoError(t, err)

	// 2024-03-17 20:00 UTC is Sunday 17:00 local.
	rec := domain.EnrichedRecord{
		TradeRecord: domain.TradeRecord{MatchTimeUTC: "2024-03-17 20:00:00"},
	}
	require.True(t, tn.Apply(&rec))
	assert.Equal(t, 7, rec.WeekdayLocal)
	assert.Equal(t, 17, rec.HourLocal)
}

func TestTimeNormalizerDateRollover(t *testing.T) {
	tn, err := NewTimeNormalizer("America/Montevideo")
	require.NoError(t, err)

	// 01:30 UTC on the 1st is still the previous month locally.
	rec := domain.EnrichedRecord{
		TradeRecord: domain.TradeRecord{MatchTimeUTC: "2024-04-01 01:30:00"},
	}
	require.True(t, tn.Apply(&rec))
	assert.Equal(t, "2024-03", rec.YearMonth)
	assert.Equal(t, 22, rec.HourLocal)
}

func TestTimeNormalizerUnparsable(t *testing.T) {
	tn, err := NewTimeNormalizer("UTC")
	require.NoError(t, err)

	for _, bad := range []string{"", "not a time", "2024-03-15", "15/03/2024 14:30:00"} {
		rec := domain.EnrichedRecord{TradeRecord: domain.TradeRecord{MatchTimeUTC: bad}}
		assert.False(t, tn.Apply(&rec), "input %q", bad)
		assert.Nil(t, rec.MatchTimeParsed)
	}
}

func TestNewTimeNormalizerBadZone(t *testing.T) {
	_, err := NewTimeNormalizer("Not/AZone")
	assert.Error(t, err)
}

func TestWeekdayName(t *testing.T) {
	assert.Equal(t, "Monday", WeekdayName(1))
	assert.Equal(t, "Sunday", WeekdayName(7))
	assert.Equal(t, "Unknown", WeekdayName(0))
	assert.Equal(t, "Unknown", WeekdayName(8))
}
