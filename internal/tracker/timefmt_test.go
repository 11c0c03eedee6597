package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatBerlin(t *testing.T) {
	t.Parallel()

	winter := time.Date(2024, 1, 15, 9, 5, 0, 0, time.UTC)
	summer := time.Date(2024, 7, 15, 9, 5, 0, 0, time.UTC)
	require.Equal(t, "15.01.2024 10:05", FormatBerlin(&winter))
	require.Equal(t, "15.07.2024 11:05", FormatBerlin(&summer))
	require.Equal(t, UnknownTime, FormatBerlin(nil))
	require.Equal(t, UnknownTime, FormatBerlin(&time.Time{}))
}

func TestParsePortalTime(t *testing.T) {
	t.Parallel()

	got, ok := ParsePortalTime("15.01.2024 10:05")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 1, 15, 9, 5, 0, 0, time.UTC), *got)

	got, ok = ParsePortalTime("2024-07-15T11:05:00+02:00")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 7, 15, 9, 5, 0, 0, time.UTC), *got)

	got, ok = ParsePortalTime("  ")
	require.True(t, ok)
	require.Nil(t, got)

	_, ok = ParsePortalTime("next tuesday")
	require.False(t, ok)
}
