package field

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	v, err := ParseBool([]byte("Y"))
	require.NoError(t, err)
	require.True(t, v)

	v, err = ParseBool([]byte("N"))
	require.NoError(t, err)
	require.False(t, v)

	_, err = ParseBool([]byte("X"))
	require.Error(t, err)
}

func TestParseIntRejectsLeadingPlus(t *testing.T) {
	_, err := ParseInt([]byte("+5"))
	require.Error(t, err)

	v, err := ParseInt([]byte("-5"))
	require.NoError(t, err)
	require.Equal(t, int64(-5), v)
}

func TestUTCTimestampWidths(t *testing.T) {
	cases := []string{
		"20230102-03:04:05",
		"20230102-03:04:05.123",
		"20230102-03:04:05.123456",
		"20230102-03:04:05.123456789",
	}
	for _, c := range cases {
		tm, err := ParseUTCTimestamp([]byte(c))
		require.NoError(t, err, c)
		require.Equal(t, 2023, tm.Year())
	}
	_, err := ParseUTCTimestamp([]byte("bogus"))
	require.Error(t, err)
}

func TestFormatUTCTimestampRoundTrip(t *testing.T) {
	tm := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	b := FormatUTCTimestamp(tm, PrecisionSeconds)
	got, err := ParseUTCTimestamp(b)
	require.NoError(t, err)
	require.True(t, tm.Equal(got))
}

func TestSplitMultiValue(t *testing.T) {
	toks := SplitMultiValue([]byte("1 2  3"))
	require.Len(t, toks, 3)
	require.Equal(t, "2", string(toks[1]))
}
