package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{"dot thousands comma decimal", "53.550.640,279", 53550640.279},
		{"comma thousands dot decimal", "1,234.56", 1234.56},
		{"decimal comma", "123,45", 123.45},
		{"single comma one decimal", "42,5", 42.5},
		{"comma thousands only", "1,234,567", 1234567},
		{"multiple dots", "53.550.640", 53550.640},
		{"plain dot decimal", "42.5", 42.5},
		{"plain integer", "1050", 1050},
		{"surrounding whitespace", "  99,9  ", 99.9},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseAmount(tc.input)
			require.NotNil(t, got)
			assert.InDelta(t, tc.want, *got, 1e-9)
		})
	}
}

func TestParseAmountUnparsable(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "12x34", "--5"} {
		assert.Nil(t, ParseAmount(input), "input %q", input)
	}
}

func TestParseAmountCommaGrouping(t *testing.T) {
	// A single comma followed by three digits groups thousands, it is not a
	// decimal comma.
	got := ParseAmount("1,234")
	require.NotNil(t, got)
	assert.InDelta(t, 1234.0, *got, 1e-9)
}
