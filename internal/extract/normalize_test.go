package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  string
		isNil bool
	}{
		{"iso", "2024-01-15", "2024-01-15", false},
		{"day first slash", "15/01/2024", "2024-01-15", false},
		{"year first slash", "2024/01/15", "2024-01-15", false},
		{"dash triple day first", "15-01-2024", "2024-01-15", false},
		{"single digit components", "5/1/2024", "2024-01-05", false},
		{"nil", nil, "", true},
		{"garbage", "invalid", "", true},
		{"two digit year", "15/01/24", "", true},
		{"impossible day", "32/01/2024", "", true},
		{"non string", 42.0, "", true},
		{"blank", "  ", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDate(tc.value, nil)
			if tc.isNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  string
		isNil bool
	}{
		{"float", 1200.5, "1200.5", false},
		{"french comma", "1200,00", "1200", false},
		{"spaces and euro sign", "1 234,56 €", "1234.56", false},
		{"plain string", "99.9", "99.9", false},
		{"nil", nil, "", true},
		{"garbage", "abc", "", true},
		{"empty", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDecimal(tc.value, nil)
			if tc.isNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			want, err := decimal.NewFromString(tc.want)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s want %s", got, want)
		})
	}
}
