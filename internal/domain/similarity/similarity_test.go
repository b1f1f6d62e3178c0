package similarity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAmount_ExactMatch(t *testing.T) {
	assert.Equal(t, 1.0, Amount(amt("1150.00"), amt("1150.00")))
}

func TestAmount_BothZero(t *testing.T) {
	assert.Equal(t, 1.0, Amount(amt("0"), amt("0")))
}

func TestAmount_ZeroAgainstNonZero(t *testing.T) {
	assert.Equal(t, 0.0, Amount(amt("0"), amt("50")))
}

func TestAmount_Bands(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"within 1 percent", "1000.00", "1005.00", 0.95},
		{"within 5 percent", "1000.00", "1030.00", 0.8},
		{"within 10 percent", "1000.00", "1090.00", 0.6},
		{"beyond 10 percent", "1000.00", "1500.00", 0.0},
		{"wildly different", "1000000", "100", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Amount(amt(tt.a), amt(tt.b)))
		})
	}
}

func TestAmount_Symmetric(t *testing.T) {
	a := amt("1000.00")
	b := amt("1030.00")
	assert.Equal(t, Amount(a, b), Amount(b, a))
}

func TestDate_Steps(t *testing.T) {
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		days int
		want float64
	}{
		{"same day", 0, 1.0},
		{"three days", 3, 0.9},
		{"one week", 7, 0.7},
		{"two weeks", 14, 0.5},
		{"one month", 30, 0.3},
		{"beyond a month", 31, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base.AddDate(0, 0, tt.days)
			assert.Equal(t, tt.want, Date(base, other))
			assert.Equal(t, tt.want, Date(other, base))
		})
	}
}

func TestText_ExactMatchIgnoresCase(t *testing.T) {
	assert.Equal(t, 1.0, Text("INV-2024-001", "inv-2024-001"))
}

func TestText_SubstringContainment(t *testing.T) {
	assert.Equal(t, 0.8, Text("Payment for INV-2024-001 thanks", "INV-2024-001"))
}

func TestText_EmptyInput(t *testing.T) {
	assert.Equal(t, 0.0, Text("", "anything"))
	assert.Equal(t, 0.0, Text("anything", ""))
}

func TestText_OverlapIsBounded(t *testing.T) {
	// Unrelated strings should never beat the containment score.
	score := Text("acme widgets", "office rent march")
	assert.Less(t, score, 0.8)
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"shell", "", 5},
		{"shell", "shell", 0},
		{"shell", "shelf", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestVendor_CloseTypo(t *testing.T) {
	// One edit over twelve runes.
	score := Vendor("Shell Garage", "Shell Garge")
	assert.InDelta(t, 1.0-1.0/12.0, score, 0.001)
}

func TestVendor_IdenticalAfterNormalization(t *testing.T) {
	assert.Equal(t, 1.0, Vendor("  SHELL  ", "shell"))
}

func TestVendor_BothEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Vendor("", ""))
}
