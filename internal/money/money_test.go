package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinor(t *testing.T) {
	assert.Equal(t, int64(2500), ToMinor(decimal.NewFromFloat(25.00)))
	assert.Equal(t, int64(1999), ToMinor(decimal.NewFromFloat(19.99)))
	assert.Equal(t, int64(0), ToMinor(decimal.Zero))
	assert.Equal(t, int64(-1050), ToMinor(decimal.NewFromFloat(-10.50)))
}

func TestToMinor_RoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, int64(1), ToMinor(decimal.NewFromFloat(0.005)))
	assert.Equal(t, int64(-1), ToMinor(decimal.NewFromFloat(-0.005)))
	assert.Equal(t, int64(124), ToMinor(decimal.NewFromFloat(1.235)))
	assert.Equal(t, int64(123), ToMinor(decimal.NewFromFloat(1.234)))
}

func TestToMajor(t *testing.T) {
	assert.True(t, decimal.NewFromFloat(19.99).Equal(ToMajor(1999)))
	assert.True(t, decimal.NewFromFloat(-10.50).Equal(ToMajor(-1050)))
}

func TestToMajor_RoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 99, 100, 12345, -250} {
		assert.Equal(t, v, ToMinor(ToMajor(v)))
	}
}

func TestRateToMinor(t *testing.T) {
	assert.Equal(t, int64(2500), RateToMinor(decimal.NewFromFloat(25.0)))
	assert.Equal(t, int64(1750), RateToMinor(decimal.NewFromFloat(17.5)))
	assert.Equal(t, int64(0), RateToMinor(decimal.Zero))
}
