package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cents, err := Parse("99.99")
	assert.NoError(t, err)
	assert.Equal(t, int64(9999), cents)

	cents, err = Parse("70")
	assert.NoError(t, err)
	assert.Equal(t, int64(7000), cents)

	cents, err = Parse("0.05")
	assert.NoError(t, err)
	assert.Equal(t, int64(5), cents)

	_, err = Parse("1.999")
	assert.Error(t, err)

	_, err = Parse("")
	assert.Error(t, err)

	_, err = Parse("abc")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "99.99", Format(9999))
	assert.Equal(t, "0.00", Format(0))
	assert.Equal(t, "-5.01", Format(-501))
	assert.Equal(t, "70.00", Format(7000))
}

func TestMulRoundHalfEven(t *testing.T) {
	pct := decimal.RequireFromString("0.20")

	// 2999 * 0.20 = 599.8 -> 600
	assert.Equal(t, int64(600), MulRoundHalfEven(2999, pct))

	// ties go to the even cent
	half := decimal.RequireFromString("0.5")
	assert.Equal(t, int64(2), MulRoundHalfEven(5, half))  // 2.5 -> 2
	assert.Equal(t, int64(4), MulRoundHalfEven(7, half))  // 3.5 -> 4
	assert.Equal(t, int64(6), MulRoundHalfEven(11, half)) // 5.5 -> 6

	// stable under repeated computation
	for i := 0; i < 100; i++ {
		assert.Equal(t, int64(600), MulRoundHalfEven(2999, pct))
	}
}

func TestParseRate(t *testing.T) {
	rate, err := ParseRate("0.20")
	assert.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.2")))

	_, err = ParseRate("-0.1")
	assert.Error(t, err)

	_, err = ParseRate("1.5")
	assert.Error(t, err)

	_, err = ParseRate("")
	assert.Error(t, err)
}
