package domain_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docledger/docledger/internal/core/domain"
)

func TestIntegerPow(t *testing.T) {
	assert.Equal(t, int64(1), domain.IntegerPow(10, 0))
	assert.Equal(t, int64(10), domain.IntegerPow(10, 1))
	assert.Equal(t, int64(100000), domain.IntegerPow(10, 5))
	assert.Equal(t, int64(8), domain.IntegerPow(2, 3))
}

func TestAssetAdd_SamePrecision(t *testing.T) {
	a := domain.MustParseAsset("100.00 USD")
	b := domain.MustParseAsset("0.50 USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "100.50 USD", sum.String())
	assert.Equal(t, uint8(2), sum.Precision)
}

func TestAssetAdd_PrecisionAdjusts(t *testing.T) {
	a := domain.MustParseAsset("1.00 USD")
	b := domain.MustParseAsset("0.0001 USD")

	// The lower-precision operand is rescaled; nothing is truncated.
	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "1.0001 USD", sum.String())
	assert.Equal(t, uint8(4), sum.Precision)

	// Commutes.
	sum2, err := b.Add(a)
	require.NoError(t, err)
	assert.Equal(t, sum, sum2)
}

func TestAssetAdd_PrecisionOutOfRange(t *testing.T) {
	a := domain.MustParseAsset("100.00 USD")
	b := domain.NewAsset(0, "USD", 200)

	// Rescaling across an absurd precision gap would wrap the scale factor;
	// even a zero magnitude must be rejected rather than corrupt the sum.
	_, err := a.Add(b)
	assert.Error(t, err)
	_, err = b.Add(a)
	assert.Error(t, err)
	assert.False(t, b.IsValid())
}

func TestAssetAdd_RescaleOverflow(t *testing.T) {
	a := domain.NewAsset(1, "USD", 18)
	b := domain.NewAsset(10, "USD", 0)

	// 10 * 10^18 does not fit in int64.
	_, err := a.Add(b)
	assert.Error(t, err)
}

func TestAssetAdd_SumOverflow(t *testing.T) {
	a := domain.NewAsset(math.MaxInt64, "USD", 2)
	b := domain.NewAsset(1, "USD", 2)

	_, err := a.Add(b)
	assert.Error(t, err)

	neg := domain.NewAsset(math.MinInt64, "USD", 2)
	_, err = neg.Add(domain.NewAsset(-1, "USD", 2))
	assert.Error(t, err)
}

func TestAssetAdd_MismatchedSymbols(t *testing.T) {
	a := domain.MustParseAsset("1.00 USD")
	b := domain.MustParseAsset("1.00 EUR")

	_, err := a.Add(b)
	assert.Error(t, err)
}

func TestAssetSub(t *testing.T) {
	a := domain.MustParseAsset("1.00 USD")
	b := domain.MustParseAsset("2.50 USD")

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "-1.50 USD", diff.String())
	assert.True(t, diff.IsNegative())
}

func TestAssetFromDecimal(t *testing.T) {
	d := decimal.RequireFromString("12.34")

	a, err := domain.AssetFromDecimal(d, "USD", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(123400), a.Amount)
	assert.Equal(t, "12.3400 USD", a.String())
}

func TestAssetFromDecimal_ExcessFractionDigits(t *testing.T) {
	d := decimal.RequireFromString("0.001")

	_, err := domain.AssetFromDecimal(d, "USD", 2)
	assert.Error(t, err, "must refuse to truncate instead of rounding silently")
}

func TestAssetFromDecimal_ExcessivePrecision(t *testing.T) {
	_, err := domain.AssetFromDecimal(decimal.Zero, "USD", 200)
	assert.Error(t, err)

	_, err = domain.AssetFromDecimal(decimal.Zero, "USD", domain.MaxPrecision)
	assert.NoError(t, err)
}

func TestParseAsset(t *testing.T) {
	a, err := domain.ParseAsset("100.0000 USD")
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), a.Amount)
	assert.Equal(t, uint8(4), a.Precision)
	assert.Equal(t, "USD", a.Symbol)
	assert.Equal(t, "100.0000 USD", a.String())
}

func TestParseAsset_Malformed(t *testing.T) {
	for _, bad := range []string{"", "100", "100 usd", "abc USD", "1.0 TOOLONGSYMBOL"} {
		_, err := domain.ParseAsset(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestSumBySymbol(t *testing.T) {
	totals, err := domain.SumBySymbol(nil, domain.MustParseAsset("5.00 USD"))
	require.NoError(t, err)
	totals, err = domain.SumBySymbol(totals, domain.MustParseAsset("-5.00 USD"))
	require.NoError(t, err)
	totals, err = domain.SumBySymbol(totals, domain.MustParseAsset("3.00 EUR"))
	require.NoError(t, err)

	assert.True(t, totals["USD"].IsZero())
	assert.Equal(t, "3.00 EUR", totals["EUR"].String())
}
