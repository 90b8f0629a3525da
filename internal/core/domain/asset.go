package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Asset is a fixed-point monetary amount: an integer magnitude scaled by
// 10^Precision, tagged with a currency symbol code. All ledger arithmetic is
// integer arithmetic; amounts of differing precision are rescaled up before
// addition so no information is ever lost.
type Asset struct {
	Amount    int64  `json:"amount"`
	Symbol    string `json:"symbol"`
	Precision uint8  `json:"precision"`
}

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,12}$`)

// MaxPrecision bounds the declared fraction digits of an asset. 10^18 still
// fits in int64, so rescaling between any two valid precisions cannot
// overflow the scale factor itself.
const MaxPrecision = 18

// NewAsset builds an asset from a raw scaled magnitude.
func NewAsset(amount int64, symbol string, precision uint8) Asset {
	return Asset{Amount: amount, Symbol: symbol, Precision: precision}
}

// IntegerPow computes x^p by squaring. p must be non-negative.
func IntegerPow(x, p int64) int64 {
	if p == 0 {
		return 1
	}
	if p == 1 {
		return x
	}
	tmp := IntegerPow(x, p/2)
	if p%2 == 0 {
		return tmp * tmp
	}
	return x * tmp * tmp
}

// IsValid reports whether the symbol code is well formed and the declared
// precision is within the representable range.
func (a Asset) IsValid() bool {
	return symbolPattern.MatchString(a.Symbol) && a.Precision <= MaxPrecision
}

// IsZero reports whether the magnitude is zero.
func (a Asset) IsZero() bool {
	return a.Amount == 0
}

// IsNegative reports whether the magnitude is below zero.
func (a Asset) IsNegative() bool {
	return a.Amount < 0
}

// Negated returns the asset with the sign of its magnitude flipped.
func (a Asset) Negated() Asset {
	return Asset{Amount: -a.Amount, Symbol: a.Symbol, Precision: a.Precision}
}

// Add sums two assets of the same symbol, adjusting precision upward: the
// lower-precision operand is rescaled by 10^(diff) before integer addition, and
// the result carries the larger precision.
func (a Asset) Add(b Asset) (Asset, error) {
	if a.Symbol != b.Symbol {
		return Asset{}, fmt.Errorf("cannot add mismatched symbols %s and %s", a.Symbol, b.Symbol)
	}
	if a.Precision > MaxPrecision || b.Precision > MaxPrecision {
		return Asset{}, fmt.Errorf("asset precision exceeds %d decimal places", MaxPrecision)
	}
	if a.Precision < b.Precision {
		a, b = b, a
	}
	factor := IntegerPow(10, int64(a.Precision)-int64(b.Precision))
	if b.Amount > math.MaxInt64/factor || b.Amount < math.MinInt64/factor {
		return Asset{}, fmt.Errorf("rescaling %s to %d decimal places overflows", b, a.Precision)
	}
	scaled := b.Amount * factor
	if (scaled > 0 && a.Amount > math.MaxInt64-scaled) || (scaled < 0 && a.Amount < math.MinInt64-scaled) {
		return Asset{}, fmt.Errorf("sum of %s and %s overflows", a, b)
	}
	return Asset{Amount: a.Amount + scaled, Symbol: a.Symbol, Precision: a.Precision}, nil
}

// Sub subtracts b from a with the same precision-adjusting rules as Add.
func (a Asset) Sub(b Asset) (Asset, error) {
	return a.Add(b.Negated())
}

// Decimal converts the fixed-point magnitude to an exact decimal value.
func (a Asset) Decimal() decimal.Decimal {
	return decimal.New(a.Amount, -int32(a.Precision))
}

// AssetFromDecimal converts a decimal value into a fixed-point asset with the
// given precision. Fails if the value carries more fraction digits than the
// precision can represent, rather than silently truncating.
func AssetFromDecimal(d decimal.Decimal, symbol string, precision uint8) (Asset, error) {
	if precision > MaxPrecision {
		return Asset{}, fmt.Errorf("precision %d exceeds maximum of %d decimal places", precision, MaxPrecision)
	}
	scaled := d.Shift(int32(precision))
	if !scaled.IsInteger() {
		return Asset{}, fmt.Errorf("value %s does not fit in %d decimal places", d.String(), precision)
	}
	if !scaled.BigInt().IsInt64() {
		return Asset{}, fmt.Errorf("value %s overflows asset magnitude", d.String())
	}
	return Asset{Amount: scaled.IntPart(), Symbol: symbol, Precision: precision}, nil
}

// String renders the canonical asset form, e.g. "100.0000 USD".
func (a Asset) String() string {
	return a.Decimal().StringFixed(int32(a.Precision)) + " " + a.Symbol
}

// ParseAsset parses the canonical "<amount> <SYMBOL>" form. Precision is taken
// from the number of fraction digits as written.
func ParseAsset(s string) (Asset, error) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) != 2 {
		return Asset{}, fmt.Errorf("malformed asset %q, want \"<amount> <SYMBOL>\"", s)
	}
	var precision uint8
	if idx := strings.IndexByte(parts[0], '.'); idx >= 0 {
		frac := len(parts[0]) - idx - 1
		if frac > MaxPrecision {
			return Asset{}, fmt.Errorf("asset %q exceeds maximum precision", s)
		}
		precision = uint8(frac)
	}
	d, err := decimal.NewFromString(parts[0])
	if err != nil {
		return Asset{}, fmt.Errorf("malformed asset amount %q: %w", parts[0], err)
	}
	a, err := AssetFromDecimal(d, parts[1], precision)
	if err != nil {
		return Asset{}, err
	}
	if !a.IsValid() {
		return Asset{}, fmt.Errorf("malformed asset symbol %q", parts[1])
	}
	return a, nil
}

// MustParseAsset is ParseAsset for literals in tests and fixtures.
func MustParseAsset(s string) Asset {
	a, err := ParseAsset(s)
	if err != nil {
		panic(err)
	}
	return a
}

// SumBySymbol folds signed assets into a per-symbol total using
// precision-adjusting addition. The sign of each contribution is supplied by
// the caller.
func SumBySymbol(totals map[string]Asset, contribution Asset) (map[string]Asset, error) {
	if totals == nil {
		totals = make(map[string]Asset)
	}
	cur, ok := totals[contribution.Symbol]
	if !ok {
		totals[contribution.Symbol] = contribution
		return totals, nil
	}
	sum, err := cur.Add(contribution)
	if err != nil {
		return nil, err
	}
	totals[contribution.Symbol] = sum
	return totals, nil
}
